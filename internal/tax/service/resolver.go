package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type resolverParam struct {
	fx.In

	Log        *zap.Logger
	Repository taxdomain.Repository
	Rules      taxdomain.RulesSource
}

type resolver struct {
	log   *zap.Logger
	repo  taxdomain.Repository
	rules taxdomain.RulesSource
}

func NewResolver(p resolverParam) taxdomain.RegimeResolver {
	return &resolver{
		log:   p.Log.Named("tax.resolver"),
		repo:  p.Repository,
		rules: p.Rules,
	}
}

func (r *resolver) ResolveForInvoice(ctx context.Context, orgID snowflake.ID, customerStateID string) (taxdomain.Regime, error) {
	cfg, err := r.repo.GetActiveConfig(ctx, orgID)
	if err != nil {
		return taxdomain.Disabled(), err
	}

	regime := ResolveRegime(cfg, customerStateID, r.rules.Rules())
	r.log.Debug("resolved tax regime",
		zap.String("org_id", orgID.String()),
		zap.String("regime", string(regime.Kind)),
		zap.String("name", regime.Name),
	)
	return regime, nil
}

// ResolveRegime maps an organization's tax configuration and the customer's
// jurisdiction onto a regime. A nil or disabled config yields TaxDisabled.
func ResolveRegime(cfg *taxdomain.OrganizationTaxConfig, customerStateID string, rules taxdomain.Rules) taxdomain.Regime {
	if cfg == nil || !cfg.IsEnabled {
		return taxdomain.Disabled()
	}

	code := strings.ToUpper(strings.TrimSpace(cfg.TaxTypeCode))
	if code == "" || isSplitCode(code, rules.SplitCodePrefixes) {
		labels := taxdomain.Labels{
			ComponentA: rules.LocalComponentA,
			ComponentB: rules.LocalComponentB,
			Combined:   rules.RemoteComponent,
		}
		name := rules.SplitName
		if name == "" {
			name = code
		}

		orgState := strings.TrimSpace(cfg.StateID)
		customerState := strings.TrimSpace(customerStateID)
		if orgState != "" && customerState != "" && orgState == customerState {
			return taxdomain.SplitLocal(name, labels)
		}
		return taxdomain.SplitRemote(name, labels)
	}

	name := strings.TrimSpace(cfg.TaxTypeName)
	if name == "" {
		name = strings.TrimSpace(cfg.TaxTypeCode)
	}
	if name == "" {
		name = rules.DefaultSingleName
	}
	return taxdomain.Single(name)
}

// BucketCode is the machine code a single-tax bucket is persisted under.
func BucketCode(name string) string {
	return slug.Make(name)
}

func isSplitCode(code string, prefixes []string) bool {
	for _, prefix := range prefixes {
		p := strings.ToUpper(strings.TrimSpace(prefix))
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
