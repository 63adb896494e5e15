package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  taxdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  taxdomain.Repository
}

func NewService(p serviceParams) taxdomain.Service {
	return &Service{
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	item, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

// Upsert registers the organization for tax or replaces its registration.
// Upserting re-enables a disabled configuration.
func (s *Service) Upsert(ctx context.Context, req taxdomain.UpsertRequest) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	code := strings.TrimSpace(req.TaxTypeCode)
	name := strings.TrimSpace(req.TaxTypeName)
	if code == "" && name == "" {
		return nil, taxdomain.ErrInvalidName
	}

	item, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	create := item == nil
	if create {
		item = &taxdomain.OrganizationTaxConfig{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			CreatedAt: now,
		}
	}
	item.TaxTypeCode = code
	item.TaxTypeName = name
	item.StateID = strings.TrimSpace(req.StateID)
	item.IsEnabled = true
	item.UpdatedAt = now

	if err := item.Validate(); err != nil {
		return nil, err
	}

	if create {
		err = s.repo.Create(ctx, item)
	} else {
		err = s.repo.Update(ctx, item)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("tax configuration saved",
		zap.String("org_id", orgID.String()),
		zap.String("tax_type_code", item.TaxTypeCode),
		zap.Bool("created", create),
	)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Disable(ctx context.Context) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	item, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrNotFound
	}

	item.IsEnabled = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func toResponse(cfg *taxdomain.OrganizationTaxConfig) taxdomain.Response {
	return taxdomain.Response{
		ID:             cfg.ID.String(),
		OrganizationID: cfg.OrgID.String(),
		TaxTypeCode:    cfg.TaxTypeCode,
		TaxTypeName:    cfg.TaxTypeName,
		StateID:        cfg.StateID,
		IsEnabled:      cfg.IsEnabled,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}
