package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const indentUnit = "  "

type directoryParams struct {
	fx.In

	Log  *zap.Logger
	Repo accountdomain.Repository
}

type directory struct {
	log  *zap.Logger
	repo accountdomain.Repository
}

func NewDirectory(p directoryParams) accountdomain.Directory {
	return &directory{
		log:  p.Log.Named("account.directory"),
		repo: p.Repo,
	}
}

func (d *directory) ListOptions(ctx context.Context, filter accountdomain.ListFilter) ([]accountdomain.Option, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidOrganization
	}

	types := make([]string, 0, len(filter.AccountTypes))
	for _, t := range filter.AccountTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	groups, err := d.repo.ListGroups(ctx, orgID)
	if err != nil {
		return nil, err
	}
	accounts, err := d.repo.ListAccounts(ctx, orgID, types)
	if err != nil {
		return nil, err
	}

	return FlattenTree(groups, accounts, filter.MaxDepth), nil
}

func (d *directory) Exists(ctx context.Context, accountID string) (bool, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return false, accountdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(accountID))
	if err != nil {
		return false, nil
	}
	account, err := d.repo.FindActive(ctx, orgID, id)
	if err != nil {
		return false, err
	}
	return account != nil, nil
}

// FlattenTree walks the group tree depth first. At each group its active
// accounts come first, then its child groups one level deeper. Accounts whose
// group is unknown are listed at the root.
func FlattenTree(groups []accountdomain.AccountGroup, accounts []accountdomain.LedgerAccount, maxDepth int) []accountdomain.Option {
	known := make(map[snowflake.ID]bool, len(groups))
	children := make(map[snowflake.ID][]accountdomain.AccountGroup)
	var roots []accountdomain.AccountGroup
	for _, g := range groups {
		known[g.ID] = true
	}
	for _, g := range groups {
		if g.ParentID == nil || !known[*g.ParentID] {
			roots = append(roots, g)
			continue
		}
		children[*g.ParentID] = append(children[*g.ParentID], g)
	}

	byGroup := make(map[snowflake.ID][]accountdomain.LedgerAccount)
	var orphans []accountdomain.LedgerAccount
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		if !known[a.GroupID] {
			orphans = append(orphans, a)
			continue
		}
		byGroup[a.GroupID] = append(byGroup[a.GroupID], a)
	}

	out := make([]accountdomain.Option, 0, len(accounts))
	appendAccounts := func(list []accountdomain.LedgerAccount, depth int) {
		indent := strings.Repeat(indentUnit, depth)
		for _, a := range list {
			out = append(out, accountdomain.Option{
				ID:    a.ID.String(),
				Code:  a.Code,
				Name:  a.Name,
				Label: indent + a.Name,
				Depth: depth,
			})
		}
	}

	visited := make(map[snowflake.ID]bool, len(groups))
	var walk func(nodes []accountdomain.AccountGroup, depth int)
	walk = func(nodes []accountdomain.AccountGroup, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, g := range nodes {
			if visited[g.ID] {
				continue
			}
			visited[g.ID] = true
			appendAccounts(byGroup[g.ID], depth)
			walk(children[g.ID], depth+1)
		}
	}

	walk(roots, 0)
	appendAccounts(orphans, 0)
	return out
}
