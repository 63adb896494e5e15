package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Directory lists accounts an invoice adjustment can be posted to.
type Directory interface {
	ListOptions(ctx context.Context, filter ListFilter) ([]Option, error)
	// Exists reports whether accountID is an active account of the caller's
	// organization.
	Exists(ctx context.Context, accountID string) (bool, error)
}

type Repository interface {
	ListGroups(ctx context.Context, orgID snowflake.ID) ([]AccountGroup, error)
	ListAccounts(ctx context.Context, orgID snowflake.ID, accountTypes []string) ([]LedgerAccount, error)
	FindActive(ctx context.Context, orgID, id snowflake.ID) (*LedgerAccount, error)
}
