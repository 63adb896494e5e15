package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// Save writes the invoice and its items in one transaction.
	Save(ctx context.Context, invoice *Invoice) error
	// Replace overwrites an existing invoice header and swaps its items.
	Replace(ctx context.Context, invoice *Invoice) error
	// FindByID returns nil, nil when the invoice does not exist.
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Invoice, error)
	// FindBySession returns nil, nil when the session was never submitted.
	FindBySession(ctx context.Context, orgID snowflake.ID, sessionID string) (*Invoice, error)
}
