package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RegimeResolver returns the tax regime an invoice for a customer is edited
// under.
type RegimeResolver interface {
	ResolveForInvoice(ctx context.Context, orgID snowflake.ID, customerStateID string) (Regime, error)
}

// RulesSource supplies the current detection rules; implementations may hot
// reload them.
type RulesSource interface {
	Rules() Rules
}

type Service interface {
	Get(ctx context.Context) (*Response, error)
	Upsert(ctx context.Context, req UpsertRequest) (*Response, error)
	Disable(ctx context.Context) (*Response, error)
}

type UpsertRequest struct {
	TaxTypeCode string `json:"tax_type_code"`
	TaxTypeName string `json:"tax_type_name"`
	StateID     string `json:"state_id"`
}

type Response struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	TaxTypeCode    string    `json:"tax_type_code"`
	TaxTypeName    string    `json:"tax_type_name"`
	StateID        string    `json:"state_id"`
	IsEnabled      bool      `json:"is_enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
