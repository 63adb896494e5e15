package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
)

var validate = validator.New()

// Service drives invoice edit sessions. Every mutating call returns the
// session view after the change, with any warnings raised by it.
type Service interface {
	OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionView, error)
	GetSession(ctx context.Context, sessionID string) (*SessionView, error)
	CloseSession(ctx context.Context, sessionID string) error

	AddRow(ctx context.Context, sessionID string) (*SessionView, error)
	RemoveRow(ctx context.Context, sessionID, rowID string) (*SessionView, error)
	SelectItem(ctx context.Context, sessionID, rowID, itemID string) (*SessionView, error)

	FocusField(ctx context.Context, sessionID, rowID string, field Field) (*SessionView, error)
	EditField(ctx context.Context, sessionID, rowID string, field Field, raw string) (*SessionView, error)
	BlurField(ctx context.Context, sessionID, rowID string, field Field) (*SessionView, error)

	ChangeCurrency(ctx context.Context, sessionID string, req ChangeCurrencyRequest) (*SessionView, error)
	EditExchangeRate(ctx context.Context, sessionID string, rate decimal.Decimal) (*SessionView, error)
	EditAdjustment(ctx context.Context, sessionID string, req EditAdjustmentRequest) (*SessionView, error)

	Submit(ctx context.Context, sessionID string) (*Invoice, error)
	RenderPDF(ctx context.Context, sessionID string) ([]byte, error)
}

type OpenSessionRequest struct {
	CustomerID      string `json:"customer_id" validate:"required,numeric"`
	CustomerStateID string `json:"customer_state_id"`
	// Currency defaults to the home currency.
	Currency    string     `json:"currency" validate:"omitempty,len=3,alpha"`
	InvoiceDate *time.Time `json:"invoice_date"`
	// InvoiceID reopens a submitted invoice for editing.
	InvoiceID string `json:"invoice_id" validate:"omitempty,numeric"`
}

func (r *OpenSessionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	return nil
}

type ChangeCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
	// ExchangeRate overrides the looked up rate when set.
	ExchangeRate *decimal.Decimal `json:"exchange_rate"`
}

func (r *ChangeCurrencyRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCurrency, err.Error())
	}
	return nil
}

// EditAdjustmentRequest changes only the fields that are set.
type EditAdjustmentRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Name      *string          `json:"name"`
	AccountID *string          `json:"account_id"`
}

type RegimeView struct {
	Kind   taxdomain.RegimeKind `json:"kind"`
	Name   string               `json:"name,omitempty"`
	Labels taxdomain.Labels     `json:"labels"`
}

// LineView is a line with the text each numeric cell currently shows.
type LineView struct {
	LineItem
	Display map[Field]string `json:"display"`
	// Loading is set while a catalog fetch for the row is outstanding.
	Loading bool `json:"loading"`
}

type SessionView struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerStateID string          `json:"customer_state_id,omitempty"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	Currency        string          `json:"currency"`
	HomeCurrency    string          `json:"home_currency"`
	Foreign         bool            `json:"foreign"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	Regime          RegimeView      `json:"regime"`
	Lines           []LineView      `json:"lines"`
	Header          Header          `json:"header"`
	AdjustmentText  string          `json:"adjustment_text"`
	Warnings        []Warning       `json:"warnings,omitempty"`
	InvoiceID       string          `json:"invoice_id,omitempty"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	Status          InvoiceStatus   `json:"status"`
}
