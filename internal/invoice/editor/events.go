package editor

import (
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
)

// Event is one input to a Session. The set is closed.
type Event interface {
	eventName() string
}

// RowAdded appends an empty line.
type RowAdded struct{}

type RowRemoved struct {
	RowID string
}

// ItemSelected records an item choice and asks the caller to fetch its data.
// An empty ItemID clears the selection.
type ItemSelected struct {
	RowID  string
	ItemID string
}

// ItemDataArrived delivers the result of a catalog fetch. Data is nil and Err
// set when the lookup failed.
type ItemDataArrived struct {
	RowID string
	Token string
	Data  *catalogdomain.ItemSalesData
	Err   error
}

type CurrencyModeToggled struct {
	Foreign bool
}

// RateEdited carries a new exchange rate.
type RateEdited struct {
	ExchangeRate decimal.Decimal
}

type FieldFocused struct {
	RowID string
	Field invoicedomain.Field
}

// FieldEdited carries the raw text of a cell after a keystroke.
type FieldEdited struct {
	RowID string
	Field invoicedomain.Field
	Raw   string
}

type FieldBlurred struct {
	RowID string
	Field invoicedomain.Field
}

// AdjustmentEdited sets the committed adjustment. A nil Name leaves the
// current name unchanged.
type AdjustmentEdited struct {
	Amount decimal.Decimal
	Name   *string
}

type AdjustmentAccountChosen struct {
	AccountID string
}

// LinesLoaded replaces the whole collection, as when reopening an invoice.
type LinesLoaded struct {
	Lines []invoicedomain.LineItem
}

func (RowAdded) eventName() string                { return "row_added" }
func (RowRemoved) eventName() string              { return "row_removed" }
func (ItemSelected) eventName() string            { return "item_selected" }
func (ItemDataArrived) eventName() string         { return "item_data_arrived" }
func (CurrencyModeToggled) eventName() string     { return "currency_mode_toggled" }
func (RateEdited) eventName() string              { return "rate_edited" }
func (FieldFocused) eventName() string            { return "field_focused" }
func (FieldEdited) eventName() string             { return "field_edited" }
func (FieldBlurred) eventName() string            { return "field_blurred" }
func (AdjustmentEdited) eventName() string        { return "adjustment_edited" }
func (AdjustmentAccountChosen) eventName() string { return "adjustment_account_chosen" }
func (LinesLoaded) eventName() string             { return "lines_loaded" }

// EventName returns the metric label of ev.
func EventName(ev Event) string {
	if ev == nil {
		return "unknown"
	}
	return ev.eventName()
}

// FetchRequest asks the caller to look up catalog data and answer with an
// ItemDataArrived carrying the same token.
type FetchRequest struct {
	RowID  string
	ItemID string
	Token  string
}

// Result reports the effects of one event.
type Result struct {
	// RowID is set for RowAdded.
	RowID    string
	Fetch    *FetchRequest
	Warnings []invoicedomain.Warning
	// Stale is set when an ItemDataArrived no longer matched its row.
	Stale bool
}
