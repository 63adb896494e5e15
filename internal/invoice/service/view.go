package service

import (
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
)

var lineFields = []invoicedomain.Field{
	invoicedomain.FieldQuantity,
	invoicedomain.FieldRate,
	invoicedomain.FieldDiscountPercentage,
	invoicedomain.FieldTaxPercentage,
}

// view snapshots the session. The caller holds entry.mu. drain hands pending
// warnings to this view so each is reported once.
func (s *Service) view(entry *sessionEntry, drain bool) *invoicedomain.SessionView {
	ed := entry.editor
	regime := ed.Regime()
	state := ed.Currency()

	lines := ed.Lines()
	views := make([]invoicedomain.LineView, 0, len(lines))
	for _, l := range lines {
		display := make(map[invoicedomain.Field]string, len(lineFields))
		for _, f := range lineFields {
			display[f] = ed.Display(l.ID, f)
		}
		_, loading := ed.PendingToken(l.ID)
		views = append(views, invoicedomain.LineView{
			LineItem: l,
			Display:  display,
			Loading:  loading,
		})
	}

	v := &invoicedomain.SessionView{
		ID:              entry.id,
		OrganizationID:  entry.orgID.String(),
		CustomerID:      entry.customerID.String(),
		CustomerStateID: entry.customerStateID,
		InvoiceDate:     entry.invoiceDate,
		Currency:        entry.currency,
		HomeCurrency:    entry.homeCurrency,
		Foreign:         state.Foreign,
		ExchangeRate:    state.ExchangeRate,
		Regime: invoicedomain.RegimeView{
			Kind:   regime.Kind,
			Name:   regime.Name,
			Labels: regime.Labels,
		},
		Lines:          views,
		Header:         ed.Header(),
		AdjustmentText: ed.Display("", invoicedomain.FieldAdjustmentAmount),
		Status:         invoicedomain.InvoiceStatusDraft,
	}
	if entry.invoiceID != 0 {
		v.InvoiceID = entry.invoiceID.String()
		v.InvoiceNumber = entry.invoiceNumber
	}
	if entry.submitted {
		v.Status = invoicedomain.InvoiceStatusSubmitted
	}
	if drain {
		v.Warnings = entry.drainWarnings()
	} else {
		v.Warnings = append([]invoicedomain.Warning(nil), entry.warnings...)
	}
	return v
}
