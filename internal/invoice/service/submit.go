package service

import (
	"context"
	"errors"
	"fmt"

	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/observability/logger"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/smallbiznis/salesdesk/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Submit validates the session and persists a snapshot of it. Blank rows are
// dropped and the remaining lines renumbered from 1. A session opened on a
// stored invoice replaces that invoice.
func (s *Service) Submit(ctx context.Context, sessionID string) (*invoicedomain.Invoice, error) {
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "invoice.session.submit")
	defer span.End()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.editable(entry); err != nil {
		return nil, recordSpanError(span, err)
	}

	invoice, err := s.submit(ctx, entry)
	s.metrics.IncSubmission(metrics.ClassifySubmitOutcome(err, isInvalidSubmission, isDuplicateSubmission))
	if err != nil {
		if !isInvalidSubmission(err) {
			logger.WithContext(ctx, s.log).Error("submit invoice", zap.String("session_id", entry.id), zap.Error(err))
		}
		return nil, recordSpanError(span, err)
	}

	span.SetAttributes(
		attribute.String("invoice.id", invoice.ID.String()),
		attribute.Int("invoice.lines", len(invoice.Items)),
	)
	logger.WithContext(ctx, s.log).Info("submitted invoice",
		zap.String("session_id", entry.id),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("net_total", invoice.NetTotal.String()),
		zap.Int("lines", len(invoice.Items)),
	)
	return invoice, nil
}

func (s *Service) submit(ctx context.Context, entry *sessionEntry) (*invoicedomain.Invoice, error) {
	lines := submittableLines(entry.editor.Lines())
	if err := s.checkSubmission(ctx, entry, lines); err != nil {
		return nil, err
	}

	replacing := entry.invoiceID != 0
	invoice := s.buildInvoice(entry, lines)

	var err error
	if replacing {
		err = s.repo.Replace(ctx, invoice)
	} else {
		err = s.repo.Save(ctx, invoice)
	}
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: %v", invoicedomain.ErrAlreadySubmitted, err)
		}
		return nil, err
	}

	entry.invoiceID = invoice.ID
	entry.invoiceNumber = invoice.DisplayNumber
	entry.submitted = true
	return invoice, nil
}

// submittableLines drops rows that were never filled in.
func submittableLines(lines []invoicedomain.LineItem) []invoicedomain.LineItem {
	out := make([]invoicedomain.LineItem, 0, len(lines))
	for _, l := range lines {
		if l.ItemID == "" && l.Quantity.IsZero() && l.Rate.IsZero() {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (s *Service) checkSubmission(ctx context.Context, entry *sessionEntry, lines []invoicedomain.LineItem) error {
	var errs invoicedomain.SubmitErrors
	if len(lines) == 0 {
		errs.Add("lines", "lines_required", "add at least one line")
	}
	for i, l := range lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.ItemID == "" {
			errs.Add(field+".item_id", "item_required", "select an item")
		}
		if !l.Quantity.IsPositive() {
			errs.Add(field+".quantity", "quantity_invalid", "quantity must be greater than zero")
		}
		if l.Rate.IsNegative() {
			errs.Add(field+".rate", "rate_invalid", "rate cannot be negative")
		}
	}

	adj := entry.editor.Adjustment()
	switch {
	case !adj.Amount.IsZero() && adj.AccountID == "":
		errs.Add("adjustment_account_id", "adjustment_account_required", "choose an account for the adjustment")
	case adj.AccountID != "":
		exists, err := s.accounts.Exists(ctx, adj.AccountID)
		if err != nil {
			return err
		}
		if !exists {
			errs.Add("adjustment_account_id", "adjustment_account_invalid", "adjustment account is not active")
		}
	}
	return errs.Err()
}

func (s *Service) buildInvoice(entry *sessionEntry, lines []invoicedomain.LineItem) *invoicedomain.Invoice {
	id := entry.invoiceID
	if id == 0 {
		id = s.genID.Generate()
	}
	header := entry.editor.Header()
	regime := entry.editor.Regime()
	state := entry.editor.Currency()
	now := s.clock.Now()

	invoice := &invoicedomain.Invoice{
		ID:                  id,
		OrgID:               entry.orgID,
		SessionID:           entry.id,
		CustomerID:          entry.customerID,
		CustomerStateID:     entry.customerStateID,
		InvoiceDate:         entry.invoiceDate,
		Currency:            entry.currency,
		HomeCurrency:        entry.homeCurrency,
		IsForeign:           state.Foreign,
		ExchangeRate:        state.ExchangeRate,
		TaxRegime:           string(regime.Kind),
		Status:              invoicedomain.InvoiceStatusSubmitted,
		GrossTotal:          header.GrossTotal,
		TotalDiscount:       header.TotalDiscount,
		TotalTax:            header.TotalTax,
		AdjustmentAmount:    header.AdjustmentAmount,
		AdjustmentName:      header.AdjustmentName,
		AdjustmentAccountID: header.AdjustmentAccountID,
		NetTotal:            header.NetTotal,
		PendingAmount:       header.NetTotal,

		GrossTotalBase:       header.GrossTotalBase,
		TotalDiscountBase:    header.TotalDiscountBase,
		TotalTaxBase:         header.TotalTaxBase,
		AdjustmentAmountBase: header.AdjustmentAmountBase,
		NetTotalBase:         header.NetTotalBase,

		Metadata:  regimeMetadata(regime),
		CreatedAt: now,
		UpdatedAt: now,
	}

	invoice.Items = make([]invoicedomain.InvoiceItem, 0, len(lines))
	for i, l := range lines {
		item := invoicedomain.InvoiceItem{
			ID:                 s.genID.Generate(),
			OrgID:              entry.orgID,
			InvoiceID:          id,
			SeqNo:              i + 1,
			ItemID:             l.ItemID,
			ItemName:           l.ItemName,
			Description:        l.Description,
			UnitID:             l.UnitID,
			UnitName:           l.UnitName,
			TaxCategoryID:      l.CategoryID,
			TaxCategoryName:    l.TaxCategoryName,
			AccountID:          l.AccountID,
			Quantity:           l.Quantity,
			Rate:               l.Rate,
			DiscountPercentage: l.DiscountPercentage,
			TaxPercentage:      l.TaxPercentage,
			Amount:             l.Amount,
			DiscountAmount:     l.DiscountAmount,
			TaxableAmount:      l.TaxableAmount,
			TaxAmount:          l.TaxAmount,
			NetAmount:          l.NetAmount,
			DiscountAmountBase: l.DiscountAmountBase,
			TaxableAmountBase:  l.TaxableAmountBase,
			TaxAmountBase:      l.TaxAmountBase,
			NetAmountBase:      l.NetAmountBase,
			CreatedAt:          now,
		}
		if l.RateBase != nil {
			item.RateBase.Decimal = *l.RateBase
			item.RateBase.Valid = true
		}
		invoice.Items = append(invoice.Items, item)
	}

	invoice.TaxLines = make([]invoicedomain.InvoiceTaxLine, 0, len(header.TaxBuckets))
	for i, b := range header.TaxBuckets {
		invoice.TaxLines = append(invoice.TaxLines, invoicedomain.InvoiceTaxLine{
			ID:         s.genID.Generate(),
			OrgID:      entry.orgID,
			InvoiceID:  id,
			SeqNo:      i + 1,
			TaxCode:    b.Code,
			TaxName:    b.Label,
			Amount:     b.Amount,
			AmountBase: b.AmountBase,
			CreatedAt:  now,
		})
	}
	return invoice
}

func regimeMetadata(regime taxdomain.Regime) datatypes.JSONMap {
	meta := datatypes.JSONMap{}
	if regime.Name != "" {
		meta["tax_name"] = regime.Name
	}
	if regime.Kind == taxdomain.RegimeSplitTaxLocal || regime.Kind == taxdomain.RegimeSplitTaxRemote {
		meta["tax_labels"] = map[string]any{
			"component_a": regime.Labels.ComponentA,
			"component_b": regime.Labels.ComponentB,
			"combined":    regime.Labels.Combined,
		}
	}
	return meta
}

func isInvalidSubmission(err error) bool {
	var submitErrs *invoicedomain.SubmitErrors
	return errors.As(err, &submitErrs)
}

func isDuplicateSubmission(err error) bool {
	return errors.Is(err, invoicedomain.ErrAlreadySubmitted)
}
