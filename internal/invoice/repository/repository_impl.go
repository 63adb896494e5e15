package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/format"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db             *gorm.DB
	numberTemplate string
}

func NewRepository(db *gorm.DB) invoicedomain.Repository {
	return NewRepositoryWithTemplate(db, format.DefaultInvoiceNumberTemplate)
}

// NewRepositoryWithTemplate numbers saved invoices with template. An empty
// template uses format.DefaultInvoiceNumberTemplate.
func NewRepositoryWithTemplate(db *gorm.DB, template string) invoicedomain.Repository {
	if strings.TrimSpace(template) == "" {
		template = format.DefaultInvoiceNumberTemplate
	}
	return &repository{db: db, numberTemplate: template}
}

// Save assigns the organization's next invoice number and writes the invoice
// with its items and tax lines in one transaction.
func (r *repository) Save(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, taxLines := invoice.Items, invoice.TaxLines
		invoice.Items, invoice.TaxLines = nil, nil
		defer func() { invoice.Items, invoice.TaxLines = items, taxLines }()

		seq, err := nextInvoiceNumber(tx, invoice.OrgID, invoice.UpdatedAt)
		if err != nil {
			return err
		}
		display, err := format.FormatInvoiceNumber(r.numberTemplate, invoice.InvoiceDate, seq)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = seq
		invoice.DisplayNumber = display

		if err := tx.Create(invoice).Error; err != nil {
			return err
		}
		return createChildren(tx, items, taxLines)
	})
}

// Replace overwrites the header of a stored invoice and swaps its items and
// tax lines. The invoice number is kept and copied back into invoice.
func (r *repository) Replace(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, taxLines := invoice.Items, invoice.TaxLines
		invoice.Items, invoice.TaxLines = nil, nil
		defer func() { invoice.Items, invoice.TaxLines = items, taxLines }()

		var stored invoicedomain.Invoice
		err := tx.Select("invoice_number", "display_number").
			Where("org_id = ? AND id = ?", invoice.OrgID, invoice.ID).
			Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.ErrInvoiceNotFound
		}
		if err != nil {
			return err
		}

		result := tx.Model(&invoicedomain.Invoice{}).
			Where("org_id = ? AND id = ?", invoice.OrgID, invoice.ID).
			Select("*").
			Omit("id", "org_id", "invoice_number", "display_number", "created_at").
			Updates(invoice)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrInvoiceNotFound
		}
		invoice.InvoiceNumber = stored.InvoiceNumber
		invoice.DisplayNumber = stored.DisplayNumber

		if err := tx.Where("org_id = ? AND invoice_id = ?", invoice.OrgID, invoice.ID).
			Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("org_id = ? AND invoice_id = ?", invoice.OrgID, invoice.ID).
			Delete(&invoicedomain.InvoiceTaxLine{}).Error; err != nil {
			return err
		}
		return createChildren(tx, items, taxLines)
	})
}

func createChildren(tx *gorm.DB, items []invoicedomain.InvoiceItem, taxLines []invoicedomain.InvoiceTaxLine) error {
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(taxLines) > 0 {
		if err := tx.Create(&taxLines).Error; err != nil {
			return err
		}
	}
	return nil
}

// nextInvoiceNumber reserves the next number of the organization. The
// increment holds the sequence row lock until the transaction ends.
func nextInvoiceNumber(tx *gorm.DB, orgID snowflake.ID, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	seed := invoicedomain.InvoiceSequence{OrgID: orgID, NextNumber: 1, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&invoicedomain.InvoiceSequence{}).
		Where("org_id = ?", orgID).
		Updates(map[string]any{
			"next_number": gorm.Expr("next_number + 1"),
			"updated_at":  now,
		}).Error; err != nil {
		return 0, err
	}

	var seq invoicedomain.InvoiceSequence
	if err := tx.Where("org_id = ?", orgID).Take(&seq).Error; err != nil {
		return 0, err
	}
	return seq.NextNumber - 1, nil
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.find(r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repository) FindBySession(ctx context.Context, orgID snowflake.ID, sessionID string) (*invoicedomain.Invoice, error) {
	return r.find(r.db.WithContext(ctx).Where("org_id = ? AND session_id = ?", orgID, sessionID))
}

func (r *repository) find(query *gorm.DB) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq_no ASC")
		}).
		Preload("TaxLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq_no ASC")
		}).
		Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
