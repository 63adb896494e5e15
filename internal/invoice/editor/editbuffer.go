package editor

import (
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/money"
)

type cellKey struct {
	rowID string
	field invoicedomain.Field
}

// EditBuffer holds the raw text of cells being typed into, separate from the
// committed numeric values. The header adjustment uses an empty row ID.
type EditBuffer struct {
	cells map[cellKey]string
}

func NewEditBuffer() *EditBuffer {
	return &EditBuffer{cells: make(map[cellKey]string)}
}

// Set stores text for a cell, activating it.
func (b *EditBuffer) Set(rowID string, field invoicedomain.Field, text string) {
	b.cells[cellKey{rowID, field}] = text
}

// Get returns the buffered text and whether the cell is active.
func (b *EditBuffer) Get(rowID string, field invoicedomain.Field) (string, bool) {
	text, ok := b.cells[cellKey{rowID, field}]
	return text, ok
}

// Committed is the numeric value the buffered text stands for.
func (b *EditBuffer) Committed(rowID string, field invoicedomain.Field) (decimal.Decimal, bool) {
	text, ok := b.Get(rowID, field)
	if !ok {
		return decimal.Zero, false
	}
	return money.ParseOrZero(text), true
}

// Discard drops a cell's text.
func (b *EditBuffer) Discard(rowID string, field invoicedomain.Field) {
	delete(b.cells, cellKey{rowID, field})
}

// DiscardRow drops every cell of a row.
func (b *EditBuffer) DiscardRow(rowID string) {
	for k := range b.cells {
		if k.rowID == rowID {
			delete(b.cells, k)
		}
	}
}

// DiscardField drops a field across all rows.
func (b *EditBuffer) DiscardField(field invoicedomain.Field) {
	for k := range b.cells {
		if k.field == field {
			delete(b.cells, k)
		}
	}
}

func (b *EditBuffer) Reset() {
	b.cells = make(map[cellKey]string)
}

func (b *EditBuffer) Len() int {
	return len(b.cells)
}

// Display returns what a cell shows: the raw text while active, otherwise
// the committed value rounded to three places.
func (b *EditBuffer) Display(rowID string, field invoicedomain.Field, committed decimal.Decimal) string {
	if text, ok := b.Get(rowID, field); ok {
		return text
	}
	return money.Format(committed)
}
