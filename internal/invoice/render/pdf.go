// Package render produces the printable form of an invoice session.
package render

import (
	"context"
	"errors"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/money"
)

var ErrNothingToRender = errors.New("nothing_to_render")

// Renderer turns a session view into a PDF document.
type Renderer interface {
	Render(ctx context.Context, view *invoicedomain.SessionView) ([]byte, error)
}

type pdfRenderer struct{}

func NewRenderer() Renderer {
	return &pdfRenderer{}
}

var (
	cellText    = props.Text{Size: 9}
	cellRight   = props.Text{Size: 9, Align: align.Right}
	headerText  = props.Text{Size: 9, Style: fontstyle.Bold}
	headerRight = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func (r *pdfRenderer) Render(ctx context.Context, view *invoicedomain.SessionView) ([]byte, error) {
	if view == nil {
		return nil, ErrNothingToRender
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Invoice"
	if view.Status == invoicedomain.InvoiceStatusDraft {
		title = "Draft Invoice"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	number := view.InvoiceNumber
	if number == "" {
		number = view.InvoiceID
	}
	if number == "" {
		number = "-"
	}
	meta := col.New(6).Add(
		text.New("Invoice number: "+number, props.Text{Top: 0}),
		text.New("Date of issue: "+view.InvoiceDate.Format("2006-01-02"), props.Text{Top: 4}),
		text.New("Customer: "+view.CustomerID, props.Text{Top: 8}),
	)
	rates := col.New(6).Add(
		text.New("Currency: "+view.Currency, props.Text{Top: 0, Align: align.Right}),
	)
	if view.Foreign {
		rates.Add(text.New("Exchange rate: "+view.ExchangeRate.String()+" "+view.HomeCurrency, props.Text{Top: 4, Align: align.Right}))
	}
	m.AddRow(18, meta, rates)

	m.AddRow(8,
		text.NewCol(1, "#", headerText),
		text.NewCol(4, "Item", headerText),
		text.NewCol(1, "Qty", headerRight),
		text.NewCol(2, "Rate", headerRight),
		text.NewCol(1, "Disc %", headerRight),
		text.NewCol(1, "Tax %", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)
	m.AddRow(2, col.New(12))

	for i, l := range view.Lines {
		if l.ItemID == "" {
			continue
		}
		name := l.ItemName
		if name == "" {
			name = l.ItemID
		}
		m.AddRow(7,
			text.NewCol(1, strconv.Itoa(i+1), cellText),
			text.NewCol(4, name, cellText),
			text.NewCol(1, money.Format(l.Quantity), cellRight),
			text.NewCol(2, money.Format(l.Rate), cellRight),
			text.NewCol(1, money.Format(l.DiscountPercentage), cellRight),
			text.NewCol(1, money.Format(l.TaxPercentage), cellRight),
			text.NewCol(2, money.Format(l.Amount), cellRight),
		)
	}
	m.AddRow(2, col.New(12))

	header := view.Header
	totalRow(m, "Gross total", header.GrossTotal, false)
	if !header.TotalDiscount.IsZero() {
		totalRow(m, "Discount", header.TotalDiscount.Neg(), false)
	}
	for _, bucket := range header.TaxBuckets {
		totalRow(m, bucket.Label, bucket.Amount, false)
	}
	if !header.AdjustmentAmount.IsZero() {
		label := header.AdjustmentName
		if label == "" {
			label = "Adjustment"
		}
		totalRow(m, label, header.AdjustmentAmount, false)
	}
	totalRow(m, "Net total", header.NetTotal, true)
	if view.Foreign {
		totalRow(m, "Net total ("+view.HomeCurrency+")", header.NetTotalBase, false)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func totalRow(m core.Maroto, label string, amount decimal.Decimal, bold bool) {
	labelProps, amountProps := cellText, cellRight
	if bold {
		labelProps, amountProps = headerText, headerRight
	}
	m.AddRow(7,
		col.New(7),
		text.NewCol(3, label, labelProps),
		text.NewCol(2, money.Format(amount), amountProps),
	)
}
