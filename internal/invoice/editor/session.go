// Package editor is the state machine behind one invoice being edited. Every
// input is an Event dispatched to a Session, which updates the line
// collection and recomputes the header before returning.
package editor

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesdesk/internal/currency"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/money"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
)

var hundred = decimal.NewFromInt(100)

// Options seed a new Session.
type Options struct {
	Regime     taxdomain.Regime
	Currency   currency.State
	Lines      []invoicedomain.LineItem
	Adjustment invoicedomain.Adjustment

	NewRowID func() string
	NewToken func() string
}

// Session is not safe for concurrent use; callers serialize Dispatch.
type Session struct {
	regime     taxdomain.Regime
	sync       *currency.Synchronizer
	lines      []invoicedomain.LineItem
	adjustment invoicedomain.Adjustment
	header     invoicedomain.Header
	buffer     *EditBuffer
	pending    map[string]string

	newRowID func() string
	newToken func() string
}

func NewSession(opts Options) *Session {
	s := &Session{
		regime:     opts.Regime,
		sync:       currency.NewSynchronizer(opts.Currency),
		adjustment: opts.Adjustment,
		buffer:     NewEditBuffer(),
		pending:    make(map[string]string),
		newRowID:   opts.NewRowID,
		newToken:   opts.NewToken,
	}
	if s.newRowID == nil {
		s.newRowID = uuid.NewString
	}
	if s.newToken == nil {
		s.newToken = func() string { return ulid.Make().String() }
	}

	if len(opts.Lines) == 0 {
		s.lines = []invoicedomain.LineItem{s.emptyLine()}
	} else {
		s.load(opts.Lines)
	}
	s.summarize()
	return s
}

// Dispatch applies ev and recomputes the header.
func (s *Session) Dispatch(ev Event) (Result, error) {
	var (
		res Result
		err error
	)
	switch e := ev.(type) {
	case RowAdded:
		line := s.emptyLine()
		s.lines = append(s.lines, line)
		res.RowID = line.ID
	case RowRemoved:
		err = s.removeRow(e.RowID)
	case ItemSelected:
		res, err = s.selectItem(e)
	case ItemDataArrived:
		res, err = s.itemDataArrived(e)
	case CurrencyModeToggled:
		out := s.sync.SetForeign(s.lines, e.Foreign)
		res.Warnings = s.currencyWarnings(out)
	case RateEdited:
		out := s.sync.SetExchangeRate(s.lines, e.ExchangeRate)
		res.Warnings = s.currencyWarnings(out)
	case FieldFocused:
		err = s.focus(e.RowID, e.Field)
	case FieldEdited:
		err = s.edit(e.RowID, e.Field, e.Raw)
	case FieldBlurred:
		if !e.Field.Valid() {
			return Result{}, invoicedomain.ErrInvalidField
		}
		s.buffer.Discard(e.RowID, e.Field)
	case AdjustmentEdited:
		if e.Name != nil {
			s.adjustment.Name = *e.Name
		}
		s.buffer.Discard("", invoicedomain.FieldAdjustmentAmount)
		s.setAdjustmentAmount(money.Round3(e.Amount))
	case AdjustmentAccountChosen:
		s.adjustment.AccountID = e.AccountID
	case LinesLoaded:
		s.load(e.Lines)
		if _, ok := s.sync.Multiplier(); !ok {
			res.Warnings = append(res.Warnings, fallbackWarning())
		}
	default:
		return Result{}, fmt.Errorf("%w: %T", invoicedomain.ErrUnknownEvent, ev)
	}
	if err != nil {
		return Result{}, err
	}
	s.summarize()
	return res, nil
}

// emptyLine numbers the new row after the highest SeqNo so numbers stay
// unique once rows have been removed.
func (s *Session) emptyLine() invoicedomain.LineItem {
	seq := 0
	for _, l := range s.lines {
		if l.SeqNo > seq {
			seq = l.SeqNo
		}
	}
	return invoicedomain.LineItem{
		ID:    s.newRowID(),
		SeqNo: seq + 1,
	}
}

func (s *Session) load(lines []invoicedomain.LineItem) {
	s.lines = invoicedomain.CloneLines(lines)
	s.buffer.Reset()
	s.pending = make(map[string]string)
	for i := range s.lines {
		line := &s.lines[i]
		if line.ID == "" {
			line.ID = s.newRowID()
		}
		if line.SeqNo == 0 {
			line.SeqNo = i + 1
		}
		s.recalculate(line)
	}
}

func (s *Session) indexOf(rowID string) int {
	for i := range s.lines {
		if s.lines[i].ID == rowID {
			return i
		}
	}
	return -1
}

func (s *Session) line(rowID string) (*invoicedomain.LineItem, error) {
	idx := s.indexOf(rowID)
	if idx < 0 {
		return nil, invoicedomain.ErrRowNotFound
	}
	return &s.lines[idx], nil
}

func (s *Session) removeRow(rowID string) error {
	idx := s.indexOf(rowID)
	if idx < 0 {
		return invoicedomain.ErrRowNotFound
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	delete(s.pending, rowID)
	s.buffer.DiscardRow(rowID)
	return nil
}

func (s *Session) selectItem(e ItemSelected) (Result, error) {
	line, err := s.line(e.RowID)
	if err != nil {
		return Result{}, err
	}
	if e.ItemID == "" {
		delete(s.pending, e.RowID)
		*line = bareItem(*line)
		line.ItemID = ""
		s.recalculate(line)
		return Result{}, nil
	}

	line.ItemID = e.ItemID
	token := s.newToken()
	s.pending[e.RowID] = token
	return Result{Fetch: &FetchRequest{RowID: e.RowID, ItemID: e.ItemID, Token: token}}, nil
}

func (s *Session) itemDataArrived(e ItemDataArrived) (Result, error) {
	token, ok := s.pending[e.RowID]
	if !ok || token != e.Token {
		return Result{Stale: true}, nil
	}
	line, err := s.line(e.RowID)
	if err != nil {
		delete(s.pending, e.RowID)
		return Result{Stale: true}, nil
	}
	delete(s.pending, e.RowID)

	data := e.Data
	if e.Err != nil {
		data = nil
	}
	resolved, found := ResolveSelection(*line, data, s.sync.State(), s.regime)
	*line = resolved
	for _, f := range []invoicedomain.Field{invoicedomain.FieldQuantity, invoicedomain.FieldRate, invoicedomain.FieldTaxPercentage} {
		s.buffer.Discard(e.RowID, f)
	}

	var res Result
	if !found {
		msg := "item sales data unavailable"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		res.Warnings = append(res.Warnings, invoicedomain.Warning{
			Kind:    invoicedomain.WarningCatalogUnavailable,
			RowID:   e.RowID,
			Message: msg,
		})
	}
	return res, nil
}

func (s *Session) focus(rowID string, field invoicedomain.Field) error {
	if !field.Valid() {
		return invoicedomain.ErrInvalidField
	}
	if _, active := s.buffer.Get(rowID, field); active {
		return nil
	}
	value, err := s.committed(rowID, field)
	if err != nil {
		return err
	}
	s.buffer.Set(rowID, field, value.String())
	return nil
}

func (s *Session) edit(rowID string, field invoicedomain.Field, raw string) error {
	if !field.Valid() {
		return invoicedomain.ErrInvalidField
	}
	if field == invoicedomain.FieldAdjustmentAmount {
		if rowID != "" {
			return invoicedomain.ErrInvalidField
		}
		text := money.SanitizeDecimalInput(raw, int(money.Places), true)
		s.buffer.Set("", field, text)
		s.setAdjustmentAmount(money.ParseOrZero(text))
		return nil
	}

	line, err := s.line(rowID)
	if err != nil {
		return err
	}
	text := money.SanitizeDecimalInput(raw, int(money.Places), false)
	value := money.ParseOrZero(text)

	switch field {
	case invoicedomain.FieldQuantity:
		line.Quantity = value
	case invoicedomain.FieldRate:
		line.Rate = value
		base := currency.BaseFromRate(value, s.sync.State())
		line.RateBase = &base
	case invoicedomain.FieldDiscountPercentage:
		clamped := money.Clamp(value, decimal.Zero, hundred)
		if !clamped.Equal(value) {
			text = clamped.String()
		}
		line.DiscountPercentage = clamped
	case invoicedomain.FieldTaxPercentage:
		clamped := money.Clamp(value, decimal.Zero, hundred)
		if !s.regime.TaxEnabled() {
			clamped = decimal.Zero
		}
		if !clamped.Equal(value) {
			text = clamped.String()
		}
		line.TaxPercentage = clamped
	}
	s.buffer.Set(rowID, field, text)
	s.recalculate(line)
	return nil
}

func (s *Session) committed(rowID string, field invoicedomain.Field) (decimal.Decimal, error) {
	if field == invoicedomain.FieldAdjustmentAmount {
		if rowID != "" {
			return decimal.Zero, invoicedomain.ErrInvalidField
		}
		return s.adjustment.Amount, nil
	}
	line, err := s.line(rowID)
	if err != nil {
		return decimal.Zero, err
	}
	switch field {
	case invoicedomain.FieldQuantity:
		return line.Quantity, nil
	case invoicedomain.FieldRate:
		return line.Rate, nil
	case invoicedomain.FieldDiscountPercentage:
		return line.DiscountPercentage, nil
	default:
		return line.TaxPercentage, nil
	}
}

func (s *Session) setAdjustmentAmount(amount decimal.Decimal) {
	s.adjustment.Amount = amount
	if amount.IsZero() {
		s.adjustment.AccountID = ""
	}
}

func (s *Session) recalculate(line *invoicedomain.LineItem) {
	if !s.regime.TaxEnabled() {
		line.TaxPercentage = decimal.Zero
	}
	multiplier, _ := s.sync.Multiplier()
	line.Recalculate(multiplier)
}

func (s *Session) currencyWarnings(out currency.Outcome) []invoicedomain.Warning {
	if out.Changed {
		s.buffer.DiscardField(invoicedomain.FieldRate)
	}
	if out.Fallback {
		return []invoicedomain.Warning{fallbackWarning()}
	}
	return nil
}

func fallbackWarning() invoicedomain.Warning {
	return invoicedomain.Warning{
		Kind:    invoicedomain.WarningExchangeRateFallback,
		Message: "exchange rate missing or zero, using 1",
	}
}

func (s *Session) summarize() {
	multiplier, _ := s.sync.Multiplier()
	s.header = Summarize(s.lines, s.regime, s.adjustment, multiplier)
}

// Lines returns a copy of the current lines.
func (s *Session) Lines() []invoicedomain.LineItem {
	return invoicedomain.CloneLines(s.lines)
}

func (s *Session) Header() invoicedomain.Header {
	header := s.header
	header.TaxBuckets = append([]invoicedomain.TaxBucket(nil), s.header.TaxBuckets...)
	return header
}

func (s *Session) Regime() taxdomain.Regime {
	return s.regime
}

func (s *Session) Currency() currency.State {
	return s.sync.State()
}

func (s *Session) Adjustment() invoicedomain.Adjustment {
	return s.adjustment
}

// Display is the text a cell shows: the buffer while active, otherwise the
// committed value rounded to three places.
func (s *Session) Display(rowID string, field invoicedomain.Field) string {
	value, err := s.committed(rowID, field)
	if err != nil {
		return ""
	}
	return s.buffer.Display(rowID, field, value)
}

// PendingToken returns the correlation token of an outstanding fetch.
func (s *Session) PendingToken(rowID string) (string, bool) {
	token, ok := s.pending[rowID]
	return token, ok
}
