package editor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/currency"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestSession(t *testing.T, regime taxdomain.Regime, st currency.State) *Session {
	t.Helper()
	return NewSession(Options{
		Regime:   regime,
		Currency: st,
		NewRowID: sequence("row"),
		NewToken: sequence("tok"),
	})
}

func mustDispatch(t *testing.T, s *Session, ev Event) Result {
	t.Helper()
	res, err := s.Dispatch(ev)
	require.NoError(t, err)
	return res
}

func typeInto(t *testing.T, s *Session, rowID string, field invoicedomain.Field, raw string) {
	t.Helper()
	mustDispatch(t, s, FieldFocused{RowID: rowID, Field: field})
	mustDispatch(t, s, FieldEdited{RowID: rowID, Field: field, Raw: raw})
	mustDispatch(t, s, FieldBlurred{RowID: rowID, Field: field})
}

func TestSession_OpensWithOneEmptyRow(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "row-1", lines[0].ID)
	assert.Equal(t, 1, lines[0].SeqNo)
	assert.False(t, lines[0].HasItem())
	assertDec(t, "0", s.Header().NetTotal)
}

func TestSession_FlatTaxLine(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{})

	typeInto(t, s, "row-1", invoicedomain.FieldQuantity, "2")
	typeInto(t, s, "row-1", invoicedomain.FieldRate, "100")
	typeInto(t, s, "row-1", invoicedomain.FieldDiscountPercentage, "10")
	typeInto(t, s, "row-1", invoicedomain.FieldTaxPercentage, "18")

	line := s.Lines()[0]
	assertDec(t, "200", line.Amount)
	assertDec(t, "20", line.DiscountAmount)
	assertDec(t, "180", line.TaxableAmount)
	assertDec(t, "32.4", line.TaxAmount)
	assertDec(t, "212.4", line.NetAmount)
	assertDec(t, "32.4", line.TaxAmountBase)
	require.NotNil(t, line.RateBase)
	assertDec(t, "100", *line.RateBase)

	header := s.Header()
	assertDec(t, "180", header.GrossTotal)
	assertDec(t, "20", header.TotalDiscount)
	assertDec(t, "32.4", header.TotalTax)
	assertDec(t, "212.4", header.NetTotal)
	require.Len(t, header.TaxBuckets, 1)
	assert.Equal(t, "vat", header.TaxBuckets[0].Code)
	assert.Equal(t, "VAT", header.TaxBuckets[0].Label)
}

func TestSession_ForeignCurrencySelection(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{Foreign: true, ExchangeRate: dec("80")})

	res := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "42"})
	require.NotNil(t, res.Fetch)
	assert.Equal(t, "42", res.Fetch.ItemID)
	assert.Equal(t, "tok-1", res.Fetch.Token)

	res = mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: "tok-1",
		Data: &catalogdomain.ItemSalesData{
			ItemID:        "42",
			Name:          "Consulting",
			Price:         dec("8000"),
			TaxPercentage: dec("18"),
		},
	})
	assert.Empty(t, res.Warnings)
	assert.False(t, res.Stale)

	line := s.Lines()[0]
	assertDec(t, "100", line.Rate)
	assertDec(t, "1", line.Quantity)
	assert.Equal(t, "Consulting", line.ItemName)

	typeInto(t, s, "row-1", invoicedomain.FieldQuantity, "2")
	typeInto(t, s, "row-1", invoicedomain.FieldDiscountPercentage, "10")

	line = s.Lines()[0]
	assertDec(t, "212.4", line.NetAmount)
	assertDec(t, "32.4", line.TaxAmount)
	assertDec(t, "2592", line.TaxAmountBase)
	assertDec(t, "14400", line.TaxableAmountBase)
	assertDec(t, "16992", line.NetAmountBase)
	assertDec(t, "16992", s.Header().NetTotalBase)
}

func TestSession_TaxDisabledForcesZero(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})

	mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "42"})
	mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: "tok-1",
		Data:  &catalogdomain.ItemSalesData{ItemID: "42", Price: dec("50"), TaxPercentage: dec("18")},
	})

	mustDispatch(t, s, FieldEdited{RowID: "row-1", Field: invoicedomain.FieldTaxPercentage, Raw: "12"})
	assert.Equal(t, "0", s.Display("row-1", invoicedomain.FieldTaxPercentage))

	line := s.Lines()[0]
	assertDec(t, "0", line.TaxPercentage)
	assertDec(t, "0", line.TaxAmount)
	assertDec(t, "50", line.NetAmount)
	assert.Empty(t, s.Header().TaxBuckets)
	assertDec(t, "0", s.Header().TotalTax)
}

func TestSession_AdjustmentOnly(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{})
	mustDispatch(t, s, RowRemoved{RowID: "row-1"})
	require.Empty(t, s.Lines())

	name := "Round off"
	mustDispatch(t, s, AdjustmentEdited{Amount: dec("-50"), Name: &name})

	header := s.Header()
	assertDec(t, "0", header.GrossTotal)
	assertDec(t, "0", header.TotalTax)
	assertDec(t, "-50", header.NetTotal)
	assert.Equal(t, "Round off", header.AdjustmentName)
}

func TestSession_AdjustmentZeroClearsAccount(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})

	mustDispatch(t, s, FieldEdited{Field: invoicedomain.FieldAdjustmentAmount, Raw: "-12.5"})
	mustDispatch(t, s, AdjustmentAccountChosen{AccountID: "acc-1"})
	assert.Equal(t, "acc-1", s.Adjustment().AccountID)
	assertDec(t, "-12.5", s.Header().NetTotal)

	mustDispatch(t, s, FieldEdited{Field: invoicedomain.FieldAdjustmentAmount, Raw: "0"})
	assert.Empty(t, s.Adjustment().AccountID)
	assert.Empty(t, s.Header().AdjustmentAccountID)
}

func TestSession_StaleSelectionDiscarded(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{})

	first := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "1"})
	second := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "2"})
	require.NotEqual(t, first.Fetch.Token, second.Fetch.Token)

	res := mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: first.Fetch.Token,
		Data:  &catalogdomain.ItemSalesData{ItemID: "1", Name: "Old", Price: dec("10")},
	})
	assert.True(t, res.Stale)
	line := s.Lines()[0]
	assert.Equal(t, "2", line.ItemID)
	assert.Empty(t, line.ItemName)

	res = mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: second.Fetch.Token,
		Data:  &catalogdomain.ItemSalesData{ItemID: "2", Name: "New", Price: dec("20")},
	})
	assert.False(t, res.Stale)
	line = s.Lines()[0]
	assert.Equal(t, "New", line.ItemName)
	assertDec(t, "20", line.Rate)

	_, pending := s.PendingToken("row-1")
	assert.False(t, pending)
}

func TestSession_ArrivalForRemovedRowIsStale(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})
	sel := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "1"})
	mustDispatch(t, s, RowRemoved{RowID: "row-1"})

	res := mustDispatch(t, s, ItemDataArrived{RowID: "row-1", Token: sel.Fetch.Token})
	assert.True(t, res.Stale)
}

func TestSession_CatalogFailureLeavesBareItem(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{})
	typeInto(t, s, "row-1", invoicedomain.FieldQuantity, "3")
	typeInto(t, s, "row-1", invoicedomain.FieldRate, "9")

	sel := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "7"})
	res := mustDispatch(t, s, ItemDataArrived{RowID: "row-1", Token: sel.Fetch.Token, Err: errors.New("timeout")})

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, invoicedomain.WarningCatalogUnavailable, res.Warnings[0].Kind)
	assert.Equal(t, "row-1", res.Warnings[0].RowID)

	line := s.Lines()[0]
	assert.Equal(t, "7", line.ItemID)
	assert.Nil(t, line.RateBase)
	assertDec(t, "0", line.Amount)
	assertDec(t, "0", line.NetAmount)
}

func TestSession_EditBufferLifecycle(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})

	mustDispatch(t, s, FieldFocused{RowID: "row-1", Field: invoicedomain.FieldRate})
	assert.Equal(t, "0", s.Display("row-1", invoicedomain.FieldRate))

	mustDispatch(t, s, FieldEdited{RowID: "row-1", Field: invoicedomain.FieldRate, Raw: "12."})
	assert.Equal(t, "12.", s.Display("row-1", invoicedomain.FieldRate))
	assertDec(t, "12", s.Lines()[0].Rate)

	mustDispatch(t, s, FieldEdited{RowID: "row-1", Field: invoicedomain.FieldRate, Raw: "12.34567x"})
	assert.Equal(t, "12.345", s.Display("row-1", invoicedomain.FieldRate))
	assertDec(t, "12.345", s.Lines()[0].Rate)

	mustDispatch(t, s, FieldBlurred{RowID: "row-1", Field: invoicedomain.FieldRate})
	assert.Equal(t, "12.345", s.Display("row-1", invoicedomain.FieldRate))

	mustDispatch(t, s, FieldEdited{RowID: "row-1", Field: invoicedomain.FieldQuantity, Raw: "abc"})
	assertDec(t, "0", s.Lines()[0].Quantity)
	mustDispatch(t, s, FieldBlurred{RowID: "row-1", Field: invoicedomain.FieldQuantity})
	assert.Equal(t, "0.000", s.Display("row-1", invoicedomain.FieldQuantity))
}

func TestSession_DiscountClamped(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})
	typeInto(t, s, "row-1", invoicedomain.FieldQuantity, "1")
	typeInto(t, s, "row-1", invoicedomain.FieldRate, "40")

	mustDispatch(t, s, FieldEdited{RowID: "row-1", Field: invoicedomain.FieldDiscountPercentage, Raw: "150"})
	assert.Equal(t, "100", s.Display("row-1", invoicedomain.FieldDiscountPercentage))
	assertDec(t, "0", s.Lines()[0].NetAmount)
}

func TestSession_CurrencyToggleRoundTrip(t *testing.T) {
	s := newTestSession(t, taxdomain.Single("VAT"), currency.State{ExchangeRate: dec("80")})
	sel := mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "1"})
	mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: sel.Fetch.Token,
		Data:  &catalogdomain.ItemSalesData{ItemID: "1", Price: dec("8000"), TaxPercentage: dec("18")},
	})
	assertDec(t, "8000", s.Lines()[0].Rate)

	mustDispatch(t, s, CurrencyModeToggled{Foreign: true})
	assertDec(t, "100", s.Lines()[0].Rate)
	assertDec(t, "1440", s.Header().TotalTaxBase)

	mustDispatch(t, s, CurrencyModeToggled{Foreign: false})
	assertDec(t, "8000", s.Lines()[0].Rate)

	mustDispatch(t, s, CurrencyModeToggled{Foreign: true})
	assertDec(t, "100", s.Lines()[0].Rate)
}

func TestSession_MissingExchangeRateWarns(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})
	res := mustDispatch(t, s, CurrencyModeToggled{Foreign: true})

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, invoicedomain.WarningExchangeRateFallback, res.Warnings[0].Kind)

	res = mustDispatch(t, s, RateEdited{ExchangeRate: dec("3.5")})
	assert.Empty(t, res.Warnings)
	assert.True(t, s.Currency().ExchangeRate.Equal(dec("3.5")))
}

func TestSession_ManualRateEditUpdatesBase(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{Foreign: true, ExchangeRate: dec("80.5")})
	mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "1"})
	mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: "tok-1",
		Data:  &catalogdomain.ItemSalesData{ItemID: "1", Price: dec("161")},
	})
	assertDec(t, "2", s.Lines()[0].Rate)

	typeInto(t, s, "row-1", invoicedomain.FieldRate, "1.234")
	line := s.Lines()[0]
	require.NotNil(t, line.RateBase)
	assertDec(t, "99.337", *line.RateBase)

	mustDispatch(t, s, RateEdited{ExchangeRate: dec("99.337")})
	assertDec(t, "1", s.Lines()[0].Rate)
}

func TestSession_TypedRateSurvivesCurrencyRoundTrip(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{Foreign: true, ExchangeRate: dec("0.012")})
	mustDispatch(t, s, ItemSelected{RowID: "row-1", ItemID: "1"})
	mustDispatch(t, s, ItemDataArrived{
		RowID: "row-1",
		Token: "tok-1",
		Data:  &catalogdomain.ItemSalesData{ItemID: "1", Price: dec("12")},
	})
	typeInto(t, s, "row-1", invoicedomain.FieldQuantity, "1")
	typeInto(t, s, "row-1", invoicedomain.FieldRate, "1234.567")

	mustDispatch(t, s, CurrencyModeToggled{Foreign: false})
	assertDec(t, "14.815", s.Lines()[0].Rate)

	mustDispatch(t, s, CurrencyModeToggled{Foreign: true})
	line := s.Lines()[0]
	assertDec(t, "1234.567", line.Rate)
	assertDec(t, "1234.567", line.NetAmount)
	assertDec(t, "14.815", line.NetAmountBase)
}

func TestSession_LinesLoadedRecalculates(t *testing.T) {
	s := newTestSession(t, taxdomain.SplitLocal("GST", taxdomain.Labels{ComponentA: "CGST", ComponentB: "SGST", Combined: "IGST"}), currency.State{})

	mustDispatch(t, s, LinesLoaded{Lines: []invoicedomain.LineItem{
		{ItemID: "1", Quantity: dec("2"), Rate: dec("100"), DiscountPercentage: dec("10"), TaxPercentage: dec("18")},
		{ItemID: "2", Quantity: dec("1"), Rate: dec("0.055"), TaxPercentage: dec("18")},
	}})

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.NotEmpty(t, lines[0].ID)
	assert.Equal(t, 2, lines[1].SeqNo)
	assertDec(t, "32.4", lines[0].TaxAmount)
	assertDec(t, "0.01", lines[1].TaxAmount)

	header := s.Header()
	require.Len(t, header.TaxBuckets, 2)
	assert.Equal(t, "cgst", header.TaxBuckets[0].Code)
	assert.Equal(t, "sgst", header.TaxBuckets[1].Code)
	assertDec(t, "32.41", header.TaxBuckets[0].Amount.Add(header.TaxBuckets[1].Amount))
	assertDec(t, "32.41", header.TotalTax)
}

func TestSession_Errors(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})

	_, err := s.Dispatch(RowRemoved{RowID: "missing"})
	assert.ErrorIs(t, err, invoicedomain.ErrRowNotFound)

	_, err = s.Dispatch(FieldEdited{RowID: "row-1", Field: "price"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidField)

	_, err = s.Dispatch(FieldEdited{RowID: "row-1", Field: invoicedomain.FieldAdjustmentAmount, Raw: "1"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidField)

	_, err = s.Dispatch(ItemSelected{RowID: "missing", ItemID: "1"})
	assert.ErrorIs(t, err, invoicedomain.ErrRowNotFound)

	_, err = s.Dispatch(nil)
	assert.ErrorIs(t, err, invoicedomain.ErrUnknownEvent)
}

func TestSession_RowAdded(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})
	res := mustDispatch(t, s, RowAdded{})
	assert.Equal(t, "row-2", res.RowID)

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[1].SeqNo)
}

func TestSession_RowAddedAfterRemovalKeepsSeqNoUnique(t *testing.T) {
	s := newTestSession(t, taxdomain.Disabled(), currency.State{})
	mustDispatch(t, s, RowAdded{})
	mustDispatch(t, s, RowAdded{})
	mustDispatch(t, s, RowRemoved{RowID: "row-2"})

	res := mustDispatch(t, s, RowAdded{})
	assert.Equal(t, "row-4", res.RowID)

	lines := s.Lines()
	require.Len(t, lines, 3)
	seqs := []int{lines[0].SeqNo, lines[1].SeqNo, lines[2].SeqNo}
	assert.Equal(t, []int{1, 3, 4}, seqs)
}
