package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/render"
	invoicerepository "github.com/smallbiznis/salesdesk/internal/invoice/repository"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID = snowflake.ID(1001)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetItemSalesData(ctx context.Context, itemID string) (*catalogdomain.ItemSalesData, error) {
	args := m.Called(ctx, itemID)
	data, _ := args.Get(0).(*catalogdomain.ItemSalesData)
	return data, args.Error(1)
}

type fakeRates struct {
	rates map[string]decimal.Decimal
}

func (f *fakeRates) GetRate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	rate, ok := f.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, exchangeratedomain.ErrRateNotFound
	}
	return rate, nil
}

type fakeRegimes struct {
	regime taxdomain.Regime
}

func (f fakeRegimes) ResolveForInvoice(context.Context, snowflake.ID, string) (taxdomain.Regime, error) {
	return f.regime, nil
}

type fakeAccounts struct {
	active map[string]bool
}

func (f fakeAccounts) ListOptions(context.Context, accountdomain.ListFilter) ([]accountdomain.Option, error) {
	return nil, nil
}

func (f fakeAccounts) Exists(_ context.Context, accountID string) (bool, error) {
	return f.active[accountID], nil
}

type fixture struct {
	svc      *Service
	ctx      context.Context
	catalog  *mockCatalog
	rates    *fakeRates
	repo     invoicedomain.Repository
	db       *gorm.DB
	registry *prometheus.Registry
	clock    *clock.FakeClock
}

func newFixture(t *testing.T, regime taxdomain.Regime) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoiceTaxLine{},
		&invoicedomain.InvoiceSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		ctx:      orgcontext.WithOrgID(context.Background(), testOrgID),
		catalog:  &mockCatalog{},
		rates:    &fakeRates{rates: map[string]decimal.Decimal{}},
		repo:     invoicerepository.NewRepository(db),
		db:       db,
		registry: prometheus.NewRegistry(),
		clock:    clock.NewFakeClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)),
	}
	f.svc = NewService(serviceParams{
		Log: zap.NewNop(),
		Cfg: config.Config{
			HomeCurrency:        "usd",
			CatalogFetchTimeout: time.Second,
			SessionIdleTTL:      30 * time.Minute,
		},
		GenID:    node,
		Repo:     f.repo,
		Regimes:  fakeRegimes{regime: regime},
		Catalog:  f.catalog,
		Rates:    f.rates,
		Accounts: fakeAccounts{active: map[string]bool{"4900": true}},
		Renderer: render.NewRenderer(),
		Metrics:  metrics.NewEditorMetrics(f.registry, metrics.Config{ServiceName: "test"}),
		Clock:    f.clock,
	})
	seq := 0
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("sess-%d", seq)
	}
	return f
}

func (f *fixture) open(t *testing.T, currency string) *invoicedomain.SessionView {
	t.Helper()
	view, err := f.svc.OpenSession(f.ctx, invoicedomain.OpenSessionRequest{CustomerID: "7", Currency: currency})
	require.NoError(t, err)
	return view
}

// selectAndWait selects itemID on the first row and waits for its data.
func (f *fixture) selectAndWait(t *testing.T, view *invoicedomain.SessionView, itemID string) *invoicedomain.SessionView {
	t.Helper()
	selected, err := f.svc.SelectItem(f.ctx, view.ID, view.Lines[0].ID, itemID)
	require.NoError(t, err)
	assert.True(t, selected.Lines[0].Loading)

	f.svc.WaitForFetches()
	got, err := f.svc.GetSession(f.ctx, view.ID)
	require.NoError(t, err)
	return got
}

func widget(price string) *catalogdomain.ItemSalesData {
	return &catalogdomain.ItemSalesData{
		ItemID:        "ITEM-1",
		Name:          "Widget",
		Price:         decimal.RequireFromString(price),
		TaxPercentage: decimal.NewFromInt(18),
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func warningKinds(ws []invoicedomain.Warning) []invoicedomain.WarningKind {
	kinds := make([]invoicedomain.WarningKind, 0, len(ws))
	for _, w := range ws {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

func TestOpenSession_Defaults(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))

	view := f.open(t, "")

	assert.Equal(t, "sess-1", view.ID)
	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "USD", view.HomeCurrency)
	assert.False(t, view.Foreign)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, view.Status)
	assert.Equal(t, taxdomain.RegimeSingleTax, view.Regime.Kind)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), view.InvoiceDate)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "0.000", view.Lines[0].Display[invoicedomain.FieldQuantity])
	assert.Empty(t, view.Warnings)
}

func TestOpenSession_Errors(t *testing.T) {
	f := newFixture(t, taxdomain.Disabled())

	_, err := f.svc.OpenSession(context.Background(), invoicedomain.OpenSessionRequest{CustomerID: "7"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidOrganization)

	_, err = f.svc.OpenSession(f.ctx, invoicedomain.OpenSessionRequest{CustomerID: "abc"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRequest)

	_, err = f.svc.OpenSession(f.ctx, invoicedomain.OpenSessionRequest{CustomerID: "7", InvoiceID: "404"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestSelectItem_FetchesInBackground(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.catalog.On("GetItemSalesData", mock.MatchedBy(func(ctx context.Context) bool {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		return ok && orgID == testOrgID
	}), "ITEM-1").Return(widget("90"), nil).Once()

	view := f.selectAndWait(t, f.open(t, ""), "ITEM-1")
	line := view.Lines[0]
	assert.False(t, line.Loading)
	assert.Equal(t, "Widget", line.ItemName)
	assertDec(t, "1", line.Quantity)
	assertDec(t, "90", line.Rate)

	view, err := f.svc.EditField(f.ctx, view.ID, line.ID, invoicedomain.FieldQuantity, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", view.Lines[0].Display[invoicedomain.FieldQuantity])
	assertDec(t, "180", view.Header.GrossTotal)
	assertDec(t, "32.4", view.Header.TotalTax)
	assertDec(t, "212.4", view.Header.NetTotal)
	require.Len(t, view.Header.TaxBuckets, 1)
	assert.Equal(t, "vat", view.Header.TaxBuckets[0].Code)

	view, err = f.svc.BlurField(f.ctx, view.ID, line.ID, invoicedomain.FieldQuantity)
	require.NoError(t, err)
	assert.Equal(t, "2.000", view.Lines[0].Display[invoicedomain.FieldQuantity])
	f.catalog.AssertExpectations(t)
}

func TestSelectItem_CatalogFailureWarns(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.catalog.On("GetItemSalesData", mock.Anything, "ITEM-9").Return(nil, catalogdomain.ErrItemNotFound).Once()

	view := f.selectAndWait(t, f.open(t, ""), "ITEM-9")

	assert.Equal(t, []invoicedomain.WarningKind{invoicedomain.WarningCatalogUnavailable}, warningKinds(view.Warnings))
	assert.Equal(t, "ITEM-9", view.Lines[0].ItemID)
	assertDec(t, "0", view.Lines[0].Rate)

	again, err := f.svc.GetSession(f.ctx, view.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Warnings)
}

func TestForeignSession_MirrorsHomeCurrency(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.rates.rates["EUR/USD"] = decimal.NewFromInt(80)
	f.catalog.On("GetItemSalesData", mock.Anything, "ITEM-1").Return(widget("7200"), nil).Once()

	view := f.open(t, "eur")
	assert.True(t, view.Foreign)
	assertDec(t, "80", view.ExchangeRate)

	view = f.selectAndWait(t, view, "ITEM-1")
	assertDec(t, "90", view.Lines[0].Rate)
	require.NotNil(t, view.Lines[0].RateBase)
	assertDec(t, "7200", *view.Lines[0].RateBase)

	view, err := f.svc.EditField(f.ctx, view.ID, view.Lines[0].ID, invoicedomain.FieldQuantity, "2")
	require.NoError(t, err)
	assertDec(t, "14400", view.Header.GrossTotalBase)
	assertDec(t, "2592", view.Header.TotalTaxBase)
	assertDec(t, "16992", view.Header.NetTotalBase)
}

func TestOpenSession_MissingRateFallsBack(t *testing.T) {
	f := newFixture(t, taxdomain.Disabled())

	view := f.open(t, "EUR")

	assert.True(t, view.Foreign)
	assert.Equal(t,
		[]invoicedomain.WarningKind{invoicedomain.WarningExchangeRateMissing, invoicedomain.WarningExchangeRateFallback},
		warningKinds(view.Warnings))
}

func TestChangeCurrency_LooksUpRate(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.rates.rates["EUR/USD"] = decimal.NewFromInt(80)
	f.catalog.On("GetItemSalesData", mock.Anything, "ITEM-1").Return(widget("7200"), nil).Once()

	view := f.selectAndWait(t, f.open(t, ""), "ITEM-1")
	assertDec(t, "7200", view.Lines[0].Rate)

	view, err := f.svc.ChangeCurrency(f.ctx, view.ID, invoicedomain.ChangeCurrencyRequest{Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", view.Currency)
	assert.True(t, view.Foreign)
	assertDec(t, "90", view.Lines[0].Rate)
	assertDec(t, "7200", view.Header.GrossTotalBase)

	view, err = f.svc.ChangeCurrency(f.ctx, view.ID, invoicedomain.ChangeCurrencyRequest{Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, view.Foreign)
	assertDec(t, "7200", view.Lines[0].Rate)

	_, err = f.svc.ChangeCurrency(f.ctx, view.ID, invoicedomain.ChangeCurrencyRequest{Currency: "EURO"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidCurrency)
}

func TestEditAdjustment(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	view := f.open(t, "")

	amount := decimal.NewFromInt(-50)
	name := "Round Off"
	view, err := f.svc.EditAdjustment(f.ctx, view.ID, invoicedomain.EditAdjustmentRequest{Amount: &amount, Name: &name})
	require.NoError(t, err)
	assertDec(t, "-50", view.Header.NetTotal)
	assert.Equal(t, "Round Off", view.Header.AdjustmentName)

	unknown := "9999"
	_, err = f.svc.EditAdjustment(f.ctx, view.ID, invoicedomain.EditAdjustmentRequest{AccountID: &unknown})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAccount)

	account := "4900"
	view, err = f.svc.EditAdjustment(f.ctx, view.ID, invoicedomain.EditAdjustmentRequest{AccountID: &account})
	require.NoError(t, err)
	assert.Equal(t, "4900", view.Header.AdjustmentAccountID)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	view := f.open(t, "")

	amount := decimal.NewFromInt(5)
	_, err := f.svc.EditAdjustment(f.ctx, view.ID, invoicedomain.EditAdjustmentRequest{Amount: &amount})
	require.NoError(t, err)

	_, err = f.svc.Submit(f.ctx, view.ID)
	var submitErrs *invoicedomain.SubmitErrors
	require.True(t, errors.As(err, &submitErrs))

	var codes []string
	for _, fe := range submitErrs.Errors {
		codes = append(codes, fe.Code)
	}
	assert.ElementsMatch(t, []string{"lines_required", "adjustment_account_required"}, codes)

	count, err := testutil.GatherAndCount(f.registry, "salesdesk_invoice_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmit_PersistsSnapshot(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.catalog.On("GetItemSalesData", mock.Anything, "ITEM-1").Return(widget("90"), nil).Once()

	view := f.open(t, "")
	view, err := f.svc.AddRow(f.ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	_, err = f.svc.RemoveRow(f.ctx, view.ID, view.Lines[0].ID)
	require.NoError(t, err)

	view, err = f.svc.GetSession(f.ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].SeqNo)

	view = f.selectAndWait(t, view, "ITEM-1")
	_, err = f.svc.AddRow(f.ctx, view.ID)
	require.NoError(t, err)

	invoice, err := f.svc.Submit(f.ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, 1, invoice.Items[0].SeqNo)
	assertDec(t, "106.2", invoice.NetTotal)
	assertDec(t, "106.2", invoice.PendingAmount)
	assert.Equal(t, string(taxdomain.RegimeSingleTax), invoice.TaxRegime)

	stored, err := f.repo.FindBySession(f.ctx, testOrgID, view.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, invoice.ID, stored.ID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "ITEM-1", stored.Items[0].ItemID)
	assert.Equal(t, "Widget", stored.Items[0].ItemName)
	assert.Equal(t, "VAT", stored.Metadata["tax_name"])
	assert.EqualValues(t, 1, stored.InvoiceNumber)
	assert.Equal(t, "SI-202603-00001", stored.DisplayNumber)
	require.Len(t, stored.TaxLines, 1)
	assert.Equal(t, "vat", stored.TaxLines[0].TaxCode)
	assert.Equal(t, "VAT", stored.TaxLines[0].TaxName)
	assertDec(t, "16.2", stored.TaxLines[0].Amount)
	assertDec(t, "16.2", stored.TaxLines[0].AmountBase)

	_, err = f.svc.EditField(f.ctx, view.ID, view.Lines[0].ID, invoicedomain.FieldQuantity, "3")
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadySubmitted)
	_, err = f.svc.Submit(f.ctx, view.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadySubmitted)

	submitted, err := f.svc.GetSession(f.ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusSubmitted, submitted.Status)
	assert.Equal(t, invoice.ID.String(), submitted.InvoiceID)
	assert.Equal(t, "SI-202603-00001", submitted.InvoiceNumber)
}

func TestSubmit_EditModeReplaces(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	f.catalog.On("GetItemSalesData", mock.Anything, "ITEM-1").Return(widget("90"), nil).Once()

	view := f.selectAndWait(t, f.open(t, ""), "ITEM-1")
	first, err := f.svc.Submit(f.ctx, view.ID)
	require.NoError(t, err)

	reopened, err := f.svc.OpenSession(f.ctx, invoicedomain.OpenSessionRequest{CustomerID: "7", InvoiceID: first.ID.String()})
	require.NoError(t, err)
	require.Len(t, reopened.Lines, 1)
	assert.Equal(t, first.ID.String(), reopened.InvoiceID)
	assertDec(t, "106.2", reopened.Header.NetTotal)

	_, err = f.svc.EditField(f.ctx, reopened.ID, reopened.Lines[0].ID, invoicedomain.FieldQuantity, "3")
	require.NoError(t, err)
	second, err := f.svc.Submit(f.ctx, reopened.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.DisplayNumber, second.DisplayNumber)
	assert.Equal(t, "SI-202603-00001", reopened.InvoiceNumber)

	stored, err := f.repo.FindByID(f.ctx, testOrgID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assertDec(t, "318.6", stored.NetTotal)
	require.Len(t, stored.Items, 1)
	assertDec(t, "3", stored.Items[0].Quantity)
	assert.EqualValues(t, 1, stored.InvoiceNumber)
	require.Len(t, stored.TaxLines, 1)
	assertDec(t, "48.6", stored.TaxLines[0].Amount)

	var invoices int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	assert.EqualValues(t, 1, invoices)
}

func TestSessions_ScopedToOrganization(t *testing.T) {
	f := newFixture(t, taxdomain.Disabled())
	view := f.open(t, "")

	other := orgcontext.WithOrgID(context.Background(), snowflake.ID(2002))
	_, err := f.svc.GetSession(other, view.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.CloseSession(other, view.ID), invoicedomain.ErrSessionNotFound)

	require.NoError(t, f.svc.CloseSession(f.ctx, view.ID))
	_, err = f.svc.GetSession(f.ctx, view.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrSessionNotFound)
}

func TestEvictIdle(t *testing.T) {
	f := newFixture(t, taxdomain.Disabled())
	idle := f.open(t, "")

	f.clock.Advance(20 * time.Minute)
	active := f.open(t, "")

	f.clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, f.svc.EvictIdle())

	_, err := f.svc.GetSession(f.ctx, idle.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrSessionNotFound)
	_, err = f.svc.GetSession(f.ctx, active.ID)
	assert.NoError(t, err)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t, taxdomain.Single("VAT"))
	view := f.open(t, "")

	out, err := f.svc.RenderPDF(f.ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
