package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/currency"
	exchangeratedomain "github.com/smallbiznis/salesdesk/internal/exchangerate/domain"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/editor"
	"github.com/smallbiznis/salesdesk/internal/invoice/render"
	"github.com/smallbiznis/salesdesk/internal/observability/logger"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	"github.com/smallbiznis/salesdesk/internal/observability/tracing"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultIdleTTL      = 2 * time.Hour
)

var tracer = otel.Tracer("salesdesk/invoice")

type serviceParams struct {
	fx.In

	Lc       fx.Lifecycle `optional:"true"`
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Repo     invoicedomain.Repository
	Regimes  taxdomain.RegimeResolver
	Catalog  catalogdomain.Lookup
	Rates    exchangeratedomain.Lookup
	Accounts accountdomain.Directory
	Renderer render.Renderer
	Metrics  *metrics.EditorMetrics `optional:"true"`
	Clock    clock.Clock            `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     invoicedomain.Repository
	regimes  taxdomain.RegimeResolver
	catalog  catalogdomain.Lookup
	rates    exchangeratedomain.Lookup
	accounts accountdomain.Directory
	renderer render.Renderer
	metrics  *metrics.EditorMetrics
	clock    clock.Clock

	homeCurrency string
	fetchTimeout time.Duration
	idleTTL      time.Duration

	sessions *registry
	inflight sync.WaitGroup
	newID    func() string
}

func NewService(p serviceParams) *Service {
	s := &Service{
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		regimes:      p.Regimes,
		catalog:      p.Catalog,
		rates:        p.Rates,
		accounts:     p.Accounts,
		renderer:     p.Renderer,
		metrics:      p.Metrics,
		clock:        p.Clock,
		homeCurrency: strings.ToUpper(strings.TrimSpace(p.Cfg.HomeCurrency)),
		fetchTimeout: p.Cfg.CatalogFetchTimeout,
		idleTTL:      p.Cfg.SessionIdleTTL,
		sessions:     newRegistry(),
		newID:        uuid.NewString,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.idleTTL <= 0 {
		s.idleTTL = defaultIdleTTL
	}
	if p.Lc != nil {
		s.registerSweeper(p.Lc)
	}
	return s
}

func (s *Service) registerSweeper(lc fx.Lifecycle) {
	stop := make(chan struct{})
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(s.idleTTL / 4)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						s.EvictIdle()
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

// EvictIdle closes sessions that have not been touched within the idle TTL.
func (s *Service) EvictIdle() int {
	evicted, remaining := s.sessions.evictIdle(s.clock.Now().Add(-s.idleTTL))
	s.metrics.SetOpenSessions(remaining)
	for _, id := range evicted {
		s.log.Info("evicted idle invoice session", zap.String("session_id", id))
	}
	return len(evicted)
}

func (s *Service) OpenSession(ctx context.Context, req invoicedomain.OpenSessionRequest) (*invoicedomain.SessionView, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidOrganization
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return nil, invoicedomain.ErrInvalidCustomer
	}

	ctx, span := tracer.Start(ctx, "invoice.session.open")
	defer span.End()

	entry := &sessionEntry{
		id:              s.newID(),
		orgID:           orgID,
		customerID:      customerID,
		customerStateID: strings.TrimSpace(req.CustomerStateID),
		currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		homeCurrency:    s.homeCurrency,
		lastUsed:        s.clock.Now(),
	}
	if entry.currency == "" {
		entry.currency = entry.homeCurrency
	}
	entry.invoiceDate = dateOf(s.clock.Now())
	if req.InvoiceDate != nil && !req.InvoiceDate.IsZero() {
		entry.invoiceDate = dateOf(*req.InvoiceDate)
	}

	opts := editor.Options{}
	var rate decimal.Decimal
	var rateKnown bool
	if strings.TrimSpace(req.InvoiceID) != "" {
		stored, err := s.loadInvoice(ctx, orgID, req.InvoiceID)
		if err != nil {
			return nil, recordSpanError(span, err)
		}
		entry.invoiceID = stored.ID
		entry.invoiceNumber = stored.DisplayNumber
		entry.customerID = stored.CustomerID
		entry.customerStateID = stored.CustomerStateID
		entry.currency = stored.Currency
		entry.invoiceDate = dateOf(stored.InvoiceDate)
		rate, rateKnown = stored.ExchangeRate, true
		opts.Adjustment = invoicedomain.Adjustment{
			Amount:    stored.AdjustmentAmount,
			Name:      stored.AdjustmentName,
			AccountID: stored.AdjustmentAccountID,
		}
		for _, item := range stored.Items {
			opts.Lines = append(opts.Lines, item.ToLineItem())
		}
	}

	regime, err := s.regimes.ResolveForInvoice(ctx, orgID, entry.customerStateID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	opts.Regime = regime

	foreign := entry.currency != entry.homeCurrency
	if foreign && !rateKnown {
		var warn *invoicedomain.Warning
		rate, warn = s.lookupRate(ctx, entry.currency, entry.homeCurrency, entry.invoiceDate)
		if warn != nil {
			entry.addWarnings([]invoicedomain.Warning{*warn})
		}
	}
	if !foreign {
		rate = decimal.NewFromInt(1)
	}
	opts.Currency = currency.State{Foreign: foreign, ExchangeRate: rate}
	entry.editor = editor.NewSession(opts)
	if _, ok := entry.editor.Currency().Multiplier(); !ok {
		entry.addWarnings([]invoicedomain.Warning{{
			Kind:    invoicedomain.WarningExchangeRateFallback,
			Message: "exchange rate missing or zero, using 1",
		}})
	}
	for _, w := range entry.warnings {
		s.metrics.IncWarning(string(w.Kind))
	}

	open := s.sessions.put(entry)
	s.metrics.SetOpenSessions(open)

	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("invoice.session_id", entry.id),
		attribute.String("invoice.currency", entry.currency),
		attribute.String("invoice.tax_regime", string(regime.Kind)),
	)...)
	logger.WithContext(ctx, s.log).Info("opened invoice session",
		zap.String("session_id", entry.id),
		zap.String("currency", entry.currency),
		zap.Bool("foreign", foreign),
		zap.String("tax_regime", string(regime.Kind)),
		zap.Int("lines", len(opts.Lines)),
	)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.view(entry, true), nil
}

func (s *Service) loadInvoice(ctx context.Context, orgID snowflake.ID, rawID string) (*invoicedomain.Invoice, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	stored, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return stored, nil
}

// lookupRate fetches the rate for from→home. On failure it returns zero and a
// warning; the editor then falls back to 1.
func (s *Service) lookupRate(ctx context.Context, from, home string, asOf time.Time) (decimal.Decimal, *invoicedomain.Warning) {
	rate, err := s.rates.GetRate(ctx, from, home, asOf)
	if err == nil && rate.IsPositive() {
		return rate, nil
	}
	if err != nil && !errors.Is(err, exchangeratedomain.ErrRateNotFound) {
		logger.WithContext(ctx, s.log).Warn("exchange rate lookup failed",
			zap.String("from", from),
			zap.String("to", home),
			zap.Error(err),
		)
	}
	return decimal.Zero, &invoicedomain.Warning{
		Kind:    invoicedomain.WarningExchangeRateMissing,
		Message: fmt.Sprintf("no exchange rate for %s to %s on %s", from, home, asOf.Format("2006-01-02")),
	}
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*invoicedomain.SessionView, error) {
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return nil, invoicedomain.ErrSessionNotFound
	}
	entry.lastUsed = s.clock.Now()
	return s.view(entry, true), nil
}

func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := s.entry(ctx, sessionID); err != nil {
		return err
	}
	entry, open := s.sessions.remove(sessionID)
	if entry == nil {
		return invoicedomain.ErrSessionNotFound
	}
	entry.mu.Lock()
	entry.closed = true
	entry.mu.Unlock()
	s.metrics.SetOpenSessions(open)
	return nil
}

func (s *Service) AddRow(ctx context.Context, sessionID string) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.RowAdded{})
}

func (s *Service) RemoveRow(ctx context.Context, sessionID, rowID string) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.RowRemoved{RowID: rowID})
}

func (s *Service) SelectItem(ctx context.Context, sessionID, rowID, itemID string) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.ItemSelected{RowID: rowID, ItemID: strings.TrimSpace(itemID)})
}

func (s *Service) FocusField(ctx context.Context, sessionID, rowID string, field invoicedomain.Field) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.FieldFocused{RowID: rowID, Field: field})
}

func (s *Service) EditField(ctx context.Context, sessionID, rowID string, field invoicedomain.Field, raw string) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.FieldEdited{RowID: rowID, Field: field, Raw: raw})
}

func (s *Service) BlurField(ctx context.Context, sessionID, rowID string, field invoicedomain.Field) (*invoicedomain.SessionView, error) {
	return s.apply(ctx, sessionID, editor.FieldBlurred{RowID: rowID, Field: field})
}

// ChangeCurrency switches the transaction currency. The rate comes from the
// request or, for a foreign currency, from the rate lookup as of the invoice
// date.
func (s *Service) ChangeCurrency(ctx context.Context, sessionID string, req invoicedomain.ChangeCurrencyRequest) (*invoicedomain.SessionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ExchangeRate != nil && req.ExchangeRate.IsNegative() {
		return nil, invoicedomain.ErrInvalidExchangeRate
	}
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "invoice.session.change_currency")
	defer span.End()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.editable(entry); err != nil {
		return nil, recordSpanError(span, err)
	}

	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	foreign := code != entry.homeCurrency
	rate := decimal.NewFromInt(1)
	switch {
	case req.ExchangeRate != nil:
		rate = *req.ExchangeRate
	case foreign:
		var warn *invoicedomain.Warning
		rate, warn = s.lookupRate(ctx, code, entry.homeCurrency, entry.invoiceDate)
		if warn != nil {
			s.metrics.IncWarning(string(warn.Kind))
			entry.addWarnings([]invoicedomain.Warning{*warn})
		}
	}

	if _, err := s.dispatch(ctx, entry, editor.RateEdited{ExchangeRate: rate}); err != nil {
		return nil, recordSpanError(span, err)
	}
	if _, err := s.dispatch(ctx, entry, editor.CurrencyModeToggled{Foreign: foreign}); err != nil {
		return nil, recordSpanError(span, err)
	}
	entry.currency = code

	span.SetAttributes(
		attribute.String("invoice.currency", code),
		attribute.Bool("invoice.foreign", foreign),
	)
	return s.view(entry, true), nil
}

func (s *Service) EditExchangeRate(ctx context.Context, sessionID string, rate decimal.Decimal) (*invoicedomain.SessionView, error) {
	if rate.IsNegative() {
		return nil, invoicedomain.ErrInvalidExchangeRate
	}
	return s.apply(ctx, sessionID, editor.RateEdited{ExchangeRate: rate})
}

// EditAdjustment applies whichever of amount, name and account are set. An
// account must be an active account of the organization.
func (s *Service) EditAdjustment(ctx context.Context, sessionID string, req invoicedomain.EditAdjustmentRequest) (*invoicedomain.SessionView, error) {
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != nil && strings.TrimSpace(*req.AccountID) != "" {
		exists, err := s.accounts.Exists(ctx, *req.AccountID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, invoicedomain.ErrInvalidAccount
		}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.editable(entry); err != nil {
		return nil, err
	}

	if req.Amount != nil || req.Name != nil {
		amount := entry.editor.Adjustment().Amount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if _, err := s.dispatch(ctx, entry, editor.AdjustmentEdited{Amount: amount, Name: req.Name}); err != nil {
			return nil, err
		}
	}
	if req.AccountID != nil {
		if _, err := s.dispatch(ctx, entry, editor.AdjustmentAccountChosen{AccountID: strings.TrimSpace(*req.AccountID)}); err != nil {
			return nil, err
		}
	}
	return s.view(entry, true), nil
}

func (s *Service) RenderPDF(ctx context.Context, sessionID string) ([]byte, error) {
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "invoice.session.render_pdf")
	defer span.End()

	entry.mu.Lock()
	view := s.view(entry, false)
	entry.mu.Unlock()

	out, err := s.renderer.Render(ctx, view)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("invoice.pdf_bytes", len(out)))
	return out, nil
}

// apply runs one editor event under the session lock and returns the
// resulting view.
func (s *Service) apply(ctx context.Context, sessionID string, ev editor.Event) (*invoicedomain.SessionView, error) {
	entry, err := s.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "invoice.session."+editor.EventName(ev),
		trace.WithAttributes(attribute.String("invoice.session_id", sessionID)),
	)
	defer span.End()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.editable(entry); err != nil {
		return nil, recordSpanError(span, err)
	}
	if _, err := s.dispatch(ctx, entry, ev); err != nil {
		return nil, recordSpanError(span, err)
	}
	return s.view(entry, true), nil
}

// dispatch feeds ev to the editor. The caller holds entry.mu.
func (s *Service) dispatch(ctx context.Context, entry *sessionEntry, ev editor.Event) (editor.Result, error) {
	name := editor.EventName(ev)
	start := time.Now()
	res, err := entry.editor.Dispatch(ev)
	if err != nil {
		return res, err
	}
	s.metrics.ObserveEvent(name, time.Since(start))
	entry.lastUsed = s.clock.Now()

	if res.Stale {
		s.metrics.IncStaleSelection()
		logger.WithContext(ctx, s.log).Debug("discarded stale item data", zap.String("session_id", entry.id))
	}
	for _, w := range res.Warnings {
		s.metrics.IncWarning(string(w.Kind))
	}
	entry.addWarnings(res.Warnings)
	if res.Fetch != nil {
		s.startFetch(ctx, entry, *res.Fetch)
	}
	return res, nil
}

func (s *Service) editable(entry *sessionEntry) error {
	switch {
	case entry.closed:
		return invoicedomain.ErrSessionNotFound
	case entry.submitted:
		return invoicedomain.ErrAlreadySubmitted
	default:
		return nil
	}
}

// entry returns the session if it belongs to the caller's organization.
func (s *Service) entry(ctx context.Context, sessionID string) (*sessionEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidOrganization
	}
	entry := s.sessions.get(strings.TrimSpace(sessionID))
	if entry == nil || entry.orgID != orgID {
		return nil, invoicedomain.ErrSessionNotFound
	}
	return entry, nil
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, err.Error())
	return err
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
