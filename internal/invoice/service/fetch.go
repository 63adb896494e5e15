package service

import (
	"context"
	"errors"
	"time"

	catalogdomain "github.com/smallbiznis/salesdesk/internal/catalog/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/editor"
	"github.com/smallbiznis/salesdesk/internal/observability/logger"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"github.com/smallbiznis/salesdesk/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// startFetch looks up catalog data for a selection in the background and
// feeds the answer back as ItemDataArrived. The fetch outlives the request
// that triggered it, so it keeps only the organization, correlation ID and
// trace parent.
func (s *Service) startFetch(ctx context.Context, entry *sessionEntry, req editor.FetchRequest) {
	fetchCtx := orgcontext.WithOrgID(context.Background(), entry.orgID)
	fetchCtx = correlation.ContextWithCorrelationID(fetchCtx, correlation.ExtractCorrelationID(ctx))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fetchCtx = correlation.ContextWithRemoteSpan(fetchCtx, sc.TraceID().String(), sc.SpanID().String())
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.fetchItem(fetchCtx, entry, req)
	}()
}

func (s *Service) fetchItem(ctx context.Context, entry *sessionEntry, req editor.FetchRequest) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "invoice.catalog_fetch", trace.WithAttributes(
		attribute.String("invoice.session_id", entry.id),
		attribute.String("catalog.item_id", req.ItemID),
	))
	defer span.End()

	start := time.Now()
	data, err := s.catalog.GetItemSalesData(ctx, req.ItemID)
	s.metrics.ObserveCatalogFetch(metrics.ClassifyFetchError(err, isMissingItem), time.Since(start))
	if err != nil {
		recordSpanError(span, err)
		logger.WithContext(ctx, s.log).Warn("item sales data lookup failed",
			zap.String("session_id", entry.id),
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		data = nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed || entry.submitted {
		return
	}
	if _, err := s.dispatch(ctx, entry, editor.ItemDataArrived{
		RowID: req.RowID,
		Token: req.Token,
		Data:  data,
		Err:   err,
	}); err != nil {
		logger.WithContext(ctx, s.log).Error("apply item sales data", zap.String("session_id", entry.id), zap.Error(err))
	}
}

func isMissingItem(err error) bool {
	return errors.Is(err, catalogdomain.ErrItemNotFound) || errors.Is(err, catalogdomain.ErrInvalidItemID)
}

// WaitForFetches blocks until every outstanding catalog fetch has been
// applied.
func (s *Service) WaitForFetches() {
	s.inflight.Wait()
}
