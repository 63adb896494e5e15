package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the service and environment.
type Config struct {
	ServiceName string
	Environment string
}

const (
	SubmitOutcomeSubmitted = "submitted"
	SubmitOutcomeInvalid   = "invalid"
	SubmitOutcomeDuplicate = "duplicate"
	SubmitOutcomeError     = "error"

	FetchOutcomeOK      = "ok"
	FetchOutcomeMissing = "missing"
	FetchOutcomeTimeout = "timeout"
	FetchOutcomeError   = "error"
)

// EditorMetrics covers the invoice edit sessions.
type EditorMetrics struct {
	events          *prometheus.CounterVec
	staleSelections prometheus.Counter
	warnings        *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	recompute       *prometheus.HistogramVec
	catalogFetch    *prometheus.HistogramVec
	openSessions    prometheus.Gauge
	httpDuration    *prometheus.HistogramVec
}

var (
	editorMetricsOnce sync.Once
	editorMetrics     *EditorMetrics
)

// Editor returns the process-wide editor metrics registered on the default
// registry.
func Editor(cfg Config) *EditorMetrics {
	editorMetricsOnce.Do(func() {
		editorMetrics = NewEditorMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return editorMetrics
}

func NewEditorMetrics(registerer prometheus.Registerer, cfg Config) *EditorMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "salesdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &EditorMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesdesk_editor_events_total",
			Help:        "Invoice editor events applied, by event type.",
			ConstLabels: constLabels,
		}, []string{"event"}),
		staleSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salesdesk_editor_stale_selections_total",
			Help:        "Catalog results discarded because a newer selection superseded them.",
			ConstLabels: constLabels,
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesdesk_editor_warnings_total",
			Help:        "Fallbacks applied by the editor, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesdesk_invoice_submissions_total",
			Help:        "Invoice submissions by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		recompute: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "salesdesk_editor_recompute_seconds",
			Help:        "Time to apply one editor event including the header recompute.",
			Buckets:     []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
			ConstLabels: constLabels,
		}, []string{"event"}),
		catalogFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "salesdesk_catalog_fetch_seconds",
			Help:        "Item sales data lookups by outcome.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "salesdesk_editor_open_sessions",
			Help:        "Edit sessions currently held in memory.",
			ConstLabels: constLabels,
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "salesdesk_http_request_duration_seconds",
			Help:        "HTTP request latency by route and status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"endpoint", "status_code"}),
	}

	registerer.MustRegister(
		m.events,
		m.staleSelections,
		m.warnings,
		m.submissions,
		m.recompute,
		m.catalogFetch,
		m.openSessions,
		m.httpDuration,
	)
	return m
}

func (m *EditorMetrics) ObserveEvent(event string, duration time.Duration) {
	if m == nil {
		return
	}
	event = normalizeLabel(event)
	m.events.WithLabelValues(event).Inc()
	m.recompute.WithLabelValues(event).Observe(duration.Seconds())
}

func (m *EditorMetrics) IncStaleSelection() {
	if m == nil {
		return
	}
	m.staleSelections.Inc()
}

func (m *EditorMetrics) IncWarning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *EditorMetrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *EditorMetrics) ObserveCatalogFetch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogFetch.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func (m *EditorMetrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.openSessions.Set(float64(n))
}

// GinMiddleware records request latency per matched route.
func (m *EditorMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		m.httpDuration.
			WithLabelValues(normalizeLabel(c.FullPath()), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// ClassifySubmitOutcome maps a Submit error to a low-cardinality outcome.
// invalid and duplicate report whether err matches those classes.
func ClassifySubmitOutcome(err error, invalid, duplicate func(error) bool) string {
	switch {
	case err == nil:
		return SubmitOutcomeSubmitted
	case invalid != nil && invalid(err):
		return SubmitOutcomeInvalid
	case duplicate != nil && duplicate(err):
		return SubmitOutcomeDuplicate
	default:
		return SubmitOutcomeError
	}
}

// ClassifyFetchError maps a catalog lookup failure to an outcome.
func ClassifyFetchError(err error, missing func(error) bool) string {
	switch {
	case err == nil:
		return FetchOutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return FetchOutcomeTimeout
	case missing != nil && missing(err):
		return FetchOutcomeMissing
	default:
		return FetchOutcomeError
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
