package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareTagsInvoiceSession(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), 42))
		c.Next()
	})
	r.DELETE("/invoice-sessions/:id/rows/:rowId", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/invoice-sessions/sess-1/rows/row-2", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP DELETE /invoice-sessions/:id/rows/:rowId", spans[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "sess-1", attrs["invoice.session_id"])
	assert.Equal(t, "row-2", attrs["invoice.row_id"])
	assert.Equal(t, "42", attrs["org.id"])
	assert.Equal(t, "204", attrs["http.status_code"])
}
