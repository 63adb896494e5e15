package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/salesdesk/internal/observability/context"
	"github.com/smallbiznis/salesdesk/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var requestID, correlationID string
	r.GET("/ping", func(c *gin.Context) {
		requestID = obscontext.RequestIDFromContext(c.Request.Context())
		correlationID = correlation.ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, w.Header().Get("X-Request-Id"), requestID)
	assert.NotEmpty(t, correlationID)
}

func TestGinMiddlewareKeepsIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var sessionID string
	r.GET("/sessions/:id", func(c *gin.Context) {
		sessionID = obscontext.SessionIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc", sessionID)
}
