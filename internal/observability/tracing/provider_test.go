package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestNewProviderWithoutEndpointIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, provider)
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.1, clampRatio(0))
	assert.Equal(t, 0.5, clampRatio(0.5))
	assert.Equal(t, 1.0, clampRatio(3))
}

func TestSafeAttributesDropsSecrets(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("session_id", "s-1"),
		attribute.String("authorization", "Bearer x"),
		attribute.String("api_token", "t"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("session_id"), attrs[0].Key)
}
