package telemetry

import (
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup(t *testing.T) {
	t.Run("Disabled without endpoint", func(t *testing.T) {
		shutdown, err := Setup(t.Context(), config.OTel{ServiceName: "storefront-checkout"}, "test")
		require.NoError(t, err)
		require.NotNil(t, shutdown)
		assert.NoError(t, shutdown(t.Context()))
	})

	t.Run("Installs provider with endpoint", func(t *testing.T) {
		previous := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(previous) })

		shutdown, err := Setup(t.Context(), config.OTel{
			ServiceName:      "storefront-checkout",
			ExporterEndpoint: "http://127.0.0.1:4318/v1/traces",
			SamplerRatio:     0.5,
		}, "test")
		require.NoError(t, err)

		_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, ok)
		assert.NoError(t, shutdown(t.Context()))
	})
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
