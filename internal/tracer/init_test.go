package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitTracer("test")
	assert.NoError(t, shutdown(t.Context()))
}

func TestSamplingRatio(t *testing.T) {
	tests := []struct {
		env  string
		want float64
	}{
		{"", 1},
		{"0.25", 0.25},
		{"1.5", 1},
		{"abc", 1},
	}
	for _, tt := range tests {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.env)
		assert.Equal(t, tt.want, samplingRatio(), tt.env)
	}
}
