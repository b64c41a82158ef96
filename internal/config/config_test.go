package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RETRIEVER_TOP_K", "")
	t.Setenv("ELASTIC_ALLOWED_INDICES", "")

	cfg := Load()

	assert.Equal(t, 3, cfg.Ai.TopK)
	assert.Equal(t, 0.5, cfg.Ai.MinSimilarity)
	assert.Equal(t, 0.3, cfg.Ai.GeneratorTemperature)
	assert.Equal(t, []string{"r085", "r100", "r025"}, cfg.Elastic.AllowedIndices)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ELASTIC_ADDRESSES", "http://es-1:9200, http://es-2:9200 ,")
	t.Setenv("RETRIEVER_MIN_SIMILARITY", "0.75")
	t.Setenv("EXAMPLE_STORE", "memory")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elastic.Addresses)
	assert.Equal(t, 0.75, cfg.Ai.MinSimilarity)
	assert.Equal(t, "memory", cfg.Ai.ExampleStore)
	assert.False(t, cfg.App.MetricsEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero top k", func(c *Config) { c.Ai.TopK = 0 }},
		{"similarity above one", func(c *Config) { c.Ai.MinSimilarity = 1.5 }},
		{"unknown generator", func(c *Config) { c.Ai.GeneratorProvider = "gemini" }},
		{"huggingface embeddings", func(c *Config) { c.Ai.EmbeddingProvider = "huggingface" }},
		{"unknown store", func(c *Config) { c.Ai.ExampleStore = "cosmos" }},
		{"no es address", func(c *Config) { c.Elastic.Addresses = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
