package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExamples(t *testing.T) {
	raw := []byte(`
examples:
  - natural_language: How many projects started in 2023?
    index_name: r100
    description: count by start year
    tags: [count, projects]
    es_query:
      size: 0
      track_total_hits: true
      query:
        range:
          start_date:
            gte: "2023-01-01"
`)
	reqs, err := parseExamples(raw)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	assert.Equal(t, "How many projects started in 2023?", reqs[0].NaturalLanguage)
	assert.Equal(t, "r100", reqs[0].IndexName)
	assert.Equal(t, []string{"count", "projects"}, reqs[0].Tags)
	assert.JSONEq(t, `{"size":0,"track_total_hits":true,"query":{"range":{"start_date":{"gte":"2023-01-01"}}}}`, string(reqs[0].ESQuery))
}

func TestParseExamples_MissingQuery(t *testing.T) {
	_, err := parseExamples([]byte("examples:\n  - natural_language: hi\n    index_name: r100\n"))
	assert.ErrorContains(t, err, "es_query is required")
}
