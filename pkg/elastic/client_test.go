package elastic

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// go-elasticsearch v8 refuses servers without the product header.
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return c
}

func TestCount(t *testing.T) {
	var body map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r100/_count", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"count":1234,"_shards":{"total":1}}`)
	})

	n, err := c.Count(t.Context(), "r100", map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)
	assert.Contains(t, body, "query")
}

func TestSearch_PreservesNumbers(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r085/_search", r.URL.Path)
		fmt.Fprint(w, `{"took":3,"hits":{"total":{"value":41,"relation":"eq"},"hits":[{"_source":{"amount":12345678901234567}}]}}`)
	})

	res, err := c.Search(t.Context(), "r085", map[string]any{"size": 5})
	require.NoError(t, err)

	hits := res["hits"].(map[string]any)
	total := hits["total"].(map[string]any)
	assert.Equal(t, json.Number("41"), total["value"])

	src := hits["hits"].([]any)[0].(map[string]any)["_source"].(map[string]any)
	assert.Equal(t, json.Number("12345678901234567"), src["amount"])
}

func TestSearch_ErrorStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"parsing_exception"}}`)
	})

	_, err := c.Search(t.Context(), "r025", map[string]any{})
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 400, re.StatusCode)
	assert.Contains(t, re.Body, "parsing_exception")
}
