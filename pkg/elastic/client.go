package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client is the subset of Elasticsearch the assistant talks to.
type Client interface {
	Count(ctx context.Context, index string, body map[string]any) (int64, error)
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

type esClient struct {
	es *elasticsearch.Client
}

func NewClient(cfg Config) (Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &esClient{es: es}, nil
}

// ResponseError carries the status and body of a non-2xx Elasticsearch reply.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("elasticsearch error: status %d: %s", e.StatusCode, e.Body)
}

func encodeBody(body map[string]any) (io.Reader, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}
	return bytes.NewReader(b), nil
}

func checkResponse(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	raw, _ := io.ReadAll(res.Body)
	return &ResponseError{StatusCode: res.StatusCode, Body: string(raw)}
}

func (c *esClient) Count(ctx context.Context, index string, body map[string]any) (int64, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return 0, err
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
		c.es.Count.WithBody(reader),
	)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	defer res.Body.Close()

	if err := checkResponse(res); err != nil {
		return 0, err
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

// Search returns the raw response body. Numbers are kept as json.Number so
// large identifiers and amounts survive the round trip to the summarizer.
func (c *esClient) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(reader),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if err := checkResponse(res); err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(res.Body)
	decoder.UseNumber()

	var parsed map[string]any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed, nil
}

func (c *esClient) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkResponse(res)
}
