package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIndices = []string{"r085", "r100", "r025"}

type recordingPublisher struct {
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

type stubEmbedder struct {
	calls []string
	err   error
}

func (e *stubEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.calls = append(e.calls, taskType+"|"+text)
	if e.err != nil {
		return nil, e.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.6, 0.8}}}, nil
}

type recordingIndex struct {
	upserted []*entity.QueryExample
}

func (i *recordingIndex) Upsert(ctx context.Context, ex *entity.QueryExample) error {
	i.upserted = append(i.upserted, ex)
	return nil
}

func validExample() *dto.CreateQueryExampleRequest {
	return &dto.CreateQueryExampleRequest{
		NaturalLanguage: " How many active projects are there? ",
		ESQuery:         json.RawMessage(`{"size": 0, "track_total_hits": true, "query": {"term": {"status": "active"}}}`),
		IndexName:       "r100",
		Description:     "count of active projects",
		Tags:            []string{"count"},
	}
}

func TestExampleService_CreateExample_Publishes(t *testing.T) {
	db := newMemDB()
	pub := &recordingPublisher{}
	svc := NewExampleService(db, pub, nil, testIndices, logger.NewNopLogger())

	res, err := svc.CreateExample(t.Context(), validExample())
	require.NoError(t, err)

	assert.Equal(t, "How many active projects are there?", res.NaturalLanguage)
	assert.JSONEq(t, `{"size":0,"track_total_hits":true,"query":{"term":{"status":"active"}}}`, string(res.ESQuery))
	assert.False(t, res.Embedded)
	require.Contains(t, db.examples, res.Id)

	require.Len(t, pub.payloads, 1)
	var msg dto.PublishEmbedExampleMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, res.Id, msg.ExampleId)
}

func TestExampleService_CreateExample_PublishFailureKeepsExample(t *testing.T) {
	db := newMemDB()
	svc := NewExampleService(db, &recordingPublisher{err: errors.New("closed")}, nil, testIndices, logger.NewNopLogger())

	res, err := svc.CreateExample(t.Context(), validExample())
	require.NoError(t, err)
	assert.Contains(t, db.examples, res.Id)
}

func TestExampleService_CreateExample_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateQueryExampleRequest)
	}{
		{"disallowed index", func(r *dto.CreateQueryExampleRequest) { r.IndexName = "users" }},
		{"array query", func(r *dto.CreateQueryExampleRequest) { r.ESQuery = json.RawMessage(`[1,2]`) }},
		{"null query", func(r *dto.CreateQueryExampleRequest) { r.ESQuery = json.RawMessage(`null`) }},
		{"broken json", func(r *dto.CreateQueryExampleRequest) { r.ESQuery = json.RawMessage(`{"size":`) }},
		{"missing question", func(r *dto.CreateQueryExampleRequest) { r.NaturalLanguage = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemDB()
			pub := &recordingPublisher{}
			svc := NewExampleService(db, pub, nil, testIndices, logger.NewNopLogger())

			req := validExample()
			tt.mutate(req)
			_, err := svc.CreateExample(t.Context(), req)

			var verr *serverutils.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Empty(t, db.examples)
			assert.Empty(t, pub.payloads)
		})
	}
}

func TestExampleService_ListExamples(t *testing.T) {
	db := newMemDB()
	base := time.Now()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		db.examples[id] = &entity.QueryExample{Id: id, NaturalLanguage: "q", IndexName: "r085", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	svc := NewExampleService(db, &recordingPublisher{}, nil, testIndices, logger.NewNopLogger())

	res, err := svc.ListExamples(t.Context(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].CreatedAt.After(res.Items[1].CreatedAt))
	assert.Equal(t, []string{}, res.Items[0].Tags)
}

func TestExampleService_ImportAndWarm(t *testing.T) {
	db := newMemDB()
	embedder := &stubEmbedder{}
	index := &recordingIndex{}
	consumer := NewConsumerService(nil, "topic", db, embedder, index, logger.NewNopLogger())
	svc := NewExampleService(db, &recordingPublisher{}, consumer, testIndices, logger.NewNopLogger())

	n, err := svc.ImportExamples(t.Context(), []*dto.CreateQueryExampleRequest{validExample(), validExample()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, index.upserted, 2)
	for _, ex := range db.examples {
		assert.True(t, ex.HasEmbedding())
	}

	warm := &recordingIndex{}
	n, err = svc.WarmIndex(t.Context(), warm)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, warm.upserted, 2)
}

func TestExampleService_ImportStopsOnInvalid(t *testing.T) {
	db := newMemDB()
	consumer := NewConsumerService(nil, "topic", db, &stubEmbedder{}, nil, logger.NewNopLogger())
	svc := NewExampleService(db, &recordingPublisher{}, consumer, testIndices, logger.NewNopLogger())

	bad := validExample()
	bad.IndexName = "nope"
	n, err := svc.ImportExamples(t.Context(), []*dto.CreateQueryExampleRequest{validExample(), bad})
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, "example 2")
}

func TestConsumerService_EmbedExample(t *testing.T) {
	db := newMemDB()
	id := uuid.New()
	db.examples[id] = &entity.QueryExample{Id: id, NaturalLanguage: "Top 5 agencies by spend", Description: "ranking", IndexName: "r085"}
	embedder := &stubEmbedder{}
	index := &recordingIndex{}

	cs := NewConsumerService(nil, "topic", db, embedder, index, logger.NewNopLogger())
	require.NoError(t, cs.EmbedExample(t.Context(), id))

	assert.Equal(t, []string{embedding.TaskRetrievalDocument + "|Top 5 agencies by spend\nranking"}, embedder.calls)
	assert.Equal(t, []float32{0.6, 0.8}, db.examples[id].Embedding)
	require.Len(t, index.upserted, 1)
	assert.True(t, index.upserted[0].HasEmbedding())

	assert.NoError(t, cs.EmbedExample(t.Context(), uuid.New()), "missing example is skipped")
}

func TestConsumerService_ProcessMessage_AckNack(t *testing.T) {
	db := newMemDB()
	id := uuid.New()
	db.examples[id] = &entity.QueryExample{Id: id, NaturalLanguage: "q"}

	embedder := &stubEmbedder{}
	cs := NewConsumerService(nil, "topic", db, embedder, nil, logger.NewNopLogger()).(*consumerService)

	invalid := message.NewMessage("1", []byte("not json"))
	cs.processMessage(t.Context(), invalid)
	assertClosed(t, invalid.Acked(), "invalid payload is acked")

	payload, _ := json.Marshal(dto.PublishEmbedExampleMessage{ExampleId: id})
	embedder.err = errors.New("embedding backend down")
	retry := message.NewMessage("2", payload)
	cs.processMessage(t.Context(), retry)
	assertClosed(t, retry.Nacked(), "backend failure is nacked")

	embedder.err = nil
	ok := message.NewMessage("3", payload)
	cs.processMessage(t.Context(), ok)
	assertClosed(t, ok.Acked(), "success is acked")
}

func assertClosed(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	default:
		t.Fatal(msg)
	}
}
