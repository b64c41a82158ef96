package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/pkg/audit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestQueryExampleMapper_EmbeddingOptional(t *testing.T) {
	m := NewQueryExampleMapper()

	withoutVec := m.ToModel(&entity.QueryExample{Id: uuid.New(), ESQuery: json.RawMessage(`{}`)})
	assert.Nil(t, withoutVec.Embedding)
	assert.False(t, m.ToEntity(withoutVec).HasEmbedding())

	e := &entity.QueryExample{
		Id:              uuid.New(),
		NaturalLanguage: "how many projects are in r100?",
		ESQuery:         json.RawMessage(`{"size":0,"track_total_hits":true}`),
		IndexName:       "r100",
		Tags:            []string{"count"},
		Embedding:       []float32{0.1, 0.2},
	}
	back := m.ToEntity(m.ToModel(e))
	assert.Equal(t, e.Embedding, back.Embedding)
	assert.Equal(t, e.Tags, back.Tags)
	assert.JSONEq(t, string(e.ESQuery), string(back.ESQuery))
}

func TestAssistantAuditLogMapper_Latencies(t *testing.T) {
	rec := audit.NewRecord("q", "u-1", nil, nil)
	rec.GeneratorLatency = 1500 * time.Millisecond
	rec.TotalLatency = 4 * time.Second
	rec.SetStatus(audit.StatusQuerySummarizationSuccess)

	m := NewAssistantAuditLogMapper()
	row := m.ToModel(m.FromRecord(rec))
	assert.Equal(t, int64(1500), row.GeneratorLatencyMs)
	assert.Equal(t, int64(4000), row.TotalLatencyMs)
	assert.Equal(t, "query_summarization_success", row.Status)
	assert.Nil(t, row.GeneratedESResponse)
}
