package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

func (m *memoryStore) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) all() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Record(nil), m.records...)
}

type memoryAlerts struct {
	mu       sync.Mutex
	statuses []Status
}

func (m *memoryAlerts) PublishAlert(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, rec.Status)
	return nil
}

func TestWriter_PersistsSnapshotsAndDrainsOnShutdown(t *testing.T) {
	store := &memoryStore{}
	alerts := &memoryAlerts{}
	w := NewWriter(store, alerts, logger.NewNopLogger(), nil, 10)

	rec := NewRecord("how many projects", "u1", nil, nil)
	rec.SetStatus(StatusQuerySummarizationSuccess)
	require.True(t, w.Enqueue(rec))

	// Mutations after Enqueue must not leak into the persisted copy.
	rec.ResponseSummary = "changed later"

	require.True(t, w.Enqueue(rec.Derive(StatusResponseSanitizationSuccess)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	saved := store.all()
	require.Len(t, saved, 2)
	assert.Equal(t, StatusQuerySummarizationSuccess, saved[0].Status)
	assert.Empty(t, saved[0].ResponseSummary)
	assert.Equal(t, StatusResponseSanitizationSuccess, saved[1].Status)
	assert.Equal(t, "how many projects", saved[1].UserQuery)
	assert.Equal(t, []Status{StatusResponseSanitizationSuccess}, alerts.statuses)
}

func TestWriter_DropsWhenFull(t *testing.T) {
	w := NewWriter(&memoryStore{}, nil, logger.NewNopLogger(), nil, 1)
	assert.True(t, w.Enqueue(NewRecord("a", "u", nil, nil)))
	assert.False(t, w.Enqueue(NewRecord("b", "u", nil, nil)))
	assert.False(t, w.Enqueue(nil))
}

func TestWriter_StoreErrorIsSwallowed(t *testing.T) {
	store := &memoryStore{err: errors.New("db down")}
	w := NewWriter(store, nil, logger.NewNopLogger(), nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	w.Enqueue(NewRecord("q", "u", nil, nil))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop")
	}
	assert.Empty(t, store.all())
}

func TestRecord_SnapshotIsDeep(t *testing.T) {
	chatId := uint(7)
	rec := NewRecord("q", "u", &chatId, nil)
	rec.GeneratedESResponse = []byte(`{"a":1}`)

	snap := rec.Snapshot()
	*rec.ChatId = 8
	rec.GeneratedESResponse[2] = 'b'

	assert.Equal(t, uint(7), *snap.ChatId)
	assert.Equal(t, `{"a":1}`, string(snap.GeneratedESResponse))
}
