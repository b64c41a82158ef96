package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/repository/contract"
	"ai-finance-assistant-be/internal/repository/specification"
	"ai-finance-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// memDB backs the in-memory repositories. Specifications are interpreted by
// type so services exercise the same filters they send to gorm.
type memDB struct {
	mu        sync.Mutex
	sessions  map[uint]*entity.ChatSession
	messages  map[uint]*entity.ChatMessage
	examples  map[uuid.UUID]*entity.QueryExample
	audits    []*entity.AssistantAuditLog
	nextId    uint
	commits   int
	rollbacks int
	failWith  error
}

func newMemDB() *memDB {
	return &memDB{
		sessions: map[uint]*entity.ChatSession{},
		messages: map[uint]*entity.ChatMessage{},
		examples: map[uuid.UUID]*entity.QueryExample{},
	}
}

func (db *memDB) id() uint {
	db.nextId++
	return db.nextId
}

func (db *memDB) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUoW{db: db}
}

type memUoW struct {
	db     *memDB
	active bool
}

func (u *memUoW) Begin(ctx context.Context) error {
	u.active = true
	return nil
}

func (u *memUoW) Commit() error {
	if !u.active {
		return errors.New("no transaction to commit")
	}
	u.active = false
	u.db.commits++
	return nil
}

func (u *memUoW) Rollback() error {
	if !u.active {
		return errors.New("no transaction to rollback")
	}
	u.active = false
	u.db.rollbacks++
	return nil
}

func (u *memUoW) ChatSessionRepository() contract.ChatSessionRepository {
	return &memSessions{u.db}
}

func (u *memUoW) ChatMessageRepository() contract.ChatMessageRepository {
	return &memMessages{u.db}
}

func (u *memUoW) QueryExampleRepository() contract.QueryExampleRepository {
	return &memExamples{u.db}
}

func (u *memUoW) AssistantAuditLogRepository() contract.AssistantAuditLogRepository {
	return &memAudits{u.db}
}

type query struct {
	id       interface{}
	userId   *uuid.UUID
	chatId   *uint
	order    *specification.OrderBy
	limit    int
	offset   int
	embedded bool
}

func parse(specs []specification.Specification) query {
	var q query
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			q.id = s.ID
		case specification.UserOwnedBy:
			q.userId = &s.UserID
		case specification.ByChatSessionID:
			q.chatId = &s.ChatSessionID
		case specification.OrderBy:
			q.order = &s
		case specification.Pagination:
			q.limit, q.offset = s.Limit, s.Offset
		case specification.WithEmbedding:
			q.embedded = true
		}
	}
	return q
}

func page[T any](items []T, q query) []T {
	if q.offset > 0 {
		if q.offset >= len(items) {
			return nil
		}
		items = items[q.offset:]
	}
	if q.limit > 0 && q.limit < len(items) {
		items = items[:q.limit]
	}
	return items
}

type memSessions struct{ db *memDB }

func (r *memSessions) Create(ctx context.Context, s *entity.ChatSession) error {
	if r.db.failWith != nil {
		return r.db.failWith
	}
	s.Id = r.db.id()
	cp := *s
	r.db.sessions[s.Id] = &cp
	return nil
}

func (r *memSessions) RecordExchange(ctx context.Context, id uint, summary string, lastMessageId uint) error {
	cs, ok := r.db.sessions[id]
	if !ok {
		return errors.New("record not found")
	}
	cs.Summary = summary
	cs.LastMessageId = &lastMessageId
	cs.MessageCount++
	return nil
}

func (r *memSessions) Delete(ctx context.Context, id uint) error {
	delete(r.db.sessions, id)
	return nil
}

func (r *memSessions) match(q query) []*entity.ChatSession {
	var out []*entity.ChatSession
	for _, s := range r.db.sessions {
		if q.id != nil && q.id != s.Id {
			continue
		}
		if q.userId != nil && *q.userId != s.UserId {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.order != nil && q.order.Desc {
			return out[i].Id > out[j].Id
		}
		return out[i].Id < out[j].Id
	})
	return page(out, q)
}

func (r *memSessions) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	found := r.match(parse(specs))
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *memSessions) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return r.match(parse(specs)), nil
}

func (r *memSessions) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.match(parse(specs)))), nil
}

type memMessages struct{ db *memDB }

func (r *memMessages) Create(ctx context.Context, m *entity.ChatMessage) error {
	m.Id = r.db.id()
	cp := *m
	r.db.messages[m.Id] = &cp
	return nil
}

func (r *memMessages) DeleteByChatSessionId(ctx context.Context, chatSessionId uint) error {
	for id, m := range r.db.messages {
		if m.ChatSessionId == chatSessionId {
			delete(r.db.messages, id)
		}
	}
	return nil
}

// Ids are monotonic, so they stand in for created_at ordering.
func (r *memMessages) match(q query) []*entity.ChatMessage {
	var out []*entity.ChatMessage
	for _, m := range r.db.messages {
		if q.chatId != nil && *q.chatId != m.ChatSessionId {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.order != nil && q.order.Desc {
			return out[i].Id > out[j].Id
		}
		return out[i].Id < out[j].Id
	})
	return page(out, q)
}

func (r *memMessages) FindRecent(ctx context.Context, chatSessionId uint, limit int) ([]*entity.ChatMessage, error) {
	all := r.match(query{chatId: &chatSessionId})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memMessages) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return r.match(parse(specs)), nil
}

type memExamples struct{ db *memDB }

func (r *memExamples) Create(ctx context.Context, ex *entity.QueryExample) error {
	if r.db.failWith != nil {
		return r.db.failWith
	}
	cp := *ex
	r.db.examples[ex.Id] = &cp
	return nil
}

func (r *memExamples) Update(ctx context.Context, ex *entity.QueryExample) error {
	cp := *ex
	r.db.examples[ex.Id] = &cp
	return nil
}

func (r *memExamples) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	ex, ok := r.db.examples[id]
	if !ok {
		return errors.New("example not found")
	}
	ex.Embedding = embedding
	return nil
}

func (r *memExamples) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.db.examples, id)
	return nil
}

func (r *memExamples) match(q query) []*entity.QueryExample {
	var out []*entity.QueryExample
	for _, ex := range r.db.examples {
		if q.id != nil && q.id != ex.Id {
			continue
		}
		if q.embedded && !ex.HasEmbedding() {
			continue
		}
		cp := *ex
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q)
}

func (r *memExamples) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QueryExample, error) {
	found := r.match(parse(specs))
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *memExamples) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QueryExample, error) {
	return r.match(parse(specs)), nil
}

func (r *memExamples) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.match(parse(specs)))), nil
}

func (r *memExamples) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredQueryExample, error) {
	var out []*contract.ScoredQueryExample
	for _, ex := range r.match(query{embedded: true}) {
		out = append(out, &contract.ScoredQueryExample{Example: ex, Distance: 0.1})
	}
	return page(out, query{limit: limit}), nil
}

type memAudits struct{ db *memDB }

func (r *memAudits) Create(ctx context.Context, l *entity.AssistantAuditLog) error {
	if r.db.failWith != nil {
		return r.db.failWith
	}
	l.Id = r.db.id()
	r.db.audits = append(r.db.audits, l)
	return nil
}

func (r *memAudits) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AssistantAuditLog, error) {
	return r.db.audits, nil
}

func (r *memAudits) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.db.audits)), nil
}
