package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/internal/repository/memory"
	"ai-finance-assistant-be/internal/repository/specification"
	"ai-finance-assistant-be/internal/repository/unitofwork"
	"ai-finance-assistant-be/pkg/rag/prompt"

	"github.com/google/uuid"
)

const (
	moduleChat = "CHAT"

	// summaryWindow is how many messages feed the rolling summary.
	summaryWindow = 10
)

type AppendMessageInput struct {
	UserId          uuid.UUID
	ChatId          *uint
	ParentMessageId *uint
	Query           string
	Response        string
}

type IChatService interface {
	ListChats(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSessionResponse, error)
	GetMessages(ctx context.Context, userId uuid.UUID, chatId uint) ([]*dto.ChatMessageResponse, error)
	DeleteChat(ctx context.Context, userId uuid.UUID, chatId uint) error
	LoadConversation(ctx context.Context, userId uuid.UUID, chatId uint) (*memory.ConversationContext, error)
	AppendMessage(ctx context.Context, in AppendMessageInput) (*entity.ChatMessage, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.ConversationCache
	logger     logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, cache *memory.ConversationCache, log logger.ILogger) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		cache:      cache,
		logger:     log,
	}
}

func (s *chatService) ListChats(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatSessionResponse, 0, len(sessions))
	for _, cs := range sessions {
		res = append(res, &dto.ChatSessionResponse{
			Id:           cs.Id,
			Title:        cs.Title,
			MessageCount: cs.MessageCount,
			CreatedAt:    cs.CreatedAt,
			UpdatedAt:    cs.UpdatedAt,
		})
	}
	return res, nil
}

func (s *chatService) GetMessages(ctx context.Context, userId uuid.UUID, chatId uint) ([]*dto.ChatMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, &dto.ChatMessageResponse{
			Id:              m.Id,
			Query:           m.Query,
			Response:        m.Response,
			ParentMessageId: m.ParentMessageId,
			CreatedAt:       m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uint) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, userId, chatId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, chatId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, chatId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.cache.Delete(chatId)
	return nil
}

// LoadConversation returns the recent turns and rolling summary of a chat
// owned by userId. Served from cache when possible.
func (s *chatService) LoadConversation(ctx context.Context, userId uuid.UUID, chatId uint) (*memory.ConversationContext, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.ownedSession(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	if conv, ok := s.cache.Get(chatId); ok {
		return conv, nil
	}

	recent, err := s.recentMessages(ctx, uow, chatId, constant.RecentTurnsLimit)
	if err != nil {
		return nil, err
	}

	conv := &memory.ConversationContext{
		RecentTurns: toTurns(recent),
		Summary:     session.Summary,
	}
	if n := len(recent); n > 0 {
		conv.LastMessageId = &recent[n-1].Id
	}
	s.cache.Save(chatId, conv)
	return conv, nil
}

// AppendMessage stores one exchange, creating the chat on the first message,
// and refreshes the rolling summary.
func (s *chatService) AppendMessage(ctx context.Context, in AppendMessageInput) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	var session *entity.ChatSession
	if in.ChatId == nil {
		session = &entity.ChatSession{
			UserId:    in.UserId,
			Title:     TruncateRunes(strings.TrimSpace(in.Query), constant.ChatTitleMaxRunes),
			CreatedAt: time.Now(),
		}
		if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
	} else {
		var err error
		session, err = s.ownedSession(ctx, uow, in.UserId, *in.ChatId)
		if err != nil {
			return nil, err
		}
	}

	message := &entity.ChatMessage{
		ChatSessionId:   session.Id,
		Query:           in.Query,
		Response:        in.Response,
		ParentMessageId: in.ParentMessageId,
		CreatedAt:       time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	recent, err := s.recentMessages(ctx, uow, session.Id, summaryWindow)
	if err != nil {
		return nil, err
	}
	turns := toTurns(recent)

	session.Summary = BuildSummary(turns)
	if err := uow.ChatSessionRepository().RecordExchange(ctx, session.Id, session.Summary, message.Id); err != nil {
		return nil, fmt.Errorf("update chat summary: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if len(turns) > constant.RecentTurnsLimit {
		turns = turns[len(turns)-constant.RecentTurnsLimit:]
	}
	s.cache.Save(session.Id, &memory.ConversationContext{
		RecentTurns:   turns,
		Summary:       session.Summary,
		LastMessageId: &message.Id,
	})

	s.logger.Debug(moduleChat, "Message appended", map[string]interface{}{
		"chat_id":    session.Id,
		"message_id": message.Id,
	})
	return message, nil
}

func (s *chatService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, chatId uint) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("chat")
	}
	return session, nil
}

func (s *chatService) recentMessages(ctx context.Context, uow unitofwork.UnitOfWork, chatId uint, limit int) ([]*entity.ChatMessage, error) {
	return uow.ChatMessageRepository().FindRecent(ctx, chatId, limit)
}

func toTurns(messages []*entity.ChatMessage) []prompt.Turn {
	turns := make([]prompt.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, prompt.Turn{Query: m.Query, Response: m.Response})
	}
	return turns
}

// BuildSummary condenses turns into "Q: ... / A: ..." lines. Answers are cut
// to SummaryAnswerRunes; the oldest lines go first when the total exceeds
// SummaryMaxRunes.
func BuildSummary(turns []prompt.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		q := strings.Join(strings.Fields(t.Query), " ")
		a := strings.Join(strings.Fields(t.Response), " ")
		lines = append(lines, fmt.Sprintf("Q: %s / A: %s", q, TruncateRunes(a, constant.SummaryAnswerRunes)))
	}

	summary := strings.Join(lines, "\n")
	for len(lines) > 1 && utf8.RuneCountInString(summary) > constant.SummaryMaxRunes {
		lines = lines[1:]
		summary = strings.Join(lines, "\n")
	}
	return TruncateRunes(summary, constant.SummaryMaxRunes)
}

// TruncateRunes cuts s to at most n runes, marking the cut with "...".
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}
