package service

import (
	"context"
	"strings"

	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/pkg/ai/pipeline"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"

	"github.com/google/uuid"
)

const moduleAssistant = "ASSISTANT"

// QueryPipeline is the part of pipeline.Pipeline the service drives.
type QueryPipeline interface {
	Screen(sess pipeline.Session) error
	Process(ctx context.Context, sess pipeline.Session, out llm.StreamHandler, persist pipeline.PersistFunc) (*pipeline.Result, error)
}

type IAssistantService interface {
	// Prepare validates the request and loads the conversation. Errors are
	// returned before any byte is streamed.
	Prepare(ctx context.Context, userId string, req *dto.AssistantRequest) (*pipeline.Session, error)
	// Stream runs the pipeline, writing chunks and the sentinel to out.
	Stream(ctx context.Context, sess *pipeline.Session, out llm.StreamHandler) (*pipeline.Result, error)
}

type assistantService struct {
	pipeline    QueryPipeline
	chatService IChatService
	logger      logger.ILogger
}

func NewAssistantService(p QueryPipeline, chatService IChatService, log logger.ILogger) IAssistantService {
	return &assistantService{
		pipeline:    p,
		chatService: chatService,
		logger:      log,
	}
}

func (s *assistantService) Prepare(ctx context.Context, userId string, req *dto.AssistantRequest) (*pipeline.Session, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}

	owner, err := uuid.Parse(userId)
	if err != nil {
		return nil, serverutils.NewValidationError("invalid user id")
	}

	sess := &pipeline.Session{
		UserQuery:       req.Query,
		UserId:          userId,
		ChatId:          req.ChatId,
		ParentMessageId: req.ParentId,
	}

	// Screen before touching storage so rejected queries cost nothing.
	if err := s.pipeline.Screen(*sess); err != nil {
		return nil, err
	}

	if req.ChatId != nil {
		conv, err := s.chatService.LoadConversation(ctx, owner, *req.ChatId)
		if err != nil {
			return nil, err
		}
		sess.RecentTurns = conv.RecentTurns
		sess.Summary = conv.Summary
	}
	return sess, nil
}

func (s *assistantService) Stream(ctx context.Context, sess *pipeline.Session, out llm.StreamHandler) (*pipeline.Result, error) {
	owner, err := uuid.Parse(sess.UserId)
	if err != nil {
		return nil, serverutils.NewValidationError("invalid user id")
	}

	persist := func(ctx context.Context, response string, rec *audit.Record) (*pipeline.Sentinel, error) {
		msg, err := s.chatService.AppendMessage(ctx, AppendMessageInput{
			UserId:          owner,
			ChatId:          sess.ChatId,
			ParentMessageId: sess.ParentMessageId,
			Query:           sess.UserQuery,
			Response:        response,
		})
		if err != nil {
			return nil, err
		}

		chatId := msg.ChatSessionId
		rec.ChatId = &chatId
		return &pipeline.Sentinel{
			ChatId:          msg.ChatSessionId,
			MessageId:       msg.Id,
			ParentMessageId: msg.ParentMessageId,
		}, nil
	}

	result, err := s.pipeline.Process(ctx, *sess, out, persist)
	if err != nil {
		s.logger.Warn(moduleAssistant, "Request finished with error", map[string]interface{}{
			"user_id": sess.UserId,
			"error":   err.Error(),
		})
		return result, err
	}

	details := map[string]interface{}{
		"user_id": sess.UserId,
		"route":   string(result.Route),
	}
	if result.Sentinel != nil {
		details["chat_id"] = result.Sentinel.ChatId
	}
	s.logger.Info(moduleAssistant, "Request completed", details)
	return result, nil
}
