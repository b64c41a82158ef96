package service

import (
	"context"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/events"
	pktNats "ai-finance-assistant-be/pkg/nats"
)

const (
	moduleAlert        = "SECURITY_ALERT"
	alertDurableWorker = "assistant-security-alert-worker"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

// AlertService forwards security audit records to the event bus and writes
// received alerts to the security log.
type AlertService struct {
	publisher  EventPublisher
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewAlertService(pub EventPublisher, sub EventSubscriber, log logger.ILogger) *AlertService {
	return &AlertService{
		publisher:  pub,
		subscriber: sub,
		logger:     log,
	}
}

// PublishAlert implements audit.AlertPublisher.
func (s *AlertService) PublishAlert(ctx context.Context, rec *audit.Record) error {
	data := map[string]interface{}{
		"status":            string(rec.Status),
		"user_id":           rec.UserId,
		"user_query":        rec.UserQuery,
		"malicious_content": rec.MaliciousContent,
		"error_message":     rec.ErrorMessage,
	}
	if rec.ChatId != nil {
		data["chat_id"] = *rec.ChatId
	}

	return s.publisher.Publish(ctx, events.BaseEvent{
		Type:       events.AssistantSecurityAlert,
		Data:       data,
		OccurredAt: rec.CreatedAt,
	})
}

// Start subscribes to security alerts. Returns once the subscription is live.
func (s *AlertService) Start(ctx context.Context) error {
	subject := events.Subject(events.AssistantSecurityAlert)
	if err := s.subscriber.Subscribe(ctx, subject, alertDurableWorker, s.handleEvent); err != nil {
		s.logger.Error(moduleAlert, "Failed to start alert subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info(moduleAlert, "Alert subscriber started", map[string]interface{}{"subject": subject})
	return nil
}

func (s *AlertService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	s.logger.Warn(moduleAlert, "Security event", map[string]interface{}{
		"type":              event.EventType(),
		"status":            payload["status"],
		"user_id":           payload["user_id"],
		"chat_id":           payload["chat_id"],
		"malicious_content": payload["malicious_content"],
		"occurred_at":       event.Timestamp().Format(time.RFC3339),
	})
	return nil
}
