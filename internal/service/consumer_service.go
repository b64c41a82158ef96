package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/repository/specification"
	"ai-finance-assistant-be/internal/repository/unitofwork"
	"ai-finance-assistant-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const moduleConsumer = "CONSUMER"

// ExampleIndex receives examples once they carry an embedding. Implemented
// by the in-memory vector store; nil when Postgres serves retrieval.
type ExampleIndex interface {
	Upsert(ctx context.Context, ex *entity.QueryExample) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
	EmbedExample(ctx context.Context, id uuid.UUID) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	index             ExampleIndex
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	index ExampleIndex,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		index:             index,
		logger:            log,
	}
}

// Consume blocks until ctx is cancelled or the subscription closes.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	cs.logger.Info(moduleConsumer, "Embedding consumer started", map[string]interface{}{"topic": cs.topicName})
	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedExampleMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(moduleConsumer, "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // redelivery would fail the same way
		return
	}

	if err := cs.EmbedExample(ctx, payload.ExampleId); err != nil {
		cs.logger.Error(moduleConsumer, "Failed to embed example", map[string]interface{}{
			"example_id": payload.ExampleId.String(),
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// EmbedExample computes and stores the document embedding of one example.
// A missing example is not an error.
func (cs *consumerService) EmbedExample(ctx context.Context, id uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	example, err := uow.QueryExampleRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return fmt.Errorf("load example: %w", err)
	}
	if example == nil {
		cs.logger.Warn(moduleConsumer, "Example not found, skipping", map[string]interface{}{"example_id": id.String()})
		return nil
	}

	res, err := cs.embeddingProvider.Generate(ctx, EmbeddingText(example), embedding.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("generate embedding: %w", err)
	}

	if err := uow.QueryExampleRepository().UpdateEmbedding(ctx, example.Id, res.Embedding.Values); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	example.Embedding = res.Embedding.Values

	if cs.index != nil {
		if err := cs.index.Upsert(ctx, example); err != nil {
			return fmt.Errorf("index example: %w", err)
		}
	}

	cs.logger.Info(moduleConsumer, "Example embedded", map[string]interface{}{
		"example_id": example.Id.String(),
		"index_name": example.IndexName,
		"dimensions": len(res.Embedding.Values),
	})
	return nil
}

// EmbeddingText is the document text embedded for an example.
func EmbeddingText(ex *entity.QueryExample) string {
	text := strings.TrimSpace(ex.NaturalLanguage)
	if d := strings.TrimSpace(ex.Description); d != "" {
		text += "\n" + d
	}
	return text
}
