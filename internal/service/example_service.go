package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/entity"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/internal/repository/specification"
	"ai-finance-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const moduleExample = "EXAMPLE"

type IExampleService interface {
	CreateExample(ctx context.Context, req *dto.CreateQueryExampleRequest) (*dto.QueryExampleResponse, error)
	ListExamples(ctx context.Context, limit, offset int) (*dto.ListQueryExamplesResponse, error)
	// ImportExamples creates and embeds examples synchronously.
	ImportExamples(ctx context.Context, reqs []*dto.CreateQueryExampleRequest) (int, error)
	// WarmIndex loads every embedded example into index.
	WarmIndex(ctx context.Context, index ExampleIndex) (int, error)
}

// ExampleEmbedder embeds one stored example. Implemented by the consumer service.
type ExampleEmbedder interface {
	EmbedExample(ctx context.Context, id uuid.UUID) error
}

type exampleService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	embedder         ExampleEmbedder
	allowedIndices   []string
	logger           logger.ILogger
}

func NewExampleService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	embedder ExampleEmbedder,
	allowedIndices []string,
	log logger.ILogger,
) IExampleService {
	return &exampleService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		embedder:         embedder,
		allowedIndices:   allowedIndices,
		logger:           log,
	}
}

func (s *exampleService) CreateExample(ctx context.Context, req *dto.CreateQueryExampleRequest) (*dto.QueryExampleResponse, error) {
	example, err := s.store(ctx, req)
	if err != nil {
		return nil, err
	}

	msgJson, err := json.Marshal(dto.PublishEmbedExampleMessage{ExampleId: example.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		// The example is stored; it stays out of retrieval until re-published.
		s.logger.Error(moduleExample, "Failed to publish embed message", map[string]interface{}{
			"example_id": example.Id.String(),
			"error":      err.Error(),
		})
	}

	return toExampleResponse(example), nil
}

func (s *exampleService) ListExamples(ctx context.Context, limit, offset int) (*dto.ListQueryExamplesResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.QueryExampleRepository().Count(ctx)
	if err != nil {
		return nil, err
	}

	examples, err := uow.QueryExampleRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.QueryExampleResponse, 0, len(examples))
	for _, ex := range examples {
		items = append(items, toExampleResponse(ex))
	}
	return &dto.ListQueryExamplesResponse{Items: items, Total: total}, nil
}

func (s *exampleService) ImportExamples(ctx context.Context, reqs []*dto.CreateQueryExampleRequest) (int, error) {
	imported := 0
	for i, req := range reqs {
		example, err := s.store(ctx, req)
		if err != nil {
			return imported, fmt.Errorf("example %d: %w", i+1, err)
		}
		if err := s.embedder.EmbedExample(ctx, example.Id); err != nil {
			return imported, fmt.Errorf("example %d: %w", i+1, err)
		}
		imported++
	}
	return imported, nil
}

func (s *exampleService) WarmIndex(ctx context.Context, index ExampleIndex) (int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	examples, err := uow.QueryExampleRepository().FindAll(ctx, specification.WithEmbedding{})
	if err != nil {
		return 0, err
	}
	for _, ex := range examples {
		if err := index.Upsert(ctx, ex); err != nil {
			return 0, err
		}
	}
	s.logger.Info(moduleExample, "Example index warmed", map[string]interface{}{"count": len(examples)})
	return len(examples), nil
}

func (s *exampleService) store(ctx context.Context, req *dto.CreateQueryExampleRequest) (*entity.QueryExample, error) {
	req.NaturalLanguage = strings.TrimSpace(req.NaturalLanguage)
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if !slices.Contains(s.allowedIndices, req.IndexName) {
		return nil, serverutils.NewValidationError(fmt.Sprintf("index %q is not allowed", req.IndexName))
	}
	if !isJSONObject(req.ESQuery) {
		return nil, serverutils.NewValidationError("es_query must be a JSON object")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, req.ESQuery); err != nil {
		return nil, serverutils.NewValidationError("es_query must be a JSON object")
	}

	example := &entity.QueryExample{
		Id:              uuid.New(),
		NaturalLanguage: req.NaturalLanguage,
		ESQuery:         compact.Bytes(),
		IndexName:       req.IndexName,
		Description:     strings.TrimSpace(req.Description),
		Tags:            req.Tags,
		CreatedAt:       time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.QueryExampleRepository().Create(ctx, example); err != nil {
		return nil, err
	}
	return example, nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

func toExampleResponse(ex *entity.QueryExample) *dto.QueryExampleResponse {
	tags := ex.Tags
	if tags == nil {
		tags = []string{}
	}
	return &dto.QueryExampleResponse{
		Id:              ex.Id,
		NaturalLanguage: ex.NaturalLanguage,
		ESQuery:         ex.ESQuery,
		IndexName:       ex.IndexName,
		Description:     ex.Description,
		Tags:            tags,
		Embedded:        ex.HasEmbedding(),
		CreatedAt:       ex.CreatedAt,
	}
}
