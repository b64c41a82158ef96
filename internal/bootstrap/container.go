package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-finance-assistant-be/internal/config"
	"ai-finance-assistant-be/internal/constant"
	"ai-finance-assistant-be/internal/controller"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/repository/memory"
	"ai-finance-assistant-be/internal/repository/unitofwork"
	"ai-finance-assistant-be/internal/service"
	"ai-finance-assistant-be/pkg/ai/pipeline"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/database"
	"ai-finance-assistant-be/pkg/elastic"
	"ai-finance-assistant-be/pkg/embedding"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/llm/factory"
	pktNats "ai-finance-assistant-be/pkg/nats"
	"ai-finance-assistant-be/pkg/rag/retriever"
	"ai-finance-assistant-be/pkg/safety"
	"ai-finance-assistant-be/pkg/usage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	ChatController      controller.IChatController
	ExampleController   controller.IExampleController
	HealthController    controller.IHealthController

	// Services reused by the CLI
	AssistantService service.IAssistantService
	ExampleService   service.IExampleService

	// Background workers (run by main)
	ConsumerService service.IConsumerService
	AuditWriter     *audit.Writer
	AlertService    *service.AlertService // nil without NATS

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auditTrail := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64, Persistent: true},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI Providers
	embeddingProvider, err := newEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("BOOTSTRAP", "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
		"model":    cfg.Ai.EmbeddingModel,
	})

	generatorLLM, err := newLLMProvider(cfg, cfg.Ai.GeneratorProvider, cfg.Ai.GeneratorModel)
	if err != nil {
		return nil, fmt.Errorf("generator llm: %w", err)
	}
	summarizerLLM, err := newLLMProvider(cfg, cfg.Ai.SummarizerProvider, cfg.Ai.SummarizerModel)
	if err != nil {
		return nil, fmt.Errorf("summarizer llm: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM providers ready", map[string]interface{}{
		"generator":  generatorLLM.Name() + "/" + generatorLLM.ModelName(),
		"summarizer": summarizerLLM.Name() + "/" + summarizerLLM.ModelName(),
	})

	// 4. Infrastructure
	esClient, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
		APIKey:    cfg.Elastic.APIKey,
	})
	if err != nil {
		return nil, err
	}

	usageSink, closeUsage := newUsageSink(cfg, sysLogger)
	c.closers = append(c.closers, closeUsage)

	var alerts audit.AlertPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS publisher unavailable, security alerts disabled", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsPub.Close)
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			c.closers = append(c.closers, natsSub.Close)
			c.AlertService = service.NewAlertService(natsPub, natsSub, sysLogger)
			alerts = c.AlertService
		}
	}

	// 5. Example store
	var exampleStore retriever.ExampleStore
	var exampleIndex service.ExampleIndex
	if cfg.Ai.ExampleStore == "memory" {
		memStore, err := memory.NewExampleStore()
		if err != nil {
			return nil, err
		}
		exampleStore, exampleIndex = memStore, memStore
	} else {
		exampleStore = service.NewPostgresExampleStore(uowFactory)
	}

	// 6. Services
	c.AuditWriter = audit.NewWriter(service.NewAuditStore(uowFactory), alerts, sysLogger, auditTrail, 1000)

	publisherService := service.NewPublisherService(cfg.Keys.ExampleTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Keys.ExampleTopic,
		uowFactory,
		embeddingProvider,
		exampleIndex,
		sysLogger,
	)
	c.ExampleService = service.NewExampleService(uowFactory, publisherService, c.ConsumerService, cfg.Elastic.AllowedIndices, sysLogger)

	if exampleIndex != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := c.ExampleService.WarmIndex(ctx, exampleIndex)
		cancel()
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to warm in-memory example store", map[string]interface{}{"error": err.Error()})
		}
	}

	guard, err := safety.NewDefaultEngine()
	if err != nil {
		return nil, fmt.Errorf("safety policy: %w", err)
	}

	exampleRetriever := retriever.NewRetriever(embeddingProvider, exampleStore, retriever.Config{
		TopK:          cfg.Ai.TopK,
		MinSimilarity: cfg.Ai.MinSimilarity,
	}, sysLogger)

	assistantPipeline := pipeline.New(
		pipeline.NewGenerator(
			generatorLLM,
			exampleRetriever,
			guard,
			usageSink,
			constant.GeneratorBasePrompt(cfg.Elastic.AllowedIndices),
			cfg.Ai.GeneratorTemperature,
			sysLogger,
		),
		pipeline.NewExecutor(esClient, cfg.Elastic.AllowedIndices, sysLogger),
		pipeline.NewSummarizer(
			summarizerLLM,
			usageSink,
			constant.SummarizerBasePrompt,
			cfg.Ai.SummarizerTemperature,
			sysLogger,
		),
		guard,
		c.AuditWriter,
		sysLogger,
	)

	chatService := service.NewChatService(uowFactory, memory.NewConversationCache(30*time.Minute), sysLogger)
	c.AssistantService = service.NewAssistantService(assistantPipeline, chatService, sysLogger)

	healthService := service.NewHealthService(esClient.Ping, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})

	// 7. Controllers
	c.AssistantController = controller.NewAssistantController(c.AssistantService, sysLogger)
	c.ChatController = controller.NewChatController(chatService)
	c.ExampleController = controller.NewExampleController(c.ExampleService)
	c.HealthController = controller.NewHealthController(healthService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newEmbeddingProvider(cfg *config.Config) (embedding.EmbeddingProvider, error) {
	var inner embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		inner = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	case "openai":
		inner = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
	return embedding.NewCachedProvider(inner, time.Hour), nil
}

func newLLMProvider(cfg *config.Config, provider, model string) (llm.LLMProvider, error) {
	p, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:      provider,
		Model:         model,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OpenAIAPIKey:  cfg.Keys.OpenAI,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		HFAPIKey:      cfg.Keys.HuggingFace,
		HFBaseURL:     cfg.Ai.HFBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return llm.RateLimited(p, cfg.Ai.RequestsPerSecond), nil
}

// newUsageSink prefers Redis and falls back to the structured log.
func newUsageSink(cfg *config.Config, log logger.ILogger) (llm.UsageSink, func()) {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, usage goes to the log only", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return usage.NewLogSink(log), func() {}
	}
	return usage.NewRedisSink(rdb, log), func() { _ = rdb.Close() }
}
