package pipeline

import (
	"context"
	"fmt"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/pkg/audit"
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/metrics"
	"ai-finance-assistant-be/pkg/rag/prompt"
)

const ModuleQueryGenerator = "query_generator"

// ExampleRetriever supplies the similar-examples fragment. It never fails;
// an empty string means no examples.
type ExampleRetriever interface {
	FetchExamples(ctx context.Context, userQuery string) string
}

// SensitiveDetector screens generator output. ok is true when content was replaced.
type SensitiveDetector interface {
	DetectSensitive(content string) (replacement string, ok bool)
}

type Generator struct {
	provider    llm.LLMProvider
	retriever   ExampleRetriever
	detector    SensitiveDetector
	usage       llm.UsageSink
	basePrompt  string
	temperature float64
	logger      logger.ILogger
}

func NewGenerator(
	provider llm.LLMProvider,
	retriever ExampleRetriever,
	detector SensitiveDetector,
	usage llm.UsageSink,
	basePrompt string,
	temperature float64,
	log logger.ILogger,
) *Generator {
	return &Generator{
		provider:    provider,
		retriever:   retriever,
		detector:    detector,
		usage:       usage,
		basePrompt:  basePrompt,
		temperature: temperature,
		logger:      log,
	}
}

// Run asks the generator model for either a query envelope or prose and
// appends its answer as an assistant message.
func (g *Generator) Run(ctx context.Context, state State, _ Emit) (State, error) {
	start := time.Now()
	defer func() {
		state.Log.GeneratorLatency = time.Since(start)
		metrics.StageDuration.WithLabelValues("generator").Observe(time.Since(start).Seconds())
	}()

	fragment := ""
	if g.retriever != nil {
		fragment = g.retriever.FetchExamples(ctx, state.UserQuery)
	}
	systemPrompt := prompt.BuildSystemPrompt(g.basePrompt, fragment, state.RecentTurns)
	messages := prompt.BuildMessages(systemPrompt, state.UserQuery)

	provider := llm.Track(g.provider, g.usage, llm.CallMetadata{
		Module: ModuleQueryGenerator,
		UserId: state.UserId,
		Query:  state.UserQuery,
	})

	resp, err := provider.Chat(ctx, messages, llm.WithTemperature(g.temperature))
	if err != nil {
		state.Log.Fail(audit.StatusQueryGenerationFailed, err.Error())
		g.logger.Error("GENERATOR", "Query generation failed", map[string]interface{}{
			"user_id": state.UserId,
			"error":   err.Error(),
		})
		return state, fmt.Errorf("%w: %v", ErrQueryGenerationFailed, err)
	}

	content := resp.Content
	if g.detector != nil {
		if replacement, flagged := g.detector.DetectSensitive(content); flagged {
			g.logger.Warn("GENERATOR", "Sensitive content in generator output replaced", map[string]interface{}{
				"user_id": state.UserId,
			})
			state.Log.MaliciousContent = content
			state.Log.SetStatus(audit.StatusMalicious)
			content = replacement
		} else {
			state.Log.SetStatus(audit.StatusQueryGenerationSuccess)
		}
	} else {
		state.Log.SetStatus(audit.StatusQueryGenerationSuccess)
	}

	state.Log.GeneratedESQuery = content
	g.logger.Debug("GENERATOR", "Generator output ready", map[string]interface{}{
		"model":  resp.Model,
		"length": len(content),
	})

	state = state.With(llm.Message{Role: llm.RoleAssistant, Content: content})
	return state, nil
}
