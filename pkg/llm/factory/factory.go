package factory

import (
	"ai-finance-assistant-be/pkg/llm"
	"ai-finance-assistant-be/pkg/llm/huggingface"
	"ai-finance-assistant-be/pkg/llm/ollama"
	"ai-finance-assistant-be/pkg/llm/openai"
	"fmt"
)

type ProviderConfig struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	HFAPIKey      string
	HFBaseURL     string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or OPENAI_BASE_URL")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "huggingface":
		if cfg.HFAPIKey == "" {
			return nil, fmt.Errorf("huggingface provider requires HF_API_KEY")
		}
		return huggingface.NewHuggingFaceProvider(cfg.HFAPIKey, cfg.HFBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
