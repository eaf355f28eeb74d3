package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/set-night/mindchat/internal/config"
)

// FromConfig builds the provider selected by LLM_PROVIDER. Every backend
// sends its requests through httpClient; nil means http.DefaultClient.
func FromConfig(cfg *config.Config, httpClient *http.Client) (Provider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("anthropic api key required")
		}
		return NewAnthropic(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.LLMModel, httpClient), nil

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai api key required")
		}
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return NewLangChain(llm, "openai/"+cfg.LLMModel, true), nil

	case config.ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("openrouter api key required")
		}
		llm, err := openai.New(
			openai.WithToken(cfg.OpenRouterAPIKey),
			openai.WithModel(cfg.LLMModel),
			openai.WithBaseURL(cfg.OpenRouterBaseURL),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create openrouter model: %w", err)
		}
		return NewLangChain(llm, "openrouter/"+cfg.LLMModel, true), nil

	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return NewLangChain(llm, "ollama/"+cfg.LLMModel, false), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
