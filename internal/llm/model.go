// Package llm provides chat completion and embedding services using langchaingo.
package llm

import (
	"context"
	"fmt"

	"github.com/keepsake-bot/keepsake/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM for chat completion with optional tool use.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates a chat model for the configured provider. The modelName
// argument overrides cfg.ChatModel so callers can run a second model (e.g. a
// vision model for extraction) against the same provider credentials.
func NewModel(cfg config.Config, modelName string) (*Model, error) {
	if modelName == "" {
		modelName = cfg.ChatModel
	}

	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderMistral:
		if cfg.MistralAPIKey == "" {
			return nil, fmt.Errorf("Mistral API key required")
		}
		model, err = mistral.New(
			mistral.WithAPIKey(cfg.MistralAPIKey),
			mistral.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create mistral model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: modelName,
	}, nil
}

// Complete runs a plain system+user completion and returns the text content.
func (m *Model) Complete(ctx context.Context, system, user string, opts ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// Generate is the raw completion entry point used by the agent loop and the
// extractor. It passes the transcript through unchanged so callers control
// tool exposure per request.
func (m *Model) Generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}
	return response, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
