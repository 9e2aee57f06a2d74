// Package agent answers free-form questions with a bounded tool-calling loop
// over the user's saved records.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keepsake-bot/keepsake/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/tmc/langchaingo/llms"
)

type surrealRecordID = surrealmodels.RecordID

// maxSteps is the hard budget of tool-enabled completion rounds. One extra
// tool-disabled completion may follow, so an invocation makes at most
// maxSteps+1 model calls.
const maxSteps = 4

const historyContentLen = 200

const systemPrompt = `You are a WhatsApp capture-bot assistant.
You have tools to search the user's saved records.
You are also given recent conversation messages as context.
Use tools and conversation context when needed to answer.
Answer concisely.
If the answer is not in the records, say you don't know and ask what to save.
Do not mention embeddings, vectors, databases, or internal tooling.`

// Completer is the narrow LLM surface the agent needs.
type Completer interface {
	Generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error)
}

// Embedder turns a search query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the retrieval surface backing the agent's tools.
type Store interface {
	MatchRecords(ctx context.Context, sender string, embedding []float32, topK int) ([]models.Match, error)
	RecentRecords(ctx context.Context, sender string, limit int) ([]models.Record, error)
}

// Agent runs the retrieval loop.
type Agent struct {
	model    Completer
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// New creates an agent with its collaborators injected.
func New(model Completer, embedder Embedder, store Store, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		model:    model,
		embedder: embedder,
		store:    store,
		logger:   logger.With("component", "agent"),
	}
}

// Answer resolves a question against the sender's records. The model may
// request tools for up to maxSteps rounds; a round with no tool calls ends
// the loop with the model's text as the answer. If the budget runs out, one
// final tool-disabled completion produces the answer, guaranteeing
// termination.
func (a *Agent) Answer(ctx context.Context, sender, question string, history []models.Message) (string, error) {
	historyText := models.RenderHistory(history, historyContentLen)
	if historyText == "" {
		historyText = "(none)"
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Recent conversation:\n%s\n\nUser question:\n%s", historyText, question)),
	}

	tools := toolSpecs()

	for step := 0; step < maxSteps; step++ {
		response, err := a.model.Generate(ctx, messages,
			llms.WithTools(tools),
			llms.WithToolChoice("auto"),
			llms.WithTemperature(0.2),
			llms.WithMaxTokens(500),
		)
		if err != nil {
			return "", fmt.Errorf("answer: %w", err)
		}

		choice := response.Choices[0]
		if len(choice.ToolCalls) == 0 {
			a.logger.Debug("answer complete", "steps", step+1)
			return strings.TrimSpace(choice.Content), nil
		}

		a.logger.Debug("model requested tools", "step", step+1, "count", len(choice.ToolCalls))

		// Echo the assistant turn, tool-call descriptors included, then one
		// tool-result turn per invocation, in the order the model returned.
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		messages = append(messages, assistant)

		for _, tc := range choice.ToolCalls {
			name := tc.FunctionCall.Name
			args := parseArgs(tc.FunctionCall.Arguments)

			result, err := a.executeTool(ctx, sender, name, args)
			if err != nil {
				return "", fmt.Errorf("answer: tool %s: %w", name, err)
			}

			payload, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("answer: encode %s result: %w", name, err)
			}

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       name,
						Content:    string(payload),
					},
				},
			})
		}
	}

	// Step budget exhausted: force a final text answer.
	a.logger.Debug("step budget exhausted, forcing final answer")
	response, err := a.model.Generate(ctx, messages,
		llms.WithTools(tools),
		llms.WithToolChoice("none"),
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
