// Package intent classifies inbound text messages as questions or save requests.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/tmc/langchaingo/llms"
)

// Intent is the classification label for an inbound text message.
type Intent string

const (
	IntentQuestion   Intent = "question"
	IntentSaveRecord Intent = "save_record"
)

// historyContentLen bounds each rendered history line in the prompt.
const historyContentLen = 120

const systemPrompt = `You classify user WhatsApp messages for a personal capture bot.
You will be given the recent conversation and the latest user message.
Return exactly one token: question OR save_record.
- If the user asks anything, requests info, or wants to find something: question.
- If the user is stating something to remember, logging info, or saving a note: save_record.`

// Completer is the narrow LLM surface the classifier needs.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llms.CallOption) (string, error)
}

// Classifier labels messages with a single-token, low-temperature completion.
type Classifier struct {
	model  Completer
	logger *slog.Logger
}

// NewClassifier creates a classifier backed by the given model.
func NewClassifier(model Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{model: model, logger: logger.With("component", "intent")}
}

// Classify returns save_record iff that token appears anywhere in the model
// output (case-insensitive); everything else, including a failed or degenerate
// completion, is a question. This never returns an error: misreading a note as
// a question is recoverable, silently dropping a save request is not.
func (c *Classifier) Classify(ctx context.Context, message string, history []models.Message) Intent {
	historyText := models.RenderHistory(history, historyContentLen)
	if historyText == "" {
		historyText = "(none)"
	}

	user := fmt.Sprintf("Recent conversation:\n%s\n\nLatest user message:\n%s", historyText, message)

	out, err := c.model.Complete(ctx, systemPrompt, user,
		llms.WithTemperature(0),
		llms.WithMaxTokens(5),
	)
	if err != nil {
		c.logger.Warn("intent completion failed, defaulting to question", "error", err)
		return IntentQuestion
	}

	return Parse(out)
}

// Parse applies the substring contract to a raw model output.
func Parse(out string) Intent {
	if strings.Contains(strings.ToLower(out), string(IntentSaveRecord)) {
		return IntentSaveRecord
	}
	return IntentQuestion
}
