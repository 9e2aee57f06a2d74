package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/tmc/langchaingo/llms"
)

// The closed tool set exposed to the model. Dispatch is by name over these
// constants so an unknown name is an explicit, testable branch.
const (
	toolSearchRecords    = "search_records"
	toolGetRecentRecords = "get_recent_records"
)

const (
	defaultTopK      = 5
	maxTopK          = 10
	searchExcerptLen = 3000
	recentExcerptLen = 1500
)

// toolSpecs returns the function declarations sent to the model.
func toolSpecs() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolSearchRecords,
				Description: "Semantic search over the user's saved records (OCR text + notes).",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string"},
						"top_k": map[string]any{
							"type": "integer", "minimum": 1, "maximum": maxTopK, "default": defaultTopK,
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolGetRecentRecords,
				Description: "Fetch the user's most recent saved records.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"limit": map[string]any{
							"type": "integer", "minimum": 1, "maximum": maxTopK, "default": defaultTopK,
						},
					},
				},
			},
		},
	}
}

// parseArgs decodes tool-call arguments, substituting an empty argument set
// for malformed payloads so a sloppy model turn cannot abort the loop.
func parseArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// executeTool dispatches one model-requested tool invocation. Unknown tool
// names produce a structured error payload for the model, not a Go error;
// real retrieval failures surface as errors and end the answer attempt.
func (a *Agent) executeTool(ctx context.Context, sender, name string, args map[string]any) (any, error) {
	switch name {
	case toolSearchRecords:
		return a.searchRecords(ctx, sender, args)
	case toolGetRecentRecords:
		return a.recentRecords(ctx, sender, args)
	default:
		a.logger.Warn("model requested unknown tool", "tool", name)
		return map[string]any{"error": "unknown_tool:" + name}, nil
	}
}

func (a *Agent) searchRecords(ctx context.Context, sender string, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	topK := intArg(args, "top_k", defaultTopK)

	embedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := a.store.MatchRecords(ctx, sender, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("match records: %w", err)
	}

	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{
			"id":          recordIDString(m.ID),
			"record_type": m.RecordType,
			"created_at":  m.CreatedAt.Format(time.RFC3339),
			"similarity":  m.Similarity,
			"text":        truncate(m.Text, searchExcerptLen),
		})
	}
	a.logger.Debug("search_records executed", "matches", len(out), "top_k", topK)
	return map[string]any{"matches": out}, nil
}

func (a *Agent) recentRecords(ctx context.Context, sender string, args map[string]any) (any, error) {
	limit := intArg(args, "limit", defaultTopK)

	records, err := a.store.RecentRecords(ctx, sender, limit)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}

	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{
			"id":          recordIDString(r.ID),
			"record_type": r.RecordType,
			"created_at":  r.CreatedAt.Format(time.RFC3339),
			"text":        truncate(r.Text, recentExcerptLen),
		})
	}
	a.logger.Debug("get_recent_records executed", "records", len(out), "limit", limit)
	return map[string]any{"records": out}, nil
}

// intArg reads an integer argument (JSON numbers arrive as float64) and
// clamps it to the 1..maxTopK tool contract.
func intArg(args map[string]any, key string, defaultVal int) int {
	n := defaultVal
	switch v := args[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	}
	if n < 1 {
		n = defaultVal
	}
	if n > maxTopK {
		n = maxTopK
	}
	return n
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

func recordIDString(id surrealRecordID) string {
	s, err := models.RecordIDString(id)
	if err != nil {
		return fmt.Sprint(id.ID)
	}
	return s
}
