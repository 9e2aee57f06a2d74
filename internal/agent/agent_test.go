package agent

import (
	"context"
	"testing"
	"time"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays scripted responses and records each call's options and
// transcript so tests can assert on loop behavior.
type fakeModel struct {
	responses []*llms.ContentResponse
	calls     []llms.CallOptions
	messages  [][]llms.MessageContent
}

func (f *fakeModel) Generate(_ context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	var co llms.CallOptions
	for _, opt := range opts {
		opt(&co)
	}
	f.calls = append(f.calls, co)
	f.messages = append(f.messages, messages)

	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

type fakeEmbedder struct {
	lastQuery string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	if text == "" {
		return nil, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	matches     []models.Match
	records     []models.Record
	lastTopK    int
	lastLimit   int
	matchCalls  int
	recentCalls int
}

func (f *fakeStore) MatchRecords(_ context.Context, _ string, _ []float32, topK int) ([]models.Match, error) {
	f.matchCalls++
	f.lastTopK = topK
	return f.matches, nil
}

func (f *fakeStore) RecentRecords(_ context.Context, _ string, limit int) ([]models.Record, error) {
	f.recentCalls++
	f.lastLimit = limit
	return f.records, nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func toolResponse(name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      name,
				Arguments: arguments,
			},
		}},
	}}}
}

func TestAnswerWithoutTools(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("You spent $42 at Cafe X.")}}
	a := New(model, &fakeEmbedder{}, &fakeStore{}, nil)

	answer, err := a.Answer(context.Background(), "whatsapp:+1555", "how much at Cafe X?", nil)

	require.NoError(t, err)
	assert.Equal(t, "You spent $42 at Cafe X.", answer)
	assert.Len(t, model.calls, 1)
}

func TestAnswerExecutesSearchTool(t *testing.T) {
	store := &fakeStore{matches: []models.Match{{
		ID:         models.NewRecordID("record", "r1"),
		RecordType: models.RecordTypeNote,
		Text:       "lunch receipt says $42 at Cafe X",
		Similarity: 0.91,
		CreatedAt:  time.Now(),
	}}}
	embedder := &fakeEmbedder{}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolResponse(toolSearchRecords, `{"query":"Cafe X","top_k":3}`),
		textResponse("You spent $42 at Cafe X."),
	}}
	a := New(model, embedder, store, nil)

	answer, err := a.Answer(context.Background(), "whatsapp:+1555", "how much at Cafe X?", nil)

	require.NoError(t, err)
	assert.Equal(t, "You spent $42 at Cafe X.", answer)
	assert.Equal(t, "Cafe X", embedder.lastQuery)
	assert.Equal(t, 3, store.lastTopK)
	assert.Len(t, model.calls, 2)

	// Second request carries the assistant tool turn and the tool result.
	transcript := model.messages[1]
	require.Len(t, transcript, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, transcript[2].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, transcript[3].Role)
	toolResult, ok := transcript[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Contains(t, toolResult.Content, "$42 at Cafe X")
	assert.Contains(t, toolResult.Content, "r1")
}

func TestAnswerUnknownToolContinuesLoop(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolResponse("delete_everything", `{}`),
		textResponse("I can only look things up."),
	}}
	a := New(model, &fakeEmbedder{}, &fakeStore{}, nil)

	answer, err := a.Answer(context.Background(), "whatsapp:+1555", "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "I can only look things up.", answer)

	transcript := model.messages[1]
	toolResult, ok := transcript[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Contains(t, toolResult.Content, "unknown_tool:delete_everything")
}

func TestAnswerMalformedArgumentsFallBackToDefaults(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolResponse(toolGetRecentRecords, `{"limit": not-json`),
		textResponse("Here are your recent records."),
	}}
	a := New(model, &fakeEmbedder{}, store, nil)

	_, err := a.Answer(context.Background(), "whatsapp:+1555", "what did I save?", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, store.recentCalls)
	assert.Equal(t, defaultTopK, store.lastLimit)
}

func TestAnswerStepBudget(t *testing.T) {
	// The model never stops asking for tools; the loop must cap at
	// maxSteps tool rounds plus one forced tool-free completion.
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolResponse(toolGetRecentRecords, `{}`),
		toolResponse(toolGetRecentRecords, `{}`),
		toolResponse(toolGetRecentRecords, `{}`),
		toolResponse(toolGetRecentRecords, `{}`),
		textResponse("Best effort answer."),
	}}
	a := New(model, &fakeEmbedder{}, &fakeStore{}, nil)

	answer, err := a.Answer(context.Background(), "whatsapp:+1555", "tell me everything", nil)

	require.NoError(t, err)
	assert.Equal(t, "Best effort answer.", answer)
	require.Len(t, model.calls, maxSteps+1)

	for _, call := range model.calls[:maxSteps] {
		assert.Equal(t, "auto", call.ToolChoice)
	}
	assert.Equal(t, "none", model.calls[maxSteps].ToolChoice)
}

func TestSearchToolClampsTopK(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolResponse(toolSearchRecords, `{"query":"x","top_k":99}`),
		textResponse("done"),
	}}
	a := New(model, &fakeEmbedder{}, store, nil)

	_, err := a.Answer(context.Background(), "whatsapp:+1555", "q", nil)

	require.NoError(t, err)
	assert.Equal(t, maxTopK, store.lastTopK)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "héll", truncate("héllo wörld", 4))
}
