package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

type fakeCompleter struct {
	out      string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string, _ ...llms.CallOption) (string, error) {
	f.lastUser = user
	return f.out, f.err
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want Intent
	}{
		{"exact token", "save_record", IntentSaveRecord},
		{"uppercase", "SAVE_RECORD", IntentSaveRecord},
		{"embedded in prose", "The intent is save_record.", IntentSaveRecord},
		{"question token", "question", IntentQuestion},
		{"empty output", "", IntentQuestion},
		{"whitespace only", "   \n", IntentQuestion},
		{"unrelated text", "I am not sure what you mean", IntentQuestion},
		{"near miss", "save record", IntentQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.out))
		})
	}
}

func TestClassifyDefaultsToQuestionOnError(t *testing.T) {
	c := NewClassifier(&fakeCompleter{err: errors.New("model unavailable")}, nil)

	got := c.Classify(context.Background(), "remember my wifi password is hunter2", nil)

	assert.Equal(t, IntentQuestion, got)
}

func TestClassifyRendersHistoryChronologically(t *testing.T) {
	fake := &fakeCompleter{out: "question"}
	c := NewClassifier(fake, nil)

	// Most-recent-first, as the store returns it.
	history := []models.Message{
		{Role: models.RoleAssistant, Direction: models.DirectionOut, Content: "second"},
		{Role: models.RoleUser, Direction: models.DirectionIn, Content: "first"},
	}

	c.Classify(context.Background(), "anything", history)

	firstIdx := strings.Index(fake.lastUser, "user(in): first")
	secondIdx := strings.Index(fake.lastUser, "assistant(out): second")
	assert.GreaterOrEqual(t, firstIdx, 0)
	assert.Greater(t, secondIdx, firstIdx, "history must be rendered oldest first")
}

func TestClassifyNoHistoryPlaceholder(t *testing.T) {
	fake := &fakeCompleter{out: "save_record"}
	c := NewClassifier(fake, nil)

	got := c.Classify(context.Background(), "note to self", nil)

	assert.Equal(t, IntentSaveRecord, got)
	assert.Contains(t, fake.lastUser, "(none)")
}
