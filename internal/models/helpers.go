package models

import (
	"fmt"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// MustRecordIDString extracts the string ID, panicking if not a string.
// Use only when you're certain the ID is a string (e.g., after DB operations
// that return strings).
func MustRecordIDString(id surrealmodels.RecordID) string {
	s, err := RecordIDString(id)
	if err != nil {
		panic(err)
	}
	return s
}

// NewRecordID builds a RecordID for the given table and string id.
func NewRecordID(table, id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, id)
}

// RenderHistory formats a most-recent-first message slice as chronological
// "role(direction): content" lines for prompt context. Content is single-lined
// and truncated to maxContentLen runes per message.
func RenderHistory(history []Message, maxContentLen int) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		content := strings.ReplaceAll(m.Content, "\n", " ")
		if runes := []rune(content); len(runes) > maxContentLen {
			content = string(runes[:maxContentLen])
		}
		lines = append(lines, fmt.Sprintf("%s(%s): %s", m.Role, m.Direction, content))
	}
	return strings.Join(lines, "\n")
}
