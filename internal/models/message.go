package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Direction marks whether a message entered or left the system.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Role is the conversational role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the append-only conversation log. It exists purely
// as context for intent classification and answering; the core never updates
// or deletes messages.
type Message struct {
	ID            surrealmodels.RecordID `json:"id"`
	Sender        string                 `json:"sender"`
	Direction     Direction              `json:"direction"`
	Role          Role                   `json:"role"`
	CorrelationID string                 `json:"correlation_id"`
	Content       string                 `json:"content"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
