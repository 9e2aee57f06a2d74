package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordType identifies how a record was captured.
type RecordType string

const (
	RecordTypeMedia RecordType = "media"
	RecordTypeNote  RecordType = "note"
)

// Record is a persisted unit of captured information, created exactly once
// per successful ingestion and immutable afterwards. Text holds OCR output
// for media records or the user-authored note for notes. Embedding is absent
// when no text could be extracted.
type Record struct {
	ID            surrealmodels.RecordID `json:"id"`
	Sender        string                 `json:"sender"`
	CorrelationID string                 `json:"correlation_id"`
	RecordType    RecordType             `json:"record_type"`
	Text          string                 `json:"text"`
	Embedding     []float32              `json:"embedding,omitempty"`
	StorageURLs   []string               `json:"storage_urls,omitempty"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Match is a transient similarity-search hit. Similarity is the store's
// cosine score; ordering by descending similarity is a contract of the
// store gateway, never recomputed by callers.
type Match struct {
	ID         surrealmodels.RecordID `json:"id"`
	RecordType RecordType             `json:"record_type"`
	Text       string                 `json:"text"`
	Similarity float64                `json:"similarity"`
	CreatedAt  time.Time              `json:"created_at"`
}
