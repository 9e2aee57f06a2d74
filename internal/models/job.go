// Package models defines data structures for the keepsake capture bot.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobType identifies what kind of inbound message a job carries.
type JobType string

const (
	JobTypeMedia JobType = "media"
	JobTypeText  JobType = "text"
)

// JobStatus represents the lifecycle state of a background job.
// Jobs only ever move forward: pending -> processing -> completed|failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobPayload carries the type-dependent content of a job.
// Media jobs set MediaURLs (and optionally Caption); text jobs set Text.
type JobPayload struct {
	MediaURLs []string `json:"media_urls,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// Job represents one inbound message tracked through a status lifecycle.
// Created by the webhook in pending state; mutated only by the job processor.
type Job struct {
	ID            surrealmodels.RecordID `json:"id"`
	Sender        string                 `json:"sender"`
	CorrelationID string                 `json:"correlation_id"`
	JobType       JobType                `json:"job_type"`
	Payload       JobPayload             `json:"payload"`
	Status        JobStatus              `json:"status"`
	Result        map[string]any         `json:"result,omitempty"`
	Error         *string                `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
