package db

import (
	"context"
	"fmt"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateJob inserts a new pending job and returns the stored row.
func (c *Client) CreateJob(ctx context.Context, sender, correlationID string, jobType models.JobType, payload models.JobPayload) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		CREATE job SET
			sender = $sender,
			correlation_id = $correlation_id,
			job_type = $job_type,
			payload = $payload,
			status = "pending"
		RETURN AFTER
	`, map[string]any{
		"sender":         sender,
		"correlation_id": correlationID,
		"job_type":       string(jobType),
		"payload":        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetJob retrieves a job by ID. Returns ErrNotFound if it does not exist.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get job %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// UpdateJob merges the given fields into a job row. Used by the processor for
// status transitions and terminal result/error writes.
func (c *Client) UpdateJob(ctx context.Context, id string, fields map[string]any) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) MERGE $fields
	`, map[string]any{"id": id, "fields": fields})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// SaveRecord inserts a captured record and returns the stored row.
// A nil embedding is stored as NONE, which keeps the row out of the vector index.
func (c *Client) SaveRecord(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var embedding any
	if len(rec.Embedding) > 0 {
		embedding = rec.Embedding
	}

	results, err := surrealdb.Query[[]models.Record](ctx, c.db, `
		CREATE record SET
			sender = $sender,
			correlation_id = $correlation_id,
			record_type = $record_type,
			text = $text,
			embedding = $embedding,
			storage_urls = $storage_urls,
			metadata = $metadata
		RETURN AFTER
	`, map[string]any{
		"sender":         rec.Sender,
		"correlation_id": rec.CorrelationID,
		"record_type":    string(rec.RecordType),
		"text":           rec.Text,
		"embedding":      embedding,
		"storage_urls":   storageURLs(rec.StorageURLs),
		"metadata":       rec.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("save record: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// SaveMessage appends a message to the conversation log.
func (c *Client) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		CREATE message SET
			sender = $sender,
			direction = $direction,
			role = $role,
			correlation_id = $correlation_id,
			content = $content,
			metadata = $metadata
		RETURN AFTER
	`, map[string]any{
		"sender":         msg.Sender,
		"direction":      string(msg.Direction),
		"role":           string(msg.Role),
		"correlation_id": msg.CorrelationID,
		"content":        msg.Content,
		"metadata":       msg.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("save message: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// RecentMessages returns the sender's conversation log, most recent first.
func (c *Client) RecentMessages(ctx context.Context, sender string, limit int) ([]models.Message, error) {
	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message
		WHERE sender = $sender
		ORDER BY created_at DESC
		LIMIT $limit
	`, map[string]any{"sender": sender, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}

// RecentRecords returns the sender's most recently captured records.
func (c *Client) RecentRecords(ctx context.Context, sender string, limit int) ([]models.Record, error) {
	results, err := surrealdb.Query[[]models.Record](ctx, c.db, `
		SELECT * FROM record
		WHERE sender = $sender
		ORDER BY created_at DESC
		LIMIT $limit
	`, map[string]any{"sender": sender, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Record{}, nil
	}
	return (*results)[0].Result, nil
}

// MatchRecords runs a KNN similarity search over the sender's records,
// ordered by descending cosine similarity. An empty query embedding yields
// no matches rather than an error.
func (c *Client) MatchRecords(ctx context.Context, sender string, embedding []float32, topK int) ([]models.Match, error) {
	if len(embedding) == 0 {
		return []models.Match{}, nil
	}

	// KNN depth must be a literal, so it goes through Sprintf (ef=40 for recall)
	sql := fmt.Sprintf(`
		SELECT id, record_type, text, created_at,
			vector::similarity::cosine(embedding, $emb) AS similarity
		FROM record
		WHERE sender = $sender AND embedding <|%d,40|> $emb
		ORDER BY similarity DESC
	`, topK)

	results, err := surrealdb.Query[[]models.Match](ctx, c.db, sql, map[string]any{
		"sender": sender,
		"emb":    embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("match records: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Match{}, nil
	}
	return (*results)[0].Result, nil
}

// storageURLs normalizes nil to an empty slice so SCHEMAFULL array fields
// never receive NONE.
func storageURLs(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
