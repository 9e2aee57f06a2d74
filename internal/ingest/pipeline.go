// Package ingest turns inbound media and free-text notes into persisted,
// searchable records.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/keepsake-bot/keepsake/internal/models"
)

// textSeparator joins per-item extractions in the combined record text.
const textSeparator = "\n\n---\n\n"

// maxMediaBytes bounds a single downloaded media item.
const maxMediaBytes = 20 << 20

// Store persists finished records.
type Store interface {
	SaveRecord(ctx context.Context, rec *models.Record) (*models.Record, error)
}

// BlobStore keeps raw media bytes and returns a time-limited access locator.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, name, contentType string) (string, error)
}

// Extractor pulls text out of a stored media object.
type Extractor interface {
	Extract(ctx context.Context, locator, contentType string) (string, error)
}

// Embedder turns text into a vector. Blank text yields an empty vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Pipeline runs the capture workflows: media (download, store, extract,
// embed, persist) and note (embed, persist).
type Pipeline struct {
	store     Store
	blobs     BlobStore
	extractor Extractor
	embedder  Embedder
	client    *http.Client
	logger    *slog.Logger
}

// New creates a pipeline with its collaborators injected.
func New(store Store, blobs BlobStore, extractor Extractor, embedder Embedder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger.With("component", "ingest"),
	}
}

// MediaResult reports a completed media ingestion.
type MediaResult struct {
	RecordID   string
	MediaCount int
}

// Media ingests one or more media locators into a single record. Items are
// processed strictly in input order; any single fetch/store/extract failure
// aborts the whole batch before anything is persisted. If no item yields
// text, the record is still saved with empty text and no embedding.
func (p *Pipeline) Media(ctx context.Context, mediaURLs []string, sender, correlationID string) (*MediaResult, error) {
	if len(mediaURLs) == 0 {
		return nil, ErrNoMedia
	}

	p.logger.Info("media ingestion started", "sender", sender, "count", len(mediaURLs))

	storageURLs := make([]string, 0, len(mediaURLs))
	texts := make([]string, 0, len(mediaURLs))

	for _, mediaURL := range mediaURLs {
		data, contentType, name, err := p.fetch(ctx, mediaURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, mediaURL, err)
		}

		storageURL, err := p.blobs.Upload(ctx, data, name, contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStorage, name, err)
		}
		storageURLs = append(storageURLs, storageURL)

		text, err := p.extractor.Extract(ctx, storageURL, contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	combined := strings.TrimSpace(strings.Join(texts, textSeparator))

	var embedding []float32
	if combined != "" {
		var err error
		embedding, err = p.embedder.Embed(ctx, combined)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
	}

	saved, err := p.store.SaveRecord(ctx, &models.Record{
		Sender:        sender,
		CorrelationID: correlationID,
		RecordType:    models.RecordTypeMedia,
		Text:          combined,
		Embedding:     embedding,
		StorageURLs:   storageURLs,
		Metadata: map[string]any{
			"source":      "whatsapp",
			"media_count": len(storageURLs),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	recordID := models.MustRecordIDString(saved.ID)
	p.logger.Info("media ingestion complete", "record_id", recordID, "media_count", len(storageURLs), "text_len", len(combined))

	return &MediaResult{RecordID: recordID, MediaCount: len(storageURLs)}, nil
}

// NoteResult reports a completed note ingestion.
type NoteResult struct {
	RecordID string
}

// Note embeds user-authored text and persists it as a note record. Callers
// pass non-blank text; that precondition is not re-validated here.
func (p *Pipeline) Note(ctx context.Context, text, sender, correlationID string) (*NoteResult, error) {
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	saved, err := p.store.SaveRecord(ctx, &models.Record{
		Sender:        sender,
		CorrelationID: correlationID,
		RecordType:    models.RecordTypeNote,
		Text:          text,
		Embedding:     embedding,
		Metadata:      map[string]any{"source": "whatsapp"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	recordID := models.MustRecordIDString(saved.ID)
	p.logger.Info("note saved", "record_id", recordID, "text_len", len(text))

	return &NoteResult{RecordID: recordID}, nil
}

func (p *Pipeline) fetch(ctx context.Context, mediaURL string) (data []byte, contentType, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", "", err
	}

	contentType = resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	name = "upload"
	if u, parseErr := url.Parse(mediaURL); parseErr == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	return data, contentType, name, nil
}
