// Package service drives the job lifecycle: it picks up pending jobs,
// routes them through capture or answering, records the terminal state and
// replies to the sender.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepsake-bot/keepsake/internal/db"
	"github.com/keepsake-bot/keepsake/internal/ingest"
	"github.com/keepsake-bot/keepsake/internal/intent"
	"github.com/keepsake-bot/keepsake/internal/metrics"
	"github.com/keepsake-bot/keepsake/internal/models"
)

var (
	// ErrJobNotFound means the queued ID has no matching job row.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnsupportedJobType means the job carries a type the processor
	// does not know how to handle.
	ErrUnsupportedJobType = errors.New("unsupported job type")
)

// failureReply is sent best-effort when processing fails for any reason.
const failureReply = "Sorry, your request could not be processed. Please try again later."

// Store is the database surface the processor needs.
type Store interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, fields map[string]any) error
	SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	RecentMessages(ctx context.Context, sender string, limit int) ([]models.Message, error)
}

// Ingester runs the capture pipelines.
type Ingester interface {
	Media(ctx context.Context, mediaURLs []string, sender, correlationID string) (*ingest.MediaResult, error)
	Note(ctx context.Context, text, sender, correlationID string) (*ingest.NoteResult, error)
}

// Classifier decides whether a text message is a note to keep or a question.
type Classifier interface {
	Classify(ctx context.Context, message string, history []models.Message) intent.Intent
}

// Answerer produces a grounded answer to a question.
type Answerer interface {
	Answer(ctx context.Context, sender, question string, history []models.Message) (string, error)
}

// Sender delivers a reply to the user.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Processor executes one job end to end.
type Processor struct {
	store        Store
	ingester     Ingester
	classifier   Classifier
	answerer     Answerer
	sender       Sender
	historyLimit int
	metrics      *metrics.Collector
	logger       *slog.Logger
}

// NewProcessor wires the processor's collaborators.
func NewProcessor(store Store, ingester Ingester, classifier Classifier, answerer Answerer, sender Sender, historyLimit int, logger *slog.Logger) *Processor {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:        store,
		ingester:     ingester,
		classifier:   classifier,
		answerer:     answerer,
		sender:       sender,
		historyLimit: historyLimit,
		metrics:      metrics.NewCollector(),
		logger:       logger.With("component", "processor"),
	}
}

// MetricsSnapshot reports aggregate timings for the jobs this processor ran.
func (p *Processor) MetricsSnapshot() metrics.Snapshot {
	return p.metrics.Snapshot()
}

// Process loads the job, runs the matching workflow and records exactly one
// terminal state. On success the reply is delivered and logged as an
// outbound message; delivery failures after a completed job do not fail the
// job. On any processing failure the job is marked failed and an apology is
// sent best-effort. An unknown job ID returns ErrJobNotFound with no
// delivery attempt, since there is no sender to notify.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}

	log := p.logger.With("job_id", jobID, "sender", job.Sender, "job_type", job.JobType)
	log.Info("job processing started")

	if err := p.store.UpdateJob(ctx, jobID, map[string]any{"status": models.JobStatusProcessing}); err != nil {
		return p.fail(ctx, log, jobID, job.Sender, fmt.Errorf("marking job %s processing: %w", jobID, err))
	}

	start := time.Now()
	reply, op, err := p.run(ctx, job)
	if op != "" {
		p.metrics.RecordOutcome(op, time.Since(start), err != nil)
	}
	if err != nil {
		return p.fail(ctx, log, jobID, job.Sender, err)
	}

	if err := p.store.UpdateJob(ctx, jobID, map[string]any{
		"status": models.JobStatusCompleted,
		"result": map[string]any{"response": reply},
	}); err != nil {
		return p.fail(ctx, log, jobID, job.Sender, fmt.Errorf("marking job %s completed: %w", jobID, err))
	}
	log.Info("job completed")

	deliverStart := time.Now()
	if err := p.sender.Send(ctx, job.Sender, reply); err != nil {
		p.metrics.RecordOutcome(metrics.OpDelivery, time.Since(deliverStart), true)
		log.Warn("reply not delivered", "error", err)
		return nil
	}
	p.metrics.RecordTiming(metrics.OpDelivery, time.Since(deliverStart))

	if _, err := p.store.SaveMessage(ctx, &models.Message{
		Sender:        job.Sender,
		Direction:     models.DirectionOut,
		Role:          models.RoleAssistant,
		CorrelationID: job.CorrelationID,
		Content:       reply,
	}); err != nil {
		log.Warn("outbound message not logged", "error", err)
	}
	return nil
}

// fail is the single failure exit: it writes the failed status and sends the
// apology, both best-effort, then returns the cause. Status-write failures on
// the way to success land here too, so a job never stays pending or
// processing without at least an attempted failed mark.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, jobID, sender string, cause error) error {
	log.Error("job failed", "error", cause)
	if updateErr := p.store.UpdateJob(ctx, jobID, map[string]any{
		"status": models.JobStatusFailed,
		"error":  cause.Error(),
	}); updateErr != nil {
		log.Error("recording job failure", "error", updateErr)
	}
	if sendErr := p.sender.Send(ctx, sender, failureReply); sendErr != nil {
		log.Warn("failure notice not delivered", "error", sendErr)
	}
	return cause
}

// run executes the job's workflow and returns the reply text along with the
// metrics operation it counted as.
func (p *Processor) run(ctx context.Context, job *models.Job) (string, string, error) {
	switch job.JobType {
	case models.JobTypeMedia:
		result, err := p.ingester.Media(ctx, job.Payload.MediaURLs, job.Sender, job.CorrelationID)
		if err != nil {
			return "", metrics.OpJobMedia, err
		}
		reply := fmt.Sprintf("✅ Saved %d file(s) as a record.\nRecord ID: %s", result.MediaCount, result.RecordID)
		return reply, metrics.OpJobMedia, nil

	case models.JobTypeText:
		history, err := p.store.RecentMessages(ctx, job.Sender, p.historyLimit)
		if err != nil {
			p.logger.Warn("history unavailable", "sender", job.Sender, "error", err)
			history = nil
		}

		text := job.Payload.Text
		switch p.classifier.Classify(ctx, text, history) {
		case intent.IntentSaveRecord:
			result, err := p.ingester.Note(ctx, text, job.Sender, job.CorrelationID)
			if err != nil {
				return "", metrics.OpJobNote, err
			}
			return fmt.Sprintf("✅ Saved your note.\nRecord ID: %s", result.RecordID), metrics.OpJobNote, nil
		default:
			reply, err := p.answerer.Answer(ctx, job.Sender, text, history)
			return reply, metrics.OpJobQuestion, err
		}

	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedJobType, job.JobType)
	}
}
