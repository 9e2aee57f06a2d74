package server

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/keepsake-bot/keepsake/internal/models"
)

// maxMediaItems caps how many MediaUrlN form fields are read per message.
const maxMediaItems = 10

const (
	emptyPrompt  = "Please send an image or PDF, or ask a question about your saved records."
	enqueueFail  = "❌ Sorry, I couldn't start processing your message. Please try again later."
	internalFail = "Sorry, an error occurred processing your request. Please try again."
)

// JobStore creates jobs and logs inbound messages.
type JobStore interface {
	CreateJob(ctx context.Context, sender, correlationID string, jobType models.JobType, payload models.JobPayload) (*models.Job, error)
	SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
}

// Enqueuer hands a job ID to the worker queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// WebhookHandler turns Twilio webhook form posts into queued jobs. The
// response is always TwiML; the substantive reply arrives later over the
// Messages API once a worker finishes the job.
type WebhookHandler struct {
	store  JobStore
	queue  Enqueuer
	logger *slog.Logger
}

// NewWebhookHandler wires the webhook's collaborators.
func NewWebhookHandler(store JobStore, queue Enqueuer, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		store:  store,
		queue:  queue,
		logger: logger.With("component", "webhook"),
	}
}

// Handle accepts one inbound WhatsApp message.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("form parse failed", "error", err)
		writeTwiML(w, http.StatusInternalServerError, internalFail)
		return
	}

	body := r.PostFormValue("Body")
	sender := r.PostFormValue("From")
	messageSID := r.PostFormValue("MessageSid")

	var mediaURLs []string
	for i := 0; i < maxMediaItems; i++ {
		if u := r.PostFormValue(fmt.Sprintf("MediaUrl%d", i)); u != "" {
			mediaURLs = append(mediaURLs, u)
		}
	}

	log := h.logger.With("sender", sender, "message_sid", messageSID)
	log.Info("message received", "media", len(mediaURLs), "body_len", len(body))

	jobType := models.JobTypeText
	var payload models.JobPayload
	switch {
	case len(mediaURLs) > 0:
		jobType = models.JobTypeMedia
		payload = models.JobPayload{MediaURLs: mediaURLs, Caption: body}
	case body != "":
		payload = models.JobPayload{Text: body}
	default:
		writeTwiML(w, http.StatusOK, emptyPrompt)
		return
	}

	// Log the inbound message before anything can fail; the conversation
	// record is best-effort and never blocks job creation.
	content := body
	if content == "" {
		content = fmt.Sprintf("[media x%d]", len(mediaURLs))
	}
	msg := &models.Message{
		Sender:        sender,
		Direction:     models.DirectionIn,
		Role:          models.RoleUser,
		CorrelationID: messageSID,
		Content:       content,
	}
	if len(mediaURLs) > 0 {
		msg.Metadata = map[string]any{"media_urls": mediaURLs}
	}
	if _, err := h.store.SaveMessage(r.Context(), msg); err != nil {
		log.Error("inbound message not logged", "error", err)
	}

	job, err := h.store.CreateJob(r.Context(), sender, messageSID, jobType, payload)
	if err != nil {
		log.Error("job creation failed", "error", err)
		writeTwiML(w, http.StatusInternalServerError, internalFail)
		return
	}

	jobID := models.MustRecordIDString(job.ID)
	if err := h.queue.Enqueue(r.Context(), jobID); err != nil {
		log.Error("enqueue failed", "job_id", jobID, "error", err)
		writeTwiML(w, http.StatusOK, enqueueFail)
		return
	}

	log.Info("job queued", "job_id", jobID, "job_type", jobType)
	writeTwiML(w, http.StatusOK, "")
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// writeTwiML renders the minimal Twilio messaging response. An empty message
// acknowledges the webhook without texting the user.
func writeTwiML(w http.ResponseWriter, status int, message string) {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header + string(out)))
}
