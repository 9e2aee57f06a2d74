package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/keepsake-bot/keepsake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	jobs      []*models.Job
	messages  []*models.Message
	createErr error
}

func (f *fakeJobStore) CreateJob(_ context.Context, sender, correlationID string, jobType models.JobType, payload models.JobPayload) (*models.Job, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	job := &models.Job{
		ID:            models.NewRecordID("job", "j1"),
		Sender:        sender,
		CorrelationID: correlationID,
		JobType:       jobType,
		Payload:       payload,
		Status:        models.JobStatusPending,
	}
	f.jobs = append(f.jobs, job)
	return job, nil
}

func (f *fakeJobStore) SaveMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.messages = append(f.messages, msg)
	return msg, nil
}

type fakeEnqueuer struct {
	ids []string
	err error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, jobID)
	return nil
}

func postWebhook(t *testing.T, h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookMediaMessage(t *testing.T) {
	store := &fakeJobStore{}
	queue := &fakeEnqueuer{}
	h := NewWebhookHandler(store, queue, nil)

	rec := postWebhook(t, h, url.Values{
		"From":       {"whatsapp:+15551234567"},
		"MessageSid": {"SM1"},
		"Body":       {"dinner receipt"},
		"MediaUrl0":  {"https://api.twilio.com/media/0"},
		"MediaUrl1":  {"https://api.twilio.com/media/1"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response></Response>")

	require.Len(t, store.jobs, 1)
	job := store.jobs[0]
	assert.Equal(t, models.JobTypeMedia, job.JobType)
	assert.Equal(t, []string{"https://api.twilio.com/media/0", "https://api.twilio.com/media/1"}, job.Payload.MediaURLs)
	assert.Equal(t, "dinner receipt", job.Payload.Caption)
	assert.Equal(t, "whatsapp:+15551234567", job.Sender)
	assert.Equal(t, "SM1", job.CorrelationID)

	assert.Equal(t, []string{"j1"}, queue.ids)

	require.Len(t, store.messages, 1)
	assert.Equal(t, models.DirectionIn, store.messages[0].Direction)
	assert.Equal(t, "dinner receipt", store.messages[0].Content)
}

func TestWebhookTextMessage(t *testing.T) {
	store := &fakeJobStore{}
	queue := &fakeEnqueuer{}
	h := NewWebhookHandler(store, queue, nil)

	rec := postWebhook(t, h, url.Values{
		"From":       {"whatsapp:+15551234567"},
		"MessageSid": {"SM2"},
		"Body":       {"how much was lunch?"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.jobs, 1)
	assert.Equal(t, models.JobTypeText, store.jobs[0].JobType)
	assert.Equal(t, "how much was lunch?", store.jobs[0].Payload.Text)
	assert.Empty(t, store.jobs[0].Payload.MediaURLs)
}

func TestWebhookEmptyMessage(t *testing.T) {
	store := &fakeJobStore{}
	queue := &fakeEnqueuer{}
	h := NewWebhookHandler(store, queue, nil)

	rec := postWebhook(t, h, url.Values{
		"From":       {"whatsapp:+15551234567"},
		"MessageSid": {"SM3"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), emptyPrompt)
	assert.Empty(t, store.jobs, "empty messages never become jobs")
	assert.Empty(t, store.messages)
	assert.Empty(t, queue.ids)
}

func TestWebhookEnqueueFailure(t *testing.T) {
	store := &fakeJobStore{}
	queue := &fakeEnqueuer{err: errors.New("redis down")}
	h := NewWebhookHandler(store, queue, nil)

	rec := postWebhook(t, h, url.Values{
		"From": {"whatsapp:+15551234567"},
		"Body": {"save this"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "couldn&#39;t start processing")
	require.Len(t, store.jobs, 1, "job row exists even when enqueue fails")
}

func TestWebhookCreateJobFailure(t *testing.T) {
	store := &fakeJobStore{createErr: errors.New("db down")}
	queue := &fakeEnqueuer{}
	h := NewWebhookHandler(store, queue, nil)

	rec := postWebhook(t, h, url.Values{
		"From": {"whatsapp:+15551234567"},
		"Body": {"save this"},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "an error occurred")
	assert.Empty(t, queue.ids)
}

func TestWebhookMediaOnlyMessageContent(t *testing.T) {
	store := &fakeJobStore{}
	h := NewWebhookHandler(store, &fakeEnqueuer{}, nil)

	postWebhook(t, h, url.Values{
		"From":      {"whatsapp:+15551234567"},
		"MediaUrl0": {"https://api.twilio.com/media/0"},
	})

	require.Len(t, store.messages, 1)
	assert.Equal(t, "[media x1]", store.messages[0].Content)
	assert.Equal(t, []string{"https://api.twilio.com/media/0"},
		store.messages[0].Metadata["media_urls"])
}

func TestHealthEndpoint(t *testing.T) {
	store := &fakeJobStore{}
	srv := New(0, NewWebhookHandler(store, &fakeEnqueuer{}, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
