package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSender(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+14155550100",
		BaseURL:    srv.URL,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestSendNormalizesWhatsAppPrefix(t *testing.T) {
	var form map[string]string
	s := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	err := s.Send(context.Background(), "+15551234567", "saved it")
	require.NoError(t, err)

	assert.Equal(t, "whatsapp:+15551234567", form["To"])
	assert.Equal(t, "whatsapp:+14155550100", form["From"])
	assert.Equal(t, "saved it", form["Body"])
}

func TestSendKeepsExistingPrefix(t *testing.T) {
	var to string
	s := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		to = r.PostFormValue("To")
		_, _ = w.Write([]byte(`{"sid":"SM2","status":"queued"}`))
	})

	require.NoError(t, s.Send(context.Background(), "whatsapp:+15551234567", "hi"))
	assert.Equal(t, "whatsapp:+15551234567", to)
}

func TestSendAPIError(t *testing.T) {
	s := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	})

	err := s.Send(context.Background(), "+1bad", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSend)
	assert.Contains(t, err.Error(), "21211")
}

func TestSendEmptyBody(t *testing.T) {
	s := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	assert.ErrorIs(t, s.Send(context.Background(), "+15551234567", "  "), ErrSend)
}

func TestNewSenderValidation(t *testing.T) {
	_, err := NewSender(Config{AccountSID: "AC123"}, nil)
	assert.Error(t, err)

	_, err = NewSender(Config{AccountSID: "AC123", AuthToken: "t"}, nil)
	assert.Error(t, err)
}
