package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGrid_SendOTP(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		payload map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGrid("sg-key", "LMS", "no-reply@lms.test")
	m.host = srv.URL

	require.NoError(t, m.SendOTP(context.Background(), "student@lms.test", "123456"))

	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Equal(t, sendgridEndpoint, gotPath)
	personalizations := payload["personalizations"].([]any)
	first := personalizations[0].(map[string]any)
	assert.Equal(t, "[LMS] Your verification code", first["subject"])
	assert.Contains(t, payload["content"].([]any)[0].(map[string]any)["value"], "123456")
}

func TestSendGrid_SendOTP_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGrid("bad", "LMS", "no-reply@lms.test")
	m.host = srv.URL

	err := m.SendOTP(context.Background(), "student@lms.test", "123456")
	assert.ErrorContains(t, err, "401")
}
