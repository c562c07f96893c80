package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaanSolanki/lms/internal/app_errors"
)

func newGitHubTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			_, _ = w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"gho_token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":583231,"login":"octocat","name":"The Octocat","avatar_url":"https://avatars.test/583231"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"email":"old@example.com","primary":false,"verified":true},
			{"email":"octo@example.com","primary":true,"verified":true}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testGitHubClient(srv *httptest.Server) *GitHubClient {
	c := NewGitHubClient("client-id", "client-secret", "http://localhost:8080/v1/auth/github/callback")
	c.webURL = srv.URL
	c.apiURL = srv.URL
	return c
}

func TestGitHubClient_AuthURL(t *testing.T) {
	c := NewGitHubClient("client-id", "secret", "http://localhost:8080/cb")

	u, err := url.Parse(c.AuthURL("abc123"))
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "abc123", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:8080/cb", u.Query().Get("redirect_uri"))
}

func TestGitHubClient_ExchangeAndProfile(t *testing.T) {
	c := testGitHubClient(newGitHubTestServer(t))
	ctx := context.Background()

	token, err := c.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_token", token)

	profile, err := c.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(583231), profile.ID)
	assert.Equal(t, "octocat", profile.Login)
	assert.Equal(t, "octo@example.com", profile.Email)
}

func TestGitHubClient_ExchangeRejectedCode(t *testing.T) {
	c := testGitHubClient(newGitHubTestServer(t))

	_, err := c.Exchange(context.Background(), "stale")

	assert.ErrorIs(t, err, app_errors.ErrOAuthExchange)
	assert.Equal(t, app_errors.ErrUnauthorized, app_errors.Kind(err))
}

func TestGitHubClient_ProfileBadToken(t *testing.T) {
	c := testGitHubClient(newGitHubTestServer(t))

	_, err := c.Profile(context.Background(), "revoked")

	assert.ErrorIs(t, err, app_errors.ErrOAuthExchange)
}
