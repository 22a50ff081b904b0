package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the two API calls Exchange makes.
func fakeGitHub(t *testing.T, user map[string]any, emails []map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProvider("id", "secret", "http://localhost/cb", oauth2.Endpoint{
		AuthURL:   srv.URL + "/login/oauth/authorize",
		TokenURL:  srv.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, srv.URL)
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
}

func TestExchange_PublicEmail(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{
		"id": 42, "login": "octo", "name": "Octo Cat", "email": "octo@example.com", "avatar_url": "https://a/42",
	}, nil)

	u, err := newFakeProvider(srv).Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "octo@example.com", u.Email)
	assert.Equal(t, "https://a/42", u.AvatarURL)
}

func TestExchange_HiddenEmailFallsBackToPrimary(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 42, "login": "octo"}, []map[string]any{
		{"email": "old@example.com", "primary": false, "verified": true},
		{"email": "main@example.com", "primary": true, "verified": true},
	})

	u, err := newFakeProvider(srv).Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "main@example.com", u.Email)
}

func TestExchange_NoUsableEmail(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 42, "login": "octo"}, []map[string]any{
		{"email": "main@example.com", "primary": true, "verified": false},
	})

	_, err := newFakeProvider(srv).Exchange(context.Background(), "code")
	assert.Error(t, err)
}

func TestExchange_InvalidUser(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 0}, nil)

	_, err := newFakeProvider(srv).Exchange(context.Background(), "code")
	assert.Error(t, err)
}
