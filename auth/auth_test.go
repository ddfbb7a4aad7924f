package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"jukebox/database"
	"jukebox/models"
)

func newDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, expires, err := issuer.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	sub, err := issuer.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	_, err = NewTokenIssuer("other", time.Hour).Subject(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := NewTokenIssuer("secret", -time.Minute).Issue("user-1")
	require.NoError(t, err)
	_, err = issuer.Subject(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestResolverPrefersSession(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	alice, err := db.UpsertUserByEmail(ctx, models.User{Email: "alice@example.com"})
	require.NoError(t, err)

	sessions := NewSessions(db, "session-secret", time.Hour, false)
	tokens := NewTokenIssuer("jwt-secret", time.Hour)
	resolver := NewResolver(sessions, NewBearer(tokens))

	cookie, err := sessions.Start(ctx, alice.ID)
	require.NoError(t, err)
	bearer, _, err := tokens.Issue("bob")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
		want   string
		wantOK bool
	}{
		{"session only", cookie, "", alice.ID, true},
		{"bearer only", nil, "Bearer " + bearer, "bob", true},
		{"both, session first", cookie, "Bearer " + bearer, alice.ID, true},
		{"bad bearer", nil, "Bearer nope", "", false},
		{"wrong scheme", nil, "Basic " + bearer, "", false},
		{"tampered cookie", &http.Cookie{Name: SessionCookie, Value: cookie.Value + "x"}, "", "", false},
		{"nothing", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := resolver.CallerID(req)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CallerID() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSessionEndRevokesCookie(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	u, err := db.UpsertUserByEmail(ctx, models.User{Email: "a@example.com"})
	require.NoError(t, err)

	sessions := NewSessions(db, "secret", time.Hour, false)
	cookie, err := sessions.Start(ctx, u.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	require.NoError(t, sessions.End(req))

	_, ok := sessions.CallerID(req)
	assert.False(t, ok)
	assert.Equal(t, -1, sessions.Expired().MaxAge)
}

func TestGoogleLoginComplete(t *testing.T) {
	db := newDB(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"email":"carol@example.com","name":"Carol","picture":"https://img/c"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	login := NewGoogleLoginWithConfig(&oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo", db)

	assert.Contains(t, login.AuthCodeURL("state-1"), "state=state-1")

	user, err := login.Complete(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, "Carol", user.DisplayName)
	assert.Equal(t, ProviderGoogle, user.Provider)

	again, err := login.Complete(context.Background(), "code-2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "upsert keyed by email")
}
