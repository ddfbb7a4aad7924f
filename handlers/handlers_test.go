package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jukebox/audio"
	"jukebox/auth"
	"jukebox/database"
	"jukebox/metadata"
	"jukebox/models"
	"jukebox/platform"
	"jukebox/streams"
	"jukebox/votes"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, p platform.Platform, id string) metadata.Details {
	return metadata.Details{Title: "Resolved " + id, Thumbnail: "https://img.example/" + id}
}

type stubOrigin struct {
	renditions []audio.Rendition
	err        error
	body       string
	calls      int
}

func (o *stubOrigin) Renditions(context.Context, string) ([]audio.Rendition, error) {
	o.calls++
	return o.renditions, o.err
}

func (o *stubOrigin) Open(context.Context, audio.Rendition) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader(o.body)), int64(len(o.body)), nil
}

type testServer struct {
	router *gin.Engine
	db     *database.Database
	tokens *auth.TokenIssuer
	origin *stubOrigin
	alice  *models.User
	bob    *models.User
}

func newTestServer(t *testing.T, policy votes.SelfVotePolicy) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	alice, err := db.UpsertUserByEmail(ctx, models.User{Email: "alice@example.com", DisplayName: "Alice", Provider: "GOOGLE"})
	require.NoError(t, err)
	bob, err := db.UpsertUserByEmail(ctx, models.User{Email: "bob@example.com", DisplayName: "Bob", Provider: "GOOGLE"})
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := auth.NewSessions(db, "test-secret", time.Hour, false)
	origin := &stubOrigin{
		renditions: []audio.Rendition{
			{MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioOnly: true},
			{MimeType: "video/mp4", Bitrate: 900000},
		},
		body: "OggS-audio-bytes",
	}

	m := &Manager{
		Streams:            streams.NewService(db, stubResolver{}),
		Votes:              votes.NewLedger(db, policy),
		Audio:              audio.NewProxy(origin),
		Users:              db,
		Health:             db,
		Callers:            auth.NewResolver(sessions, auth.NewBearer(tokens)),
		Sessions:           sessions,
		Tokens:             tokens,
		AudioRatePerMinute: 600,
		AudioBurst:         50,
	}
	return &testServer{router: NewRouter(m), db: db, tokens: tokens, origin: origin, alice: alice, bob: bob}
}

func (s *testServer) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, _, err := s.tokens.Issue(user.ID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateStream(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	tests := []struct {
		name       string
		body       any
		user       *models.User
		wantStatus int
		wantMsg    string
	}{
		{"created", gin.H{"url": "https://youtu.be/dQw4w9WgXcQ"}, s.alice, http.StatusOK, "Stream added successfully"},
		{"legacy creatorId", gin.H{"creatorId": s.alice.ID, "url": "https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh"}, s.alice, http.StatusOK, "Stream added successfully"},
		{"unauthenticated", gin.H{"url": "https://youtu.be/dQw4w9WgXcQ"}, nil, http.StatusUnauthorized, "Authentication required"},
		{"invalid url", gin.H{"url": "https://example.com/video"}, s.alice, http.StatusBadRequest, streams.InvalidURLMessage},
		{"owner mismatch", gin.H{"ownerId": s.bob.ID, "url": "https://youtu.be/dQw4w9WgXcQ"}, s.alice, http.StatusBadRequest, "ownerId must match the signed-in user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/streams", tt.body, tt.user)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantMsg, decode[map[string]any](t, w)["message"])
		})
	}

	w := s.do(t, http.MethodGet, "/streams?ownerId="+s.alice.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Stream](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, platform.Spotify, list[0].Platform, "newest first")
	assert.Equal(t, "Resolved dQw4w9WgXcQ", list[1].Title)
	require.NotNil(t, list[1].Owner)
	assert.Equal(t, "alice@example.com", list[1].Owner.Email)

	w = s.do(t, http.MethodGet, "/streams?creatorId="+s.bob.ID, nil, nil)
	assert.Empty(t, decode[[]models.Stream](t, w))
}

func TestVotingFlow(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	w := s.do(t, http.MethodPost, "/streams", gin.H{"url": "https://youtu.be/dQw4w9WgXcQ"}, s.alice)
	require.Equal(t, http.StatusOK, w.Code)
	streamID := decode[struct {
		Stream models.Stream `json:"stream"`
	}](t, w).Stream.ID

	count := func() float64 {
		w := s.do(t, http.MethodGet, "/streams/downvotes?streamId="+streamID, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		return decode[map[string]float64](t, w)["upvoteCount"]
	}

	w = s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": streamID}, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["upvoted"])
	assert.Equal(t, float64(1), count())

	w = s.do(t, http.MethodGet, "/streams/upvotes?streamId="+streamID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	upvotes := decode[[]models.Vote](t, w)
	require.Len(t, upvotes, 1)
	require.NotNil(t, upvotes[0].User)
	assert.Equal(t, "bob@example.com", upvotes[0].User.Email)

	w = s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": streamID}, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["upvoted"])
	assert.Equal(t, float64(0), count())

	s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": streamID}, s.bob)
	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, "/streams/downvotes", gin.H{"streamId": streamID}, s.bob)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, float64(0), count())

	w = s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": streamID}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/streams/downvotes", gin.H{"streamId": streamID}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": "not-a-uuid"}, s.bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/streams/upvotes", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/streams/downvotes", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelfVoteForbidden(t *testing.T) {
	s := newTestServer(t, votes.ForbidSelfVote)

	w := s.do(t, http.MethodPost, "/streams", gin.H{"url": "https://youtu.be/dQw4w9WgXcQ"}, s.alice)
	require.Equal(t, http.StatusOK, w.Code)
	streamID := decode[struct {
		Stream models.Stream `json:"stream"`
	}](t, w).Stream.ID

	w = s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": streamID}, s.alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot upvote your own stream", decode[map[string]any](t, w)["message"])
}

func TestQueueAndActive(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	var ids []string
	for _, u := range []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb", "https://youtu.be/ccccccccccc"} {
		w := s.do(t, http.MethodPost, "/streams", gin.H{"url": u}, s.alice)
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, decode[struct {
			Stream models.Stream `json:"stream"`
		}](t, w).Stream.ID)
	}
	s.do(t, http.MethodPost, "/streams/upvotes", gin.H{"streamId": ids[2]}, s.bob)

	type snapshot struct {
		Current *models.Stream  `json:"current"`
		Queue   []models.Stream `json:"queue"`
	}
	w := s.do(t, http.MethodGet, "/streams/queue?ownerId="+s.alice.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[snapshot](t, w)
	require.NotNil(t, snap.Current)
	assert.Equal(t, ids[0], snap.Current.ID)
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, ids[2], snap.Queue[0].ID)

	w = s.do(t, http.MethodPost, "/streams/active", gin.H{"streamId": ids[1]}, s.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/streams/active", gin.H{"streamId": ids[1]}, s.alice)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[snapshot](t, s.do(t, http.MethodGet, "/streams/queue?ownerId="+s.alice.ID, nil, nil))
	assert.Equal(t, ids[1], snap.Current.ID)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	w := s.do(t, http.MethodGet, "/streams/preview?platform=SPOTIFY&id=4iV5W9uYEdYUVa79Axb7Rh&url=https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]string](t, w)
	assert.Equal(t, "Spotify", got["platform"])
	assert.Equal(t, "Resolved 4iV5W9uYEdYUVa79Axb7Rh", got["title"])

	w = s.do(t, http.MethodGet, "/streams/preview", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required parameters", decode[map[string]string](t, w)["message"])
}

func TestAudio(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	w := s.do(t, http.MethodGet, "/audio?id=dQw4w9WgXcQ", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/webm", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "OggS-audio-bytes", w.Body.String())

	w = s.do(t, http.MethodGet, "/audio?url=https://www.youtube.com/watch?v=dQw4w9WgXcQ", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	calls := s.origin.calls
	for _, path := range []string{"/audio?id=short", "/audio", "/audio?url=https://open.spotify.com/track/abc"} {
		w = s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	assert.Equal(t, calls, s.origin.calls, "no upstream call for invalid input")

	s.origin.renditions = []audio.Rendition{{MimeType: "video/mp4"}}
	w = s.do(t, http.MethodGet, "/audio?id=dQw4w9WgXcQ", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "No audio format found", decode[map[string]string](t, w)["message"])

	s.origin.err = errors.New("signature cipher changed at 10.0.0.1")
	w = s.do(t, http.MethodGet, "/audio?id=dQw4w9WgXcQ", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestAudioRateLimit(t *testing.T) {
	store := newLimiterStore(60, 2)
	assert.True(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("1.2.3.4"))
	assert.False(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("5.6.7.8"))
	assert.Equal(t, 2, store.size())

	store.evictIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 0, store.size())
}

func TestUsersAndAuth(t *testing.T) {
	s := newTestServer(t, votes.AllowSelfVote)

	w := s.do(t, http.MethodGet, "/users", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]map[string]any](t, w)
	require.Len(t, users, 2)
	_, hasProvider := users[0]["provider"]
	assert.False(t, hasProvider)

	w = s.do(t, http.MethodGet, "/auth/me", nil, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@example.com", decode[map[string]any](t, w)["email"])

	w = s.do(t, http.MethodPost, "/auth/token", nil, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]any](t, w)["token"].(string)
	sub, err := s.tokens.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, s.bob.ID, sub)

	w = s.do(t, http.MethodPost, "/auth/token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
