// Package auth turns requests into caller ids. A signed session cookie and a
// bearer token are equivalent sources; the first that resolves wins.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"jukebox/database"
	"jukebox/models"
)

const SessionCookie = "jukebox_session"

type sessionStore interface {
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Strategy resolves a caller id from one credential source.
type Strategy interface {
	Name() string
	CallerID(r *http.Request) (string, bool)
}

type Resolver struct {
	strategies []Strategy
	logger     *log.Entry
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     log.WithFields(log.Fields{"module": "auth"}),
	}
}

// CallerID tries each strategy in order.
func (r *Resolver) CallerID(req *http.Request) (string, bool) {
	for _, s := range r.strategies {
		if id, ok := s.CallerID(req); ok {
			r.logger.WithFields(log.Fields{"function": "CallerID", "source": s.Name()}).Debugf("caller %s", id)
			return id, true
		}
	}
	return "", false
}

// Sessions issues and reads session cookies.
type Sessions struct {
	store  sessionStore
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewSessions(store sessionStore, secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{store: store, secret: []byte(secret), ttl: ttl, secure: secure}
}

func (s *Sessions) Name() string {
	return "session"
}

// Start creates a session row and returns the cookie carrying it.
func (s *Sessions) Start(ctx context.Context, userID string) (*http.Cookie, error) {
	session, err := s.store.CreateSession(ctx, userID, s.ttl)
	if err != nil {
		return nil, err
	}
	value, err := signSession(s.secret, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// End deletes the session behind the request cookie, if any.
func (s *Sessions) End(r *http.Request) error {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	sessionID, err := parseSession(s.secret, cookie.Value)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(r.Context(), sessionID)
}

// Expired returns a cookie that clears the session cookie.
func (s *Sessions) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Sessions) CallerID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sessionID, err := parseSession(s.secret, cookie.Value)
	if err != nil {
		return "", false
	}
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.WithFields(log.Fields{"module": "auth", "function": "Sessions.CallerID"}).Warnf("session lookup failed: %v", err)
		}
		return "", false
	}
	return session.UserID, true
}

// Bearer reads "Authorization: Bearer <jwt>" and trusts the token subject.
type Bearer struct {
	tokens *TokenIssuer
}

func NewBearer(tokens *TokenIssuer) *Bearer {
	return &Bearer{tokens: tokens}
}

func (b *Bearer) Name() string {
	return "bearer"
}

func (b *Bearer) CallerID(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	sub, err := b.tokens.Subject(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", false
	}
	return sub, true
}
