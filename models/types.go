package models

import (
	"time"

	"jukebox/platform"
)

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	Provider    string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Stream struct {
	ID           string            `json:"id"`
	OwnerUserID  string            `json:"ownerUserId"`
	URL          string            `json:"url"`
	Platform     platform.Platform `json:"platform"`
	ExtractedID  *string           `json:"extractedId"`
	Title        string            `json:"title"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Active       bool              `json:"active"`
	CreatedAt    time.Time         `json:"createdAt"`

	// Seq is the insertion sequence. ListStreams orders by it, and queue.Rank
	// keeps that input order among equal vote counts.
	Seq int64 `json:"-"`

	Votes []Vote `json:"votes"`
	Owner *User  `json:"owner,omitempty"`
}

func (s *Stream) VoteCount() int {
	return len(s.Votes)
}

// Vote is an upvote. There is no persisted downvote state.
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StreamID  string    `json:"streamId"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user,omitempty"`
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
