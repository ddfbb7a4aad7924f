// Package votes keeps at most one upvote per (user, stream) pair.
package votes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"jukebox/apperr"
	"jukebox/database"
	"jukebox/metrics"
	"jukebox/models"
	"jukebox/sentry"
)

// SelfVotePolicy decides whether owners may upvote their own streams.
type SelfVotePolicy int

const (
	AllowSelfVote SelfVotePolicy = iota
	ForbidSelfVote
)

type State string

const (
	Present State = "present"
	Absent  State = "absent"
)

type Ledger struct {
	db     *database.Database
	policy SelfVotePolicy
	logger *log.Entry
}

func NewLedger(db *database.Database, policy SelfVotePolicy) *Ledger {
	return &Ledger{
		db:     db,
		policy: policy,
		logger: log.WithFields(log.Fields{"module": "votes"}),
	}
}

// ToggleUpvote deletes the caller's vote if present and inserts one
// otherwise, inside one immediate transaction. Concurrent toggles on the same
// pair are serialized by the database and can never leave two rows.
func (l *Ledger) ToggleUpvote(ctx context.Context, userID, streamID string) (State, error) {
	logger := l.logger.WithFields(log.Fields{"function": "ToggleUpvote", "user_id": userID, "stream_id": streamID})

	if userID == "" {
		return "", apperr.Unauthenticated()
	}
	if err := validateStreamID(streamID); err != nil {
		return "", err
	}

	if l.policy == ForbidSelfVote {
		stream, err := l.db.GetStream(ctx, streamID)
		if errors.Is(err, database.ErrNotFound) {
			return "", apperr.NotFound("Stream")
		}
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "Error while upvoting stream", err)
		}
		if stream.OwnerUserID == userID {
			return "", apperr.Conflict("You cannot upvote your own stream")
		}
	}

	var state State
	err := l.db.WithTx(ctx, func(tx *database.Tx) error {
		exists, err := tx.StreamExists(ctx, streamID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("Stream")
		}

		deleted, err := tx.DeleteVote(ctx, userID, streamID)
		if err != nil {
			return err
		}
		if deleted {
			state = Absent
			return nil
		}

		known, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !known {
			return apperr.Unauthenticated()
		}

		if _, err := tx.InsertVote(ctx, userID, streamID); err != nil {
			return err
		}
		state = Present
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return "", err
		}
		logger.Errorf("toggle failed: %v", err)
		return "", apperr.Wrap(apperr.KindInternal, "Error while upvoting stream", err)
	}

	metrics.VotesToggled.WithLabelValues(string(state)).Inc()
	sentry.Breadcrumb(ctx, "vote", "upvote toggled", map[string]interface{}{"stream_id": streamID, "state": string(state)})
	logger.Debugf("vote is now %s", state)
	return state, nil
}

// RemoveVote retracts the caller's upvote. Removing an absent vote is a
// no-op, so repeated calls leave the ledger unchanged.
func (l *Ledger) RemoveVote(ctx context.Context, userID, streamID string) error {
	if userID == "" {
		return apperr.Unauthenticated()
	}
	if err := validateStreamID(streamID); err != nil {
		return err
	}

	deleted, err := l.db.DeleteVote(ctx, userID, streamID)
	if err != nil {
		l.logger.WithFields(log.Fields{"function": "RemoveVote"}).Errorf("remove failed: %v", err)
		return apperr.Wrap(apperr.KindInternal, "Error while downvoting stream", err)
	}
	if deleted {
		metrics.VotesRemoved.Inc()
	}
	return nil
}

func (l *Ledger) Count(ctx context.Context, streamID string) (int, error) {
	if streamID == "" {
		return 0, apperr.Validation("Stream ID is required")
	}
	count, err := l.db.CountVotes(ctx, streamID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "Error fetching downvote info", err)
	}
	return count, nil
}

func (l *Ledger) List(ctx context.Context, streamID string) ([]models.Vote, error) {
	if streamID == "" {
		return nil, apperr.Validation("Stream ID is required")
	}
	votes, err := l.db.ListVotes(ctx, streamID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Error fetching upvotes", err)
	}
	return votes, nil
}

func validateStreamID(streamID string) error {
	if streamID == "" {
		return apperr.Validation("Stream ID is required")
	}
	if _, err := uuid.Parse(streamID); err != nil {
		return apperr.NotFound("Stream")
	}
	return nil
}
