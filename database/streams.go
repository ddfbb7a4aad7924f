package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jukebox/models"
	"jukebox/platform"
)

var ErrNotOwner = errors.New("stream belongs to another user")

type StreamOrder int

const (
	// NewestFirst orders by creation, most recent first.
	NewestFirst StreamOrder = iota
	// InsertionOrder orders by creation, oldest first.
	InsertionOrder
)

type StreamFilter struct {
	OwnerID string
	Order   StreamOrder
}

const streamColumns = `s.seq, s.id, s.owner_user_id, s.url, s.platform, s.extracted_id, s.title, s.thumbnail_url, s.active, s.created_at`

func scanStream(row rowScanner, extra ...any) (*models.Stream, error) {
	var s models.Stream
	var platformName, createdAt string
	var extractedID sql.NullString
	dest := []any{&s.Seq, &s.ID, &s.OwnerUserID, &s.URL, &platformName, &extractedID,
		&s.Title, &s.ThumbnailURL, &s.Active, &createdAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.Platform = platform.Platform(platformName)
	if extractedID.Valid {
		id := extractedID.String
		s.ExtractedID = &id
	}
	s.CreatedAt = parseTime(createdAt)
	s.Votes = []models.Vote{}
	return &s, nil
}

// CreateStream persists s. The new stream is active only when its owner has
// no active stream yet.
func (d *Database) CreateStream(ctx context.Context, s models.Stream) (*models.Stream, error) {
	created := s
	created.ID = uuid.NewString()
	created.Votes = []models.Vote{}
	createdAt := now()
	created.CreatedAt = parseTime(createdAt)

	err := d.WithTx(ctx, func(tx *Tx) error {
		if ok, err := tx.UserExists(ctx, s.OwnerUserID); err != nil {
			return err
		} else if !ok {
			return ErrNotFound
		}

		var activeCount int
		if err := tx.tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM streams WHERE owner_user_id = ? AND active = 1`,
			s.OwnerUserID,
		).Scan(&activeCount); err != nil {
			return fmt.Errorf("failed to count active streams: %w", err)
		}
		created.Active = activeCount == 0

		var extractedID sql.NullString
		if s.ExtractedID != nil {
			extractedID = sql.NullString{String: *s.ExtractedID, Valid: true}
		}

		return tx.tx.QueryRowContext(ctx,
			`INSERT INTO streams (id, owner_user_id, url, platform, extracted_id, title, thumbnail_url, active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING seq`,
			created.ID, s.OwnerUserID, s.URL, string(s.Platform), extractedID,
			s.Title, s.ThumbnailURL, created.Active, createdAt,
		).Scan(&created.Seq)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	return &created, nil
}

func (d *Database) GetStream(ctx context.Context, id string) (*models.Stream, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM streams s WHERE s.id = ?`, id)
	s, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	return s, nil
}

// ListStreams returns streams with their votes and owner embedded.
func (d *Database) ListStreams(ctx context.Context, filter StreamFilter) ([]models.Stream, error) {
	var where string
	var args []any
	if filter.OwnerID != "" {
		where = `WHERE s.owner_user_id = ?`
		args = append(args, filter.OwnerID)
	}
	order := `s.seq DESC`
	if filter.Order == InsertionOrder {
		order = `s.seq ASC`
	}

	query := fmt.Sprintf(
		`SELECT %s, %s
		 FROM streams s
		 JOIN users u ON u.id = s.owner_user_id
		 %s
		 ORDER BY %s`, streamColumns, prefixed("u", userColumns), where, order)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}

	streams := []models.Stream{}
	index := make(map[string]int)
	for rows.Next() {
		var owner models.User
		var ownerCreatedAt string
		s, err := scanStream(rows, &owner.ID, &owner.Email, &owner.DisplayName,
			&owner.AvatarURL, &owner.Provider, &ownerCreatedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stream row: %w", err)
		}
		owner.CreatedAt = parseTime(ownerCreatedAt)
		s.Owner = &owner
		index[s.ID] = len(streams)
		streams = append(streams, *s)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return streams, nil
	}

	// The pool holds a single connection, so votes are read after the
	// stream rows are closed.
	votes, err := d.votesForStreams(ctx, filter.OwnerID)
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		if i, ok := index[v.StreamID]; ok {
			streams[i].Votes = append(streams[i].Votes, v)
		}
	}
	return streams, nil
}

func (d *Database) votesForStreams(ctx context.Context, ownerID string) ([]models.Vote, error) {
	query := `SELECT v.id, v.user_id, v.stream_id, v.created_at FROM votes v`
	var args []any
	if ownerID != "" {
		query += ` JOIN streams s ON s.id = v.stream_id WHERE s.owner_user_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY v.rowid`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote row: %w", err)
		}
		votes = append(votes, *v)
	}
	return votes, rows.Err()
}

// SetActiveStream marks streamID as its owner's active stream and clears the
// flag on the owner's other streams.
func (d *Database) SetActiveStream(ctx context.Context, ownerID, streamID string) error {
	return d.WithTx(ctx, func(tx *Tx) error {
		var owner string
		err := tx.tx.QueryRowContext(ctx, `SELECT owner_user_id FROM streams WHERE id = ?`, streamID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load stream: %w", err)
		}
		if owner != ownerID {
			return ErrNotOwner
		}

		if _, err := tx.tx.ExecContext(ctx,
			`UPDATE streams SET active = CASE WHEN id = ? THEN 1 ELSE 0 END WHERE owner_user_id = ?`,
			streamID, ownerID,
		); err != nil {
			return fmt.Errorf("failed to update active stream: %w", err)
		}
		return nil
	})
}

// StreamExists reports whether a stream with id exists.
func (tx *Tx) StreamExists(ctx context.Context, id string) (bool, error) {
	return tx.exists(ctx, `SELECT 1 FROM streams WHERE id = ?`, id)
}

func (tx *Tx) UserExists(ctx context.Context, id string) (bool, error) {
	return tx.exists(ctx, `SELECT 1 FROM users WHERE id = ?`, id)
}

func (tx *Tx) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := tx.tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}
