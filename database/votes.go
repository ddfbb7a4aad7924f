package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"jukebox/models"
)

func scanVote(row rowScanner, extra ...any) (*models.Vote, error) {
	var v models.Vote
	var createdAt string
	if err := row.Scan(append([]any{&v.ID, &v.UserID, &v.StreamID, &createdAt}, extra...)...); err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

// DeleteVote removes the (userID, streamID) vote and reports whether a row
// was deleted.
func (tx *Tx) DeleteVote(ctx context.Context, userID, streamID string) (bool, error) {
	res, err := tx.tx.ExecContext(ctx, `DELETE FROM votes WHERE user_id = ? AND stream_id = ?`, userID, streamID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (tx *Tx) InsertVote(ctx context.Context, userID, streamID string) (*models.Vote, error) {
	createdAt := now()
	v := &models.Vote{
		ID:        uuid.NewString(),
		UserID:    userID,
		StreamID:  streamID,
		CreatedAt: parseTime(createdAt),
	}
	if _, err := tx.tx.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, stream_id, created_at) VALUES (?, ?, ?, ?)`,
		v.ID, userID, streamID, createdAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return v, nil
}

// DeleteVote is the single-statement form used outside a transaction.
// Deleting an absent vote is not an error.
func (d *Database) DeleteVote(ctx context.Context, userID, streamID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM votes WHERE user_id = ? AND stream_id = ?`, userID, streamID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Database) CountVotes(ctx context.Context, streamID string) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE stream_id = ?`, streamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// ListVotes returns the votes on streamID with the voting user embedded.
func (d *Database) ListVotes(ctx context.Context, streamID string) ([]models.Vote, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT v.id, v.user_id, v.stream_id, v.created_at, `+prefixed("u", userColumns)+`
		 FROM votes v
		 JOIN users u ON u.id = v.user_id
		 WHERE v.stream_id = ?
		 ORDER BY v.rowid`,
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var u models.User
		var userCreatedAt string
		v, err := scanVote(rows, &u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.Provider, &userCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote row: %w", err)
		}
		u.CreatedAt = parseTime(userCreatedAt)
		v.User = &u
		votes = append(votes, *v)
	}
	return votes, rows.Err()
}
