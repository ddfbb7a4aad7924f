package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"jukebox/models"
)

const userColumns = `id, email, display_name, avatar_url, provider, created_at`

// prefixed qualifies each column in a comma separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.Provider, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// UpsertUserByEmail creates the user on first sign-in and refreshes profile
// fields on later ones. The id of an existing user never changes.
func (d *Database) UpsertUserByEmail(ctx context.Context, u models.User) (*models.User, error) {
	if u.Email == "" {
		return nil, errors.New("email is required")
	}

	row := d.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, display_name, avatar_url, provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			provider = excluded.provider
		 RETURNING `+userColumns,
		uuid.NewString(), u.Email, u.DisplayName, u.AvatarURL, u.Provider, now(),
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (d *Database) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
