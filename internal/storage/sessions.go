package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expense-api/internal/models"
	"expense-api/internal/session"
)

var _ session.Store = (*DB)(nil)

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

// LookupSession checks that a session token is valid and returns the session
// together with the full user record.
func (db *DB) LookupSession(ctx context.Context, token string) (*session.Info, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC())

	var u models.User
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return &session.Info{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().UTC(), expiresAt.UTC(), token,
	)
	if err != nil {
		return err
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions and returns how many went.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
