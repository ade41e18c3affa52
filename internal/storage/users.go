package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"expense-api/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConflictError reports a UNIQUE constraint violation on a users column.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// CreateUser inserts a new user. A duplicate email or username is reported as
// a *ConflictError naming the column, whatever the caller checked beforehand.
func (db *DB) CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)",
		email, username, passwordHash,
	)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

func asConflict(err error) *ConflictError {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return nil
	}
	msg := serr.Error()
	if serr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE &&
		!(serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE")) {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return &ConflictError{Field: "email"}
	case strings.Contains(msg, "users.username"):
		return &ConflictError{Field: "username"}
	}
	return &ConflictError{Field: "user"}
}

const selectUser = "SELECT id, email, username, password_hash, created_at FROM users"

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx, selectUser+" WHERE id = ?", id))
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx, selectUser+" WHERE email = ?", email))
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.scanUser(db.conn.QueryRowContext(ctx, selectUser+" WHERE username = ?", username))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
