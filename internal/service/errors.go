package service

import (
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when no stored user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidPassword is returned when a mutation's password confirmation fails.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrExpenseNotFound is returned when no expense of the principal matches.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrForbidden is returned when a request names another user.
	ErrForbidden = errors.New("forbidden")
)

// FieldError is one rejected input field.
type FieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// ValidationError aggregates every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Path + ": " + f.Msg
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a failure for path unless one is already recorded for it.
func (e *ValidationError) Add(path, msg string) {
	if e.Has(path) {
		return
	}
	e.Fields = append(e.Fields, FieldError{Path: path, Msg: msg})
}

// Has reports whether path already failed.
func (e *ValidationError) Has(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when nothing failed.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
