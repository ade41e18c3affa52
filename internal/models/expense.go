package models

import "time"

// Expense represents a single spending record owned by a user.
type Expense struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
	Date        Date   `json:"date"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token        string    `json:"token"`
	UserID       int64     `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Totals is the aggregate over all of a user's expenses.
type Totals struct {
	TotalAmount  Money `json:"totalAmount"`
	ExpenseCount int   `json:"expenseCount"`
}

// CategoryTotal is the aggregate for one category, used by the charts.
type CategoryTotal struct {
	Category     string `json:"category"`
	TotalAmount  Money  `json:"totalAmount"`
	ExpenseCount int    `json:"expenseCount"`
}

// Period restricts an aggregation to a calendar month. The zero value means all time.
type Period struct {
	Year  int
	Month int
}

// IsZero reports whether the period is unbounded.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}
