package storage

import (
	"context"
	"database/sql"
	"fmt"

	"expense-api/internal/models"
)

// CreateExpense inserts a new expense and returns its ID.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users_expenses (user_id, category, description, amount_cents, date) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Category, e.Description, e.Amount.Cents, e.Date.String(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListExpenses retrieves every expense owned by userID in insertion order.
func (db *DB) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, user_id, category, description, amount_cents, date FROM users_expenses WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

func scanExpense(rows *sql.Rows) (models.Expense, error) {
	var (
		e    models.Expense
		date string
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Description, &e.Amount.Cents, &date); err != nil {
		return e, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return e, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	e.Date = d
	return e, nil
}

// UpdateExpense rewrites an expense matched by both e.ID and e.UserID.
// It reports whether a row was changed.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE users_expenses SET category = ?, description = ?, amount_cents = ?, date = ? WHERE id = ? AND user_id = ?",
		e.Category, e.Description, e.Amount.Cents, e.Date.String(), e.ID, e.UserID,
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// DeleteExpense removes an expense matched by both id and userID.
// It reports whether a row was removed.
func (db *DB) DeleteExpense(ctx context.Context, userID, id int64) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM users_expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpenseTotals sums and counts the expenses owned by userID. A user with no
// expenses gets zero values, not an error.
func (db *DB) ExpenseTotals(ctx context.Context, userID int64) (models.Totals, error) {
	var t models.Totals
	err := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0), COUNT(id) FROM users_expenses WHERE user_id = ?",
		userID,
	).Scan(&t.TotalAmount.Cents, &t.ExpenseCount)
	return t, err
}

// CategoryTotals groups the expenses owned by userID by category, largest
// total first. A non-zero period restricts the rows to that year or month.
func (db *DB) CategoryTotals(ctx context.Context, userID int64, period models.Period) ([]models.CategoryTotal, error) {
	query := "SELECT category, SUM(amount_cents), COUNT(id) FROM users_expenses WHERE user_id = ?"
	args := []any{userID}
	if !period.IsZero() {
		from, to := periodBounds(period)
		query += " AND date >= ? AND date < ?"
		args = append(args, from.String(), to.String())
	}
	query += " GROUP BY category ORDER BY SUM(amount_cents) DESC, category"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.TotalAmount.Cents, &ct.ExpenseCount); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// periodBounds returns the half-open date range covered by p.
func periodBounds(p models.Period) (from, to models.Date) {
	if p.Month == 0 {
		from = models.NewDate(p.Year, 1, 1)
		return from, models.Date{Time: from.AddDate(1, 0, 0)}
	}
	from = models.NewDate(p.Year, p.Month, 1)
	return from, models.Date{Time: from.AddDate(0, 1, 0)}
}
