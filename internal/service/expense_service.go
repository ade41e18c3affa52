package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expense-api/internal/auth"
	"expense-api/internal/log"
	"expense-api/internal/models"
	"expense-api/internal/storage"
)

// ExpenseStore is the expense store. Mutations match on both id and owner
// and report whether a row was touched.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *models.Expense) (int64, error)
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, e *models.Expense) (bool, error)
	DeleteExpense(ctx context.Context, userID, id int64) (bool, error)
	ExpenseTotals(ctx context.Context, userID int64) (models.Totals, error)
	CategoryTotals(ctx context.Context, userID int64, period models.Period) ([]models.CategoryTotal, error)
}

// ExpenseInput is the client-supplied part of an expense. Amount is the raw
// decimal text; the handler normalises JSON numbers to it.
type ExpenseInput struct {
	Category    string `json:"category" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
	Amount      string `json:"amount" validate:"required"`
	Date        string `json:"date" validate:"required"`
}

// ExpenseService runs expense operations on behalf of an authenticated user.
type ExpenseService struct {
	users    UserStore
	expenses ExpenseStore
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(users UserStore, expenses ExpenseStore) *ExpenseService {
	return &ExpenseService{users: users, expenses: expenses}
}

// List returns the principal's expenses in insertion order.
func (s *ExpenseService) List(ctx context.Context, principal *models.User) ([]models.Expense, error) {
	expenses, err := s.expenses.ListExpenses(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Create validates in and stores it as a new expense of the principal.
func (s *ExpenseService) Create(ctx context.Context, principal *models.User, in ExpenseInput) (*models.Expense, error) {
	e, err := buildExpense(in)
	if err != nil {
		return nil, err
	}
	e.UserID = principal.ID

	id, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	e.ID = id

	log.FromContext(ctx).Info("expense created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, principal.ID,
		log.FieldExpenseID, id,
	)
	return e, nil
}

// Update overwrites one of the principal's expenses after re-checking the
// password. No write happens unless the password matches.
func (s *ExpenseService) Update(ctx context.Context, principal *models.User, id int64, in ExpenseInput, password string) (*models.Expense, error) {
	if err := s.confirmPassword(ctx, principal, password); err != nil {
		return nil, err
	}

	e, err := buildExpense(in)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.UserID = principal.ID

	ok, err := s.expenses.UpdateExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if !ok {
		return nil, ErrExpenseNotFound
	}

	log.FromContext(ctx).Info("expense updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, principal.ID,
		log.FieldExpenseID, id,
	)
	return e, nil
}

// Delete removes one of the principal's expenses after re-checking the password.
func (s *ExpenseService) Delete(ctx context.Context, principal *models.User, id int64, password string) error {
	if err := s.confirmPassword(ctx, principal, password); err != nil {
		return err
	}

	ok, err := s.expenses.DeleteExpense(ctx, principal.ID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !ok {
		return ErrExpenseNotFound
	}

	log.FromContext(ctx).Info("expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, principal.ID,
		log.FieldExpenseID, id,
	)
	return nil
}

// Totals sums the principal's expenses.
func (s *ExpenseService) Totals(ctx context.Context, principal *models.User) (models.Totals, error) {
	t, err := s.expenses.ExpenseTotals(ctx, principal.ID)
	if err != nil {
		return models.Totals{}, fmt.Errorf("expense totals: %w", err)
	}
	return t, nil
}

// Categories groups the principal's expenses by category within period.
func (s *ExpenseService) Categories(ctx context.Context, principal *models.User, period models.Period) ([]models.CategoryTotal, error) {
	ve := &ValidationError{}
	if period.Month != 0 && (period.Month < 1 || period.Month > 12) {
		ve.Add("month", "Month must be between 1 and 12")
	}
	if period.Month != 0 && period.Year == 0 {
		ve.Add("year", "Year is required when month is given")
	}
	if period.Year < 0 || period.Year > 9999 {
		ve.Add("year", "Year must be between 1 and 9999")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	totals, err := s.expenses.CategoryTotals(ctx, principal.ID, period)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return totals, nil
}

// confirmPassword reloads the principal's stored record and compares password
// against its hash.
func (s *ExpenseService) confirmPassword(ctx context.Context, principal *models.User, password string) error {
	user, err := s.users.GetUserByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return ErrInvalidPassword
	}
	return nil
}

func buildExpense(in ExpenseInput) (*models.Expense, error) {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Amount = strings.TrimSpace(in.Amount)
	in.Date = strings.TrimSpace(in.Date)

	ve := &ValidationError{}
	if err := check(in, ve); err != nil {
		return nil, err
	}

	e := &models.Expense{Category: in.Category, Description: in.Description}
	if !ve.Has("amount") {
		amount, err := models.ParseMoney(in.Amount)
		if err != nil {
			ve.Add("amount", "Amount must be a positive number")
		}
		e.Amount = amount
	}
	if !ve.Has("date") {
		date, err := models.ParseDate(in.Date)
		if err != nil {
			ve.Add("date", "Date must be in YYYY-MM-DD format")
		}
		e.Date = date
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return e, nil
}
