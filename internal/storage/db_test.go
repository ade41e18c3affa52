package storage

import (
	"context"
	"testing"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/models"
	"expense-api/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for user and expense operations
type DBTestSuite struct {
	suite.Suite
	db    *DB
	ctx   context.Context
	alice *models.User
	bob   *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	suite.alice, err = db.CreateUser(suite.ctx, "a@x.com", "Alice1", "hash-a")
	require.NoError(suite.T(), err)
	suite.bob, err = db.CreateUser(suite.ctx, "b@x.com", "Bob1", "hash-b")
	require.NoError(suite.T(), err)
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) addExpense(userID int64, category string, cents int64, date models.Date) int64 {
	id, err := suite.db.CreateExpense(suite.ctx, &models.Expense{
		UserID:   userID,
		Category: category,
		Amount:   models.Money{Cents: cents},
		Date:     date,
	})
	require.NoError(suite.T(), err)
	return id
}

func (suite *DBTestSuite) TestCreateUser() {
	assert.NotZero(suite.T(), suite.alice.ID)
	assert.Equal(suite.T(), "a@x.com", suite.alice.Email)
	assert.Equal(suite.T(), "Alice1", suite.alice.Username)
	assert.Equal(suite.T(), "hash-a", suite.alice.PasswordHash)
	assert.False(suite.T(), suite.alice.CreatedAt.IsZero())
}

func (suite *DBTestSuite) TestCreateUserConflicts() {
	_, err := suite.db.CreateUser(suite.ctx, "a@x.com", "Other1", "h")
	var conflict *ConflictError
	require.ErrorAs(suite.T(), err, &conflict)
	assert.Equal(suite.T(), "email", conflict.Field)

	_, err = suite.db.CreateUser(suite.ctx, "new@x.com", "Alice1", "h")
	require.ErrorAs(suite.T(), err, &conflict)
	assert.Equal(suite.T(), "username", conflict.Field)
}

func (suite *DBTestSuite) TestCreateUserConflictsIgnoreCase() {
	_, err := suite.db.CreateUser(suite.ctx, "B@X.com", "Other1", "h")
	var conflict *ConflictError
	require.ErrorAs(suite.T(), err, &conflict)
	assert.Equal(suite.T(), "email", conflict.Field)

	_, err = suite.db.CreateUser(suite.ctx, "new@x.com", "bob1", "h")
	require.ErrorAs(suite.T(), err, &conflict)
	assert.Equal(suite.T(), "username", conflict.Field)

	u, err := suite.db.GetUserByEmail(suite.ctx, "A@X.COM")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.alice.ID, u.ID)

	u, err = suite.db.GetUserByUsername(suite.ctx, "alice1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.alice.ID, u.ID)
}

func (suite *DBTestSuite) TestGetUserLookups() {
	u, err := suite.db.GetUserByEmail(suite.ctx, "b@x.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.bob.ID, u.ID)

	u, err = suite.db.GetUserByUsername(suite.ctx, "Bob1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.bob.ID, u.ID)

	_, err = suite.db.GetUserByEmail(suite.ctx, "missing@x.com")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetUserByID(suite.ctx, 9999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestExpenseRequiresExistingUser() {
	_, err := suite.db.CreateExpense(suite.ctx, &models.Expense{
		UserID:   9999,
		Category: "food",
		Amount:   models.Money{Cents: 100},
		Date:     models.NewDate(2024, 1, 1),
	})
	assert.Error(suite.T(), err, "foreign key should reject unknown user")
}

func (suite *DBTestSuite) TestListExpensesScopedToOwner() {
	suite.addExpense(suite.alice.ID, "food", 1250, models.NewDate(2024, 1, 1))
	suite.addExpense(suite.bob.ID, "transport", 300, models.NewDate(2024, 1, 2))
	suite.addExpense(suite.alice.ID, "housing", 90000, models.NewDate(2024, 1, 3))

	result, err := suite.db.ListExpenses(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 2)

	assert.Equal(suite.T(), "food", result[0].Category)
	assert.Equal(suite.T(), "12.50", result[0].Amount.String())
	assert.Equal(suite.T(), "2024-01-01", result[0].Date.String())
	assert.Equal(suite.T(), suite.alice.ID, result[0].UserID)
	assert.Equal(suite.T(), "housing", result[1].Category)
}

func (suite *DBTestSuite) TestListExpensesEmpty() {
	result, err := suite.db.ListExpenses(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), result)
	assert.Empty(suite.T(), result)
}

func (suite *DBTestSuite) TestUpdateExpenseRequiresOwner() {
	id := suite.addExpense(suite.alice.ID, "food", 1250, models.NewDate(2024, 1, 1))

	changed, err := suite.db.UpdateExpense(suite.ctx, &models.Expense{
		ID: id, UserID: suite.bob.ID, Category: "stolen", Amount: models.Money{Cents: 1}, Date: models.NewDate(2024, 1, 1),
	})
	require.NoError(suite.T(), err)
	assert.False(suite.T(), changed)

	changed, err = suite.db.UpdateExpense(suite.ctx, &models.Expense{
		ID: id, UserID: suite.alice.ID, Category: "groceries", Description: "weekly", Amount: models.Money{Cents: 4599}, Date: models.NewDate(2024, 2, 1),
	})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), changed)

	result, err := suite.db.ListExpenses(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), result, 1)
	assert.Equal(suite.T(), "groceries", result[0].Category)
	assert.Equal(suite.T(), "weekly", result[0].Description)
	assert.Equal(suite.T(), int64(4599), result[0].Amount.Cents)
	assert.Equal(suite.T(), "2024-02-01", result[0].Date.String())
}

func (suite *DBTestSuite) TestDeleteExpenseRequiresOwner() {
	id := suite.addExpense(suite.alice.ID, "food", 1250, models.NewDate(2024, 1, 1))

	removed, err := suite.db.DeleteExpense(suite.ctx, suite.bob.ID, id)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), removed)

	removed, err = suite.db.DeleteExpense(suite.ctx, suite.alice.ID, id)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), removed)

	removed, err = suite.db.DeleteExpense(suite.ctx, suite.alice.ID, id)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), removed, "second delete must report nothing removed")
}

func (suite *DBTestSuite) TestExpenseTotals() {
	totals, err := suite.db.ExpenseTotals(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Totals{}, totals, "no expenses yields zero values")

	suite.addExpense(suite.alice.ID, "food", 1250, models.NewDate(2024, 1, 1))
	suite.addExpense(suite.alice.ID, "food", 275, models.NewDate(2024, 1, 2))
	suite.addExpense(suite.bob.ID, "food", 10000, models.NewDate(2024, 1, 2))

	totals, err = suite.db.ExpenseTotals(suite.ctx, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1525), totals.TotalAmount.Cents)
	assert.Equal(suite.T(), 2, totals.ExpenseCount)
}

func (suite *DBTestSuite) TestCategoryTotals() {
	suite.addExpense(suite.alice.ID, "food", 1000, models.NewDate(2024, 1, 5))
	suite.addExpense(suite.alice.ID, "food", 500, models.NewDate(2024, 2, 5))
	suite.addExpense(suite.alice.ID, "housing", 90000, models.NewDate(2024, 2, 1))
	suite.addExpense(suite.alice.ID, "gifts", 2000, models.NewDate(2023, 12, 24))
	suite.addExpense(suite.bob.ID, "food", 7777, models.NewDate(2024, 2, 5))

	all, err := suite.db.CategoryTotals(suite.ctx, suite.alice.ID, models.Period{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 3)
	assert.Equal(suite.T(), "housing", all[0].Category)
	assert.Equal(suite.T(), "gifts", all[1].Category)
	assert.Equal(suite.T(), models.CategoryTotal{Category: "food", TotalAmount: models.Money{Cents: 1500}, ExpenseCount: 2}, all[2])

	feb, err := suite.db.CategoryTotals(suite.ctx, suite.alice.ID, models.Period{Year: 2024, Month: 2})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), feb, 2)
	assert.Equal(suite.T(), "housing", feb[0].Category)
	assert.Equal(suite.T(), int64(500), feb[1].TotalAmount.Cents)

	year, err := suite.db.CategoryTotals(suite.ctx, suite.alice.ID, models.Period{Year: 2023})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), year, 1)
	assert.Equal(suite.T(), "gifts", year[0].Category)
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	password, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser(suite.ctx, "test@x.com", "testuser", password)
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) newSession(expiresAt time.Time) string {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt))
	return token
}

func (suite *SessionTestSuite) TestCreateAndLookupSession() {
	token := suite.newSession(time.Now().Add(30 * 24 * time.Hour))

	info, err := suite.db.LookupSession(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", info.User.Username)
	assert.Equal(suite.T(), "test@x.com", info.User.Email)
	assert.NotEmpty(suite.T(), info.User.PasswordHash, "session carries the full user record")
	assert.Less(suite.T(), time.Since(info.LastActivity), 5*time.Second, "LastActivity should be recent")
}

func (suite *SessionTestSuite) TestLookupUnknownOrExpiredSession() {
	_, err := suite.db.LookupSession(suite.ctx, "nope")
	assert.ErrorIs(suite.T(), err, session.ErrNotFound)

	token := suite.newSession(time.Now().Add(-time.Minute))
	_, err = suite.db.LookupSession(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, session.ErrNotFound)
}

func (suite *SessionTestSuite) TestRenewSession() {
	token := suite.newSession(time.Now().Add(time.Hour))

	time.Sleep(10 * time.Millisecond)

	originalInfo, err := suite.db.LookupSession(suite.ctx, token)
	require.NoError(suite.T(), err)

	err = suite.db.RenewSession(suite.ctx, token, time.Now().Add(60*24*time.Hour))
	require.NoError(suite.T(), err)

	updatedInfo, err := suite.db.LookupSession(suite.ctx, token)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), updatedInfo.LastActivity.After(originalInfo.LastActivity),
		"LastActivity should be updated after renewal")
	assert.True(suite.T(), updatedInfo.ExpiresAt.After(originalInfo.ExpiresAt),
		"ExpiresAt should be extended after renewal")

	assert.ErrorIs(suite.T(), suite.db.RenewSession(suite.ctx, "nope", time.Now().Add(time.Hour)), session.ErrNotFound)
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token := suite.newSession(time.Now().Add(time.Hour))

	_, err := suite.db.LookupSession(suite.ctx, token)
	require.NoError(suite.T(), err, "session should exist before deletion")

	require.NoError(suite.T(), suite.db.DeleteSession(suite.ctx, token))

	_, err = suite.db.LookupSession(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, session.ErrNotFound, "expected error after deleting session")
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	live := suite.newSession(time.Now().Add(time.Hour))
	suite.newSession(time.Now().Add(-time.Hour))
	suite.newSession(time.Now().Add(-time.Minute))

	removed, err := suite.db.CleanExpiredSessions(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), removed)

	_, err = suite.db.LookupSession(suite.ctx, live)
	assert.NoError(suite.T(), err)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
