package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"expense-api/internal/models"
	"expense-api/internal/service"

	"github.com/gin-gonic/gin"
)

// looseString decodes a JSON string or number into its text form. Browsers
// send amounts and ids either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type expenseRequest struct {
	UserID      looseString `json:"userId"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      looseString `json:"amount"`
	Date        string      `json:"date"`
	Password    string      `json:"password"`
}

func (r expenseRequest) input() service.ExpenseInput {
	return service.ExpenseInput{
		Category:    r.Category,
		Description: r.Description,
		Amount:      string(r.Amount),
		Date:        r.Date,
	}
}

type deleteRequest struct {
	Password string `json:"password"`
}

// ownPath returns the principal when the :userId path parameter names it.
// It writes the error response and returns nil otherwise.
func ownPath(c *gin.Context) *models.User {
	principal := GetUserFromContext(c)
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return nil
	}
	if principal == nil || id != principal.ID {
		writeError(c, service.ErrForbidden)
		return nil
	}
	return principal
}

func expenseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return 0, false
	}
	return id, true
}

// ListExpenses returns the principal's expenses.
func (h *Handlers) ListExpenses(c *gin.Context) {
	principal := ownPath(c)
	if principal == nil {
		return
	}

	expenses, err := h.expenses.List(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// CreateExpense adds an expense for the principal. A userId in the body must
// name the principal.
func (h *Handlers) CreateExpense(c *gin.Context) {
	principal := GetUserFromContext(c)

	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidBody())
		return
	}
	if req.UserID != "" {
		id, err := strconv.ParseInt(string(req.UserID), 10, 64)
		if err != nil || id != principal.ID {
			writeError(c, service.ErrForbidden)
			return
		}
	}

	e, err := h.expenses.Create(c.Request.Context(), principal, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense added successfully", "id": e.ID})
}

// UpdateExpense overwrites an expense after password confirmation.
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidBody())
		return
	}

	if _, err := h.expenses.Update(c.Request.Context(), GetUserFromContext(c), id, req.input(), req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense updated successfully"})
}

// DeleteExpense removes an expense after password confirmation.
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidBody())
		return
	}

	if err := h.expenses.Delete(c.Request.Context(), GetUserFromContext(c), id, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
