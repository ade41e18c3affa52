package handlers

import (
	"math"
	"net/http"
	"strconv"

	"expense-api/internal/models"
	"expense-api/internal/service"

	"github.com/gin-gonic/gin"
)

// StatsCategoryItem is a category with its share of the period's spending.
type StatsCategoryItem struct {
	models.CategoryTotal
	Percentage float64 `json:"percentage"`
}

// Totals returns the principal's total spending and expense count.
func (h *Handlers) Totals(c *gin.Context) {
	principal := ownPath(c)
	if principal == nil {
		return
	}

	totals, err := h.expenses.Totals(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// Categories returns per-category totals, largest first. The optional year
// and month query parameters narrow the period.
func (h *Handlers) Categories(c *gin.Context) {
	principal := ownPath(c)
	if principal == nil {
		return
	}

	period, err := parsePeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}

	totals, err := h.expenses.Categories(c.Request.Context(), principal, period)
	if err != nil {
		writeError(c, err)
		return
	}

	var sum int64
	for _, ct := range totals {
		sum += ct.TotalAmount.Cents
	}

	items := make([]StatsCategoryItem, 0, len(totals))
	for _, ct := range totals {
		percentage := 0.0
		if sum > 0 {
			percentage = math.Round(float64(ct.TotalAmount.Cents)/float64(sum)*1000) / 10
		}
		items = append(items, StatsCategoryItem{CategoryTotal: ct, Percentage: percentage})
	}
	c.JSON(http.StatusOK, items)
}

func parsePeriod(c *gin.Context) (models.Period, error) {
	var p models.Period
	ve := &service.ValidationError{}
	if s := c.Query("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			ve.Add("year", "Year must be a number")
		}
		p.Year = y
	}
	if s := c.Query("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			ve.Add("month", "Month must be a number")
		}
		p.Month = m
	}
	return p, ve.Err()
}
