package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"expense-api/internal/log"
	"expense-api/internal/models"
	"expense-api/internal/service"
	"expense-api/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	principalKey = "principal"
	tokenKey     = "sessionToken"
)

// Authenticator is the part of service.AuthService the HTTP layer uses.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*session.Info, bool, error)
}

// Expenses is the part of service.ExpenseService the HTTP layer uses.
type Expenses interface {
	List(ctx context.Context, principal *models.User) ([]models.Expense, error)
	Create(ctx context.Context, principal *models.User, in service.ExpenseInput) (*models.Expense, error)
	Update(ctx context.Context, principal *models.User, id int64, in service.ExpenseInput, password string) (*models.Expense, error)
	Delete(ctx context.Context, principal *models.User, id int64, password string) error
	Totals(ctx context.Context, principal *models.User) (models.Totals, error)
	Categories(ctx context.Context, principal *models.User, period models.Period) ([]models.CategoryTotal, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         Authenticator
	expenses     Expenses
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth Authenticator, expenses Expenses, secureCookie bool) *Handlers {
	return &Handlers{auth: auth, expenses: expenses, secureCookie: secureCookie}
}

// GetUserFromContext retrieves the authenticated user bound by SessionGate.
func GetUserFromContext(c *gin.Context) *models.User {
	if user, ok := c.Get(principalKey); ok {
		if u, ok := user.(*models.User); ok {
			return u
		}
	}
	return nil
}

// SessionGate requires a valid session, taken from the session cookie or
// an "Authorization: Bearer" header. Sessions past the halfway point of
// their lifetime are renewed and the cookie is re-issued.
func (h *Handlers) SessionGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()
		info, renewed, err := h.auth.Authenticate(ctx, token)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrRenewFailed):
			log.FromContext(ctx).Warn("session renewal failed",
				log.FieldOperation, log.OpRenew,
				log.FieldError, err,
			)
		case errors.Is(err, session.ErrNotFound):
			if fromCookie {
				h.clearSessionCookie(c)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		default:
			log.FromContext(ctx).Error("session lookup failed", log.FieldError, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}

		if renewed && fromCookie {
			h.setSessionCookie(c, token, info.ExpiresAt)
		}

		c.Set(principalKey, info.User)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// sessionToken returns the request's session token and whether it came
// from the cookie.
func sessionToken(c *gin.Context) (string, bool) {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1], false
	}
	return "", false
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeError maps err to a status code and JSON body. Anything unexpected is
// logged and reported as a bare 500.
func writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Fields})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found!"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
	case errors.Is(err, service.ErrExpenseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		_ = c.Error(err)
		log.FromContext(c.Request.Context()).Error("request failed", log.FieldError, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

// invalidBody is the error reported for an unreadable JSON body.
func invalidBody() error {
	return &service.ValidationError{Fields: []service.FieldError{{Path: "body", Msg: "Invalid JSON body"}}}
}
