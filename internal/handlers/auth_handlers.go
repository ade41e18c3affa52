package handlers

import (
	"net/http"

	"expense-api/internal/log"
	"expense-api/internal/service"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user account.
func (h *Handlers) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, invalidBody())
		return
	}

	if _, err := h.auth.Register(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully"})
}

// Login checks credentials and sets the session cookie.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, service.ErrInvalidCredentials)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "userId": res.User.ID})
}

// Logout destroys the current session and clears the cookie.
func (h *Handlers) Logout(c *gin.Context) {
	token := c.GetString(tokenKey)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		log.FromContext(c.Request.Context()).Error("logout failed",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err,
		)
		c.String(http.StatusInternalServerError, "Could not log out.")
		return
	}
	h.clearSessionCookie(c)
	c.String(http.StatusOK, "Logged out")
}
