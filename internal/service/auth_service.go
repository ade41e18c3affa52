package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/log"
	"expense-api/internal/models"
	"expense-api/internal/session"
	"expense-api/internal/storage"
)

// UserStore is the credential store.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,max=100,email"`
	Username string `json:"username" validate:"required,max=50,username"`
	Password string `json:"password" validate:"min=6,bcryptlen"`
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService registers users and manages their sessions.
type AuthService struct {
	users    UserStore
	sessions *session.Manager
}

// NewAuthService creates an AuthService. sessions may be nil for callers
// that only register users.
func NewAuthService(users UserStore, sessions *session.Manager) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Register validates in, then creates the user. Field failures and duplicate
// email or username come back as *ValidationError.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	ve := &ValidationError{}
	if err := check(in, ve); err != nil {
		return nil, err
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		ve.Add("email", "Email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.users.GetUserByUsername(ctx, in.Username); err == nil {
		ve.Add("username", "Username already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, in.Email, in.Username, hash)
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			ve.Add(conflict.Field, conflictMessage(conflict.Field))
			return nil, ve
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.FromContext(ctx).Info("user registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, user.ID,
	)
	return user, nil
}

func conflictMessage(field string) string {
	switch field {
	case "email":
		return "Email already exists"
	case "username":
		return "Username already exists"
	}
	return "User already exists"
}

// Login checks the credentials and starts a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	log.FromContext(ctx).Info("user logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID,
	)
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its user. See session.Manager.Resolve.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Info, bool, error) {
	return s.sessions.Resolve(ctx, token)
}

// SessionTTL returns the lifetime given to new and renewed sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// Logout ends the session bound to token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.End(ctx, token); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
