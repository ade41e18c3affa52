package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expense-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// UserGetter resolves the user a session is bound to.
type UserGetter interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// RedisStore keeps sessions as expiring Redis keys. The user record is
// loaded on every lookup so the session always carries the stored user.
type RedisStore struct {
	client *redis.Client
	users  UserGetter
	prefix string
}

type redisSession struct {
	UserID       int64     `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, users UserGetter) *RedisStore {
	return &RedisStore{client: client, users: users, prefix: "session:"}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

func (s *RedisStore) put(ctx context.Context, token string, rs redisSession, onlyIfExists bool) (bool, error) {
	ttl := time.Until(rs.ExpiresAt)
	if ttl <= 0 {
		return false, fmt.Errorf("session already expired at %s", rs.ExpiresAt)
	}
	payload, err := json.Marshal(rs)
	if err != nil {
		return false, err
	}
	if onlyIfExists {
		return s.client.SetXX(ctx, s.key(token), payload, ttl).Result()
	}
	return true, s.client.Set(ctx, s.key(token), payload, ttl).Err()
}

func (s *RedisStore) get(ctx context.Context, token string) (*redisSession, error) {
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rs redisSession
	if err := json.Unmarshal(payload, &rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rs, nil
}

// CreateSession stores a new session.
func (s *RedisStore) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.put(ctx, token, redisSession{
		UserID:       userID,
		ExpiresAt:    expiresAt.UTC(),
		LastActivity: time.Now().UTC(),
	}, false)
	return err
}

// LookupSession resolves token to its session and user.
func (s *RedisStore) LookupSession(ctx context.Context, token string) (*Info, error) {
	rs, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !rs.ExpiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}
	user, err := s.users.GetUserByID(ctx, rs.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user %d: %w", rs.UserID, err)
	}
	return &Info{User: user, LastActivity: rs.LastActivity, ExpiresAt: rs.ExpiresAt}, nil
}

// RenewSession moves the expiry of an existing session.
func (s *RedisStore) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	rs, err := s.get(ctx, token)
	if err != nil {
		return err
	}
	rs.ExpiresAt = expiresAt.UTC()
	rs.LastActivity = time.Now().UTC()
	ok, err := s.put(ctx, token, *rs, true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session.
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}
