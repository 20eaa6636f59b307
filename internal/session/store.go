// Package session implements server-side sessions: an opaque random id
// delivered in an HTTP-only cookie, resolved against Redis on every
// request. The session record is the sole link between a request and a
// user; it expires on its own TTL independent of explicit logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/freshmarket/freshmarket-api/internal/token"
)

var ErrNotFound = errors.New("session not found")

// Session maps an opaque id to the authenticated user.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
}

// Store is the session persistence contract.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Destroy(ctx context.Context, id string) error
	// DestroyAllForUser drops every live session of a user, used when a
	// password reset must log out all devices.
	DestroyAllForUser(ctx context.Context, userID uuid.UUID) error
}

// RedisStore persists sessions in Redis with an automatic TTL, plus a
// per-user index so all of a user's sessions can be destroyed at once.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func userSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", userID.String())
}

// Create stores a new session and indexes it under the user.
func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	id, err := token.GenerateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, sessionKey(id), map[string]interface{}{
		"user_id":    userID.String(),
		"created_at": now.Unix(),
	})
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), id)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Session{ID: id, UserID: userID, CreatedAt: now}, nil
}

// Get resolves a session id. Expired sessions are gone from Redis and
// surface as ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	userID, err := uuid.Parse(data["user_id"])
	if err != nil {
		return nil, ErrNotFound
	}

	var createdAtUnix int64
	fmt.Sscanf(data["created_at"], "%d", &createdAtUnix)

	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

// Destroy removes a session and its user-index entry.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userSessionsKey(sess.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// DestroyAllForUser drops every session indexed under the user.
func (s *RedisStore) DestroyAllForUser(ctx context.Context, userID uuid.UUID) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to destroy user sessions: %w", err)
	}

	return nil
}
