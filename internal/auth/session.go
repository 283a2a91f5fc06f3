package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-credit/meridian/internal/shared"
)

// SessionManager stores bearer sessions in Redis. A session is an opaque
// uuid token mapping to the signed-in actor, expiring after the configured TTL.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Create issues a fresh session token for the actor.
func (sm *SessionManager) Create(ctx context.Context, actor shared.Actor) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), payload, sm.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token back to its actor. Unknown or expired tokens come back
// as ErrUnauthorized.
func (sm *SessionManager) Get(ctx context.Context, token string) (*shared.Actor, error) {
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	var actor shared.Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return nil, err
	}
	// Sliding expiry: touching a session keeps it alive.
	_ = sm.client.Expire(ctx, sm.redisKey(token), sm.ttl).Err()
	return &actor, nil
}

// Destroy invalidates a session token.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	err := sm.client.Del(ctx, sm.redisKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) redisKey(token string) string {
	return "session:" + token
}
