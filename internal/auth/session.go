package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionKeyPrefix namespaces session records in Redis.
const SessionKeyPrefix = "attendvisor_auth_user:"

// SessionStore persists session records keyed by session id.
// Get reports false when no record exists.
type SessionStore interface {
	Put(ctx context.Context, id string, u User) error
	Get(ctx context.Context, id string) (User, bool, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu   sync.RWMutex
	byID map[string]User
}

// NewMemorySessions creates an empty store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{byID: make(map[string]User)}
}

func (m *MemorySessions) Put(_ context.Context, id string, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = u
	return nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	return u, ok, nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

// RedisSessions stores each session as a JSON record. A zero ttl never expires.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions builds a Redis-backed store.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (r *RedisSessions) Put(ctx context.Context, id string, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, SessionKeyPrefix+id, data, r.ttl).Err()
}

func (r *RedisSessions) Get(ctx context.Context, id string) (User, bool, error) {
	data, err := r.client.Get(ctx, SessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("read session: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, false, fmt.Errorf("decode session: %w", err)
	}
	return u, true, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, SessionKeyPrefix+id).Err()
}
