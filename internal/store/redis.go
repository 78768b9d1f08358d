package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the connection shared by the Redis entry repository, the Redis
// session store and the event queue; one client serves all three so the api
// and the worker agree on a single Redis instance.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the shared client with short timeouts. The connection is
// lazy; Healthy is the readiness probe reported on /healthz.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
