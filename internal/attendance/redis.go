package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the full JSON entry array.
const DefaultRedisKey = "attendvisor_latest_attendance"

const maxTxAttempts = 5

// RedisRepository keeps every entry in a single JSON record. The record is
// seeded on first access when absent.
type RedisRepository struct {
	client *redis.Client
	key    string
	seed   func() []Entry
}

// NewRedisRepository builds a repository on key. seed may be nil.
func NewRedisRepository(client *redis.Client, key string, seed func() []Entry) *RedisRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRepository{client: client, key: key, seed: seed}
}

// List returns matching entries in stored order.
func (r *RedisRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	if err := r.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	all, err := r.read(ctx, r.client)
	if err != nil {
		return nil, err
	}
	out := []Entry{}
	for _, e := range all {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Append adds entries with unseen keys inside a WATCH/MULTI transaction so
// concurrent writers cannot both insert the same key.
func (r *RedisRepository) Append(ctx context.Context, entries []Entry) (int, error) {
	if err := r.ensureSeeded(ctx); err != nil {
		return 0, err
	}
	for i := 0; i < maxTxAttempts; i++ {
		stored := 0
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.read(ctx, tx)
			if err != nil {
				return err
			}
			seen := make(map[Key]struct{}, len(current))
			for _, e := range current {
				seen[e.Key()] = struct{}{}
			}
			fresh := dedupe(seen, entries)
			if len(fresh) == 0 {
				return nil
			}
			data, err := json.Marshal(append(current, fresh...))
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, r.key, data, 0)
				return nil
			})
			if err == nil {
				stored = len(fresh)
			}
			return err
		}, r.key)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("append attendance: %w", err)
	}
	return 0, fmt.Errorf("append attendance: %w", redis.TxFailedErr)
}

func (r *RedisRepository) ensureSeeded(ctx context.Context) error {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return fmt.Errorf("check attendance record: %w", err)
	}
	if n > 0 {
		return nil
	}
	var initial []Entry
	if r.seed != nil {
		initial = r.seed()
	}
	if initial == nil {
		initial = []Entry{}
	}
	data, err := json.Marshal(initial)
	if err != nil {
		return err
	}
	// another process may have seeded in between; SETNX keeps the first
	if err := r.client.SetNX(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("seed attendance record: %w", err)
	}
	return nil
}

func (r *RedisRepository) read(ctx context.Context, c redis.Cmdable) ([]Entry, error) {
	data, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read attendance record: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode attendance record: %w", err)
	}
	return entries, nil
}
