package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each collection as a JSON string under a prefixed key.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redis with short timeouts and returns a snapshot
// store using the given key prefix (e.g. "classtrack").
func NewRedis(addr, prefix string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	if prefix == "" {
		prefix = "classtrack"
	}
	return &Redis{client: client, prefix: prefix}
}

// Client exposes the underlying connection for other redis consumers, e.g.
// the work queue.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.client == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) key(collection string) string {
	return r.prefix + ":cache:" + collection
}

// Load reads a collection snapshot; a missing key leaves dest empty.
func (r *Redis) Load(ctx context.Context, collection string, dest any) error {
	raw, err := r.client.Get(ctx, r.key(collection)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache load %s: %w", collection, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", collection, err)
	}
	return nil
}

// Save replaces a collection snapshot.
func (r *Redis) Save(ctx context.Context, collection string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", collection, err)
	}
	if err := r.client.Set(ctx, r.key(collection), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache save %s: %w", collection, err)
	}
	return nil
}

// Clear removes a collection snapshot.
func (r *Redis) Clear(ctx context.Context, collection string) error {
	if err := r.client.Del(ctx, r.key(collection)).Err(); err != nil {
		return fmt.Errorf("cache clear %s: %w", collection, err)
	}
	return nil
}
