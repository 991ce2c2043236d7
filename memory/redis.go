package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store whose episodic tier persists in Redis, surviving
// process restarts so later runs against the same target can build on
// earlier summaries. The working tier stays in process memory; it is
// ephemeral by definition.
type RedisStore struct {
	client  *redis.Client
	working *inMemoryWorking
	prefix  string
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the connection string, e.g. "redis://localhost:6379".
	URL string

	// KeyPrefix namespaces all keys. Defaults to "talon:memory".
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("memory: invalid redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "talon:memory"
	}
	return &RedisStore{
		client:  client,
		working: &inMemoryWorking{items: make(map[string]any)},
		prefix:  prefix,
	}, nil
}

// Working implements Store.
func (s *RedisStore) Working() Working { return s.working }

// Episodic implements Store.
func (s *RedisStore) Episodic() Episodic {
	return &redisEpisodic{client: s.client, prefix: s.prefix}
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisEpisodic struct {
	client *redis.Client
	prefix string
}

func (e *redisEpisodic) key(run string) string {
	return fmt.Sprintf("%s:episodic:%s", e.prefix, run)
}

func (e *redisEpisodic) Append(ctx context.Context, entry Entry) error {
	if entry.Run == "" {
		return ErrInvalidKey
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("memory: marshal entry: %w", err)
	}
	if err := e.client.RPush(ctx, e.key(entry.Run), data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	return nil
}

func (e *redisEpisodic) Recent(ctx context.Context, run string, n int) ([]Entry, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := e.client.LRange(ctx, e.key(run), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("memory: corrupt entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e *redisEpisodic) Clear(ctx context.Context, run string) error {
	if err := e.client.Del(ctx, e.key(run)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	return nil
}
