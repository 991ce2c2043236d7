package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the stream publisher.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Stream is the stream key interactions are appended to.
	// Defaults to "talon:interactions".
	Stream string

	// MaxLen trims the stream approximately to this many entries.
	// Zero keeps the stream unbounded.
	MaxLen int64

	// ConnectTimeout is the maximum time to wait for the initial ping.
	ConnectTimeout time.Duration
}

// RedisPublisher appends each interaction to a Redis stream so external
// tooling can follow a run live with XREAD.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64

	mu     sync.Mutex
	closed bool
}

// NewRedisPublisher connects and verifies the connection with a ping.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Stream == "" {
		opts.Stream = "talon:interactions"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("record: parse redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("record: connect to redis: %w", err)
	}

	return &RedisPublisher{client: client, stream: opts.Stream, maxLen: opts.MaxLen}, nil
}

// Record appends entry to the stream. The full entry travels as a JSON
// payload; run, agent and interaction are duplicated as plain fields so
// consumers can filter without decoding.
func (p *RedisPublisher) Record(ctx context.Context, entry Entry) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("record: encode entry: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]any{
			"run":         entry.Run,
			"agent":       entry.Agent,
			"interaction": strconv.Itoa(entry.Interaction),
			"payload":     string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("record: publish to %s: %w", p.stream, err)
	}
	return nil
}

// Close closes the connection. Safe to call more than once.
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}
