package redisbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"aux_relay/internal/domain"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Publisher mirrors every broadcast to Redis: the latest message is kept
// under <prefix>:latest and each message is published on <prefix>:prices.
type Publisher struct {
	rdb       redis.Cmdable
	keyLatest string
	channel   string
	ttl       time.Duration
	logger    *slog.Logger
}

// New creates a publisher on rdb. ttl <= 0 keeps the latest key forever.
func New(rdb redis.Cmdable, prefix string, ttl time.Duration) *Publisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "aux"
	}
	if ttl < 0 {
		ttl = 0 // go-redis reads -1 as KEEPTTL
	}
	return &Publisher{
		rdb:       rdb,
		keyLatest: prefix + ":latest",
		channel:   prefix + ":prices",
		ttl:       ttl,
		logger:    slog.Default().With("module", "redisbus"),
	}
}

// NewClient opens a client for addr and verifies it with PING
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (p *Publisher) LatestKey() string { return p.keyLatest }
func (p *Publisher) Channel() string   { return p.channel }

// Publish stores and publishes msg in one pipeline
func (p *Publisher) Publish(ctx context.Context, msg domain.BroadcastMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pipe := p.rdb.Pipeline()
	pipe.Set(ctx, p.keyLatest, string(b), p.ttl)
	pipe.Publish(ctx, p.channel, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

// Broadcast implements domain.Broadcaster; failures are logged only.
func (p *Publisher) Broadcast(ctx context.Context, msg domain.BroadcastMessage) {
	if err := p.Publish(ctx, msg); err != nil {
		p.logger.Warn("Redis publish failed", slog.Any("error", err))
	}
}

var _ domain.Broadcaster = (*Publisher)(nil)
