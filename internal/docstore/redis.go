package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-rubrics/internal/logger"
)

// RedisNotifier publishes changes on a redis channel so that every process
// sharing the database sees them. Received changes are dispatched to a local
// Hub; Publish does not deliver locally, the forwarder does.
type RedisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	hub     *Hub
}

func NewRedisNotifier(ctx context.Context, log *logger.Logger, addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "docstore"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisNotifier(log, rdb, channel), nil
}

func newRedisNotifier(log *logger.Logger, rdb *goredis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: channel,
		hub:     NewHub(),
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, c Change) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

func (n *RedisNotifier) Watch(match func(Change) bool) (<-chan struct{}, func()) {
	return n.hub.Watch(match)
}

// Start subscribes to the channel and forwards changes until ctx is done.
func (n *RedisNotifier) Start(ctx context.Context) error {
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					n.log.Warn("bad change payload", "error", err)
					continue
				}
				n.hub.Dispatch(c)
			}
		}
	}()
	return nil
}

func (n *RedisNotifier) Close() error { return n.rdb.Close() }
