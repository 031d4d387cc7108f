// Package broker publishes normalized events to the shared message channel.
// Construction follows the REDIS_URL parsing idiom used by renproject-lightnode's
// initRedis, and the publish path wraps the actual network call in the retry
// engine the way the native host's SolanaRetryManager wraps transaction
// submission.
package broker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	wErrors "github.com/algonius/chain-watcher/pkg/errors"
	"github.com/algonius/chain-watcher/pkg/event"
	"github.com/algonius/chain-watcher/pkg/retry"
)

// Topic is the single channel every normalized event is published onto.
const Topic = "cross_chain_events"

const (
	publishAttempts = 8
	publishBase     = 500 * time.Millisecond
	publishFactor   = 2.0
)

// Publisher publishes events to Redis pub/sub, retrying the underlying
// PUBLISH call per the bounded exponential backoff budget in spec §4.2.
type Publisher struct {
	opts   *redis.Options
	logger *zap.Logger
}

// New parses redisURL (e.g. "redis://[:password@]host:port/db") into the
// client options used to dial a fresh connection on every publish attempt.
func New(redisURL string, logger *zap.Logger) (*Publisher, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, wErrors.ConfigError("REDIS_URL", "must be a valid redis:// URL").WithDetails(err.Error())
	}
	return &Publisher{opts: opts, logger: logger}, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	opts := &redis.Options{
		Addr:     u.Host,
		Password: password,
		DB:       parseRedisDB(u.Path),
	}
	return opts, nil
}

// parseRedisDB reads the DB index out of a redis:// URL's path component
// (e.g. "/2" -> 2); an absent or non-numeric path falls back to DB 0.
func parseRedisDB(path string) int {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return 0
	}
	db, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0
	}
	return db
}

// Publish serializes e to its canonical JSON form and publishes it on Topic,
// acquiring a fresh Redis connection on every retry attempt (no connection is
// reused across attempts). On exhausted retries it returns an error; the
// caller logs it and continues without re-enqueueing, per spec §4.2's
// failure model.
func (p *Publisher) Publish(ctx context.Context, e *event.Event) error {
	payload, err := e.MarshalCanonical()
	if err != nil {
		return wErrors.InternalError("marshal event", err)
	}

	_, err = retry.Do(ctx, publishAttempts, publishBase, publishFactor, func(ctx context.Context) (struct{}, error) {
		client := redis.NewClient(p.opts)
		defer client.Close()
		return struct{}{}, client.Publish(ctx, Topic, payload).Err()
	})
	if err != nil {
		return wErrors.PublishError(Topic, err)
	}
	return nil
}

// String renders the publisher's target for logging without leaking the
// password component of the connection URL.
func (p *Publisher) String() string {
	return fmt.Sprintf("redis://%s/%d", p.opts.Addr, p.opts.DB)
}
