package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/utils"
)

// DefaultStreamMaxLen caps the snapshot event stream.
const DefaultStreamMaxLen = 10000

// Options locates the Redis deployment used for snapshot events.
type Options struct {
	Addr         string
	Password     string
	DB           int
	StreamMaxLen int64 // 0 = unlimited
}

// OptionsFromEnv reads REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB and REDIS_STREAM_MAXLEN.
func OptionsFromEnv() Options {
	return Options{
		Addr:         fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379")),
		Password:     utils.Env("REDIS_PASSWORD", ""),
		DB:           utils.EnvInt("REDIS_DB", 0),
		StreamMaxLen: int64(utils.EnvInt("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen)),
	}
}

// Client publishes snapshot events over Pub/Sub and keeps their history in a stream.
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// NewClient connects with opts and pings the server once.
func NewClient(ctx context.Context, logger *zap.Logger, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int64("streamMaxLen", opts.StreamMaxLen))

	return &Client{client: rdb, logger: logger, streamMaxLen: opts.StreamMaxLen}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Publish sends message on channel. Errors are logged only; a lost event never fails a snapshot.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// Subscribe opens a subscription; the caller closes it.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.client.Subscribe(ctx, channels...)
}

// XAdd appends values to stream with an approximate MAXLEN cap and returns the entry id,
// or "" after logging a failure.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) string {
	args := &redis.XAddArgs{Stream: stream, Values: values}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}

	id, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		c.logger.Warn("Failed to add to Redis stream",
			zap.String("stream", stream),
			zap.Error(err))
		return ""
	}
	return id
}

// XRevRange returns up to count stream entries, newest first.
func (c *Client) XRevRange(ctx context.Context, stream string, count int64) ([]redis.XMessage, error) {
	return c.client.XRevRangeN(ctx, stream, "+", "-", count).Result()
}

func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
