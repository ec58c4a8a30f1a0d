package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

// ChannelPrefix namespaces every channel electionsx publishes to.
const ChannelPrefix = "electionsx:"

// Event types.
const (
	BanConfigChanged      = "ban-config.changed"
	CommitteeSeatsChanged = "committee-seats.changed"
	EraValidatorsChanged  = "era-validators.changed"
)

// Channel returns the Pub/Sub channel events of the given type go to.
func Channel(eventType string) string {
	return ChannelPrefix + eventType
}

// Event is a change notification. Data holds the new value.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Publisher delivers change events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

// Conn is the part of Client the apps depend on.
type Conn interface {
	Publisher
	Stream(ctx context.Context, eventTypes ...string) (<-chan *redis.Message, func() error, error)
	Health(ctx context.Context) error
	Close() error
}

var _ Conn = (*Client)(nil)

// Client wraps the Redis client for change notifications over Pub/Sub.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379"))
	db := utils.EnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       db,

		PoolSize:     4,
		MinIdleConns: 1,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))

	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish sends ev as JSON to its channel. Errors are logged, not returned, so a
// Redis outage never fails the operation that produced the event.
func (c *Client) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("Failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	channel := Channel(ev.Type)
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message", zap.String("channel", channel), zap.Error(err))
		return
	}
	c.logger.Debug("Published event", zap.String("channel", channel))
}

// Subscribe subscribes to the channels of the given event types.
// The caller is responsible for closing the PubSub object when done.
func (c *Client) Subscribe(ctx context.Context, eventTypes ...string) *redis.PubSub {
	channels := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		channels[i] = Channel(t)
	}
	return c.client.Subscribe(ctx, channels...)
}

// Stream subscribes to the given event types and waits for Redis to confirm the
// subscription. The returned func releases it; the channel closes after that.
func (c *Client) Stream(ctx context.Context, eventTypes ...string) (<-chan *redis.Message, func() error, error) {
	pubsub := c.Subscribe(ctx, eventTypes...)

	confirmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to confirm Redis subscription: %w", err)
	}
	return pubsub.Channel(), pubsub.Close, nil
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
