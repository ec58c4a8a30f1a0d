package controller

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/redis"
	"github.com/cardinal-cryptography/electionsx/pkg/retry"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// streamedEvents are the change notifications relayed to websocket clients.
var streamedEvents = []string{
	redis.BanConfigChanged,
	redis.CommitteeSeatsChanged,
	redis.EraValidatorsChanged,
}

// resubscribeBackoff paces reconnects after Redis drops the subscription.
var resubscribeBackoff = retry.Config{
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	Multiplier:    2.0,
	JitterEnabled: true,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServerMessage is a frame sent to websocket clients.
type ServerMessage struct {
	// Type is an event type such as "ban-config.changed", or "info"/"error" for stream state.
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// HandleWebSocket upgrades the connection and streams change events published by the
// admin and monitor services until the client goes away.
//
// Server sends:
// - {"type": "ban-config.changed", "payload": {"type": ..., "at": ..., "data": {...}}}
// - {"type": "committee-seats.changed", "payload": {...}}
// - {"type": "era-validators.changed", "payload": {...}}
// - {"type": "info", "payload": {"message": "..."}}
// - {"type": "error", "payload": {"message": "...", "recoverable": true}}
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		http.Error(w, "Change stream not available (Redis disabled)", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.App.Logger.Debug("Failed to close WebSocket connection", zap.Error(err))
		}
	}()

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// unblock the reader once any goroutine gives up
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	send := make(chan ServerMessage, 256)
	var wg sync.WaitGroup

	c.spawn(&wg, cancel, "redis relay", func() { c.relayEvents(ctx, send) })
	c.spawn(&wg, cancel, "ping ticker", func() { c.sendPings(ctx, conn) })

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeMessages(ctx, conn, send)
		cancel()
	}()

	// blocks until the client disconnects
	c.readClientMessages(ctx, conn, cancel)

	wg.Wait()
	close(send)
	<-writerDone

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// spawn runs fn with panic recovery; a panic tears the connection down.
func (c *Controller) spawn(wg *sync.WaitGroup, cancel context.CancelFunc, name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in websocket goroutine",
					zap.String("goroutine", name),
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())))
				cancel()
			}
		}()
		fn()
	}()
}

// relayEvents keeps a Redis subscription open and forwards its messages to send,
// resubscribing with backoff when Redis drops it.
func (c *Controller) relayEvents(ctx context.Context, send chan<- ServerMessage) {
	for attempt := 1; ; attempt++ {
		messages, closeSub, err := c.App.RedisClient.Stream(ctx, streamedEvents...)
		if err == nil {
			if !c.push(ctx, send, ServerMessage{Type: "info", Payload: map[string]any{"message": "change stream established"}}) {
				_ = closeSub()
				return
			}
			attempt = 0
			c.forwardMessages(ctx, messages, send)
			_ = closeSub()
		}
		if ctx.Err() != nil {
			return
		}

		delay := retry.Backoff(resubscribeBackoff, attempt)
		c.App.Logger.Warn("Redis subscription lost, will retry",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))
		if !c.push(ctx, send, ServerMessage{Type: "error", Payload: map[string]any{
			"message":     "change stream interrupted, reconnecting",
			"retryIn":     delay.Seconds(),
			"recoverable": true,
		}}) {
			return
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// forwardMessages relays messages until the channel closes or ctx is done.
func (c *Controller) forwardMessages(ctx context.Context, messages <-chan *goredis.Message, send chan<- ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			eventType := strings.TrimPrefix(msg.Channel, redis.ChannelPrefix)

			var payload map[string]any
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				c.App.Logger.Warn("Dropping malformed change event",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			if !c.push(ctx, send, ServerMessage{Type: eventType, Payload: payload}) {
				return
			}
		}
	}
}

func (c *Controller) push(ctx context.Context, send chan<- ServerMessage, msg ServerMessage) bool {
	select {
	case send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendPings keeps the connection alive; the client's pongs extend the read deadline.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// writeMessages is the only writer of data frames on conn.
func (c *Controller) writeMessages(ctx context.Context, conn *websocket.Conn, send <-chan ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				c.App.Logger.Debug("Failed to write WebSocket message", zap.Error(err))
				return
			}
		}
	}
}

// readClientMessages discards client frames and returns when the connection closes.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for ctx.Err() == nil {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.App.Logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}
