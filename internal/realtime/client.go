package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/vision-relay/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	MessageConnectionError = "WebSocket connection error"
	MessageReconnectFailed = "Failed to reconnect after multiple attempts"
)

var ErrNotConnected = errors.New("websocket not connected")

// Client keeps a websocket to the analysis server open, reconnecting after
// unexpected drops with a linearly growing delay.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
	after  func(time.Duration, func()) *time.Timer
	now    func() time.Time

	mu       sync.Mutex
	conn     *websocket.Conn
	attempts int
	manual   bool
	timer    *time.Timer

	writeMu sync.Mutex
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
		logger: cfg.Logger.With("component", "realtime-client"),
		after:  time.AfterFunc,
		now:    time.Now,
	}
}

// Connect dials the server. A failed dial is reported through OnError and
// retried on the reconnect schedule.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.manual = false
	c.mu.Unlock()

	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.logger.Error("websocket dial failed", "url", c.cfg.URL, "error", err)
		c.cfg.OnError(MessageConnectionError)
		c.scheduleReconnect()
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("websocket connected", "url", c.cfg.URL)
	c.cfg.OnConnectionChange(true)

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, err)
			return
		}

		var msg transport.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("failed to parse websocket message", "error", err)
			continue
		}

		switch msg.Type {
		case transport.MessageTypeAnalysisResult:
			if msg.Result == nil {
				c.logger.Warn("analysis result without payload")
				continue
			}
			c.cfg.OnResult(*msg.Result)
		case transport.MessageTypeError:
			c.cfg.OnError(msg.Error)
		default:
			c.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (c *Client) handleClose(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	manual := c.manual
	c.mu.Unlock()

	conn.Close()
	c.logger.Info("websocket disconnected", "error", err)
	c.cfg.OnConnectionChange(false)

	if !manual {
		c.scheduleReconnect()
	}
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.mu.Unlock()
		c.logger.Error("giving up reconnecting", "attempts", c.cfg.MaxAttempts)
		c.cfg.OnError(MessageReconnectFailed)
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := time.Duration(attempt) * c.cfg.BaseDelay
	c.timer = c.after(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		_ = c.dial(ctx)
	})
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled", "attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "delay", delay)
}

// Disconnect closes the socket and cancels any pending reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		c.now().Add(writeWait))
	c.writeMu.Unlock()
	conn.Close()
}

// SendFrame sends one analyze_frame message. Frames are not queued while the
// socket is down.
func (c *Client) SendFrame(frame string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.Warn("websocket not connected, cannot send frame")
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(c.now().Add(writeWait))
	if err := conn.WriteJSON(transport.NewAnalyzeFrame(frame, c.now().UnixMilli())); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
