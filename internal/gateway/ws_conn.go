package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/vision-relay/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 20
	frameQueueSize = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsConnection struct {
	ws     *websocket.Conn
	id     string
	logger *slog.Logger
	send   chan *transport.Message
	frames chan *transport.Message
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWSConnection(ws *websocket.Conn, id string, logger *slog.Logger) *wsConnection {
	return &wsConnection{
		ws:     ws,
		id:     id,
		logger: logger.With("connection_id", id),
		send:   make(chan *transport.Message, 16),
		frames: make(chan *transport.Message, frameQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *wsConnection) Send(ctx context.Context, msg *transport.Message) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case c.send <- msg:
		return nil
	}
}

func (c *wsConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

// readPump queues analyze_frame messages for the connection's worker.
// Frames arriving while the queue is full are dropped.
func (c *wsConnection) readPump() {
	defer func() {
		c.Close()
		close(c.frames)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		var msg transport.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("failed to unmarshal message", "error", err)
			continue
		}

		if msg.Type != transport.MessageTypeAnalyzeFrame {
			c.logger.Debug("ignoring message", "type", msg.Type)
			continue
		}

		select {
		case c.frames <- &msg:
		default:
			c.logger.Warn("frame queue full, dropping frame", "timestamp", msg.Timestamp)
		}
	}
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("failed to marshal message", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
