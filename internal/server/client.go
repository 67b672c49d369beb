package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one authenticated WebSocket connection. A user may hold several.
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	id          string
	user        domain.UserID
	addr        string
	closed      bool
	rateLimiter *rateLimiter
	log         *slog.Logger
}

var _ chat.Conn = (*Client)(nil)

// NewClient creates a Client for an upgraded connection owned by user.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, user domain.UserID) *Client {
	opts := hub.opts
	if conn != nil {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		conn:        conn,
		send:        make(chan []byte, opts.SendBufferSize),
		hub:         hub,
		id:          id,
		user:        user,
		addr:        addr,
		rateLimiter: newRateLimiter(opts.RateLimit.Burst, opts.RateLimit.RefillInterval),
		log:         hub.log.With("conn", id, "user", user, "addr", addr),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() domain.UserID { return c.user }

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure at a level matching how expected it was.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.hub.opts.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected WebSocket close", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		rl := c.hub.opts.RateLimit
		c.log.Warn("rate limit exceeded; discarding frame", "burst", rl.Burst, "interval", rl.RefillInterval)
		return false
	}
	return true
}

// readPump dispatches frames in arrival order. When it returns the client is
// gone from the hub and the core has been told.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c, "disconnected")
		c.hub.dispatcher.Disconnected(c.hub.ctx, c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()
	c.hub.dispatcher.Connected(c.hub.ctx, c)

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.hub.dispatcher.Dispatch(c.hub.ctx, c, rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing connection in writePump", "error", err)
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error writing close message", "error", err)
	}
	return false
}

// writeTextMessage writes message and whatever is already queued behind it
// as one newline separated text frame.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warn("error creating writer", "error", err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		c.log.Warn("error writing message", "error", err)
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	if err := w.Close(); err != nil {
		c.log.Warn("error closing writer", "error", err)
		return false
	}
	return true
}

func (c *Client) writeQueuedMessages(w io.Writer) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		queued, ok := <-c.send
		if !ok {
			return true
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.log.Warn("error writing newline", "error", err)
			return false
		}
		if _, err := w.Write(queued); err != nil {
			c.log.Warn("error writing queued message", "error", err)
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping message", "error", err)
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
