package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// time allowed for resolving the handshake token.
	verifyTimeout = 5 * time.Second

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// ErrConnClosed is returned by Send once the connection has been closed.
var ErrConnClosed = errors.New("connection closed")

// ErrSendQueueFull is returned by Send when the outbound queue cannot take another frame.
var ErrSendQueueFull = errors.New("client send queue full")

// TokenVerifier resolves a handshake token to the current user record.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*user.User, *errs.CustomError)
}

// Client is one WebSocket connection. It starts anonymous and becomes bound to a username
// after a successful auth frame.
type Client struct {
	hub      *Hub
	verifier TokenVerifier
	conn     *websocket.Conn

	// username is set by the read loop after the handshake and read only by it.
	username string

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// mu guards closed and the close frame against concurrent Send, Close, and Terminate.
	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string

	logger zerolog.Logger
}

// NewClient constructs an anonymous Client over wsConn.
func NewClient(hub *Hub, verifier TokenVerifier, wsConn *websocket.Conn) *Client {
	return &Client{
		hub:      hub,
		verifier: verifier,
		conn:     wsConn,
		send:     make(chan []byte, sendQueueSize),
		logger:   logx.Component("Client", "remote_addr", wsConn.RemoteAddr().String()),
	}
}

// Send queues evt for delivery without blocking.
func (c *Client) Send(evt Event) error {
	frame, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return c.SendFrame(frame)
}

// SendFrame queues an already encoded frame without blocking. The frame may be shared
// with other clients and is never modified.
func (c *Client) SendFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrSendQueueFull
	}
}

// Close stops accepting frames. WritePump drains what is already queued, writes a close
// frame carrying code and reason, and then closes the socket.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closeLocked(code, reason)
}

// Terminate drops the frames still waiting in the queue, queues final in their place, and
// closes with code and reason. The peer receives final right before the close frame even
// when the queue was full.
func (c *Client) Terminate(final Event, code int, reason string) {
	frame, err := encodeEvent(final)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode final frame")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	dropped := 0
	for drained := false; !drained; {
		select {
		case <-c.send:
			dropped++
		default:
			drained = true
		}
	}
	if dropped > 0 {
		c.logger.Debug().Int("dropped", dropped).Msg("Discarded pending frames before termination")
	}

	// Only WritePump receives and every sender holds mu, so the emptied queue has room.
	if frame != nil {
		c.send <- frame
	}

	c.closeLocked(code, reason)
}

func (c *Client) closeLocked(code int, reason string) {
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// SendError queues a TypeError frame describing err.
func (c *Client) SendError(err error) {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown, err)
	}

	payload := ErrorPayload{Code: customErr.Code, Message: customErr.Message}
	if sendErr := c.Send(Event{Type: TypeError, Payload: payload}); sendErr != nil {
		c.logger.Debug().Err(sendErr).Msg("Failed to queue error message")
	}
}

// ReadPump reads frames until the connection fails or is closed, then releases the
// registry entry held by this connection.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect removes this connection from the registry (only if it is still the
// registered one) and closes it.
func (c *Client) cleanupOnDisconnect() {
	if c.username != "" {
		c.hub.Unregister(c.username, c)
	}

	c.Close(websocket.CloseNormalClosure, "")
	c.logger.Info().Str("username", c.username).Msg("Client connection cleaned up.")
}

func (c *Client) processInboundFrame(frame []byte) {
	var inbound inboundEvent
	if err := json.Unmarshal(frame, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch inbound.Type {
	case TypeAuth:
		c.handleAuth(inbound.Payload)

	case TypeSendMessage:
		c.handleSendMessage(inbound.Payload)

	default:
		c.logger.Warn().Str("msg_type", string(inbound.Type)).Msg("Client sent unsupported message type")
	}
}

// handleAuth binds the connection to the user behind the handshake token. A failed token
// leaves the connection open and anonymous; a banned user is told why and disconnected.
func (c *Client) handleAuth(raw json.RawMessage) {
	if c.username != "" {
		c.logger.Warn().Str("username", c.username).Msg("Ignoring repeated auth frame.")
		return
	}

	var payload AuthPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Token == "" {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	u, customErr := c.verifier.Verify(ctx, payload.Token)
	if customErr != nil {
		c.logger.Warn().Int("code", customErr.Code).Msg("WebSocket handshake rejected.")
		c.SendError(customErr)
		return
	}

	if err := c.hub.Register(u.Username, c); err != nil {
		var bannedErr *BannedError
		if errors.As(err, &bannedErr) {
			reason := bannedErr.Reason
			c.Terminate(Event{Type: TypeBanned, Payload: BannedPayload{Reason: reason}}, WsCloseCodeBanned, truncate(reason, maxCloseReasonBytes))
			c.logger.Warn().Str("username", u.Username).Msg("Banned user refused at handshake.")
			return
		}

		c.logger.Error().Err(err).Str("username", u.Username).Msg("Failed to register session.")
		c.SendError(errs.NewError(errs.ErrUnknown, err))
		return
	}

	c.username = u.Username

	ready := ReadyPayload{Username: u.Username, Online: c.hub.Usernames()}
	if err := c.Send(Event{Type: TypeReady, Payload: ready}); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to queue ready message.")
	}
}

func (c *Client) handleSendMessage(raw json.RawMessage) {
	if c.username == "" {
		c.SendError(errs.NewError(errs.ErrNotInSession))
		return
	}

	var payload SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid sendMessage payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	c.hub.Publish(c.username, c, payload.Text)
}

// WritePump writes queued frames to the socket and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame, or the close frame once the queue is closed.
// Returns true if the WritePump loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		c.mu.Lock()
		code, reason := c.closeCode, c.closeReason
		c.mu.Unlock()

		closeMessage := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping to maintain the connection heartbeat.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
