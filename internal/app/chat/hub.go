/*
Package chat contains the real-time side of the chat: the session registry that binds a
verified username to its one live connection, the broadcast of chat lines to every bound
connection, and the WebSocket client that carries them.

This file defines the Hub, the single process-wide registry. Everything that needs to reach
a live connection (broadcast, moderation) goes through its methods; the underlying map is
never exposed.
*/
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
	"chatyni/internal/pkg/randx"
)

const (
	// MaxContentBytes is the maximum allowed size (in bytes) of a chat line.
	MaxContentBytes = 5000

	// WsCloseCodeBanned is the custom WebSocket close code sent when a session is
	// terminated because its user was banned.
	WsCloseCodeBanned = 4003

	// maxCloseReasonBytes keeps close frames within the 125-byte control frame limit.
	maxCloseReasonBytes = 120
)

// ErrBanned matches the error returned by Register when the user is under an active ban.
var ErrBanned = errors.New("user is banned")

// BannedError carries the reason of the ban that refused a registration.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string { return ErrBanned.Error() + ": " + e.Reason }

func (e *BannedError) Is(target error) bool { return target == ErrBanned }

// Conn is a live connection handle as seen by the registry.
//
// Send and SendFrame must not block. Terminate discards anything still queued, delivers
// final as the last data frame, and then closes with code and reason, so final cannot be
// lost to a full queue. Close and Terminate must be safe to call more than once.
type Conn interface {
	Send(evt Event) error
	SendFrame(frame []byte) error
	Close(code int, reason string)
	Terminate(final Event, code int, reason string)
}

// Hub maps each username to at most one live connection.
type Hub struct {
	// sessions holds the single registered connection per username.
	sessions map[string]Conn

	// users resolves avatars for broadcasts and ban state for admission.
	users user.Repository

	// mu protects sessions. Kick holds it from lookup through removal.
	mu sync.RWMutex

	now    func() time.Time
	logger zerolog.Logger
}

// NewHub constructs the registry. It is created once per process.
func NewHub(users user.Repository) *Hub {
	return &Hub{
		sessions: make(map[string]Conn),
		users:    users,
		now:      time.Now,
		logger:   logx.Component("Hub"),
	}
}

// Register binds conn to username, replacing any previous binding. The superseded
// connection is left open; it simply stops being reachable through the registry.
//
// Admission re-reads the user's ban state while the registry lock is held. A ban commits
// its state before calling Kick, so either this call sees the ban and refuses, or it
// registers first and the ban's Kick finds and terminates the connection.
func (h *Hub) Register(username string, conn Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, err := h.users.GetByUsername(context.Background(), username)
	if err != nil {
		return fmt.Errorf("admit %q: %w", username, err)
	}
	if u.IsBanned(h.now()) {
		return &BannedError{Reason: u.BanDetails.Reason}
	}

	if _, replaced := h.sessions[username]; replaced {
		h.logger.Info().Str("username", username).Msg("Session replaced by a newer connection.")
	}

	h.sessions[username] = conn
	h.logger.Info().
		Str("username", username).
		Int("total_sessions", len(h.sessions)).
		Msg("Session registered.")

	return nil
}

// Lookup returns the connection currently registered for username.
func (h *Hub) Lookup(username string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.sessions[username]
	return conn, ok
}

// Unregister removes the entry for username only if it still points at conn, so a late
// disconnect of an old connection never evicts a newer one. It reports whether an entry
// was removed.
func (h *Hub) Unregister(username string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.sessions[username]
	if !ok {
		return false
	}

	if current != conn {
		h.logger.Info().Str("username", username).Msg("Ignoring unregister for STALE connection.")
		return false
	}

	delete(h.sessions, username)
	h.logger.Info().
		Str("username", username).
		Int("total_sessions", len(h.sessions)).
		Msg("Session unregistered.")

	return true
}

// Kick pushes a banned notice to the live connection of username, closes it, and removes
// the entry, all under one lock. It reports whether a live connection was found.
func (h *Hub) Kick(username, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.sessions[username]
	if !ok {
		return false
	}

	notice := Event{Type: TypeBanned, Payload: BannedPayload{Reason: reason}}
	conn.Terminate(notice, WsCloseCodeBanned, truncate(reason, maxCloseReasonBytes))
	delete(h.sessions, username)

	logx.ForUser(h.logger, username).Warn().
		Str("reason", reason).
		Msg("Banned user's live session terminated.")

	return true
}

// Publish broadcasts text from the connection conn, which claims to belong to username.
// Nothing is sent unless conn is the connection registered for username. The message is
// encoded once and the same frame is queued for every recipient. It returns the number of
// connections the message was queued for.
func (h *Hub) Publish(username string, conn Conn, text string) int {
	if username == "" || conn == nil {
		return 0
	}

	if strings.TrimSpace(text) == "" {
		return 0
	}

	if len(text) > MaxContentBytes {
		customErr := errs.NewError(errs.ErrMessageContentTooLong)
		_ = conn.Send(Event{Type: TypeError, Payload: ErrorPayload{Code: customErr.Code, Message: customErr.Message}})
		return 0
	}

	sender, err := h.users.GetByUsername(context.Background(), username)
	if err != nil {
		h.logger.Debug().Err(err).Str("username", username).Msg("Dropping message from an unknown sender.")
		return 0
	}

	frame, err := encodeEvent(Event{
		Type: TypeNewMessage,
		Payload: ChatMessage{
			ID:        randx.MessageID(),
			Username:  sender.Username,
			AvatarURL: sender.AvatarURL,
			Text:      text,
			Timestamp: h.now().UTC(),
		},
	})
	if err != nil {
		h.logger.Error().Err(err).Str("username", username).Msg("Failed to encode broadcast.")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, ok := h.sessions[username]; !ok || current != conn {
		h.logger.Debug().Str("username", username).Msg("Dropping message from a connection without a bound session.")
		return 0
	}

	delivered := 0
	for recipient, c := range h.sessions {
		if err := c.SendFrame(frame); err != nil {
			h.logger.Warn().Err(err).Str("recipient", recipient).Msg("Dropping broadcast for recipient.")
			continue
		}
		delivered++
	}

	return delivered
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Usernames returns the registered usernames in sorted order.
func (h *Hub) Usernames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.sessions))
	for name := range h.sessions {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Shutdown closes every registered connection with a going-away frame and empties the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info().Int("total_sessions", len(h.sessions)).Msg("Shutting down Hub...")

	for username, conn := range h.sessions {
		conn.Close(websocket.CloseGoingAway, "Server shutting down.")
		delete(h.sessions, username)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	// Cut on a rune boundary.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
