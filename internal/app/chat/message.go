package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a frame exchanged over the real-time channel.
type EventType string

const (
	// TypeAuth is the client handshake frame carrying the bearer token.
	TypeAuth EventType = "auth"

	// TypeSendMessage is a chat line sent by the client.
	TypeSendMessage EventType = "sendMessage"

	// TypeReady confirms that the handshake bound the connection to a user.
	TypeReady EventType = "ready"

	// TypeNewMessage is a chat line broadcast to every registered connection.
	TypeNewMessage EventType = "newMessage"

	// TypeBanned is sent to a single connection right before it is closed for a ban.
	TypeBanned EventType = "banned"

	// TypeError reports a rejected client action to the sender only.
	TypeError EventType = "error"
)

// Event is the JSON frame written to clients.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// encodeEvent renders evt as the text frame written to clients.
func encodeEvent(evt Event) ([]byte, error) {
	frame, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}
	return frame, nil
}

// inboundEvent is the JSON frame read from clients.
type inboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthPayload is the body of a TypeAuth frame.
type AuthPayload struct {
	Token string `json:"token"`
}

// SendMessagePayload is the body of a TypeSendMessage frame.
type SendMessagePayload struct {
	Text string `json:"text"`
}

// ChatMessage is the body of a TypeNewMessage frame.
type ChatMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// BannedPayload is the body of a TypeBanned frame.
type BannedPayload struct {
	Reason string `json:"reason"`
}

// ReadyPayload is the body of a TypeReady frame.
type ReadyPayload struct {
	Username string   `json:"username"`
	Online   []string `json:"online"`
}

// ErrorPayload is the body of a TypeError frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
