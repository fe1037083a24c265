// Package relay implements the real-time session and broadcast gateway:
// connection lifecycle, presence tracking, message persistence-and-fanout,
// typing relay, and paginated history retrieval.
package relay

import (
	"encoding/json"
	"time"
)

// Inbound event names (client -> gateway).
const (
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventLoadMore    = "loadMoreMessages"
)

// Outbound event names (gateway -> client).
const (
	EventMessageHistory = "messageHistory"
	EventConnectedUsers = "connectedUsers"
	EventNewMessage     = "newMessage"
	EventMoreMessages   = "moreMessages"
	EventMessageError   = "messageError"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventUserTyping     = "userTyping"
)

// Envelope is the wire framing used in both directions: a tagged event
// name plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope renders an outbound frame ready to hand to a transport.
func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// User is the identity attached to a live session: id from the verified
// credential, display attributes from the user directory. Immutable for
// the lifetime of the session.
type User struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

// Message is a persisted chat message. MessageID and CreatedAt are
// assigned by the store before any client ever sees the message.
type Message struct {
	MessageID int       `json:"messageId"`
	User      User      `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type sendPayload struct {
	Content string `json:"content"`
}

type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type loadMorePayload struct {
	Before string `json:"before"`
}

// TypingNotice is relayed to everyone except the author. Never persisted.
type TypingNotice struct {
	User     User `json:"user"`
	IsTyping bool `json:"isTyping"`
}
