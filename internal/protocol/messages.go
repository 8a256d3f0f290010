package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// MessageType identifies data-channel payload variants.
type MessageType string

const (
	// TypeUserMessage carries a text instruction for the avatar to speak to.
	TypeUserMessage MessageType = "user_message"
)

var (
	ErrNotUTF8    = errors.New("payload is not valid UTF-8")
	ErrBadPayload = errors.New("payload is not a data message")
)

// DataMessage is the structured payload expected on the room data channel.
// Unknown Type values parse successfully; callers treat them as no-ops so new
// client message kinds never break older agents.
type DataMessage struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`
}

// IsUserMessage reports whether the message should trigger a spoken reply.
func (m DataMessage) IsUserMessage() bool {
	return m.Type == TypeUserMessage
}

// ParseDataMessage decodes a raw data-channel packet. The payload must be
// UTF-8 JSON with a string discriminator field "type".
func ParseDataMessage(raw []byte) (DataMessage, error) {
	if !utf8.Valid(raw) {
		return DataMessage{}, ErrNotUTF8
	}

	var msg DataMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return DataMessage{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if msg.Type == "" {
		return DataMessage{}, fmt.Errorf("%w: missing type", ErrBadPayload)
	}
	return msg, nil
}
