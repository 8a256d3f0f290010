package protocol

import (
	"errors"
	"testing"
)

func TestParseDataMessageUserMessage(t *testing.T) {
	msg, err := ParseDataMessage([]byte(`{"type":"user_message","content":"hello"}`))
	if err != nil {
		t.Fatalf("ParseDataMessage() error = %v", err)
	}
	if !msg.IsUserMessage() {
		t.Fatalf("IsUserMessage() = false, want true")
	}
	if msg.Content != "hello" {
		t.Fatalf("Content = %q, want %q", msg.Content, "hello")
	}
}

func TestParseDataMessageDefaultsContent(t *testing.T) {
	msg, err := ParseDataMessage([]byte(`{"type":"user_message"}`))
	if err != nil {
		t.Fatalf("ParseDataMessage() error = %v", err)
	}
	if msg.Content != "" {
		t.Fatalf("Content = %q, want empty", msg.Content)
	}
}

func TestParseDataMessageUnknownTypeIsAccepted(t *testing.T) {
	msg, err := ParseDataMessage([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("ParseDataMessage() error = %v", err)
	}
	if msg.IsUserMessage() {
		t.Fatalf("ping should not be a user message")
	}
}

func TestParseDataMessageRejectsInvalidUTF8(t *testing.T) {
	_, err := ParseDataMessage([]byte{0xff, 0xfe, 0xfd})
	if !errors.Is(err, ErrNotUTF8) {
		t.Fatalf("error = %v, want ErrNotUTF8", err)
	}
}

func TestParseDataMessageRejectsBadJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "truncated json", raw: `{"type":"user_message"`},
		{name: "not an object", raw: `42`},
		{name: "missing type", raw: `{"content":"hi"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDataMessage([]byte(tc.raw)); !errors.Is(err, ErrBadPayload) {
				t.Fatalf("error = %v, want ErrBadPayload", err)
			}
		})
	}
}
