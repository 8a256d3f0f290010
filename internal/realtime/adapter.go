// Package realtime wraps the conversational speech backend behind a uniform
// reply-generation operation. The OpenAI adapter speaks the Realtime API over
// a websocket; the mock adapter answers locally for runs without credentials.
package realtime

import (
	"context"
	"fmt"
)

// TranscriptionConfig primes the backend's speech-to-text stage.
type TranscriptionConfig struct {
	Model    string
	Language string
	Prompt   string
}

// TurnDetectionConfig is passed through to the backend verbatim; the
// orchestrator never interprets these knobs.
type TurnDetectionConfig struct {
	Mode              string
	Eagerness         string
	CreateResponse    bool
	InterruptResponse bool
}

// Config fixes the adapter's behavior at construction time.
type Config struct {
	Model         string
	Voice         string
	Instructions  string
	Temperature   float64
	Transcription TranscriptionConfig
	TurnDetection TurnDetectionConfig
}

// Adapter drives one conversational backend session.
//
// GenerateReply is single-flight per call: the orchestrator never pipelines
// concurrent replies, and implementations serialize internally regardless.
// A non-empty instructions argument overrides the session's ambient
// instructions for that one reply.
type Adapter interface {
	GenerateReply(ctx context.Context, instructions string) error

	// UpdateInstructions replaces the session's ambient instructions, the
	// ones a bare GenerateReply(ctx, "") falls back on.
	UpdateInstructions(ctx context.Context, instructions string) error

	Close() error
}

// ReplyError is the backend's rejection of one reply request. It is non-fatal
// to the session; callers handle it per message.
type ReplyError struct {
	Code    string
	Message string
}

func (e *ReplyError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("reply rejected: %s", e.Message)
	}
	return fmt.Sprintf("reply rejected (%s): %s", e.Code, e.Message)
}
