package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

var _ Adapter = (*OpenAIAdapter)(nil)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	defaultModel   = "gpt-4o-realtime-preview-2024-12-17"
)

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*dialSettings)

type dialSettings struct {
	baseURL string
}

// WithBaseURL overrides the Realtime endpoint. Used by tests to point at a
// local mock server.
func WithBaseURL(url string) OpenAIOption {
	return func(s *dialSettings) { s.baseURL = url }
}

// OpenAIAdapter implements Adapter over OpenAI's Realtime API websocket.
type OpenAIAdapter struct {
	conn *websocket.Conn
	cfg  Config

	// replyMu serializes GenerateReply calls end to end so that a pending
	// waiter is never clobbered by a second in-flight reply.
	replyMu sync.Mutex

	mu      sync.Mutex
	pending chan error
	closed  bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// ── Protocol message types ─────────────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities              []string             `json:"modalities,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Temperature             float64              `json:"temperature,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *transcriptionParams `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetectionParams `json:"turn_detection,omitempty"`
}

type transcriptionParams struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

type turnDetectionParams struct {
	Type              string `json:"type"`
	Eagerness         string `json:"eagerness,omitempty"`
	CreateResponse    bool   `json:"create_response"`
	InterruptResponse bool   `json:"interrupt_response"`
}

type responseCreateMessage struct {
	Type     string          `json:"type"`
	Response *responseParams `json:"response,omitempty"`
}

type responseParams struct {
	Instructions string `json:"instructions,omitempty"`
}

type serverErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type serverEvent struct {
	Type  string             `json:"type"`
	Error *serverErrorDetail `json:"error,omitempty"`
}

// NewOpenAIAdapter dials the Realtime endpoint and configures the session
// from cfg. The returned adapter is ready for GenerateReply immediately.
func NewOpenAIAdapter(ctx context.Context, apiKey string, cfg Config, opts ...OpenAIOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	settings := dialSettings{baseURL: defaultBaseURL}
	for _, o := range opts {
		o(&settings)
	}

	wsURL := fmt.Sprintf("%s?model=%s", settings.baseURL, cfg.Model)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: dial: %w", err)
	}

	adapterCtx, cancel := context.WithCancel(context.Background())
	a := &OpenAIAdapter{
		conn:   conn,
		cfg:    cfg,
		ctx:    adapterCtx,
		cancel: cancel,
	}

	if err := a.sendSessionUpdate(cfg.Instructions); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		return nil, fmt.Errorf("openai: session update: %w", err)
	}

	go a.receiveLoop()
	return a, nil
}

func (a *OpenAIAdapter) sendSessionUpdate(instructions string) error {
	params := sessionParams{
		Modalities:        []string{"text", "audio"},
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		Voice:             a.cfg.Voice,
		Instructions:      instructions,
		Temperature:       a.cfg.Temperature,
	}
	if a.cfg.Transcription.Model != "" {
		params.InputAudioTranscription = &transcriptionParams{
			Model:    a.cfg.Transcription.Model,
			Language: a.cfg.Transcription.Language,
			Prompt:   a.cfg.Transcription.Prompt,
		}
	}
	if a.cfg.TurnDetection.Mode != "" {
		params.TurnDetection = &turnDetectionParams{
			Type:              a.cfg.TurnDetection.Mode,
			Eagerness:         a.cfg.TurnDetection.Eagerness,
			CreateResponse:    a.cfg.TurnDetection.CreateResponse,
			InterruptResponse: a.cfg.TurnDetection.InterruptResponse,
		}
	}
	return a.writeJSON(sessionUpdateMessage{Type: "session.update", Session: params})
}

func (a *OpenAIAdapter) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("openai: marshal: %w", err)
	}
	return a.conn.Write(a.ctx, websocket.MessageText, data)
}

// receiveLoop reads server events and resolves the pending reply waiter on
// response.done or error events.
func (a *OpenAIAdapter) receiveLoop() {
	for {
		_, data, err := a.conn.Read(a.ctx)
		if err != nil {
			a.resolvePending(fmt.Errorf("openai: connection lost: %w", err))
			return
		}

		var evt serverEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		switch evt.Type {
		case "response.done":
			a.resolvePending(nil)
		case "error":
			code, msg := "", "unknown error"
			if evt.Error != nil {
				code = evt.Error.Code
				if evt.Error.Message != "" {
					msg = evt.Error.Message
				}
			}
			a.resolvePending(&ReplyError{Code: code, Message: msg})
		}
	}
}

func (a *OpenAIAdapter) resolvePending(err error) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending != nil {
		pending <- err
	}
}

// GenerateReply asks the backend to synthesize one spoken response. With
// non-empty instructions the reply follows them verbatim; otherwise the
// session's ambient instructions apply. Blocks until the backend finishes
// the response, rejects it, or ctx is done.
func (a *OpenAIAdapter) GenerateReply(ctx context.Context, instructions string) error {
	a.replyMu.Lock()
	defer a.replyMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("openai: adapter closed")
	}
	done := make(chan error, 1)
	a.pending = done
	a.mu.Unlock()

	msg := responseCreateMessage{Type: "response.create"}
	if instructions != "" {
		msg.Response = &responseParams{Instructions: instructions}
	}
	if err := a.writeJSON(msg); err != nil {
		a.resolvePending(nil)
		return fmt.Errorf("openai: response.create: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		a.resolvePending(nil)
		return ctx.Err()
	}
}

// UpdateInstructions replaces the session's ambient instructions.
func (a *OpenAIAdapter) UpdateInstructions(_ context.Context, instructions string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("openai: adapter closed")
	}
	a.mu.Unlock()

	return a.sendSessionUpdate(instructions)
}

// Close terminates the session. Idempotent.
func (a *OpenAIAdapter) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.cancel()
		a.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}
