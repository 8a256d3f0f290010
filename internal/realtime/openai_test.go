package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/jurepetric/avatard/internal/realtime"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startBackend launches a test websocket server standing in for the Realtime
// endpoint. The handler receives the accepted conn.
func startBackend(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("readJSON: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("readJSON unmarshal: %v", err)
	}
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, _ := json.Marshal(v)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("writeJSON: %v (may be expected on close)", err)
	}
}

func testConfig() realtime.Config {
	return realtime.Config{
		Model:       "gpt-4o-realtime-preview-2024-12-17",
		Voice:       "echo",
		Temperature: 1.0,
		Transcription: realtime.TranscriptionConfig{
			Model:    "gpt-4o-transcribe",
			Language: "en",
		},
		TurnDetection: realtime.TurnDetectionConfig{
			Mode:              "semantic_vad",
			Eagerness:         "auto",
			CreateResponse:    true,
			InterruptResponse: true,
		},
	}
}

func TestNewOpenAIAdapterSendsSessionUpdate(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := startBackend(t, func(conn *websocket.Conn, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if model := r.URL.Query().Get("model"); model != "gpt-4o-realtime-preview-2024-12-17" {
			t.Errorf("model = %q", model)
		}
		var raw map[string]any
		readJSON(t, conn, &raw)
		got <- raw
		<-conn.CloseRead(context.Background()).Done()
	})

	a, err := realtime.NewOpenAIAdapter(context.Background(), "sk-test", testConfig(), realtime.WithBaseURL(wsURL(srv)))
	if err != nil {
		t.Fatalf("NewOpenAIAdapter() error = %v", err)
	}
	defer a.Close()

	select {
	case raw := <-got:
		if raw["type"] != "session.update" {
			t.Fatalf("first frame type = %v, want session.update", raw["type"])
		}
		session, _ := raw["session"].(map[string]any)
		if session["voice"] != "echo" {
			t.Errorf("voice = %v", session["voice"])
		}
		td, _ := session["turn_detection"].(map[string]any)
		if td["type"] != "semantic_vad" {
			t.Errorf("turn_detection.type = %v", td["type"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session.update never arrived")
	}
}

func TestGenerateReplyWaitsForResponseDone(t *testing.T) {
	srv := startBackend(t, func(conn *websocket.Conn, _ *http.Request) {
		var update map[string]any
		readJSON(t, conn, &update)

		var create map[string]any
		readJSON(t, conn, &create)
		if create["type"] != "response.create" {
			t.Errorf("frame type = %v, want response.create", create["type"])
		}
		resp, _ := create["response"].(map[string]any)
		if resp["instructions"] != "say hello" {
			t.Errorf("instructions = %v", resp["instructions"])
		}
		writeJSON(t, conn, map[string]string{"type": "response.done"})
		<-conn.CloseRead(context.Background()).Done()
	})

	a, err := realtime.NewOpenAIAdapter(context.Background(), "sk-test", testConfig(), realtime.WithBaseURL(wsURL(srv)))
	if err != nil {
		t.Fatalf("NewOpenAIAdapter() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.GenerateReply(ctx, "say hello"); err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
}

func TestGenerateReplySurfacesBackendRejection(t *testing.T) {
	srv := startBackend(t, func(conn *websocket.Conn, _ *http.Request) {
		var update map[string]any
		readJSON(t, conn, &update)

		var create map[string]any
		readJSON(t, conn, &create)
		writeJSON(t, conn, map[string]any{
			"type": "error",
			"error": map[string]string{
				"type":    "invalid_request_error",
				"code":    "input_audio_buffer_commit_empty",
				"message": "buffer too small",
			},
		})
		<-conn.CloseRead(context.Background()).Done()
	})

	a, err := realtime.NewOpenAIAdapter(context.Background(), "sk-test", testConfig(), realtime.WithBaseURL(wsURL(srv)))
	if err != nil {
		t.Fatalf("NewOpenAIAdapter() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = a.GenerateReply(ctx, "say hello")
	var replyErr *realtime.ReplyError
	if !errors.As(err, &replyErr) {
		t.Fatalf("GenerateReply() error = %v, want *ReplyError", err)
	}
	if replyErr.Code != "input_audio_buffer_commit_empty" {
		t.Fatalf("Code = %q", replyErr.Code)
	}
}

func TestUpdateInstructionsSendsSessionUpdate(t *testing.T) {
	got := make(chan string, 2)
	srv := startBackend(t, func(conn *websocket.Conn, _ *http.Request) {
		for i := 0; i < 2; i++ {
			var raw struct {
				Type    string `json:"type"`
				Session struct {
					Instructions string `json:"instructions"`
				} `json:"session"`
			}
			readJSON(t, conn, &raw)
			got <- raw.Session.Instructions
		}
		<-conn.CloseRead(context.Background()).Done()
	})

	a, err := realtime.NewOpenAIAdapter(context.Background(), "sk-test", testConfig(), realtime.WithBaseURL(wsURL(srv)))
	if err != nil {
		t.Fatalf("NewOpenAIAdapter() error = %v", err)
	}
	defer a.Close()

	<-got // initial session.update
	if err := a.UpdateInstructions(context.Background(), "be brief"); err != nil {
		t.Fatalf("UpdateInstructions() error = %v", err)
	}
	select {
	case instructions := <-got:
		if instructions != "be brief" {
			t.Fatalf("instructions = %q, want %q", instructions, "be brief")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session.update never arrived")
	}
}

func TestNewOpenAIAdapterRequiresKey(t *testing.T) {
	if _, err := realtime.NewOpenAIAdapter(context.Background(), "", testConfig()); err == nil {
		t.Fatalf("NewOpenAIAdapter() should require an api key")
	}
}
