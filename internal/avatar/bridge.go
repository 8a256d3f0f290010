// Package avatar wraps the external rendering service that publishes the
// synthetic participant's audio and video into a room.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jurepetric/avatard/internal/room"
	"github.com/jurepetric/avatard/internal/token"
)

// Bridge attaches the rendered avatar to a room. Start is called once per
// session; it is not assumed to be idempotent.
type Bridge interface {
	Start(ctx context.Context, r room.Room) error
	Close() error
}

// HTTPBridgeConfig configures the rendering-service client.
type HTTPBridgeConfig struct {
	BaseURL   string
	APIKey    string
	ReplicaID string
	PersonaID string

	// SignalURL and Minter let the service join the room itself: the bridge
	// mints a publish-capable token on the avatar's behalf.
	SignalURL string
	Minter    *token.Minter
}

// HTTPBridge starts avatar sessions against the rendering service's REST API.
type HTTPBridge struct {
	cfg       HTTPBridgeConfig
	client    *http.Client
	sessionID string
}

func NewHTTPBridge(cfg HTTPBridgeConfig) (*HTTPBridge, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("avatar service url is required")
	}
	if strings.TrimSpace(cfg.ReplicaID) == "" || strings.TrimSpace(cfg.PersonaID) == "" {
		return nil, fmt.Errorf("replica and persona ids are required")
	}
	if cfg.Minter == nil {
		return nil, fmt.Errorf("token minter is required")
	}
	return &HTTPBridge{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type startSessionRequest struct {
	ReplicaID  string `json:"replica_id"`
	PersonaID  string `json:"persona_id"`
	RoomName   string `json:"room_name"`
	ServerURL  string `json:"server_url"`
	JoinToken  string `json:"join_token"`
	ByIdentity string `json:"requested_by"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Start asks the rendering service to join the room and publish the avatar's
// media tracks. It blocks until the service acknowledges the session.
func (b *HTTPBridge) Start(ctx context.Context, r room.Room) error {
	identity := r.LocalIdentity() + "-avatar"
	joinToken, err := b.cfg.Minter.Mint(identity, identity, r.Name(), "")
	if err != nil {
		return fmt.Errorf("mint avatar token: %w", err)
	}

	payload, err := json.Marshal(startSessionRequest{
		ReplicaID:  b.cfg.ReplicaID,
		PersonaID:  b.cfg.PersonaID,
		RoomName:   r.Name(),
		ServerURL:  b.cfg.SignalURL,
		JoinToken:  joinToken,
		ByIdentity: r.LocalIdentity(),
	})
	if err != nil {
		return fmt.Errorf("marshal session request: %w", err)
	}

	url := strings.TrimRight(strings.TrimSpace(b.cfg.BaseURL), "/") + "/v2/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("x-api-key", b.cfg.APIKey)
	}

	res, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("start avatar session: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("avatar service status %d: %s", res.StatusCode, string(body))
	}

	var out startSessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode session response: %w", err)
	}
	b.sessionID = out.SessionID
	return nil
}

// Close ends the avatar session if one was started. Best effort; the service
// also reaps sessions whose room disappears.
func (b *HTTPBridge) Close() error {
	if b.sessionID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := strings.TrimRight(strings.TrimSpace(b.cfg.BaseURL), "/") + "/v2/sessions/" + b.sessionID + "/end"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create end request: %w", err)
	}
	if b.cfg.APIKey != "" {
		req.Header.Set("x-api-key", b.cfg.APIKey)
	}

	res, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("end avatar session: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("avatar service status %d: %s", res.StatusCode, string(body))
	}
	return nil
}
