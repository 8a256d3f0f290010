package room

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jurepetric/avatard/internal/token"
)

// WSConnectorConfig configures the websocket signaling connector.
type WSConnectorConfig struct {
	SignalURL string
	RoomName  string
	Identity  string
	Minter    *token.Minter
}

// WSConnector joins rooms over the platform's websocket signaling endpoint.
type WSConnector struct {
	cfg WSConnectorConfig
}

func NewWSConnector(cfg WSConnectorConfig) (*WSConnector, error) {
	if strings.TrimSpace(cfg.SignalURL) == "" {
		return nil, fmt.Errorf("signal url is required")
	}
	if strings.TrimSpace(cfg.RoomName) == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if cfg.Minter == nil {
		return nil, fmt.Errorf("token minter is required")
	}
	if strings.TrimSpace(cfg.Identity) == "" {
		cfg.Identity = "avatar-agent"
	}
	return &WSConnector{cfg: cfg}, nil
}

// signalMessage is the envelope for every frame on the signaling socket.
type signalMessage struct {
	Type         string        `json:"type"`
	Room         string        `json:"room,omitempty"`
	Identity     string        `json:"identity,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Participant  *Participant  `json:"participant,omitempty"`
	Sender       string        `json:"sender,omitempty"`
	Payload      string        `json:"payload,omitempty"` // base64
}

// Connect dials the signaling endpoint with a freshly minted join token and
// waits for the joined acknowledgement before returning.
func (c *WSConnector) Connect(ctx context.Context) (Room, error) {
	joinToken, err := c.cfg.Minter.Mint(c.cfg.Identity, c.cfg.Identity, c.cfg.RoomName, "")
	if err != nil {
		return nil, fmt.Errorf("mint join token: %w", err)
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.SignalURL, "/") + "/rtc")
	if err != nil {
		return nil, fmt.Errorf("parse signal url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", joinToken)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial signaling: %w", err)
	}

	// The server's first frame confirms the join and carries the current
	// participant set.
	var joined signalMessage
	if err := conn.ReadJSON(&joined); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read join ack: %w", err)
	}
	if joined.Type != "joined" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected join ack type %q", joined.Type)
	}

	r := &wsRoom{
		conn:     conn,
		name:     joined.Room,
		identity: joined.Identity,
		remotes:  make(map[string]Participant, len(joined.Participants)),
	}
	if r.name == "" {
		r.name = c.cfg.RoomName
	}
	if r.identity == "" {
		r.identity = c.cfg.Identity
	}
	for _, p := range joined.Participants {
		if p.Identity != r.identity {
			r.remotes[p.SID] = p
		}
	}

	go r.readLoop()
	return r, nil
}

type wsRoom struct {
	conn     *websocket.Conn
	name     string
	identity string

	mu      sync.RWMutex
	remotes map[string]Participant
	handler DataHandler
	closed  bool
}

func (r *wsRoom) Name() string          { return r.name }
func (r *wsRoom) LocalIdentity() string { return r.identity }

func (r *wsRoom) RemoteParticipants() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Participant, 0, len(r.remotes))
	for _, p := range r.remotes {
		out = append(out, p)
	}
	return out
}

func (r *wsRoom) OnData(handler DataHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *wsRoom) Disconnect() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	_ = r.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving"),
		time.Now().Add(2*time.Second),
	)
	return r.conn.Close()
}

// readLoop owns the participant map: all mutations happen here.
func (r *wsRoom) readLoop() {
	for {
		var msg signalMessage
		if err := r.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "participant_joined":
			if msg.Participant == nil || msg.Participant.Identity == r.identity {
				continue
			}
			r.mu.Lock()
			r.remotes[msg.Participant.SID] = *msg.Participant
			r.mu.Unlock()

		case "participant_left":
			if msg.Participant == nil {
				continue
			}
			r.mu.Lock()
			delete(r.remotes, msg.Participant.SID)
			r.mu.Unlock()

		case "data":
			r.mu.RLock()
			handler := r.handler
			r.mu.RUnlock()
			if handler == nil {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(msg.Payload)
			if err != nil {
				// Deliver the raw bytes; the router logs and discards
				// anything it cannot decode.
				payload = []byte(msg.Payload)
			}
			handler(msg.Sender, payload)
		}
	}
}
