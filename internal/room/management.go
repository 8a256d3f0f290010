package room

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jurepetric/avatard/internal/reliability"
)

const managementAttempts = 3

// RoomInfo describes one active room as reported by the management API.
type RoomInfo struct {
	Name            string `json:"name"`
	SID             string `json:"sid"`
	NumParticipants int    `json:"num_participants"`
	CreationTime    int64  `json:"creation_time"`
}

// ManagementClient talks to the signaling platform's HTTP management API.
// All calls are best-effort from the orchestrator's point of view; retry
// policy lives with the caller.
type ManagementClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewManagementClient(baseURL, apiKey, apiSecret string) *ManagementClient {
	return &ManagementClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DeleteRoom removes the named room, disconnecting any stragglers. Transient
// upstream failures are retried with capped backoff before giving up.
func (c *ManagementClient) DeleteRoom(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{"room": name})
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < managementAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, 250*time.Millisecond, 2*time.Second)):
			}
		}

		retryable, err := c.deleteOnce(ctx, name, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *ManagementClient) deleteOnce(ctx context.Context, name string, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rooms/delete", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	res, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("delete room %q: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("delete room status %d: %s", res.StatusCode, string(snippet))
	}
	return false, nil
}

// ListRooms returns the platform's active rooms.
func (c *ManagementClient) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/rooms", nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("list rooms status %d: %s", res.StatusCode, string(snippet))
	}

	var out struct {
		Rooms []RoomInfo `json:"rooms"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return out.Rooms, nil
}
