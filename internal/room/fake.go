package room

import (
	"context"
	"fmt"
	"sync"
)

// FakeRoom is an in-process Room used by tests and by local runs without a
// signaling platform.
type FakeRoom struct {
	RoomName string
	Identity string

	mu              sync.Mutex
	remotes         []Participant
	handler         DataHandler
	disconnects     int
	disconnectError error
}

func NewFakeRoom(name, identity string) *FakeRoom {
	return &FakeRoom{RoomName: name, Identity: identity}
}

func (r *FakeRoom) Name() string          { return r.RoomName }
func (r *FakeRoom) LocalIdentity() string { return r.Identity }

func (r *FakeRoom) RemoteParticipants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, len(r.remotes))
	copy(out, r.remotes)
	return out
}

func (r *FakeRoom) OnData(handler DataHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *FakeRoom) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
	return r.disconnectError
}

// SetRemoteCount replaces the remote participant set with n synthetic members.
func (r *FakeRoom) SetRemoteCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remotes = r.remotes[:0]
	for i := 0; i < n; i++ {
		r.remotes = append(r.remotes, Participant{
			Identity: fmt.Sprintf("remote-%d", i+1),
			SID:      fmt.Sprintf("PA_%d", i+1),
		})
	}
}

// PushData delivers a packet to the registered handler, as the read loop would.
func (r *FakeRoom) PushData(sender string, payload []byte) {
	r.mu.Lock()
	handler := r.handler
	r.mu.Unlock()
	if handler != nil {
		handler(sender, payload)
	}
}

// FailDisconnect makes Disconnect return err.
func (r *FakeRoom) FailDisconnect(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectError = err
}

// Disconnects reports how many times Disconnect was called.
func (r *FakeRoom) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// FakeConnector returns a prepared room, or an error.
type FakeConnector struct {
	Room *FakeRoom
	Err  error
}

func (c *FakeConnector) Connect(_ context.Context) (Room, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Room, nil
}
