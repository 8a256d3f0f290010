// Package room wraps the real-time signaling platform: joining a room,
// observing its remote participants, receiving data-channel packets, and the
// management API used for teardown.
package room

import "context"

// Participant is a remote room member.
type Participant struct {
	Identity string `json:"identity"`
	SID      string `json:"sid"`
}

// DataHandler receives one inbound data-channel packet. Implementations must
// not block: the room delivers packets from its single read loop.
type DataHandler func(senderIdentity string, payload []byte)

// Room is a live connection to one room.
type Room interface {
	Name() string
	LocalIdentity() string
	RemoteParticipants() []Participant

	// OnData registers the handler for inbound data-channel packets. The
	// registration replaces any previous handler.
	OnData(handler DataHandler)

	Disconnect() error
}

// Connector establishes room connections.
type Connector interface {
	Connect(ctx context.Context) (Room, error)
}
