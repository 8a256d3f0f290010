// Package agent contains the session orchestrator: it drives one avatar's
// room occupancy from connection through teardown, routes inbound data
// messages to the conversational backend, and exits once the room has been
// empty past the idle threshold.
package agent

import "sync"

// State tracks where the session is in its lifecycle.
type State string

const (
	StateConnecting   State = "connecting"
	StateProvisioning State = "provisioning"
	StateLive         State = "live"
	StateDraining     State = "draining"
	StateClosed       State = "closed"
)

// Agent holds the conversational persona bound to the session. Instructions
// are the only mutable field: the reply fallback path overwrites them
// transiently and restores them, serialized by the mutex.
type Agent struct {
	mu           sync.Mutex
	instructions string
}

func NewAgent(instructions string) *Agent {
	return &Agent{instructions: instructions}
}

func (a *Agent) Instructions() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instructions
}

func (a *Agent) SetInstructions(instructions string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instructions = instructions
}
