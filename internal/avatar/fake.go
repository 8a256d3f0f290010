package avatar

import (
	"context"
	"sync"

	"github.com/jurepetric/avatard/internal/room"
)

var _ Bridge = (*FakeBridge)(nil)

// FakeBridge records Start and Close calls and can be scripted to fail.
// It stands in for the rendering service in tests and credential-less runs.
type FakeBridge struct {
	mu         sync.Mutex
	startErr   error
	starts     int
	closes     int
	lastRoom   string
	lastIdents string
}

func NewFakeBridge() *FakeBridge { return &FakeBridge{} }

// FailStart makes every subsequent Start return err.
func (b *FakeBridge) FailStart(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startErr = err
}

func (b *FakeBridge) Start(ctx context.Context, r room.Room) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	b.lastRoom = r.Name()
	b.lastIdents = r.LocalIdentity()
	return b.startErr
}

func (b *FakeBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

func (b *FakeBridge) Starts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts
}

func (b *FakeBridge) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

func (b *FakeBridge) LastRoom() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRoom
}
