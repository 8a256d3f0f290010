// Package issuance persists the token service's state: the monotonic counter
// that names default identities and rooms, and an audit trail of every token
// minted.
package issuance

import (
	"context"
	"time"
)

// Record is one minted token, kept for auditing. The token itself is never
// stored, only who it was issued to and for which room.
type Record struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Room      string    `json:"room"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists issuance state.
type Store interface {
	// NextCounter atomically increments and returns the naming counter. The
	// first call returns 1.
	NextCounter(ctx context.Context) (int64, error)

	SaveRecord(ctx context.Context, record Record) error
	RecentRecords(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
