package issuance

import (
	"context"
	"testing"
	"time"
)

func TestNextCounterIsMonotonic(t *testing.T) {
	s := NewInMemoryStore()
	for want := int64(1); want <= 5; want++ {
		got, err := s.NextCounter(context.Background())
		if err != nil {
			t.Fatalf("NextCounter() error = %v", err)
		}
		if got != want {
			t.Fatalf("NextCounter() = %d, want %d", got, want)
		}
	}
}

func TestRecentRecordsNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, identity := range []string{"a", "b", "c"} {
		err := s.SaveRecord(ctx, Record{
			Identity:  identity,
			Room:      "avatar-room-1",
			ExpiresAt: time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveRecord() error = %v", err)
		}
	}

	records, err := s.RecentRecords(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRecords() error = %v", err)
	}
	if len(records) != 2 || records[0].Identity != "c" || records[1].Identity != "b" {
		t.Fatalf("RecentRecords() = %+v, want newest first", records)
	}
	if records[0].ID == "" || records[0].CreatedAt.IsZero() {
		t.Fatalf("SaveRecord() should fill ID and CreatedAt")
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore() = %T, want *InMemoryStore", s)
	}
}
