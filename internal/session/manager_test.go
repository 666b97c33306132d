package session

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCurrentBeforeStart(t *testing.T) {
	m := NewManager()
	if _, err := m.Current(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Current() error = %v, want ErrNoActiveSession", err)
	}
}

func TestStartReplacesSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	seq := 0
	m := NewManager(
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("session-%d", seq)
		}),
	)

	first := m.Start()
	if first.ID != "session-1" {
		t.Fatalf("first id = %q", first.ID)
	}
	if first.StartedAt.Location() != time.UTC || !first.StartedAt.Equal(now) {
		t.Fatalf("StartedAt = %v, want %v in UTC", first.StartedAt, now)
	}

	now = now.Add(time.Hour)
	second := m.Start()
	if second.ID == first.ID {
		t.Fatal("restart reused the session id")
	}

	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != second {
		t.Fatalf("Current = %+v, want %+v", current, second)
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	m := NewManager()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := m.Start().ID
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = struct{}{}
	}
}
