package clock

import (
	"testing"
	"time"
)

func TestSystemNowTruncatesToMillisecond(t *testing.T) {
	now := System{}.Now()
	if now.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("System.Now() = %v, want truncated to millisecond", now)
	}
	if now.Location() != time.UTC {
		t.Errorf("System.Now() location = %v, want UTC", now.Location())
	}
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFixed(start)
	if !f.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(10 * time.Second)
	if want := start.Add(10 * time.Second); !f.Now().Equal(want) {
		t.Errorf("after Advance: Now() = %v, want %v", f.Now(), want)
	}

	other := time.Date(2030, 5, 5, 5, 5, 5, 0, time.UTC)
	f.Set(other)
	if !f.Now().Equal(other) {
		t.Errorf("after Set: Now() = %v, want %v", f.Now(), other)
	}
}
