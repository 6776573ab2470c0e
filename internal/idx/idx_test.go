package idx

import (
	"testing"
	"time"
)

func TestNewIsValidAndSorted(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := ""
	for i := 0; i < 100; i++ {
		id := NewAt(at)
		if !Valid(id) {
			t.Fatalf("invalid ulid %q", id)
		}
		if id <= prev {
			t.Fatalf("expected monotonic ids, %q after %q", id, prev)
		}
		prev = id
	}
	if got := Time(prev); !got.Equal(at) {
		t.Fatalf("expected embedded time %v, got %v", at, got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "  ", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		if _, err := Parse(s); err != ErrInvalid {
			t.Fatalf("Parse(%q): expected ErrInvalid, got %v", s, err)
		}
	}
	if !Time("nope").IsZero() {
		t.Fatal("expected zero time for invalid id")
	}
}
