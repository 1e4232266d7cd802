package jobs

import (
	"testing"
	"time"
)

func TestTimestampOrdersLexically(t *testing.T) {
	// A whole second flanked by fractional instants from the same and the
	// previous second. RFC3339Nano would render the middle one without a
	// fraction and sort it after the later instant.
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	instants := []time.Time{
		base.Add(-500 * time.Millisecond),
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
	}

	for i := 1; i < len(instants); i++ {
		earlier, later := timestamp(instants[i-1]), timestamp(instants[i])
		if earlier >= later {
			t.Fatalf("expected %q < %q", earlier, later)
		}
	}
}

func TestTimestampRoundTrips(t *testing.T) {
	in := time.Date(2026, 8, 29, 12, 0, 0, 123456789, time.UTC)
	out, err := parseTimeString(timestamp(in))
	if err != nil {
		t.Fatalf("parseTimeString failed: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip changed the instant: %v != %v", out, in)
	}
}
