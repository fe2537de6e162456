package clock

import (
	"testing"
	"time"
)

func TestFake_NowAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(3 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(3*time.Second))
	}
}

func TestFake_AfterFiresOnDeadline(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	ch := c.After(time.Second)

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFake_AfterNonPositive(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
}
