package ramp

import (
	"math/big"
	"testing"
)

func TestIdleScheduleHoldsValue(t *testing.T) {
	s := New(big.NewInt(100))
	if got := s.Touch(1_000_000); got.Int64() != 100 {
		t.Fatalf("idle schedule moved: %s", got)
	}
	if s.Active() {
		t.Fatalf("idle schedule reports active")
	}
}

func TestLinearInterpolation(t *testing.T) {
	s := New(big.NewInt(100))
	s.Begin(0, big.NewInt(200), 100)

	if got := s.Touch(50); got.Int64() != 150 {
		t.Fatalf("midpoint: got %s, want 150", got)
	}
	if got := s.Touch(75); got.Int64() != 175 {
		t.Fatalf("three quarters: got %s, want 175", got)
	}
	if got := s.Touch(100); got.Int64() != 200 {
		t.Fatalf("finish: got %s, want exactly 200", got)
	}
	if s.Active() {
		t.Fatalf("schedule still active after finish")
	}
}

func TestDecreasingRampSnapsExactly(t *testing.T) {
	s := New(big.NewInt(200))
	s.Begin(0, big.NewInt(57), 90)

	prev := int64(200)
	for _, now := range []int64{13, 14, 40, 89} {
		got := s.Touch(now).Int64()
		if got > prev {
			t.Fatalf("decreasing ramp increased at t=%d: %d > %d", now, got, prev)
		}
		prev = got
	}
	if got := s.Touch(90); got.Int64() != 57 {
		t.Fatalf("finish: got %s, want exactly 57", got)
	}
	if got := s.Touch(91); got.Int64() != 57 {
		t.Fatalf("after finish: got %s, want 57", got)
	}
}

func TestRetargetFromInterpolatedValue(t *testing.T) {
	s := New(big.NewInt(100))
	s.Begin(0, big.NewInt(200), 100)

	// Retarget halfway: the new ramp must start from 150, not 100.
	s.Begin(50, big.NewInt(100), 150)
	if got := s.Peek(50); got.Int64() != 150 {
		t.Fatalf("retarget start: got %s, want 150", got)
	}
	if got := s.Touch(100); got.Int64() != 125 {
		t.Fatalf("retarget midpoint: got %s, want 125", got)
	}
	if got := s.Touch(150); got.Int64() != 100 {
		t.Fatalf("retarget finish: got %s, want 100", got)
	}
}

func TestSameTimestampTouchIsStable(t *testing.T) {
	s := New(big.NewInt(1000))
	s.Begin(0, big.NewInt(0), 997) // awkward divisor on purpose

	first := s.Touch(500)
	second := s.Touch(500)
	if first.Cmp(second) != 0 {
		t.Fatalf("repeated touch at the same time moved the value: %s vs %s", first, second)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	s := New(big.NewInt(0))
	s.Begin(0, big.NewInt(100), 100)

	if got := s.Peek(30); got.Int64() != 30 {
		t.Fatalf("peek: got %s, want 30", got)
	}
	// The schedule still interpolates from t=0, so a later touch sees the
	// full elapsed window.
	if got := s.Touch(60); got.Int64() != 60 {
		t.Fatalf("touch after peek: got %s, want 60", got)
	}
}

func TestSignedSchedule(t *testing.T) {
	s := New(big.NewInt(-100))
	s.Begin(0, big.NewInt(100), 100)
	if got := s.Touch(50); got.Int64() != 0 {
		t.Fatalf("signed midpoint: got %s, want 0", got)
	}
	if got := s.Touch(100); got.Int64() != 100 {
		t.Fatalf("signed finish: got %s, want 100", got)
	}
}
