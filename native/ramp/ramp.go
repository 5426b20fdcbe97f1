// Package ramp implements lazily-evaluated linear parameter schedules. A
// Schedule interpolates between the value it held when the ramp began and a
// target value over an explicit wall-clock window. There is no background
// timer: callers touch the schedule at the top of every operation and the
// current value advances by the elapsed fraction since the previous touch.
package ramp

import "math/big"

// Schedule ramps one integer parameter. Values may be negative, which the
// amplification schedule relies on. The zero finish time means the schedule
// is idle and holds its current value indefinitely.
type Schedule struct {
	current    *big.Int
	target     *big.Int
	lastUpdate int64
	finishAt   int64
}

// New returns an idle schedule holding value.
func New(value *big.Int) *Schedule {
	return &Schedule{
		current: new(big.Int).Set(value),
		target:  new(big.Int).Set(value),
	}
}

// Begin retargets the schedule toward target, finishing at finishAt. The
// starting point is the interpolated value at now, not the value the previous
// ramp started from, so retargeting mid-ramp never jumps.
func (s *Schedule) Begin(now int64, target *big.Int, finishAt int64) {
	s.Touch(now)
	s.target = new(big.Int).Set(target)
	s.lastUpdate = now
	s.finishAt = finishAt
}

// Active reports whether a ramp is in progress.
func (s *Schedule) Active() bool { return s.finishAt != 0 }

// Target returns the value the schedule is ramping toward.
func (s *Schedule) Target() *big.Int { return new(big.Int).Set(s.target) }

// FinishAt returns the ramp end time, or zero when idle.
func (s *Schedule) FinishAt() int64 { return s.finishAt }

// Peek returns the interpolated value at now without advancing the schedule.
func (s *Schedule) Peek(now int64) *big.Int {
	v, _, _ := s.valueAt(now)
	return v
}

// Touch advances the schedule to now and returns the current value. Once now
// reaches the finish time the value snaps exactly to the target and the
// schedule goes idle, so later touches are constant-cost.
func (s *Schedule) Touch(now int64) *big.Int {
	v, last, finish := s.valueAt(now)
	s.current = new(big.Int).Set(v)
	s.lastUpdate = last
	s.finishAt = finish
	return v
}

func (s *Schedule) valueAt(now int64) (value *big.Int, lastUpdate int64, finishAt int64) {
	if s.finishAt == 0 || now <= s.lastUpdate {
		return new(big.Int).Set(s.current), s.lastUpdate, s.finishAt
	}
	if now >= s.finishAt {
		return new(big.Int).Set(s.target), now, 0
	}
	// delta = (target-current)*(now-last)/(finish-last), truncated toward
	// zero: an increasing value floors, a decreasing value shrinks by a
	// floored decrement. Both directions land exactly on target above.
	delta := new(big.Int).Sub(s.target, s.current)
	delta.Mul(delta, big.NewInt(now-s.lastUpdate))
	delta.Quo(delta, big.NewInt(s.finishAt-s.lastUpdate))
	return delta.Add(delta, s.current), now, s.finishAt
}
