// Package limiter implements the per-vault inbound flow limiter. It bounds
// the value a vault can be asked to pay out through the asynchronous
// cross-chain gap: every admitted inbound swap consumes capacity, and the
// consumed amount decays back linearly over the decay period. Capacity
// consumed by an outbound swap is released only when the swap is
// acknowledged, so a timed-out swap cannot be replayed against fresh
// capacity.
package limiter

import (
	"errors"
	"math/big"
)

// ErrCapacityExceeded is returned when an inbound amount does not fit within
// the currently decayed capacity. The caller translates this into a failed
// receive, which the transport turns into a timeout on the source side.
var ErrCapacityExceeded = errors.New("limiter: security limit capacity exceeded")

// Limiter is a decaying used-capacity bucket.
type Limiter struct {
	maxCapacity *big.Int
	used        *big.Int
	lastUpdate  int64
	decayPeriod int64
}

// New returns a limiter with the given maximum capacity and decay period in
// seconds. A fully used limiter recovers to full capacity over one period.
func New(maxCapacity *big.Int, decayPeriod int64) *Limiter {
	if decayPeriod <= 0 {
		decayPeriod = 1
	}
	return &Limiter{
		maxCapacity: new(big.Int).Set(maxCapacity),
		used:        new(big.Int),
		decayPeriod: decayPeriod,
	}
}

// MaxCapacity returns the current capacity ceiling.
func (l *Limiter) MaxCapacity() *big.Int { return new(big.Int).Set(l.maxCapacity) }

// Capacity returns the remaining capacity at now without mutating state.
// Integrators use it to pre-check whether a receive will be admitted.
func (l *Limiter) Capacity(now int64) *big.Int {
	return l.capacityAt(l.decayedUsed(now))
}

// Admit consumes amount from the capacity at now. It either succeeds and
// records the consumption or fails with ErrCapacityExceeded leaving the
// limiter untouched; the check and the decrement are one atomic step.
func (l *Limiter) Admit(now int64, amount *big.Int) error {
	used := l.decayedUsed(now)
	if amount.Cmp(l.capacityAt(used)) > 0 {
		return ErrCapacityExceeded
	}
	l.used = used.Add(used, amount)
	l.lastUpdate = now
	return nil
}

// Release hands back previously consumed capacity, saturating at zero. Called
// when an outbound swap is acknowledged.
func (l *Limiter) Release(amount *big.Int) {
	l.used.Sub(l.used, amount)
	if l.used.Sign() < 0 {
		l.used.SetInt64(0)
	}
}

// SetMax replaces the capacity ceiling, e.g. after a weight ramp completes.
func (l *Limiter) SetMax(maxCapacity *big.Int) {
	l.maxCapacity = new(big.Int).Set(maxCapacity)
}

// RaiseMax grows the ceiling by delta.
func (l *Limiter) RaiseMax(delta *big.Int) {
	l.maxCapacity.Add(l.maxCapacity, delta)
}

// LowerMax shrinks the ceiling by delta, saturating at zero.
func (l *Limiter) LowerMax(delta *big.Int) {
	l.maxCapacity.Sub(l.maxCapacity, delta)
	if l.maxCapacity.Sign() < 0 {
		l.maxCapacity.SetInt64(0)
	}
}

// AddUsed records capacity consumption outside the admission path. Amplified
// vaults charge deposits this way so a flash deposit cannot inflate inbound
// headroom within one decay period.
func (l *Limiter) AddUsed(now int64, amount *big.Int) {
	used := l.decayedUsed(now)
	l.used = used.Add(used, amount)
	l.lastUpdate = now
}

func (l *Limiter) decayedUsed(now int64) *big.Int {
	used := new(big.Int).Set(l.used)
	if now <= l.lastUpdate {
		return used
	}
	released := new(big.Int).Mul(l.maxCapacity, big.NewInt(now-l.lastUpdate))
	released.Quo(released, big.NewInt(l.decayPeriod))
	used.Sub(used, released)
	if used.Sign() < 0 {
		used.SetInt64(0)
	}
	return used
}

func (l *Limiter) capacityAt(used *big.Int) *big.Int {
	c := new(big.Int).Sub(l.maxCapacity, used)
	if c.Sign() < 0 {
		c.SetInt64(0)
	}
	return c
}
