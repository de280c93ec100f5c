package core

import (
	"fmt"
	"sync"
)

// TurnLimiter counts completion requests made while processing one user
// message and rejects requests beyond the configured maximum. A maximum of
// zero allows unlimited turns.
type TurnLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewTurnLimiter creates a limiter allowing max turns.
func NewTurnLimiter(max int) *TurnLimiter {
	if max < 0 {
		max = 0
	}
	return &TurnLimiter{max: max}
}

// Next records a turn. It fails with ErrMaxTurnsExceeded once the limit is
// exceeded; the rejected turn still counts.
func (l *TurnLimiter) Next() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: limit %d", ErrMaxTurnsExceeded, l.max)
	}

	return nil
}

// Count returns the number of recorded turns.
func (l *TurnLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many turns are left, or -1 if unlimited.
func (l *TurnLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}
	if l.count >= l.max {
		return 0
	}
	return l.max - l.count
}
