package game

import (
	"sync"
	"time"
)

// StrikeRateLimiter guards against strike-spamming clients by enforcing a
// minimum interval between strike messages per player. A legitimate client
// cannot hit two platforms faster than the tightest beat interval, so
// anything quicker is a scripted flood. Server-authoritative timing.
type StrikeRateLimiter struct {
	mu          sync.Mutex
	lastStrike  map[int64]time.Time
	minInterval time.Duration
}

func NewStrikeRateLimiter(minInterval time.Duration) *StrikeRateLimiter {
	return &StrikeRateLimiter{
		lastStrike:  make(map[int64]time.Time),
		minInterval: minInterval,
	}
}

// AllowStrike returns true if enough time has passed since the player's
// last strike.
func (sl *StrikeRateLimiter) AllowStrike(playerID int64) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	now := time.Now()
	last, ok := sl.lastStrike[playerID]
	if ok && now.Sub(last) < sl.minInterval {
		return false
	}
	sl.lastStrike[playerID] = now
	return true
}

// Reset clears tracking for a player (called when they disconnect).
func (sl *StrikeRateLimiter) Reset(playerID int64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	delete(sl.lastStrike, playerID)
}

// ResetAll clears all tracking data.
func (sl *StrikeRateLimiter) ResetAll() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.lastStrike = make(map[int64]time.Time)
}
