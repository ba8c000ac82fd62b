package clock

import (
	"sync"
	"time"
)

// PlaybackClock reports music playback position. All scheduling and
// judgment arithmetic is defined in terms of this position, which may
// stall or jump backward when the underlying player buffers or seeks.
type PlaybackClock interface {
	// PositionMs is the current playback position in milliseconds.
	PositionMs() float64
	// Playing reports whether playback is advancing.
	Playing() bool
}

// TrackClock estimates playback position from wall time, re-anchored by
// client position reports. With no reports at all it degrades to elapsed
// wall time since Play, which is the documented judgment fallback when the
// audio backend is absent.
type TrackClock struct {
	mu        sync.Mutex
	playing   bool
	anchor    time.Time
	anchorPos float64
	lastSync  time.Time
}

func New() *TrackClock {
	return &TrackClock{}
}

// Play starts or resumes position advancement.
func (c *TrackClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.playing = true
	c.anchor = time.Now()
}

// Pause freezes the position at its current value.
func (c *TrackClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.anchorPos = c.positionLocked(time.Now())
	c.anchor = time.Now()
	c.playing = false
}

// SeekTo jumps the position. Valid while playing or paused.
func (c *TrackClock) SeekTo(posMs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorPos = posMs
	c.anchor = time.Now()
}

// SyncTo re-anchors the estimate to a position reported by the client's
// audio element. Reports may be stale or non-monotonic; the clock accepts
// them as-is since the player is the authority on its own position.
func (c *TrackClock) SyncTo(posMs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorPos = posMs
	c.anchor = time.Now()
	c.lastSync = time.Now()
}

func (c *TrackClock) PositionMs() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked(time.Now())
}

func (c *TrackClock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// LastSyncAge is how long ago the client last reported its position, or a
// negative duration if it never has.
func (c *TrackClock) LastSyncAge() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSync.IsZero() {
		return -1
	}
	return time.Since(c.lastSync)
}

func (c *TrackClock) positionLocked(now time.Time) float64 {
	if !c.playing {
		return c.anchorPos
	}
	return c.anchorPos + float64(now.Sub(c.anchor).Microseconds())/1000.0
}
