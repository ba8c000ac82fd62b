package game

import (
	"math"

	"github.com/beatbounce/beatbounce/internal/music"
)

// SpawnKind classifies the scheduling decision for one admitted beat.
type SpawnKind int

const (
	// SpawnTimed means the beat is still ahead: arm a one-shot timer for
	// LeadMs wall-milliseconds.
	SpawnTimed SpawnKind = iota
	// SpawnNow means the beat is already due but inside the grace window:
	// spawn immediately rather than dropping it during a frame hitch.
	SpawnNow
	// SpawnSkip means the beat is too far past to spawn at all.
	SpawnSkip
)

// Spawn is a beat committed to produce a platform, consumed exactly once
// by the spawner.
type Spawn struct {
	BeatIndex  int
	BeatStart  float64
	Confidence float64
	LeadMs     float64
	Kind       SpawnKind
}

// DefaultGraceMs bounds how far past its start a beat may still spawn.
const DefaultGraceMs = 500

// Scheduler walks a beat list against playback position, admitting each
// beat index exactly once. The cursor never rewinds, so pause, resume,
// and non-monotonic clock reads cannot re-admit a dispatched beat.
//
// Not safe for concurrent use: the owning session loop is the only
// caller, which is what makes the exactly-once guarantee hold without a
// lock.
type Scheduler struct {
	beats       []music.Beat
	lookaheadMs float64
	graceMs     float64
	cursor      int
	stalled     bool
}

func NewScheduler(beats []music.Beat, lookaheadMs, graceMs float64) *Scheduler {
	if graceMs <= 0 {
		graceMs = DefaultGraceMs
	}
	return &Scheduler{
		beats:       beats,
		lookaheadMs: lookaheadMs,
		graceMs:     graceMs,
	}
}

// Scan admits every beat whose start falls inside the lookahead window at
// playback position t, classifying each as timed, immediate, or skipped.
// Malformed input (unsorted or non-finite starts) stalls the cursor
// permanently instead of crashing: a stalled game is recoverable, a dead
// session is not.
func (s *Scheduler) Scan(positionMs float64) []Spawn {
	if s.stalled || !finite(positionMs) {
		return nil
	}

	var out []Spawn
	for s.cursor < len(s.beats) {
		b := s.beats[s.cursor]
		if !finite(b.StartMs) || (s.cursor > 0 && b.StartMs < s.beats[s.cursor-1].StartMs) {
			s.stalled = true
			return out
		}
		if b.StartMs >= positionMs+s.lookaheadMs {
			break
		}

		sp := Spawn{
			BeatIndex:  s.cursor,
			BeatStart:  b.StartMs,
			Confidence: b.Confidence,
			LeadMs:     b.StartMs - positionMs,
		}
		switch {
		case sp.LeadMs > 0:
			sp.Kind = SpawnTimed
		case sp.LeadMs >= -s.graceMs:
			sp.Kind = SpawnNow
		default:
			sp.Kind = SpawnSkip
		}
		out = append(out, sp)
		s.cursor++
	}
	return out
}

// Reclassify recomputes the decision for an already-admitted beat at a new
// playback position. Used when parked timers are re-armed after resume.
func (s *Scheduler) Reclassify(beatIndex int, positionMs float64) (Spawn, bool) {
	if beatIndex < 0 || beatIndex >= len(s.beats) {
		return Spawn{}, false
	}
	b := s.beats[beatIndex]
	sp := Spawn{
		BeatIndex:  beatIndex,
		BeatStart:  b.StartMs,
		Confidence: b.Confidence,
		LeadMs:     b.StartMs - positionMs,
	}
	switch {
	case sp.LeadMs > 0:
		sp.Kind = SpawnTimed
	case sp.LeadMs >= -s.graceMs:
		sp.Kind = SpawnNow
	default:
		sp.Kind = SpawnSkip
	}
	return sp, true
}

// Done reports whether every beat has been admitted.
func (s *Scheduler) Done() bool {
	return s.cursor >= len(s.beats)
}

// Remaining is the count of beats not yet admitted.
func (s *Scheduler) Remaining() int {
	return len(s.beats) - s.cursor
}

// Stalled reports whether malformed input stopped the cursor.
func (s *Scheduler) Stalled() bool {
	return s.stalled
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
