package music

import (
	"fmt"
	"math"
)

// Beat is a single confidence-weighted beat from track analysis. Times are
// milliseconds relative to track start. Beats arrive pre-sorted by start.
type Beat struct {
	StartMs    float64 `json:"start"`
	DurationMs float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// Section mirrors the analyzer's section output. Parsed so the full
// analysis payload round-trips through the cache; the game core only
// consumes Tempo and Beats.
type Section struct {
	StartMs    float64 `json:"start"`
	DurationMs float64 `json:"duration"`
	Loudness   float64 `json:"loudness"`
	Tempo      float64 `json:"tempo"`
}

// Analysis is the beat-analysis contract for one track.
type Analysis struct {
	Tempo    float64   `json:"tempo"`
	Beats    []Beat    `json:"beats"`
	Sections []Section `json:"sections,omitempty"`
}

// TrackInfo describes a music library entry.
type TrackInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	AlbumArt   string  `json:"albumArt,omitempty"`
	DurationMs float64 `json:"duration"`
}

// Normalize clamps beat confidences into [0,1] and validates the parts of
// the analysis the scheduler depends on. A returned error means the beat
// list is unusable (unsorted or non-finite starts, missing tempo); callers
// treat that as "no beats schedulable" rather than a fatal fault.
func (a *Analysis) Normalize() error {
	if a.Tempo <= 0 || !isFinite(a.Tempo) {
		return fmt.Errorf("missing or invalid tempo: %v", a.Tempo)
	}
	prev := math.Inf(-1)
	for i := range a.Beats {
		b := &a.Beats[i]
		if !isFinite(b.StartMs) || !isFinite(b.DurationMs) {
			return fmt.Errorf("beat %d has non-finite timing", i)
		}
		if b.StartMs < prev {
			return fmt.Errorf("beats not sorted: index %d starts at %.1fms after %.1fms", i, b.StartMs, prev)
		}
		prev = b.StartMs
		if !isFinite(b.Confidence) || b.Confidence < 0 {
			b.Confidence = 0
		} else if b.Confidence > 1 {
			b.Confidence = 1
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
