package game

import (
	"math"
	"strings"

	"github.com/beatbounce/beatbounce/internal/session"
)

// Preset names a shipped scoring policy. Two divergent policies exist in
// production clients, so both are selectable per session rather than one
// being silently picked.
type Preset string

const (
	// PresetStandard resolves four tiers with combo accumulation.
	PresetStandard Preset = "standard"
	// PresetClassic resolves three tiers and keeps no combo.
	PresetClassic Preset = "classic"
)

// ParsePreset normalizes a client-supplied preset string, defaulting to
// standard.
func ParsePreset(s string) Preset {
	if Preset(strings.ToLower(s)) == PresetClassic {
		return PresetClassic
	}
	return PresetStandard
}

const maxComboMultiplier = 4.0

// ComboMultiplier converts a streak into a score multiplier. Saturates at
// 4.0 once the streak reaches 30.
func ComboMultiplier(combo int) float64 {
	return math.Min(maxComboMultiplier, 1+float64(combo)*0.1)
}

// ConfidenceFactor maps beat confidence [0,1] into a [0.5,1.0] score
// weight, so weak beats are worth half as much as strong ones.
func ConfidenceFactor(confidence float64) float64 {
	return 0.5 + confidence/2
}

// Judge resolves one strike into a tier, point value, and next combo.
// Pure: the same (preset, delta, confidence, comboBefore) always yields
// the same judgment, and calling it does not touch session state; the
// caller applies the result exactly once per platform.
//
// Tier thresholds compare with strict less-than, so a delta exactly on a
// boundary lands in the wider tier. The combo multiplier is taken from the
// streak as it stood before this strike; the streak transition itself is
// reported in ComboAfter.
func Judge(preset Preset, deltaMs, confidence float64, comboBefore int) session.Judgment {
	delta := math.Abs(deltaMs)
	if comboBefore < 0 {
		comboBefore = 0
	}

	var (
		tier  session.Tier
		base  int
		after int
		mult  float64
	)

	switch preset {
	case PresetClassic:
		switch {
		case delta < 100:
			tier, base = session.TierPerfect, 100
		case delta < 200:
			tier, base = session.TierGood, 50
		default:
			tier, base = session.TierOk, 20
		}
		after = 0
		mult = 1.0

	default:
		switch {
		case delta < 50:
			tier, base = session.TierPerfect, 150
			after = comboBefore + 1
		case delta < 150:
			tier, base = session.TierGreat, 100
			after = comboBefore + 1
		case delta < 300:
			tier, base = session.TierGood, 50
			after = comboBefore - 1
			if after < 0 {
				after = 0
			}
		default:
			tier, base = session.TierOk, 20
			after = 0
		}
		mult = ComboMultiplier(comboBefore)
	}

	points := int(math.Round(float64(base) * mult * ConfidenceFactor(confidence)))

	return session.Judgment{
		Tier:       tier,
		Points:     points,
		DeltaMs:    delta,
		ComboAfter: after,
	}
}
