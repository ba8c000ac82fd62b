package game

import "strings"

// Difficulty selects platform sizing and scheduling windows. It is chosen
// before a session starts and fixed for the session lifetime.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Policy is the numeric contract a difficulty implies: base platform
// width, scheduler lookahead, and platform travel duration. Stateless
// lookup; the scheduler and the spawner consult it independently.
type Policy struct {
	PlatformWidth    float64
	LookaheadMs      float64
	TravelDurationMs float64
}

var policies = map[Difficulty]Policy{
	DifficultyEasy:   {PlatformWidth: 170, LookaheadMs: 3000, TravelDurationMs: 4000},
	DifficultyMedium: {PlatformWidth: 120, LookaheadMs: 3000, TravelDurationMs: 4000},
	DifficultyHard:   {PlatformWidth: 85, LookaheadMs: 2000, TravelDurationMs: 3000},
}

// PolicyFor returns the policy for d, defaulting to medium for unknown
// values.
func PolicyFor(d Difficulty) Policy {
	if p, ok := policies[d]; ok {
		return p
	}
	return policies[DifficultyMedium]
}

// ParseDifficulty normalizes a client-supplied difficulty string.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(s)) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// PlatformWidth scales a base width by beat confidence: weak beats make
// narrower platforms, strong beats wider ones.
func PlatformWidth(base, confidence float64) float64 {
	return base * (0.7 + 0.6*confidence)
}
