package session

// State is the session lifecycle phase.
type State int

const (
	StateReady State = iota
	StatePlaying
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// PlatformState tracks the scoring lifecycle of one spawned platform.
// Falling platforms may be struck exactly once; expired platforms left the
// playfield unstruck and never score.
type PlatformState int

const (
	PlatformFalling PlatformState = iota
	PlatformStruck
	PlatformExpired
)

// Tier is a named accuracy bracket resolved from a strike's timing delta.
type Tier string

const (
	TierPerfect Tier = "perfect"
	TierGreat   Tier = "great"
	TierGood    Tier = "good"
	TierOk      Tier = "ok"
)

// Judgment is the outcome of judging one strike: fed back to the client
// for hit feedback and folded into Stats. ComboAfter is the streak value
// once this judgment settles.
type Judgment struct {
	Tier       Tier    `json:"tier"`
	Points     int     `json:"points"`
	DeltaMs    float64 `json:"delta_ms"`
	ComboAfter int     `json:"combo"`
}

// Summary is the end-of-game report consumed by persistence and the
// leaderboard, mirroring what the HUD shows on the game-over screen.
type Summary struct {
	SessionID   string `json:"session_id"`
	PlayerID    int64  `json:"player_id"`
	TrackID     string `json:"track_id"`
	Difficulty  string `json:"difficulty"`
	Preset      string `json:"preset"`
	Score       int    `json:"score"`
	PerfectHits int    `json:"perfect_hits"`
	GreatHits   int    `json:"great_hits"`
	GoodHits    int    `json:"good_hits"`
	OkHits      int    `json:"ok_hits"`
	MaxCombo    int    `json:"max_combo"`
	TotalJudged int    `json:"total_judged"`
	Accuracy    int    `json:"accuracy"`
	DurationMs  int64  `json:"duration_ms"`
}
