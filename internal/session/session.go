package session

import (
	"sync"
	"time"
)

// Session holds the full mutable state for one player's run through one
// track. Difficulty and preset are fixed for the session lifetime; playing
// a different difficulty means a new session.
type Session struct {
	mu sync.RWMutex

	ID         string
	PlayerID   int64
	TrackID    string
	Difficulty string
	Preset     string

	State     State
	Stats     Stats
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time

	platforms map[int]PlatformState
	active    bool
}

func New(id string, playerID int64, trackID, difficulty, preset string) *Session {
	return &Session{
		ID:         id,
		PlayerID:   playerID,
		TrackID:    trackID,
		Difficulty: difficulty,
		Preset:     preset,
		State:      StateReady,
		CreatedAt:  time.Now(),
		platforms:  make(map[int]PlatformState),
		active:     true,
	}
}

// Start moves the session into the playing phase.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateReady && s.State != StatePaused {
		return false
	}
	if s.State == StateReady {
		now := time.Now()
		s.StartedAt = &now
	}
	s.State = StatePlaying
	return true
}

// Pause suspends scheduling and judgment. Already-armed spawn timers are
// the engine's concern; the session only records the phase.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StatePlaying {
		return false
	}
	s.State = StatePaused
	return true
}

// Finish seals the session. Later strikes, spawns, and judgments all
// become no-ops.
func (s *Session) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateFinished {
		return false
	}
	s.State = StateFinished
	now := time.Now()
	s.EndedAt = &now
	return true
}

// Deactivate marks the session torn down. Stray timer callbacks arriving
// afterward must not mutate anything; every mutating method checks this.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// StateName returns the current phase as its wire string.
func (s *Session) StateName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State.String()
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SpawnPlatform registers the platform produced by a scheduled spawn.
// Returns false if the session is torn down or the beat already spawned,
// so a beat can never double-spawn.
func (s *Session) SpawnPlatform(beatIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.State == StateFinished {
		return false
	}
	if _, exists := s.platforms[beatIndex]; exists {
		return false
	}
	s.platforms[beatIndex] = PlatformFalling
	return true
}

// Strike transitions a falling platform to struck. Returns false for
// unknown platforms, repeat strikes, and torn-down sessions; callers skip
// judgment in all of those cases.
func (s *Session) Strike(beatIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.State == StateFinished {
		return false
	}
	if s.platforms[beatIndex] != PlatformFalling {
		return false
	}
	s.platforms[beatIndex] = PlatformStruck
	return true
}

// Expire marks an unstruck platform as having left the playfield. No
// score effect, and the beat is not counted in TotalJudged.
func (s *Session) Expire(beatIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	if s.platforms[beatIndex] != PlatformFalling {
		return false
	}
	s.platforms[beatIndex] = PlatformExpired
	return true
}

// ApplyJudgment folds a judgment into the session stats. No-op once the
// session is torn down or finished.
func (s *Session) ApplyJudgment(j Judgment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.State == StateFinished {
		return false
	}
	s.Stats.Apply(j)
	return true
}

// Platform reports the recorded state of a spawned platform.
func (s *Session) Platform(beatIndex int) (PlatformState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.platforms[beatIndex]
	return st, ok
}

func (s *Session) PlatformCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.platforms)
}

// Snapshot returns a copy of the current stats.
func (s *Session) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// Summary builds the end-of-game report.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var durMs int64
	if s.StartedAt != nil {
		end := time.Now()
		if s.EndedAt != nil {
			end = *s.EndedAt
		}
		durMs = end.Sub(*s.StartedAt).Milliseconds()
	}
	return Summary{
		SessionID:   s.ID,
		PlayerID:    s.PlayerID,
		TrackID:     s.TrackID,
		Difficulty:  s.Difficulty,
		Preset:      s.Preset,
		Score:       s.Stats.Score,
		PerfectHits: s.Stats.PerfectHits,
		GreatHits:   s.Stats.GreatHits,
		GoodHits:    s.Stats.GoodHits,
		OkHits:      s.Stats.OkHits,
		MaxCombo:    s.Stats.MaxCombo,
		TotalJudged: s.Stats.TotalJudged,
		Accuracy:    s.Stats.Accuracy(),
		DurationMs:  durMs,
	}
}
