package clock

// Manual is a hand-stepped clock for tests and deterministic simulations.
// No wall time, no goroutines; the caller advances it tick by tick.
type Manual struct {
	pos     float64
	playing bool
}

func NewManual(startMs float64) *Manual {
	return &Manual{pos: startMs, playing: true}
}

func (m *Manual) PositionMs() float64 { return m.pos }
func (m *Manual) Playing() bool       { return m.playing }

// AdvanceMs moves the position forward (or backward, for drift tests).
func (m *Manual) AdvanceMs(deltaMs float64) { m.pos += deltaMs }

func (m *Manual) SetPosition(posMs float64) { m.pos = posMs }
func (m *Manual) SetPlaying(playing bool)   { m.playing = playing }
