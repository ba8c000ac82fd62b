package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/beatbounce/beatbounce/internal/clock"
	"github.com/beatbounce/beatbounce/internal/music"
	"github.com/beatbounce/beatbounce/internal/server"
	"github.com/beatbounce/beatbounce/internal/session"
)

// DefaultTickInterval is how often the scheduler samples the playback
// clock. 15ms keeps spawn jitter under one display frame.
const DefaultTickInterval = 15 * time.Millisecond

// AnalysisSource resolves a track ID to its beat analysis.
type AnalysisSource interface {
	TrackAnalysis(ctx context.Context, trackID string) (*music.Analysis, error)
}

// StrikeEvent is one ball-platform collision reported by the client.
// LatencyMs is the one-way latency compensation applied when the client
// did not report its own playback position.
type StrikeEvent struct {
	BeatIndex  int
	PositionMs float64
	HasPos     bool
	LatencyMs  float64
}

type ctlKind int

const (
	ctlPlay ctlKind = iota
	ctlPause
	ctlResume
	ctlSeek
	ctlSync
	ctlExpire
	ctlEnd
)

type ctlMsg struct {
	kind      ctlKind
	posMs     float64
	beatIndex int
}

type sessionRunner struct {
	cancel  context.CancelFunc
	strikes chan StrikeEvent
	ctl     chan ctlMsg
}

// EndCallback receives the final summary of a finished session.
type EndCallback func(sum session.Summary)

// Config tunes the engine's scheduling behavior.
type Config struct {
	TickInterval  time.Duration
	GraceMs       float64
	DefaultPreset string
}

// Engine orchestrates all active game sessions. Each session gets its own
// run loop goroutine that owns the session's clock, scheduler, and spawn
// timers; the engine routes inbound messages to the right loop.
type Engine struct {
	sessions *session.Manager
	analysis AnalysisSource
	hub      *server.Hub
	metrics  *server.Metrics
	logger   *slog.Logger
	onEnd    EndCallback
	cfg      Config

	latency       *LatencyNormalizer
	strikeLimiter *StrikeRateLimiter

	mu      sync.Mutex
	running map[string]*sessionRunner
}

func NewEngine(sessions *session.Manager, analysis AnalysisSource, metrics *server.Metrics, logger *slog.Logger, onEnd EndCallback, cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.GraceMs <= 0 {
		cfg.GraceMs = DefaultGraceMs
	}
	if cfg.DefaultPreset == "" {
		cfg.DefaultPreset = string(PresetStandard)
	}
	return &Engine{
		sessions:      sessions,
		analysis:      analysis,
		metrics:       metrics,
		logger:        logger,
		onEnd:         onEnd,
		cfg:           cfg,
		latency:       NewLatencyNormalizer(150 * time.Millisecond),
		strikeLimiter: NewStrikeRateLimiter(60 * time.Millisecond),
		running:       make(map[string]*sessionRunner),
	}
}

// SetHub sets the WebSocket hub reference (used to break circular init).
func (e *Engine) SetHub(hub *server.Hub) {
	e.hub = hub
}

// StartSession resolves the track analysis, creates the session state, and
// launches its run loop. The session starts in the ready phase; play must
// arrive before scheduling begins.
func (e *Engine) StartSession(ctx context.Context, client *server.Client, trackID string, diff Difficulty, preset Preset) {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	analysis, err := e.analysis.TrackAnalysis(fetchCtx, trackID)
	cancel()
	if err != nil {
		e.logger.Error("track analysis unavailable", "track_id", trackID, "err", err)
		e.hub.SendTo(client.ID, errorMessage("track analysis unavailable"))
		return
	}

	if old, ok := e.sessions.ByPlayer(client.ID); ok {
		e.EndSession(old.ID)
	}

	sess := e.sessions.Create(client.ID, trackID, string(diff), string(preset))
	e.hub.JoinSession(client.ID, sess.ID)

	sCtx, sCancel := context.WithCancel(ctx)
	rr := &sessionRunner{
		cancel:  sCancel,
		strikes: make(chan StrikeEvent, 64),
		ctl:     make(chan ctlMsg, 16),
	}
	e.mu.Lock()
	e.running[sess.ID] = rr
	e.mu.Unlock()
	e.metrics.IncrSessions()

	go e.runLoop(sCtx, sess, rr, analysis, diff, preset)

	payload, _ := json.Marshal(map[string]any{
		"session_id": sess.ID,
		"track_id":   trackID,
		"difficulty": string(diff),
		"preset":     string(preset),
		"tempo":      analysis.Tempo,
		"beat_count": len(analysis.Beats),
	})
	e.hub.SendTo(client.ID, server.WSMessage{Type: "session_ready", Payload: payload})
}

// EndSession cancels a session's run loop. The loop finalizes the session
// and reports the summary on its way out.
func (e *Engine) EndSession(sessionID string) {
	e.mu.Lock()
	rr, ok := e.running[sessionID]
	e.mu.Unlock()
	if !ok {
		return
	}
	select {
	case rr.ctl <- ctlMsg{kind: ctlEnd}:
	default:
		rr.cancel()
	}
}

func (e *Engine) submitStrike(sessionID string, ev StrikeEvent) {
	e.mu.Lock()
	rr, ok := e.running[sessionID]
	e.mu.Unlock()
	if !ok {
		return
	}
	select {
	case rr.strikes <- ev:
	default:
		e.logger.Warn("strike dropped, buffer full", "session", sessionID, "beat", ev.BeatIndex)
	}
}

func (e *Engine) submitCtl(sessionID string, msg ctlMsg) {
	e.mu.Lock()
	rr, ok := e.running[sessionID]
	e.mu.Unlock()
	if !ok {
		return
	}
	select {
	case rr.ctl <- msg:
	default:
		e.logger.Warn("control dropped, buffer full", "session", sessionID)
	}
}

// runLoop is the single owner of one session's clock, scheduler, and spawn
// timers. All scheduling decisions happen here; only the mutex-guarded
// session state is touched from timer callbacks.
func (e *Engine) runLoop(ctx context.Context, sess *session.Session, rr *sessionRunner, analysis *music.Analysis, diff Difficulty, preset Preset) {
	defer func() {
		e.mu.Lock()
		delete(e.running, sess.ID)
		e.mu.Unlock()
		e.metrics.DecrSessions()
	}()

	policy := PolicyFor(diff)
	sched := NewScheduler(analysis.Beats, policy.LookaheadMs, e.cfg.GraceMs)
	timers := newTimerSet()
	defer timers.Close()
	trackClock := clock.New()

	var parked []int
	stallReported := false

	lastBeatMs := 0.0
	if n := len(analysis.Beats); n > 0 {
		lastBeatMs = analysis.Beats[n-1].StartMs
	}

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	finish := func() {
		sess.Finish()
		sess.Deactivate()
		sum := sess.Summary()
		payload, _ := json.Marshal(sum)
		e.hub.BroadcastSession(sess.ID, server.WSMessage{Type: "session_over", Payload: payload})
		if e.onEnd != nil {
			e.onEnd(sum)
		}
		e.sessions.Remove(sess.ID)
	}

	for {
		select {
		case <-ctx.Done():
			sess.Deactivate()
			e.sessions.Remove(sess.ID)
			return

		case <-ticker.C:
			if !trackClock.Playing() {
				continue
			}
			pos := trackClock.PositionMs()
			for _, sp := range sched.Scan(pos) {
				e.dispatch(sess, timers, policy, preset, sp)
			}
			if sched.Stalled() && !stallReported {
				stallReported = true
				e.logger.Warn("beat schedule stalled on malformed input",
					"session", sess.ID, "remaining", sched.Remaining())
			}
			if sched.Done() && timers.Pending() == 0 && pos > lastBeatMs+policy.TravelDurationMs {
				finish()
				return
			}

		case ev := <-rr.strikes:
			e.handleStrike(sess, trackClock, analysis, preset, ev)

		case msg := <-rr.ctl:
			switch msg.kind {
			case ctlPlay:
				if msg.posMs >= 0 {
					trackClock.SeekTo(msg.posMs)
				}
				trackClock.Play()
				sess.Start()
				e.hub.BroadcastSession(sess.ID, stateMessage(sess))

			case ctlPause:
				if !sess.Pause() {
					continue
				}
				trackClock.Pause()
				// Park armed spawns so they cannot fire mid-pause.
				parked = append(parked, timers.Drain()...)
				e.hub.BroadcastSession(sess.ID, stateMessage(sess))

			case ctlResume:
				if !sess.Start() {
					continue
				}
				trackClock.Play()
				pos := trackClock.PositionMs()
				for _, idx := range parked {
					if sp, ok := sched.Reclassify(idx, pos); ok {
						e.dispatch(sess, timers, policy, preset, sp)
					}
				}
				parked = parked[:0]
				e.hub.BroadcastSession(sess.ID, stateMessage(sess))

			case ctlSeek:
				trackClock.SeekTo(msg.posMs)
				// Re-arm against the new position; lead times computed
				// before the seek no longer land on their beats.
				rearm := append(timers.Drain(), parked...)
				parked = parked[:0]
				if !trackClock.Playing() {
					// Stay parked while paused; resume re-arms at the
					// sought position.
					parked = append(parked, rearm...)
					continue
				}
				for _, idx := range rearm {
					if sp, ok := sched.Reclassify(idx, msg.posMs); ok {
						e.dispatch(sess, timers, policy, preset, sp)
					}
				}

			case ctlSync:
				trackClock.SyncTo(msg.posMs)

			case ctlExpire:
				sess.Expire(msg.beatIndex)

			case ctlEnd:
				finish()
				return
			}
		}
	}
}

// dispatch carries out one scheduling decision: arm a one-shot timer, spawn
// immediately, or count the skip.
func (e *Engine) dispatch(sess *session.Session, timers *timerSet, policy Policy, preset Preset, sp Spawn) {
	switch sp.Kind {
	case SpawnTimed:
		delay := time.Duration(sp.LeadMs * float64(time.Millisecond))
		timers.Arm(sp.BeatIndex, delay, func() {
			e.emitSpawn(sess, policy, preset, sp)
		})
	case SpawnNow:
		e.emitSpawn(sess, policy, preset, sp)
	case SpawnSkip:
		e.metrics.IncrSkipped()
	}
}

// emitSpawn registers the platform and notifies the session's clients. May
// run on a timer goroutine; everything it touches is concurrency-safe.
func (e *Engine) emitSpawn(sess *session.Session, policy Policy, preset Preset, sp Spawn) {
	if !sess.SpawnPlatform(sp.BeatIndex) {
		return
	}
	e.metrics.IncrSpawn()

	width := policy.PlatformWidth
	if preset == PresetStandard {
		width = PlatformWidth(policy.PlatformWidth, sp.Confidence)
	}
	payload, _ := json.Marshal(map[string]any{
		"beat_index":    sp.BeatIndex,
		"beat_start_ms": sp.BeatStart,
		"confidence":    sp.Confidence,
		"width":         math.Round(width*100) / 100,
		"travel_ms":     policy.TravelDurationMs,
	})
	e.hub.BroadcastSession(sess.ID, server.WSMessage{Type: "spawn", Payload: payload})
}

func (e *Engine) handleStrike(sess *session.Session, trackClock clock.PlaybackClock, analysis *music.Analysis, preset Preset, ev StrikeEvent) {
	if ev.BeatIndex < 0 || ev.BeatIndex >= len(analysis.Beats) {
		return
	}
	if state, ok := sess.Platform(ev.BeatIndex); !ok || state != session.PlatformFalling {
		return
	}
	if !sess.Strike(ev.BeatIndex) {
		return
	}

	beat := analysis.Beats[ev.BeatIndex]
	pos := trackClock.PositionMs()
	if ev.HasPos {
		pos = ev.PositionMs
	} else {
		// Server-derived position includes the message's transit time;
		// shift it back by the player's estimated one-way latency.
		pos -= ev.LatencyMs
	}
	delta := pos - beat.StartMs

	comboBefore := sess.Snapshot().Combo
	j := Judge(preset, delta, beat.Confidence, comboBefore)
	if !sess.ApplyJudgment(j) {
		return
	}
	e.metrics.IncrJudgment()

	stats := sess.Snapshot()
	payload, _ := json.Marshal(map[string]any{
		"beat_index": ev.BeatIndex,
		"judgment":   j,
		"score":      stats.Score,
		"combo":      stats.Combo,
		"max_combo":  stats.MaxCombo,
	})
	e.hub.BroadcastSession(sess.ID, server.WSMessage{Type: "judgment", Payload: payload})
}

// HandleMessage implements server.MessageHandler.
func (e *Engine) HandleMessage(ctx context.Context, client *server.Client, msg server.WSMessage) {
	switch msg.Type {
	case "start_session":
		var payload struct {
			TrackID    string `json:"track_id"`
			Difficulty string `json:"difficulty"`
			Preset     string `json:"preset"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.TrackID == "" {
			e.hub.SendTo(client.ID, errorMessage("bad start_session payload"))
			return
		}
		if payload.Preset == "" {
			payload.Preset = e.cfg.DefaultPreset
		}
		e.StartSession(ctx, client, payload.TrackID, ParseDifficulty(payload.Difficulty), ParsePreset(payload.Preset))

	case "play":
		pos := -1.0
		var payload struct {
			PositionMs *float64 `json:"position_ms"`
		}
		if msg.Payload != nil && json.Unmarshal(msg.Payload, &payload) == nil && payload.PositionMs != nil {
			pos = *payload.PositionMs
		}
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlPlay, posMs: pos})

	case "pause":
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlPause})

	case "resume":
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlResume})

	case "seek":
		var payload struct {
			PositionMs float64 `json:"position_ms"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlSeek, posMs: payload.PositionMs})

	case "position_sync":
		var payload struct {
			PositionMs float64 `json:"position_ms"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlSync, posMs: payload.PositionMs})

	case "strike":
		if !e.strikeLimiter.AllowStrike(client.ID) {
			return
		}
		var payload struct {
			BeatIndex  int      `json:"beat_index"`
			PositionMs *float64 `json:"position_ms"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		ev := StrikeEvent{
			BeatIndex: payload.BeatIndex,
			LatencyMs: e.latency.OneWayMs(client.ID),
		}
		if payload.PositionMs != nil {
			ev.PositionMs = *payload.PositionMs
			ev.HasPos = true
		}
		e.submitStrike(client.SessionID, ev)

	case "expire":
		var payload struct {
			BeatIndex int `json:"beat_index"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		e.submitCtl(client.SessionID, ctlMsg{kind: ctlExpire, beatIndex: payload.BeatIndex})

	case "end_session":
		e.EndSession(client.SessionID)
	}
}

// HandleRTT implements server.MessageHandler, feeding ping round-trips
// into the latency compensation.
func (e *Engine) HandleRTT(client *server.Client, rtt time.Duration) {
	e.latency.RecordRTT(client.ID, rtt)
}

// HandleDisconnect implements server.MessageHandler. A disconnected player
// forfeits the run; the session finalizes with whatever was scored.
func (e *Engine) HandleDisconnect(client *server.Client) {
	if client.SessionID != "" {
		e.EndSession(client.SessionID)
	}
	e.latency.Cleanup(client.ID)
	e.strikeLimiter.Reset(client.ID)
}

func stateMessage(sess *session.Session) server.WSMessage {
	payload, _ := json.Marshal(map[string]any{
		"session_id": sess.ID,
		"state":      sess.StateName(),
	})
	return server.WSMessage{Type: "session_state", Payload: payload}
}

func errorMessage(reason string) server.WSMessage {
	payload, _ := json.Marshal(map[string]string{"reason": reason})
	return server.WSMessage{Type: "error", Payload: payload}
}
