package game

import (
	"fmt"
	"sort"

	"github.com/beatbounce/beatbounce/internal/clock"
	"github.com/beatbounce/beatbounce/internal/music"
	"github.com/beatbounce/beatbounce/internal/session"
)

// SimConfig fully describes a deterministic session simulation.
type SimConfig struct {
	Beats      []music.Beat
	Difficulty Difficulty
	Preset     Preset

	// Strikes maps beat index to the timing delta in ms the simulated
	// player lands with. Beats not in the map are never struck and expire.
	Strikes map[int]float64

	TickMs  float64 // clock advance per tick; 0 defaults to 15
	GraceMs float64 // 0 defaults to DefaultGraceMs
	StartMs float64 // initial playback position

	// PauseAtTick/ResumeAtTick exercise the park-and-rearm path: between
	// the two ticks the clock holds still and armed spawns stay parked.
	PauseAtTick  int
	ResumeAtTick int

	MaxTicks   int  // safety cap; 0 defaults to 20000
	SilentMode bool // skip event recording for Monte Carlo perf
}

type SimEvent struct {
	Tick   int
	Type   string // "spawn", "spawn_now", "skip", "judgment", "expire", "stall", "finish"
	Beat   int
	Detail string
}

type SimResult struct {
	Spawned    int
	Skipped    int
	Expired    int
	Judgments  []session.Judgment
	Stats      session.Stats
	Events     []SimEvent
	Stalled    bool
	TotalTicks int
	FinalPosMs float64
}

// pendingSpawn stands in for an armed one-shot timer: it fires when the
// simulated position reaches the beat start.
type pendingSpawn struct {
	spawn  Spawn
	dueMs  float64
	parked bool
}

type pendingStrike struct {
	beatIndex int
	atMs      float64
	deltaMs   float64
}

// RunSimulation executes a fully deterministic session loop. No goroutines,
// no timers, no time.Now(). The clock is advanced in fixed steps and armed
// spawns fire when the position crosses their due point, which makes every
// scheduling decision reproducible.
//
// Processing order per tick:
//  1. Advance the clock (unless paused)
//  2. Scan the scheduler at the new position
//  3. Fire due armed spawns
//  4. Fire due strikes, judge, fold into stats
//  5. Expire unstruck platforms past their travel window
//  6. Check the end condition
func RunSimulation(cfg SimConfig) SimResult {
	tickMs := cfg.TickMs
	if tickMs <= 0 {
		tickMs = 15
	}
	maxTicks := cfg.MaxTicks
	if maxTicks <= 0 {
		maxTicks = 20000
	}

	policy := PolicyFor(cfg.Difficulty)
	sched := NewScheduler(cfg.Beats, policy.LookaheadMs, cfg.GraceMs)
	cl := clock.NewManual(cfg.StartMs)
	cl.SetPlaying(true)
	sess := session.New("sim", 0, "sim-track", string(cfg.Difficulty), string(cfg.Preset))
	sess.Start()

	var (
		result  SimResult
		pending []*pendingSpawn
		strikes []pendingStrike
		silent  = cfg.SilentMode
		paused  = false
	)

	record := func(tick int, typ string, beat int, detail string) {
		if !silent {
			result.Events = append(result.Events, SimEvent{Tick: tick, Type: typ, Beat: beat, Detail: detail})
		}
	}

	spawnNow := func(tick int, sp Spawn, typ string) {
		if !sess.SpawnPlatform(sp.BeatIndex) {
			return
		}
		result.Spawned++
		record(tick, typ, sp.BeatIndex, fmt.Sprintf("start=%.1fms lead=%.1fms", sp.BeatStart, sp.LeadMs))
		if delta, ok := cfg.Strikes[sp.BeatIndex]; ok {
			strikes = append(strikes, pendingStrike{
				beatIndex: sp.BeatIndex,
				atMs:      sp.BeatStart + delta,
				deltaMs:   delta,
			})
		}
	}

	lastBeatMs := 0.0
	if n := len(cfg.Beats); n > 0 {
		lastBeatMs = cfg.Beats[n-1].StartMs
	}

	for tick := 1; tick <= maxTicks; tick++ {
		result.TotalTicks = tick

		// 1. Clock
		if tick == cfg.PauseAtTick && cfg.PauseAtTick > 0 {
			paused = true
			cl.SetPlaying(false)
			sess.Pause()
			for _, p := range pending {
				p.parked = true
			}
		}
		if tick == cfg.ResumeAtTick && paused {
			paused = false
			cl.SetPlaying(true)
			sess.Start()
			pos := cl.PositionMs()
			for _, p := range pending {
				if !p.parked {
					continue
				}
				p.parked = false
				if sp, ok := sched.Reclassify(p.spawn.BeatIndex, pos); ok {
					p.spawn = sp
					p.dueMs = sp.BeatStart
				}
			}
		}
		if !paused {
			cl.AdvanceMs(tickMs)
		} else {
			continue
		}
		pos := cl.PositionMs()

		// 2. Scan
		for _, sp := range sched.Scan(pos) {
			switch sp.Kind {
			case SpawnTimed:
				pending = append(pending, &pendingSpawn{spawn: sp, dueMs: sp.BeatStart})
			case SpawnNow:
				spawnNow(tick, sp, "spawn_now")
			case SpawnSkip:
				result.Skipped++
				record(tick, "skip", sp.BeatIndex, fmt.Sprintf("lead=%.1fms", sp.LeadMs))
			}
		}
		if sched.Stalled() && !result.Stalled {
			result.Stalled = true
			record(tick, "stall", -1, fmt.Sprintf("remaining=%d", sched.Remaining()))
		}

		// 3. Armed spawns
		kept := pending[:0]
		for _, p := range pending {
			if !p.parked && p.dueMs <= pos {
				spawnNow(tick, p.spawn, "spawn")
			} else {
				kept = append(kept, p)
			}
		}
		pending = kept

		// 4. Strikes
		keptStrikes := strikes[:0]
		for _, st := range strikes {
			if st.atMs > pos {
				keptStrikes = append(keptStrikes, st)
				continue
			}
			if state, ok := sess.Platform(st.beatIndex); !ok || state != session.PlatformFalling {
				continue
			}
			if !sess.Strike(st.beatIndex) {
				continue
			}
			comboBefore := sess.Snapshot().Combo
			j := Judge(cfg.Preset, st.deltaMs, cfg.Beats[st.beatIndex].Confidence, comboBefore)
			sess.ApplyJudgment(j)
			result.Judgments = append(result.Judgments, j)
			record(tick, "judgment", st.beatIndex,
				fmt.Sprintf("tier=%s points=%d combo=%d", j.Tier, j.Points, j.ComboAfter))
		}
		strikes = keptStrikes

		// 5. Expiry
		for idx := range cfg.Beats {
			if state, ok := sess.Platform(idx); ok && state == session.PlatformFalling {
				if pos > cfg.Beats[idx].StartMs+policy.TravelDurationMs {
					if sess.Expire(idx) {
						result.Expired++
						record(tick, "expire", idx, "")
					}
				}
			}
		}

		// 6. End condition
		done := sched.Done() || sched.Stalled()
		if done && len(pending) == 0 && len(strikes) == 0 && pos > lastBeatMs+policy.TravelDurationMs {
			record(tick, "finish", -1, fmt.Sprintf("pos=%.1fms", pos))
			break
		}
	}

	sess.Finish()
	result.Stats = sess.Snapshot()
	result.FinalPosMs = cl.PositionMs()
	sort.Slice(result.Events, func(i, j int) bool {
		if result.Events[i].Tick != result.Events[j].Tick {
			return result.Events[i].Tick < result.Events[j].Tick
		}
		return result.Events[i].Beat < result.Events[j].Beat
	})
	return result
}
