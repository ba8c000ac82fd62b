package game

import (
	"math"
	"reflect"
	"testing"

	"github.com/beatbounce/beatbounce/internal/music"
	"github.com/beatbounce/beatbounce/internal/session"
)

// ---------------------------------------------------------------------------
// 1. End-to-end scoring scenario
// ---------------------------------------------------------------------------

func TestTwoBeatScenario(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 1000, DurationMs: 1000, Confidence: 1.0},
		{StartMs: 2000, DurationMs: 1000, Confidence: 0.5},
	}
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetStandard,
		Strikes:    map[int]float64{0: 0, 1: 200},
	})

	if result.Spawned != 2 {
		t.Fatalf("both beats should spawn, got %d", result.Spawned)
	}
	if result.Skipped != 0 {
		t.Fatalf("nothing should skip, got %d", result.Skipped)
	}
	if len(result.Judgments) != 2 {
		t.Fatalf("both strikes should judge, got %d", len(result.Judgments))
	}

	first, second := result.Judgments[0], result.Judgments[1]
	if first.Tier != session.TierPerfect || first.Points != 150 || first.ComboAfter != 1 {
		t.Fatalf("first judgment: %+v", first)
	}
	if second.Tier != session.TierGood || second.Points != 41 || second.ComboAfter != 0 {
		t.Fatalf("second judgment: %+v", second)
	}
	if result.Stats.Score != 191 {
		t.Fatalf("final score should be 191, got %d", result.Stats.Score)
	}
	if result.Stats.Accuracy() != 100 {
		t.Fatalf("accuracy should be 100, got %d", result.Stats.Accuracy())
	}
}

func TestClassicPresetScenario(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 1000, Confidence: 1.0},
		{StartMs: 2000, Confidence: 1.0},
	}
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetClassic,
		Strikes:    map[int]float64{0: 0, 1: 150},
	})

	// 100 for the perfect, 50 for the good, never a streak multiplier.
	if result.Stats.Score != 150 {
		t.Fatalf("classic score should be 150, got %d", result.Stats.Score)
	}
	if result.Stats.MaxCombo != 0 {
		t.Fatalf("classic preset keeps no combo, got max %d", result.Stats.MaxCombo)
	}
}

// ---------------------------------------------------------------------------
// 2. Expiry and skips
// ---------------------------------------------------------------------------

func TestUnstruckPlatformsExpireWithoutScoreEffect(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 1000, Confidence: 1.0},
		{StartMs: 2000, Confidence: 1.0},
		{StartMs: 3000, Confidence: 1.0},
	}
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetStandard,
		Strikes:    map[int]float64{1: 0}, // only the middle beat is struck
	})

	if result.Expired != 2 {
		t.Fatalf("two platforms should expire, got %d", result.Expired)
	}
	if result.Stats.TotalJudged != 1 {
		t.Fatalf("only the struck platform judges, got %d", result.Stats.TotalJudged)
	}
	if result.Stats.Score != 150 {
		t.Fatalf("expiry must not affect the score, got %d", result.Stats.Score)
	}
}

func TestBeatsAlreadyPastSkip(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 1000, Confidence: 1.0},
		{StartMs: 8000, Confidence: 1.0},
	}
	// Playback starts well past the first beat's grace window.
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetStandard,
		StartMs:    4000,
		Strikes:    map[int]float64{0: 0, 1: 0},
	})

	if result.Skipped != 1 {
		t.Fatalf("the stale beat should skip, got %d", result.Skipped)
	}
	if result.Spawned != 1 {
		t.Fatalf("only the live beat should spawn, got %d", result.Spawned)
	}
	// A skipped beat never spawns, so its strike never lands.
	if result.Stats.TotalJudged != 1 {
		t.Fatalf("got %d judgments", result.Stats.TotalJudged)
	}
}

// ---------------------------------------------------------------------------
// 3. Malformed input
// ---------------------------------------------------------------------------

func TestMalformedBeatsStallNotCrash(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 1000, Confidence: 1.0},
		{StartMs: math.Inf(1), Confidence: 1.0},
		{StartMs: 3000, Confidence: 1.0},
	}
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetStandard,
		Strikes:    map[int]float64{0: 0},
		MaxTicks:   2000,
	})

	if !result.Stalled {
		t.Fatal("simulation should report the stall")
	}
	if result.Spawned != 1 {
		t.Fatalf("the well-formed prefix should still spawn, got %d", result.Spawned)
	}
	if result.Stats.Score == 0 {
		t.Fatal("the strike before the stall should still score")
	}
}

// ---------------------------------------------------------------------------
// 4. Pause and resume
// ---------------------------------------------------------------------------

func TestPauseParksArmedSpawns(t *testing.T) {
	beats := []music.Beat{
		{StartMs: 2000, Confidence: 1.0},
		{StartMs: 2500, Confidence: 1.0},
	}
	paused := RunSimulation(SimConfig{
		Beats:        beats,
		Difficulty:   DifficultyMedium,
		Preset:       PresetStandard,
		Strikes:      map[int]float64{0: 0, 1: 0},
		TickMs:       15,
		PauseAtTick:  10, // pos 135ms: both beats admitted and armed
		ResumeAtTick: 400,
	})
	unpaused := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyMedium,
		Preset:     PresetStandard,
		Strikes:    map[int]float64{0: 0, 1: 0},
		TickMs:     15,
	})

	// The pause must not lose or duplicate spawns; both runs land the
	// same judgments.
	if paused.Spawned != unpaused.Spawned {
		t.Fatalf("spawn count diverged: paused=%d unpaused=%d", paused.Spawned, unpaused.Spawned)
	}
	if paused.Stats.Score != unpaused.Stats.Score {
		t.Fatalf("score diverged: paused=%d unpaused=%d", paused.Stats.Score, unpaused.Stats.Score)
	}
	if paused.TotalTicks <= unpaused.TotalTicks {
		t.Fatal("paused run should take more ticks")
	}
}

// ---------------------------------------------------------------------------
// 5. Determinism
// ---------------------------------------------------------------------------

func TestDeterminism(t *testing.T) {
	beats := gridBeats(500, 400, 60)
	strikes := make(map[int]float64, len(beats))
	for i := range beats {
		strikes[i] = float64((i%7)-3) * 40 // mix of tiers, fixed pattern
	}
	cfg := SimConfig{
		Beats:      beats,
		Difficulty: DifficultyHard,
		Preset:     PresetStandard,
		Strikes:    strikes,
	}

	a := RunSimulation(cfg)
	b := RunSimulation(cfg)

	if a.Stats != b.Stats {
		t.Fatalf("stats diverged across identical runs:\n%+v\n%+v", a.Stats, b.Stats)
	}
	if !reflect.DeepEqual(a.Judgments, b.Judgments) {
		t.Fatal("judgment streams diverged across identical runs")
	}
	if a.TotalTicks != b.TotalTicks {
		t.Fatalf("tick counts diverged: %d vs %d", a.TotalTicks, b.TotalTicks)
	}
}

func TestFullRunAccounting(t *testing.T) {
	beats := gridBeats(500, 500, 40)
	strikes := make(map[int]float64, len(beats))
	for i := 0; i < len(beats); i += 2 {
		strikes[i] = 20
	}
	result := RunSimulation(SimConfig{
		Beats:      beats,
		Difficulty: DifficultyEasy,
		Preset:     PresetStandard,
		Strikes:    strikes,
	})

	if result.Spawned != len(beats) {
		t.Fatalf("all beats should spawn, got %d of %d", result.Spawned, len(beats))
	}
	if result.Stats.TotalJudged != len(strikes) {
		t.Fatalf("every strike should judge, got %d of %d", result.Stats.TotalJudged, len(strikes))
	}
	if result.Expired != len(beats)-len(strikes) {
		t.Fatalf("unstruck platforms should expire, got %d", result.Expired)
	}
	sumTiers := result.Stats.PerfectHits + result.Stats.GreatHits + result.Stats.GoodHits + result.Stats.OkHits
	if sumTiers != result.Stats.TotalJudged {
		t.Fatalf("tier counters (%d) must sum to judged (%d)", sumTiers, result.Stats.TotalJudged)
	}
	// All strikes were 20ms perfects in a long unbroken streak.
	if result.Stats.MaxCombo != len(strikes) {
		t.Fatalf("max combo should be %d, got %d", len(strikes), result.Stats.MaxCombo)
	}
}
