package game

import (
	"math"
	"testing"

	"github.com/beatbounce/beatbounce/internal/session"
)

// ---------------------------------------------------------------------------
// 1. Tier resolution and boundaries
// ---------------------------------------------------------------------------

func TestStandardTiers(t *testing.T) {
	cases := []struct {
		delta float64
		tier  session.Tier
	}{
		{0, session.TierPerfect},
		{-49.9, session.TierPerfect},
		{49.9, session.TierPerfect},
		{50, session.TierGreat},
		{-149.9, session.TierGreat},
		{150, session.TierGood},
		{299.9, session.TierGood},
		{300, session.TierOk},
		{1000, session.TierOk},
	}
	for _, c := range cases {
		j := Judge(PresetStandard, c.delta, 1.0, 0)
		if j.Tier != c.tier {
			t.Errorf("delta=%v: got tier %s, want %s", c.delta, j.Tier, c.tier)
		}
	}
}

func TestBoundariesLandInWiderTier(t *testing.T) {
	// Exact boundary values fall through the strict < comparison.
	for _, c := range []struct {
		delta float64
		tier  session.Tier
	}{
		{50, session.TierGreat},
		{150, session.TierGood},
		{300, session.TierOk},
	} {
		j := Judge(PresetStandard, c.delta, 1.0, 0)
		if j.Tier != c.tier {
			t.Errorf("delta=%v should land in %s, got %s", c.delta, c.tier, j.Tier)
		}
	}
}

func TestClassicTiers(t *testing.T) {
	cases := []struct {
		delta  float64
		tier   session.Tier
		points int
	}{
		{0, session.TierPerfect, 100},
		{99.9, session.TierPerfect, 100},
		{100, session.TierGood, 50},
		{199.9, session.TierGood, 50},
		{200, session.TierOk, 20},
	}
	for _, c := range cases {
		j := Judge(PresetClassic, c.delta, 1.0, 0)
		if j.Tier != c.tier {
			t.Errorf("delta=%v: got tier %s, want %s", c.delta, j.Tier, c.tier)
		}
		if j.Points != c.points {
			t.Errorf("delta=%v: got %d points, want %d", c.delta, j.Points, c.points)
		}
	}
}

func TestClassicKeepsNoCombo(t *testing.T) {
	j := Judge(PresetClassic, 0, 1.0, 25)
	if j.ComboAfter != 0 {
		t.Fatalf("classic preset must not accumulate combo, got %d", j.ComboAfter)
	}
	if j.Points != 100 {
		t.Fatalf("classic preset must ignore the streak multiplier, got %d points", j.Points)
	}
}

// ---------------------------------------------------------------------------
// 2. Combo transitions
// ---------------------------------------------------------------------------

func TestComboTransitions(t *testing.T) {
	cases := []struct {
		delta  float64
		before int
		after  int
	}{
		{0, 0, 1},    // perfect increments
		{100, 5, 6},  // great increments
		{200, 5, 4},  // good decrements
		{200, 0, 0},  // good never goes negative
		{500, 17, 0}, // ok resets
	}
	for _, c := range cases {
		j := Judge(PresetStandard, c.delta, 1.0, c.before)
		if j.ComboAfter != c.after {
			t.Errorf("delta=%v before=%d: got combo %d, want %d", c.delta, c.before, j.ComboAfter, c.after)
		}
	}
}

func TestComboMultiplierSaturation(t *testing.T) {
	if m := ComboMultiplier(29); m >= 4.0 {
		t.Fatalf("combo 29 should be below saturation, got %v", m)
	}
	if m := ComboMultiplier(30); m != 4.0 {
		t.Fatalf("combo 30 should saturate at exactly 4.0, got %v", m)
	}
	if m := ComboMultiplier(500); m != 4.0 {
		t.Fatalf("combo 500 should stay at 4.0, got %v", m)
	}
}

func TestMultiplierUsesComboBeforeStrike(t *testing.T) {
	// The streak as it stood before the strike scales the points, not the
	// incremented value the strike produces.
	j := Judge(PresetStandard, 0, 1.0, 0)
	if j.Points != 150 {
		t.Fatalf("first perfect at combo 0 must score base 150, got %d", j.Points)
	}
	j = Judge(PresetStandard, 0, 1.0, 10)
	want := int(math.Round(150 * 2.0)) // 1 + 10*0.1
	if j.Points != want {
		t.Fatalf("perfect at combo 10 should score %d, got %d", want, j.Points)
	}
}

// ---------------------------------------------------------------------------
// 3. Confidence weighting
// ---------------------------------------------------------------------------

func TestConfidenceFactorRange(t *testing.T) {
	if f := ConfidenceFactor(0); f != 0.5 {
		t.Fatalf("zero confidence should halve the score, got %v", f)
	}
	if f := ConfidenceFactor(1); f != 1.0 {
		t.Fatalf("full confidence should score full, got %v", f)
	}
}

func TestWorkedScoringScenario(t *testing.T) {
	// Two strikes: a dead-on hit on a strong beat, then a sloppy hit on a
	// weak beat one streak deep.
	first := Judge(PresetStandard, 0, 1.0, 0)
	if first.Tier != session.TierPerfect || first.Points != 150 || first.ComboAfter != 1 {
		t.Fatalf("first strike: got %+v", first)
	}
	second := Judge(PresetStandard, 200, 0.5, first.ComboAfter)
	// round(50 * 1.1 * 0.75) = 41
	if second.Tier != session.TierGood || second.Points != 41 || second.ComboAfter != 0 {
		t.Fatalf("second strike: got %+v", second)
	}

	var st session.Stats
	st.Apply(first)
	st.Apply(second)
	if st.Score != 191 {
		t.Fatalf("final score should be 191, got %d", st.Score)
	}
	if st.Accuracy() != 100 {
		t.Fatalf("perfect+good of 2 judged should be 100%% accuracy, got %d", st.Accuracy())
	}
}

// ---------------------------------------------------------------------------
// 4. Purity
// ---------------------------------------------------------------------------

func TestJudgeIsPure(t *testing.T) {
	a := Judge(PresetStandard, 123.4, 0.8, 7)
	b := Judge(PresetStandard, 123.4, 0.8, 7)
	if a != b {
		t.Fatalf("same inputs must produce same judgment: %+v vs %+v", a, b)
	}
}

func TestNegativeDeltaJudgedByMagnitude(t *testing.T) {
	early := Judge(PresetStandard, -120, 1.0, 0)
	late := Judge(PresetStandard, 120, 1.0, 0)
	if early.Tier != late.Tier || early.Points != late.Points {
		t.Fatalf("early and late strikes of equal magnitude must judge alike: %+v vs %+v", early, late)
	}
}

// ---------------------------------------------------------------------------
// 5. Difficulty policy
// ---------------------------------------------------------------------------

func TestPolicyTable(t *testing.T) {
	cases := []struct {
		d      Difficulty
		width  float64
		look   float64
		travel float64
	}{
		{DifficultyEasy, 170, 3000, 4000},
		{DifficultyMedium, 120, 3000, 4000},
		{DifficultyHard, 85, 2000, 3000},
	}
	for _, c := range cases {
		p := PolicyFor(c.d)
		if p.PlatformWidth != c.width || p.LookaheadMs != c.look || p.TravelDurationMs != c.travel {
			t.Errorf("%s: got %+v", c.d, p)
		}
	}
}

func TestUnknownDifficultyDefaultsToMedium(t *testing.T) {
	if PolicyFor(Difficulty("nightmare")) != PolicyFor(DifficultyMedium) {
		t.Fatal("unknown difficulty should fall back to medium")
	}
	if ParseDifficulty("NIGHTMARE") != DifficultyMedium {
		t.Fatal("unparseable difficulty should fall back to medium")
	}
}

func TestPlatformWidthScalesWithConfidence(t *testing.T) {
	base := 120.0
	if w := PlatformWidth(base, 1.0); math.Abs(w-base*1.3) > 1e-9 {
		t.Fatalf("full confidence width: got %v", w)
	}
	if w := PlatformWidth(base, 0.0); math.Abs(w-base*0.7) > 1e-9 {
		t.Fatalf("zero confidence width: got %v", w)
	}
	if PlatformWidth(base, 0.2) >= PlatformWidth(base, 0.8) {
		t.Fatal("width must grow with confidence")
	}
}
