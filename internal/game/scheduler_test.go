package game

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/beatbounce/beatbounce/internal/music"
)

func gridBeats(startMs, intervalMs float64, n int) []music.Beat {
	beats := make([]music.Beat, n)
	for i := range beats {
		beats[i] = music.Beat{
			StartMs:    startMs + float64(i)*intervalMs,
			DurationMs: intervalMs,
			Confidence: 0.9,
		}
	}
	return beats
}

// ---------------------------------------------------------------------------
// 1. Lookahead admission
// ---------------------------------------------------------------------------

func TestScanAdmitsOnlyInsideLookahead(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 10), 3000, 0)

	spawns := s.Scan(0)
	if len(spawns) != 2 {
		t.Fatalf("at pos 0 with 3000ms lookahead, beats 1000 and 2000 admit: got %d", len(spawns))
	}
	for _, sp := range spawns {
		if sp.Kind != SpawnTimed {
			t.Errorf("beat %d still ahead should be timed, got kind %d", sp.BeatIndex, sp.Kind)
		}
		if want := float64(1000*(sp.BeatIndex+1)) - 0; sp.LeadMs != want {
			t.Errorf("beat %d: lead %v, want %v", sp.BeatIndex, sp.LeadMs, want)
		}
	}

	if got := s.Remaining(); got != 8 {
		t.Fatalf("8 beats should remain, got %d", got)
	}
}

func TestScanExactlyOnce(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 5), 3000, 0)

	seen := make(map[int]int)
	// Sweep the position forward, including repeated and slightly
	// backwards reads, the way a real audio clock reports.
	positions := []float64{0, 500, 500, 480, 1500, 1400, 3000, 6000, 6000, 9000}
	for _, pos := range positions {
		for _, sp := range s.Scan(pos) {
			seen[sp.BeatIndex]++
		}
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("beat %d admitted %d times", idx, n)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("all 5 beats should be admitted, got %d", len(seen))
	}
	if !s.Done() {
		t.Fatal("scheduler should be done")
	}
}

func TestScanOrdering(t *testing.T) {
	s := NewScheduler(gridBeats(100, 100, 50), 100_000, 0)
	spawns := s.Scan(0)
	for i := 1; i < len(spawns); i++ {
		if spawns[i].BeatIndex != spawns[i-1].BeatIndex+1 {
			t.Fatalf("admission must follow beat order: %d after %d", spawns[i].BeatIndex, spawns[i-1].BeatIndex)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Grace window
// ---------------------------------------------------------------------------

func TestGraceWindowSpawnsNow(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 3), 3000, 500)

	// Position jumped past the first beat but within grace.
	spawns := s.Scan(1400)
	if len(spawns) == 0 {
		t.Fatal("expected admissions")
	}
	if spawns[0].Kind != SpawnNow {
		t.Fatalf("beat 400ms past with 500ms grace should spawn now, got kind %d", spawns[0].Kind)
	}
}

func TestPastGraceSkips(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 3), 3000, 500)

	spawns := s.Scan(1600)
	if spawns[0].Kind != SpawnSkip {
		t.Fatalf("beat 600ms past with 500ms grace should skip, got kind %d", spawns[0].Kind)
	}
	// Later beats in the same scan still classify independently.
	if spawns[1].Kind != SpawnTimed {
		t.Fatalf("beat 2 still ahead should be timed, got kind %d", spawns[1].Kind)
	}
}

func TestZeroGraceDefaults(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 1), 3000, 0)
	spawns := s.Scan(1400)
	if len(spawns) != 1 || spawns[0].Kind != SpawnNow {
		t.Fatalf("zero grace config should fall back to the default window: %+v", spawns)
	}
}

// ---------------------------------------------------------------------------
// 3. Malformed input stalls, never crashes
// ---------------------------------------------------------------------------

func TestUnsortedBeatsStall(t *testing.T) {
	beats := gridBeats(1000, 1000, 5)
	beats[2].StartMs = 500 // out of order

	s := NewScheduler(beats, 100_000, 0)
	spawns := s.Scan(0)
	if len(spawns) != 2 {
		t.Fatalf("beats before the malformation should still admit, got %d", len(spawns))
	}
	if !s.Stalled() {
		t.Fatal("scheduler should stall on unsorted input")
	}
	if got := s.Scan(50_000); got != nil {
		t.Fatalf("stalled scheduler must not admit more beats, got %d", len(got))
	}
}

func TestNonFiniteBeatStalls(t *testing.T) {
	beats := gridBeats(1000, 1000, 3)
	beats[1].StartMs = math.NaN()

	s := NewScheduler(beats, 100_000, 0)
	s.Scan(0)
	if !s.Stalled() {
		t.Fatal("scheduler should stall on NaN beat start")
	}
}

func TestNonFinitePositionIgnored(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 3), 3000, 0)
	if got := s.Scan(math.NaN()); got != nil {
		t.Fatalf("NaN position must admit nothing, got %d", len(got))
	}
	if s.Stalled() {
		t.Fatal("a bad position read is transient, not a stall")
	}
	if len(s.Scan(0)) == 0 {
		t.Fatal("scheduler should recover after a bad position read")
	}
}

// ---------------------------------------------------------------------------
// 4. Reclassify for resume re-arming
// ---------------------------------------------------------------------------

func TestReclassify(t *testing.T) {
	s := NewScheduler(gridBeats(1000, 1000, 3), 10_000, 500)
	s.Scan(0) // admit everything

	if sp, ok := s.Reclassify(2, 1000); !ok || sp.Kind != SpawnTimed || sp.LeadMs != 2000 {
		t.Fatalf("beat 2 at pos 1000: %+v ok=%v", sp, ok)
	}
	if sp, ok := s.Reclassify(0, 1300); !ok || sp.Kind != SpawnNow {
		t.Fatalf("beat 0 at pos 1300 inside grace: %+v ok=%v", sp, ok)
	}
	if sp, ok := s.Reclassify(0, 5000); !ok || sp.Kind != SpawnSkip {
		t.Fatalf("beat 0 at pos 5000 past grace: %+v ok=%v", sp, ok)
	}
	if _, ok := s.Reclassify(99, 0); ok {
		t.Fatal("out of range beat index must not reclassify")
	}
}

// ---------------------------------------------------------------------------
// 5. Timer set
// ---------------------------------------------------------------------------

func TestTimerSetFiresAndForgets(t *testing.T) {
	ts := newTimerSet()
	defer ts.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	ts.Arm(1, time.Millisecond, func() { wg.Done() })
	wg.Wait()

	deadline := time.After(time.Second)
	for ts.Pending() != 0 {
		select {
		case <-deadline:
			t.Fatal("fired timer should leave the set")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestTimerSetDrainParks(t *testing.T) {
	ts := newTimerSet()
	defer ts.Close()

	fired := make(chan int, 4)
	ts.Arm(3, time.Hour, func() { fired <- 3 })
	ts.Arm(1, time.Hour, func() { fired <- 1 })

	parked := ts.Drain()
	if len(parked) != 2 || parked[0] != 1 || parked[1] != 3 {
		t.Fatalf("drain should return parked indices sorted, got %v", parked)
	}
	if ts.Pending() != 0 {
		t.Fatalf("drained set should be empty, got %d", ts.Pending())
	}

	select {
	case idx := <-fired:
		t.Fatalf("parked timer %d fired", idx)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTimerSetCloseRevokesAll(t *testing.T) {
	ts := newTimerSet()

	fired := make(chan int, 4)
	ts.Arm(0, 5*time.Millisecond, func() { fired <- 0 })
	ts.Arm(1, 5*time.Millisecond, func() { fired <- 1 })
	ts.Close()

	select {
	case idx := <-fired:
		t.Fatalf("timer %d fired after close", idx)
	case <-time.After(30 * time.Millisecond):
	}

	// Arming after close is a no-op.
	ts.Arm(2, time.Millisecond, func() { fired <- 2 })
	select {
	case <-fired:
		t.Fatal("timer armed after close fired")
	case <-time.After(20 * time.Millisecond):
	}
}
