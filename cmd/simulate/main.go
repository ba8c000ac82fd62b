package main

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beatbounce/beatbounce/internal/game"
	"github.com/beatbounce/beatbounce/internal/music"
)

// --- Config ---
const (
	totalRounds = 20_000
	simTickMs   = 15.0
)

// archetype distribution
const (
	pctMetronome = 0.15
	pctSteady    = 0.40
	pctLoose     = 0.30
	// masher = remainder
)

// difficulty distribution per round
const (
	pctEasy   = 0.30
	pctMedium = 0.50
	// hard = remainder
)

type Archetype int

const (
	Metronome Archetype = iota
	Steady
	Loose
	Masher
)

func (a Archetype) String() string {
	return [...]string{"Metronome", "Steady", "Loose", "Masher"}[a]
}

// hit profile: probability of striking a spawned platform at all, and the
// standard deviation of the timing delta when the strike lands.
type hitProfile struct {
	hitChance float64
	deltaStd  float64 // ms
	bias      float64 // systematic late tendency, ms
}

var profiles = map[Archetype]hitProfile{
	Metronome: {hitChance: 0.98, deltaStd: 35, bias: 5},
	Steady:    {hitChance: 0.92, deltaStd: 80, bias: 20},
	Loose:     {hitChance: 0.80, deltaStd: 160, bias: 40},
	Masher:    {hitChance: 0.60, deltaStd: 280, bias: 0},
}

type roundResult struct {
	arch       Archetype
	difficulty game.Difficulty
	preset     game.Preset
	score      int
	accuracy   int
	maxCombo   int
	judged     int
	spawned    int
	skipped    int
	expired    int
	ticks      int
}

func main() {
	start := time.Now()

	workers := runtime.GOMAXPROCS(0)
	results := make([]roundResult, totalRounds)

	var progress atomic.Int64
	var wg sync.WaitGroup

	chunkSize := totalRounds / workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		lo := w * chunkSize
		hi := lo + chunkSize
		if w == workers-1 {
			hi = totalRounds
		}
		go func(lo, hi int) {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(int64(lo)*7919 + 13))
			for i := lo; i < hi; i++ {
				results[i] = runRound(localRng)
				if n := progress.Add(1); n%(totalRounds/10) == 0 {
					fmt.Printf("  ... %d/%d rounds (%.0f%%)\n", n, totalRounds, float64(n)/float64(totalRounds)*100)
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	elapsed := time.Since(start)
	printReport(results, elapsed)
}

func runRound(rng *rand.Rand) roundResult {
	var arch Archetype
	ar := rng.Float64()
	switch {
	case ar < pctMetronome:
		arch = Metronome
	case ar < pctMetronome+pctSteady:
		arch = Steady
	case ar < pctMetronome+pctSteady+pctLoose:
		arch = Loose
	default:
		arch = Masher
	}

	var diff game.Difficulty
	dr := rng.Float64()
	switch {
	case dr < pctEasy:
		diff = game.DifficultyEasy
	case dr < pctEasy+pctMedium:
		diff = game.DifficultyMedium
	default:
		diff = game.DifficultyHard
	}

	preset := game.PresetStandard
	if rng.Float64() < 0.2 {
		preset = game.PresetClassic
	}

	beats := genBeats(rng)
	strikes := genStrikes(rng, beats, profiles[arch])

	lengthMs := beats[len(beats)-1].StartMs
	maxTicks := int((lengthMs+10_000)/simTickMs) + 10

	result := game.RunSimulation(game.SimConfig{
		Beats:      beats,
		Difficulty: diff,
		Preset:     preset,
		Strikes:    strikes,
		TickMs:     simTickMs,
		MaxTicks:   maxTicks,
		SilentMode: true,
	})

	return roundResult{
		arch:       arch,
		difficulty: diff,
		preset:     preset,
		score:      result.Stats.Score,
		accuracy:   result.Stats.Accuracy(),
		maxCombo:   result.Stats.MaxCombo,
		judged:     result.Stats.TotalJudged,
		spawned:    result.Spawned,
		skipped:    result.Skipped,
		expired:    result.Expired,
		ticks:      result.TotalTicks,
	}
}

// genBeats produces a plausible beat grid: tempo between 70 and 180 BPM,
// small per-beat jitter, confidence drifting the way real onset detectors
// behave (high in the chorus, shaky in quiet passages).
func genBeats(rng *rand.Rand) []music.Beat {
	tempo := 70 + rng.Float64()*110
	interval := 60_000 / tempo
	lengthMs := 45_000 + rng.Float64()*120_000

	beats := make([]music.Beat, 0, int(lengthMs/interval)+1)
	conf := 0.5 + rng.Float64()*0.4
	pos := 400 + rng.Float64()*interval
	for pos < lengthMs {
		conf += rng.NormFloat64() * 0.05
		conf = math.Max(0.05, math.Min(1.0, conf))
		beats = append(beats, music.Beat{
			StartMs:    pos,
			DurationMs: interval,
			Confidence: conf,
		})
		pos += interval + rng.NormFloat64()*interval*0.02
	}
	return beats
}

func genStrikes(rng *rand.Rand, beats []music.Beat, prof hitProfile) map[int]float64 {
	strikes := make(map[int]float64, len(beats))
	for i := range beats {
		if rng.Float64() >= prof.hitChance {
			continue
		}
		strikes[i] = rng.NormFloat64()*prof.deltaStd + prof.bias
	}
	return strikes
}

func printReport(results []roundResult, elapsed time.Duration) {
	var allScores, allAccuracy, allCombos []float64
	scoresByArch := make(map[Archetype][]float64)
	accByArch := make(map[Archetype][]float64)
	comboByArch := make(map[Archetype][]float64)
	scoresByDiff := make(map[game.Difficulty][]float64)
	accByDiff := make(map[game.Difficulty][]float64)
	var totalSpawned, totalSkipped, totalExpired, totalJudged int

	for _, r := range results {
		allScores = append(allScores, float64(r.score))
		allAccuracy = append(allAccuracy, float64(r.accuracy))
		allCombos = append(allCombos, float64(r.maxCombo))
		scoresByArch[r.arch] = append(scoresByArch[r.arch], float64(r.score))
		accByArch[r.arch] = append(accByArch[r.arch], float64(r.accuracy))
		comboByArch[r.arch] = append(comboByArch[r.arch], float64(r.maxCombo))
		scoresByDiff[r.difficulty] = append(scoresByDiff[r.difficulty], float64(r.score))
		accByDiff[r.difficulty] = append(accByDiff[r.difficulty], float64(r.accuracy))
		totalSpawned += r.spawned
		totalSkipped += r.skipped
		totalExpired += r.expired
		totalJudged += r.judged
	}

	sort.Float64s(allScores)
	sort.Float64s(allAccuracy)
	sort.Float64s(allCombos)

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              SCORING BALANCE SIMULATION REPORT               ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Rounds: %d  |  Elapsed: %v  |  Workers: %d\n",
		totalRounds, elapsed.Round(time.Millisecond), runtime.GOMAXPROCS(0))
	fmt.Printf("  Archetypes: Metronome(%.0f%%) Steady(%.0f%%) Loose(%.0f%%) Masher(%.0f%%)\n",
		pctMetronome*100, pctSteady*100, pctLoose*100, (1-pctMetronome-pctSteady-pctLoose)*100)
	fmt.Printf("  Difficulties: easy(%.0f%%) medium(%.0f%%) hard(%.0f%%)\n",
		pctEasy*100, pctMedium*100, (1-pctEasy-pctMedium)*100)

	fmt.Println()
	fmt.Println("─── SPAWN PIPELINE ────────────────────────────────────────────")
	fmt.Printf("  Total platforms spawned:     %10d\n", totalSpawned)
	fmt.Printf("  Total beats skipped:         %10d  (%5.2f%%)\n",
		totalSkipped, float64(totalSkipped)/float64(totalSpawned+totalSkipped)*100)
	fmt.Printf("  Total platforms expired:     %10d  (%5.2f%% of spawned)\n",
		totalExpired, float64(totalExpired)/float64(totalSpawned)*100)
	fmt.Printf("  Total strikes judged:        %10d\n", totalJudged)

	fmt.Println()
	fmt.Println("─── SCORE DISTRIBUTION ────────────────────────────────────────")
	fmt.Printf("  Mean score:                  %10.0f\n", mean(allScores))
	fmt.Printf("  Median score:                %10.0f\n", percentile(allScores, 50))
	fmt.Printf("  90th pctl score:             %10.0f\n", percentile(allScores, 90))
	fmt.Printf("  99th pctl score:             %10.0f\n", percentile(allScores, 99))
	fmt.Printf("  Max score:                   %10.0f\n", allScores[len(allScores)-1])

	fmt.Println()
	fmt.Println("─── BY ARCHETYPE ──────────────────────────────────────────────")
	for _, a := range []Archetype{Metronome, Steady, Loose, Masher} {
		s := scoresByArch[a]
		acc := accByArch[a]
		cmb := comboByArch[a]
		sort.Float64s(s)
		sort.Float64s(acc)
		sort.Float64s(cmb)
		fmt.Printf("  %-10s  score: %8.0f med  acc: %5.1f%% med  combo: %5.0f med  rounds: %d\n",
			a.String(), percentile(s, 50), percentile(acc, 50), percentile(cmb, 50), len(s))
	}

	fmt.Println()
	fmt.Println("─── BY DIFFICULTY ─────────────────────────────────────────────")
	for _, d := range []game.Difficulty{game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard} {
		s := scoresByDiff[d]
		acc := accByDiff[d]
		sort.Float64s(s)
		sort.Float64s(acc)
		fmt.Printf("  %-8s  score: %8.0f med / %8.0f p90  acc: %5.1f%% med  rounds: %d\n",
			string(d), percentile(s, 50), percentile(s, 90), percentile(acc, 50), len(s))
	}

	fmt.Println()
	fmt.Println("─── DIAGNOSIS ─────────────────────────────────────────────────")
	skipRate := float64(totalSkipped) / float64(totalSpawned+totalSkipped) * 100
	if skipRate > 1 {
		fmt.Printf("  !! SKIP RATE %.2f%% — scheduler dropping beats at steady tick rate\n", skipRate)
	} else {
		fmt.Printf("  OK SKIP RATE %.2f%% — beats admitted in time\n", skipRate)
	}

	metMed := percentile(sortedCopy(scoresByArch[Metronome]), 50)
	mashMed := percentile(sortedCopy(scoresByArch[Masher]), 50)
	if mashMed > 0 && metMed/mashMed < 2 {
		fmt.Printf("  !! SKILL GAP %.1fx — precise play barely outscores mashing\n", metMed/mashMed)
	} else if mashMed > 0 {
		fmt.Printf("  OK SKILL GAP %.1fx — accuracy pays\n", metMed/mashMed)
	}

	medAcc := percentile(allAccuracy, 50)
	if medAcc < 40 {
		fmt.Printf("  !! MEDIAN ACCURACY %.0f%% — windows too strict for the median player\n", medAcc)
	} else if medAcc > 95 {
		fmt.Printf("  ~~ MEDIAN ACCURACY %.0f%% — windows may be too forgiving\n", medAcc)
	} else {
		fmt.Printf("  OK MEDIAN ACCURACY %.0f%%\n", medAcc)
	}

	fmt.Println()
}

func sortedCopy(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	sort.Float64s(out)
	return out
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	t := 0.0
	for _, v := range s {
		t += v
	}
	return t / float64(len(s))
}

func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * pct / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
