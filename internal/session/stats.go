package session

import "math"

// Stats is the single source of truth the judgment path mutates and the
// HUD reads. After every Apply, TotalJudged equals the sum of the tier
// counters and Combo never exceeds MaxCombo.
type Stats struct {
	Score       int `json:"score"`
	Combo       int `json:"combo"`
	MaxCombo    int `json:"max_combo"`
	PerfectHits int `json:"perfect_hits"`
	GreatHits   int `json:"great_hits"`
	GoodHits    int `json:"good_hits"`
	OkHits      int `json:"ok_hits"`
	TotalJudged int `json:"total_judged"`
}

// Apply folds one judgment into the stats.
func (st *Stats) Apply(j Judgment) {
	st.Score += j.Points
	switch j.Tier {
	case TierPerfect:
		st.PerfectHits++
	case TierGreat:
		st.GreatHits++
	case TierGood:
		st.GoodHits++
	default:
		st.OkHits++
	}
	st.TotalJudged++
	st.Combo = j.ComboAfter
	if st.Combo > st.MaxCombo {
		st.MaxCombo = st.Combo
	}
}

// Accuracy is the percentage of judged strikes that landed Good or better,
// rounded to the nearest whole percent. Zero when nothing was judged.
func (st *Stats) Accuracy() int {
	if st.TotalJudged == 0 {
		return 0
	}
	return int(math.Round(float64(st.TotalJudged-st.OkHits) / float64(st.TotalJudged) * 100))
}
