package music

import (
	"math"
	"testing"
)

func TestNormalizeClampsConfidence(t *testing.T) {
	a := Analysis{
		Tempo: 120,
		Beats: []Beat{
			{StartMs: 0, Confidence: -0.5},
			{StartMs: 500, Confidence: 1.7},
			{StartMs: 1000, Confidence: math.NaN()},
			{StartMs: 1500, Confidence: 0.8},
		},
	}
	if err := a.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []float64{0, 1, 0, 0.8}
	for i, b := range a.Beats {
		if b.Confidence != want[i] {
			t.Errorf("beat %d: confidence %v, want %v", i, b.Confidence, want[i])
		}
	}
}

func TestNormalizeRejectsUnsortedBeats(t *testing.T) {
	a := Analysis{
		Tempo: 120,
		Beats: []Beat{
			{StartMs: 1000, Confidence: 1},
			{StartMs: 500, Confidence: 1},
		},
	}
	if err := a.Normalize(); err == nil {
		t.Fatal("unsorted beats must be rejected")
	}
}

func TestNormalizeRejectsNonFiniteTiming(t *testing.T) {
	a := Analysis{
		Tempo: 120,
		Beats: []Beat{{StartMs: math.Inf(1), Confidence: 1}},
	}
	if err := a.Normalize(); err == nil {
		t.Fatal("non-finite beat start must be rejected")
	}
}

func TestNormalizeRequiresTempo(t *testing.T) {
	for _, tempo := range []float64{0, -10, math.NaN()} {
		a := Analysis{Tempo: tempo}
		if err := a.Normalize(); err == nil {
			t.Fatalf("tempo %v must be rejected", tempo)
		}
	}
}

func TestNormalizeEmptyBeatsOK(t *testing.T) {
	a := Analysis{Tempo: 98.5}
	if err := a.Normalize(); err != nil {
		t.Fatalf("empty beat list is valid: %v", err)
	}
}
