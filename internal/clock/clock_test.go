package clock

import (
	"testing"
	"time"
)

func TestNewClockIsStopped(t *testing.T) {
	c := New()
	if c.Playing() {
		t.Fatal("new clock should not be playing")
	}
	if c.PositionMs() != 0 {
		t.Fatalf("new clock should read 0, got %v", c.PositionMs())
	}
}

func TestPlayAdvancesPosition(t *testing.T) {
	c := New()
	c.Play()
	time.Sleep(30 * time.Millisecond)
	pos := c.PositionMs()
	if pos < 20 || pos > 500 {
		t.Fatalf("after ~30ms of playback, position should be near 30, got %v", pos)
	}
}

func TestPauseFreezesPosition(t *testing.T) {
	c := New()
	c.Play()
	time.Sleep(20 * time.Millisecond)
	c.Pause()

	pos := c.PositionMs()
	time.Sleep(20 * time.Millisecond)
	if got := c.PositionMs(); got != pos {
		t.Fatalf("paused position drifted from %v to %v", pos, got)
	}
	if c.Playing() {
		t.Fatal("paused clock should report not playing")
	}

	c.Play()
	time.Sleep(20 * time.Millisecond)
	if got := c.PositionMs(); got <= pos {
		t.Fatalf("resumed clock should advance past %v, got %v", pos, got)
	}
}

func TestSeekJumpsPosition(t *testing.T) {
	c := New()
	c.SeekTo(45_000)
	if got := c.PositionMs(); got != 45_000 {
		t.Fatalf("paused seek should read exactly, got %v", got)
	}

	c.Play()
	c.SeekTo(10_000)
	if got := c.PositionMs(); got < 10_000 || got > 10_500 {
		t.Fatalf("playing seek should continue from 10000, got %v", got)
	}
}

func TestSyncReAnchors(t *testing.T) {
	c := New()
	c.Play()
	time.Sleep(10 * time.Millisecond)

	if age := c.LastSyncAge(); age >= 0 {
		t.Fatalf("never-synced clock should report negative age, got %v", age)
	}

	// Client reports the player is actually behind the estimate.
	c.SyncTo(2)
	if got := c.PositionMs(); got < 2 || got > 200 {
		t.Fatalf("sync should re-anchor near 2, got %v", got)
	}
	if age := c.LastSyncAge(); age < 0 || age > time.Second {
		t.Fatalf("sync age should be fresh, got %v", age)
	}
}

func TestManualClock(t *testing.T) {
	m := NewManual(100)
	if m.PositionMs() != 100 || !m.Playing() {
		t.Fatal("manual clock should start at its seed position, playing")
	}
	m.AdvanceMs(15)
	m.AdvanceMs(15)
	if m.PositionMs() != 130 {
		t.Fatalf("got %v", m.PositionMs())
	}
	m.AdvanceMs(-10)
	if m.PositionMs() != 120 {
		t.Fatalf("backward drift: got %v", m.PositionMs())
	}
	m.SetPlaying(false)
	if m.Playing() {
		t.Fatal("manual clock should stop")
	}
}
