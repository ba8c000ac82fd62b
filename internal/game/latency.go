package game

import (
	"sync"
	"time"
)

// LatencyNormalizer compensates strike timing for device-to-server latency.
// Each client's ping RTT is sampled continuously; when a strike arrives
// without a client-reported playback position, the server-side delta is
// shifted back by the average one-way latency so high-latency players
// aren't systematically judged late. The compensation is capped so a bad
// RTT estimate cannot fabricate perfects.
type LatencyNormalizer struct {
	mu     sync.RWMutex
	rtts   map[int64]*rttTracker
	window time.Duration // max compensation window
}

type rttTracker struct {
	samples []time.Duration
	avg     time.Duration
}

const maxRTTSamples = 20

func NewLatencyNormalizer(window time.Duration) *LatencyNormalizer {
	return &LatencyNormalizer{
		rtts:   make(map[int64]*rttTracker),
		window: window,
	}
}

// RecordRTT records a round-trip time sample from a client ping.
func (ln *LatencyNormalizer) RecordRTT(playerID int64, rtt time.Duration) {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	t, ok := ln.rtts[playerID]
	if !ok {
		t = &rttTracker{}
		ln.rtts[playerID] = t
	}

	t.samples = append(t.samples, rtt)
	if len(t.samples) > maxRTTSamples {
		t.samples = t.samples[1:]
	}

	var total time.Duration
	for _, s := range t.samples {
		total += s
	}
	t.avg = total / time.Duration(len(t.samples))
}

// OneWayMs is the player's estimated one-way latency in milliseconds,
// capped by the normalization window. Zero for unknown players.
func (ln *LatencyNormalizer) OneWayMs(playerID int64) float64 {
	ln.mu.RLock()
	defer ln.mu.RUnlock()

	t, ok := ln.rtts[playerID]
	if !ok {
		return 0
	}
	oneWay := t.avg / 2
	if oneWay > ln.window {
		oneWay = ln.window
	}
	return float64(oneWay.Milliseconds())
}

// Cleanup removes tracking data for a player.
func (ln *LatencyNormalizer) Cleanup(playerID int64) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	delete(ln.rtts, playerID)
}
