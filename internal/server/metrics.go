package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics collects basic application metrics, exposed as JSON.
type Metrics struct {
	wsConnections  atomic.Int64
	activeSessions atomic.Int64
	totalSessions  atomic.Int64
	totalSpawns    atomic.Int64
	totalSkipped   atomic.Int64
	totalJudgments atomic.Int64
	startTime      time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncrWSConn() { m.wsConnections.Add(1) }
func (m *Metrics) DecrWSConn() { m.wsConnections.Add(-1) }
func (m *Metrics) IncrSessions() { m.activeSessions.Add(1); m.totalSessions.Add(1) }
func (m *Metrics) DecrSessions() { m.activeSessions.Add(-1) }
func (m *Metrics) IncrSpawn() { m.totalSpawns.Add(1) }
func (m *Metrics) IncrSkipped() { m.totalSkipped.Add(1) }
func (m *Metrics) IncrJudgment() { m.totalJudgments.Add(1) }

// ServeHTTP exposes metrics as JSON at /metrics.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := map[string]any{
		"uptime_seconds":  int(time.Since(m.startTime).Seconds()),
		"ws_connections":  m.wsConnections.Load(),
		"active_sessions": m.activeSessions.Load(),
		"total_sessions":  m.totalSessions.Load(),
		"total_spawns":    m.totalSpawns.Load(),
		"skipped_beats":   m.totalSkipped.Load(),
		"total_judgments": m.totalJudgments.Load(),
		"goroutines":      runtime.NumGoroutine(),
		"heap_alloc_mb":   mem.HeapAlloc / 1024 / 1024,
		"sys_mb":          mem.Sys / 1024 / 1024,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
