package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/skylink-core/internal/infrastructure/mqtt"
)

// SystemMetrics is the body of GET /metrics.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          *mqtt.Stats      `json:"mqtt,omitempty"`
	Link          *LinkMetrics     `json:"link,omitempty"`
	Bus           map[string]int   `json:"bus_subscribers"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// LinkMetrics describes device link activity.
type LinkMetrics struct {
	Connected       bool   `json:"connected"`
	PendingCommands int    `json:"pending_commands"`
	LastSignal      string `json:"last_signal,omitempty"`
}

// DatabaseMetrics contains connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := SystemMetrics{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(mem.TotalAlloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Bus:       make(map[string]int),
	}
	if !s.startTime.IsZero() {
		m.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	}

	if s.mqtt != nil {
		st := s.mqtt.Stats()
		m.MQTT = &st
	}

	if s.link != nil {
		lm := &LinkMetrics{
			Connected:       s.link.IsConnected(),
			PendingCommands: s.link.PendingCommands(),
		}
		if last := s.link.LastSignal(); !last.IsZero() {
			lm.LastSignal = last.UTC().Format(time.RFC3339)
		}
		m.Link = lm
	}

	for _, t := range s.bus.StatusTopics() {
		m.Bus[t.Name()] = t.Len()
	}
	m.Bus[s.bus.ShotReceived.Name()] = s.bus.ShotReceived.Len()
	m.Bus[s.bus.PluginLoaded.Name()] = s.bus.PluginLoaded.Len()

	if s.db != nil {
		st := s.db.Stats()
		m.Database = &DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}
