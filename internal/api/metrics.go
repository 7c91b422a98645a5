package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string                  `json:"timestamp"`
	Version       string                  `json:"version"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Runtime       RuntimeMetrics          `json:"runtime"`
	WebSocket     WSMetrics               `json:"websocket"`
	Engine        EngineMetrics           `json:"engine"`
	Bridge        *zwave.BridgeStatistics `json:"bridge,omitempty"`
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
	ConnectedClients     int    `json:"connected_clients"`
	NotificationsDropped uint64 `json:"notifications_dropped"`
}

// EngineMetrics describes what the manager has announced.
type EngineMetrics struct {
	Live     bool `json:"live"`
	Watchers int  `json:"watchers"`
	Homes    int  `json:"homes"`
	Nodes    int  `json:"nodes"`
	Values   int  `json:"values"`
}

// handleMetrics returns runtime, hub and engine metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	nodes, values := s.inventory.Counts()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Engine: EngineMetrics{
			Live:     s.manager.IsLive(),
			Watchers: s.manager.WatcherCount(),
			Homes:    len(s.inventory.Homes()),
			Nodes:    nodes,
			Values:   values,
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.sub != nil {
		metrics.WebSocket.NotificationsDropped = s.sub.Dropped()
	}
	if s.bridge != nil {
		stats := s.bridge.Statistics()
		metrics.Bridge = &stats
	}

	writeJSON(w, http.StatusOK, metrics)
}
