package simulator

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type counters struct {
	devicesCreated    atomic.Int64
	devicesRemoved    atomic.Int64
	commandsExecuted  atomic.Int64
	commandsFailed    atomic.Int64
	eventsProcessed   atomic.Int64
	failuresSimulated atomic.Int64
}

// GetStatistics summarizes the fleet, the event pipeline and host
// resource usage for diagnostics endpoints and exports.
func (m *Manager) GetStatistics(ctx context.Context) map[string]interface{} {
	m.mu.RLock()
	state := m.state
	startedAt := m.startedAt
	total := len(m.devices)
	byType := make(map[string]int)
	online := 0
	var dropped int64
	for _, dev := range m.devices {
		byType[dev.TypeTag()]++
		if dev.Online() {
			online++
		}
		dropped += dev.DroppedEvents()
	}
	m.mu.RUnlock()

	m.eventMu.Lock()
	logSize := len(m.eventLog)
	pending := len(m.pending)
	m.eventMu.Unlock()

	stats := map[string]interface{}{
		"state":           state.String(),
		"devices_total":   total,
		"devices_online":  online,
		"devices_by_type": byType,
		"counters": map[string]interface{}{
			"devices_created":    m.stats.devicesCreated.Load(),
			"devices_removed":    m.stats.devicesRemoved.Load(),
			"commands_executed":  m.stats.commandsExecuted.Load(),
			"commands_failed":    m.stats.commandsFailed.Load(),
			"events_processed":   m.stats.eventsProcessed.Load(),
			"events_dropped":     dropped,
			"failures_simulated": m.stats.failuresSimulated.Load(),
		},
		"event_log": map[string]interface{}{
			"size":        logSize,
			"max_entries": m.opts.EventLogMaxEntries,
			"pending":     pending,
			"persisted":   m.opts.PersistEvents && m.repo != nil,
		},
		"environment": m.env.GetConditions(),
	}
	if state == stateRunning {
		stats["started_at"] = startedAt
		stats["uptime_seconds"] = time.Since(startedAt).Seconds()
	}
	stats["system"] = m.systemStats(ctx)
	return stats
}

// systemStats samples host memory and CPU usage. Failures degrade to a
// partial block rather than failing the statistics call.
func (m *Manager) systemStats(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		ctx = context.Background()
	}
	out := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["memory_used_percent"] = vm.UsedPercent
		out["memory_total_bytes"] = vm.Total
		out["memory_available_bytes"] = vm.Available
	} else {
		m.log.WithError(err).Debug("Failed to read memory stats")
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		out["cpu_percent"] = percents[0]
	} else if err != nil {
		m.log.WithError(err).Debug("Failed to read CPU stats")
	}
	return out
}
