package watcher

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of a watch loop's counters
type Stats struct {
	Cycles         int64
	Triggers       int64
	FailedCommands int64
	ScanErrors     int64
	Restarts       int64
	LastCycle      time.Time
	AverageCycle   time.Duration
}

// loopStats accumulates Stats for one loop
type loopStats struct {
	mu         sync.RWMutex
	stats      Stats
	cycleTotal time.Duration
}

func (s *loopStats) recordCycle(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Cycles++
	s.stats.LastCycle = time.Now()
	s.cycleTotal += time.Since(start)
	s.stats.AverageCycle = s.cycleTotal / time.Duration(s.stats.Cycles)
}

func (s *loopStats) recordScanError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.ScanErrors++
}

func (s *loopStats) recordRestart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Restarts++
}

func (s *loopStats) recordTrigger(failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Triggers++
	s.stats.FailedCommands += int64(failed)
}

func (s *loopStats) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats
}

// GetMetrics returns the snapshot as a map, for logging
func (s Stats) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"cycles":          s.Cycles,
		"triggers":        s.Triggers,
		"failed_commands": s.FailedCommands,
		"scan_errors":     s.ScanErrors,
		"restarts":        s.Restarts,
		"last_cycle":      s.LastCycle,
		"average_cycle":   s.AverageCycle,
	}
}
