package metrics

import (
	"sync"
	"sync/atomic"
)

// engineStats holds in-process counters for the automation engine. Kept
// simple and thread-safe for use from the dispatcher, enrollment service
// and the metrics endpoint.
type engineStats struct {
	eventsQueued  uint64
	eventsDropped uint64
	started       uint64
	mu            sync.Mutex
	byTrigger     map[string]uint64
	byStatus      map[string]uint64
}

var engine engineStats

// IncEventQueued counts an event accepted into the dispatch queue.
func IncEventQueued(trigger string) {
	atomic.AddUint64(&engine.eventsQueued, 1)
	engine.mu.Lock()
	if engine.byTrigger == nil {
		engine.byTrigger = make(map[string]uint64)
	}
	engine.byTrigger[trigger]++
	engine.mu.Unlock()
}

// IncEventDropped counts an event rejected because the queue was full.
func IncEventDropped() {
	atomic.AddUint64(&engine.eventsDropped, 1)
}

func IncEnrollmentStarted() {
	atomic.AddUint64(&engine.started, 1)
}

// IncEnrollmentFinished counts a terminal enrollment by status.
func IncEnrollmentFinished(status string) {
	engine.mu.Lock()
	if engine.byStatus == nil {
		engine.byStatus = make(map[string]uint64)
	}
	engine.byStatus[status]++
	engine.mu.Unlock()
}

// Snapshot returns a copy of all engine counters.
func Snapshot() map[string]interface{} {
	engine.mu.Lock()
	byTrigger := make(map[string]uint64, len(engine.byTrigger))
	for k, v := range engine.byTrigger {
		byTrigger[k] = v
	}
	byStatus := make(map[string]uint64, len(engine.byStatus))
	for k, v := range engine.byStatus {
		byStatus[k] = v
	}
	engine.mu.Unlock()
	return map[string]interface{}{
		"events_queued":        atomic.LoadUint64(&engine.eventsQueued),
		"events_dropped":       atomic.LoadUint64(&engine.eventsDropped),
		"events_by_trigger":    byTrigger,
		"enrollments_started":  atomic.LoadUint64(&engine.started),
		"enrollments_finished": byStatus,
	}
}
