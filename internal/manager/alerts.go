package manager

import (
	"time"

	"procmon/internal/models"
)

// ResetHysteresis is the gap, in percentage points, between a system alert
// level and the level a metric must drop below before it can alert again.
const ResetHysteresis = 10

// Evaluate applies the latching alert rules to one tick. It returns the alerts
// to emit and the next latch state; prev is left untouched.
//
// System metrics fire once when value > level and re-arm only after
// value < level-ResetHysteresis. An unavailable reading leaves its latch as is.
// A process fires once when its CPU exceeds the process level and stays
// latched until its pid is no longer live.
func Evaluate(sample models.Sample, procs models.ProcessSnapshot, th models.Thresholds, prev models.LatchState) ([]models.AlertEvent, models.LatchState) {
	next := prev.Clone()
	var events []models.AlertEvent
	at := sample.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	for _, kind := range models.SystemMetrics {
		value, ok := sample.Value(kind)
		if !ok {
			continue
		}
		level := float64(th.For(kind))
		latched := next.System[kind]
		switch {
		case !latched && value > level:
			next.System[kind] = true
			events = append(events, models.AlertEvent{
				Timestamp: at,
				Scope:     models.ScopeSystem,
				Metric:    kind,
				Value:     value,
			})
		case latched && value < level-ResetHysteresis:
			next.System[kind] = false
		}
	}

	procLevel := float64(th.ProcessAlert)
	for _, p := range procs.Readings {
		if p.CPUPercent <= procLevel {
			continue
		}
		if _, seen := next.Process[p.PID]; seen {
			continue
		}
		next.Process[p.PID] = p.Name
		events = append(events, models.AlertEvent{
			Timestamp: at,
			Scope:     models.ScopeProcess,
			Name:      p.Name,
			PID:       p.PID,
			Value:     p.CPUPercent,
		})
	}

	if procs.Failed {
		return events, next
	}
	for pid := range next.Process {
		if !procs.IsLive(pid) {
			delete(next.Process, pid)
		}
	}

	return events, next
}
