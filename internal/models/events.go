package models

import (
	"fmt"
	"time"
)

// Event is a notification delivered to the presentation layer. Consumers
// switch on the concrete type.
type Event interface {
	EventTime() time.Time
}

// HistorySnapshot is an ordered (oldest first) copy of the rolling window for
// each charted metric.
type HistorySnapshot struct {
	CPU []float64 `json:"cpu"`
	RAM []float64 `json:"ram"`
	GPU []float64 `json:"gpu"`
	Fan []float64 `json:"fan"`
}

// StatsEvent carries the readings of one tick.
type StatsEvent struct {
	Timestamp    time.Time       `json:"timestamp"`
	CPU          float64         `json:"cpu"`
	RAM          float64         `json:"ram"`
	GPUPercent   *float64        `json:"gpu_percent,omitempty"`
	GPUText      string          `json:"gpu_text"`
	FanRPM       *uint64         `json:"fan_rpm,omitempty"`
	FanText      string          `json:"fan_text"`
	TopProcesses []ProcessSample `json:"top_processes"`
	History      HistorySnapshot `json:"history"`
}

// EventTime implements Event.
func (e StatsEvent) EventTime() time.Time { return e.Timestamp }

// NewStatsEvent builds the stats notification for a sample.
func NewStatsEvent(s Sample, top []ProcessSample, history HistorySnapshot) StatsEvent {
	return StatsEvent{
		Timestamp:    s.Timestamp,
		CPU:          s.CPUPercent,
		RAM:          s.RAMPercent,
		GPUPercent:   s.GPUPercent,
		GPUText:      s.GPUText(),
		FanRPM:       s.FanRPM,
		FanText:      s.FanText(),
		TopProcesses: top,
		History:      history,
	}
}

// AlertScope distinguishes host-wide alerts from per-process alerts.
type AlertScope string

const (
	ScopeSystem  AlertScope = "SYSTEM"
	ScopeProcess AlertScope = "PROCESS"
)

// AlertEvent reports a threshold crossing. Metric is set for system alerts;
// Name and PID are set for process alerts.
type AlertEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Scope     AlertScope `json:"scope"`
	Metric    MetricKind `json:"metric,omitempty"`
	Name      string     `json:"name,omitempty"`
	PID       int32      `json:"pid,omitempty"`
	Value     float64    `json:"value"`
}

// EventTime implements Event.
func (e AlertEvent) EventTime() time.Time { return e.Timestamp }

// Subject returns the metric name for system alerts and the process name otherwise.
func (e AlertEvent) Subject() string {
	if e.Scope == ScopeProcess {
		return e.Name
	}
	return string(e.Metric)
}

// Title is a short heading for dialogs and notifications.
func (e AlertEvent) Title() string {
	if e.Scope == ScopeProcess {
		return "Process alert"
	}
	return "System alert"
}

// Message is the body text shown to the user.
func (e AlertEvent) Message() string {
	if e.Scope == ScopeProcess {
		return fmt.Sprintf("A process is using a lot of CPU!\n\nName: %s (PID: %d)\nUsage: %.1f %%", e.Name, e.PID, e.Value)
	}
	return fmt.Sprintf("Critical level reached for %s!\n\nCurrent usage: %.1f %%", e.Metric, e.Value)
}
