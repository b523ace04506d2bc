// Package models holds the value types passed between the collection engine
// and its consumers.
package models

import (
	"fmt"
	"time"
)

// MetricKind identifies a system-wide metric that can raise an alert.
type MetricKind string

const (
	MetricCPU MetricKind = "CPU"
	MetricRAM MetricKind = "RAM"
	MetricGPU MetricKind = "GPU"
)

// SystemMetrics lists the alertable metrics in evaluation order.
var SystemMetrics = []MetricKind{MetricCPU, MetricRAM, MetricGPU}

// Sample captures host-level resource usage for one tick. GPUPercent and FanRPM
// are nil when the source is unavailable.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	CPUPercent float64   `json:"cpu_percent"`
	RAMPercent float64   `json:"ram_percent"`
	GPUPercent *float64  `json:"gpu_percent,omitempty"`
	FanRPM     *uint64   `json:"fan_rpm,omitempty"`
}

// Value returns the reading for kind and whether it is available.
func (s Sample) Value(kind MetricKind) (float64, bool) {
	switch kind {
	case MetricCPU:
		return s.CPUPercent, true
	case MetricRAM:
		return s.RAMPercent, true
	case MetricGPU:
		if s.GPUPercent == nil {
			return 0, false
		}
		return *s.GPUPercent, true
	default:
		return 0, false
	}
}

// GPUValue returns the GPU utilization or 0 when unavailable.
func (s Sample) GPUValue() float64 {
	if s.GPUPercent == nil {
		return 0
	}
	return *s.GPUPercent
}

// FanValue returns the fan speed or 0 when unavailable.
func (s Sample) FanValue() uint64 {
	if s.FanRPM == nil {
		return 0
	}
	return *s.FanRPM
}

// GPUText renders the GPU reading the way the status panel shows it.
func (s Sample) GPUText() string {
	if s.GPUPercent == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f %%", *s.GPUPercent)
}

// FanText renders the fan reading the way the status panel shows it.
func (s Sample) FanText() string {
	if s.FanRPM == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d RPM", *s.FanRPM)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Uint returns a pointer to v.
func Uint(v uint64) *uint64 { return &v }

// Thresholds are the alert levels in percent, each within [1,100].
type Thresholds struct {
	CPUAlert     int `json:"cpu_alert"`
	RAMAlert     int `json:"ram_alert"`
	GPUAlert     int `json:"gpu_alert"`
	ProcessAlert int `json:"process_alert"`
}

// For returns the alert level configured for kind.
func (t Thresholds) For(kind MetricKind) int {
	switch kind {
	case MetricCPU:
		return t.CPUAlert
	case MetricRAM:
		return t.RAMAlert
	case MetricGPU:
		return t.GPUAlert
	default:
		return 0
	}
}

// LatchState remembers which conditions already fired. System holds one flag
// per metric; Process maps an alerted pid to the process name captured when
// the alert fired.
type LatchState struct {
	System  map[MetricKind]bool
	Process map[int32]string
}

// NewLatchState returns an empty latch state with every system metric NORMAL.
func NewLatchState() LatchState {
	return LatchState{
		System:  make(map[MetricKind]bool, len(SystemMetrics)),
		Process: make(map[int32]string),
	}
}

// Clone returns a deep copy so callers can evolve state without aliasing.
func (l LatchState) Clone() LatchState {
	out := NewLatchState()
	for k, v := range l.System {
		out.System[k] = v
	}
	for pid, name := range l.Process {
		out.Process[pid] = name
	}
	return out
}
