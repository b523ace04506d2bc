package manager

import "procmon/internal/models"

// HistorySize is the number of points kept per charted metric.
const HistorySize = 60

// RollingWindow is a fixed-capacity FIFO. Push evicts the oldest value once
// full. It is not safe for concurrent use; the collection loop is its only
// writer and readers receive copies.
type RollingWindow struct {
	buf   []float64
	start int
	size  int
}

// NewRollingWindow returns an empty window holding at most capacity values.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow{buf: make([]float64, capacity)}
}

// Push appends v, dropping the oldest value when at capacity.
func (w *RollingWindow) Push(v float64) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Snapshot returns the contents oldest first.
func (w *RollingWindow) Snapshot() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Len returns the number of stored values.
func (w *RollingWindow) Len() int { return w.size }

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int { return len(w.buf) }

// Series keeps one rolling window per charted metric. Unavailable GPU and fan
// readings are charted as 0.
type Series struct {
	cpu, ram, gpu, fan *RollingWindow
}

// NewSeries returns empty windows of the given capacity.
func NewSeries(capacity int) *Series {
	return &Series{
		cpu: NewRollingWindow(capacity),
		ram: NewRollingWindow(capacity),
		gpu: NewRollingWindow(capacity),
		fan: NewRollingWindow(capacity),
	}
}

// Push records one sample in every window.
func (s *Series) Push(sample models.Sample) {
	s.cpu.Push(sample.CPUPercent)
	s.ram.Push(sample.RAMPercent)
	s.gpu.Push(sample.GPUValue())
	s.fan.Push(float64(sample.FanValue()))
}

// Seed pushes records in the given (oldest first) order.
func (s *Series) Seed(records []models.Sample) {
	for _, rec := range records {
		s.Push(rec)
	}
}

// Snapshot copies all windows.
func (s *Series) Snapshot() models.HistorySnapshot {
	return models.HistorySnapshot{
		CPU: s.cpu.Snapshot(),
		RAM: s.ram.Snapshot(),
		GPU: s.gpu.Snapshot(),
		Fan: s.fan.Snapshot(),
	}
}
