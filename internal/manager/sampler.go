package manager

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"procmon/internal/models"
	"procmon/internal/utils"
)

// processHandleTTL bounds how long a handle for an unseen pid is kept.
const processHandleTTL = 30 * time.Second

// Sampler reads the current host state. Implementations never fail as a
// whole: an unreadable source degrades only its own field.
type Sampler interface {
	Sample(ctx context.Context) (models.Sample, models.ProcessSnapshot)
}

// processHandle is the subset of a process the sampler reads.
type processHandle interface {
	Name(ctx context.Context) (string, error)
	// CPUPercent returns usage since the previous call on this handle; the
	// first call only primes the counters.
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	Zombie(ctx context.Context) bool
}

type trackedProcess struct {
	handle processHandle
	primed bool
}

// HostSampler samples the local machine with gopsutil.
type HostSampler struct {
	gpu    GPUProbe
	fan    FanProbe
	log    *utils.Logger
	maxCPU float64
	procs  *ttlcache.Cache[int32, *trackedProcess]

	// Overridable sources for testing.
	cpuPercent  func(ctx context.Context) (float64, error)
	memPercent  func(ctx context.Context) (float64, error)
	listPids    func(ctx context.Context) ([]int32, error)
	openProcess func(ctx context.Context, pid int32) (processHandle, error)
	now         func() time.Time
}

// NewHostSampler builds a sampler. Nil probes report their metric unavailable.
func NewHostSampler(gpu GPUProbe, fan FanProbe, logger *utils.Logger) *HostSampler {
	if gpu == nil {
		gpu = noGPU{}
	}
	if fan == nil {
		fan = noFan{}
	}
	return &HostSampler{
		gpu:    gpu,
		fan:    fan,
		log:    logger,
		maxCPU: float64(runtime.NumCPU()) * 100,
		procs: ttlcache.New[int32, *trackedProcess](
			ttlcache.WithTTL[int32, *trackedProcess](processHandleTTL),
		),
		cpuPercent:  hostCPUPercent,
		memPercent:  hostMemPercent,
		listPids:    process.PidsWithContext,
		openProcess: openGopsProcess,
		now:         time.Now,
	}
}

// Sample implements Sampler.
func (s *HostSampler) Sample(ctx context.Context) (models.Sample, models.ProcessSnapshot) {
	sample := models.Sample{Timestamp: s.now()}

	if v, err := s.cpuPercent(ctx); err == nil {
		sample.CPUPercent = clampFloat(v, 0, 100)
	} else {
		s.log.Debugf("Sampler: cpu unavailable: %v", err)
	}
	if v, err := s.memPercent(ctx); err == nil {
		sample.RAMPercent = clampFloat(v, 0, 100)
	} else {
		s.log.Debugf("Sampler: memory unavailable: %v", err)
	}
	if v, ok := s.gpu.Utilization(); ok {
		sample.GPUPercent = models.Float(clampFloat(v, 0, 100))
	}
	if rpm, ok := s.fan.RPM(ctx); ok {
		sample.FanRPM = models.Uint(rpm)
	}

	return sample, s.sampleProcesses(ctx)
}

func (s *HostSampler) sampleProcesses(ctx context.Context) models.ProcessSnapshot {
	snap := models.ProcessSnapshot{Live: make(map[int32]struct{})}
	pids, err := s.listPids(ctx)
	if err != nil {
		s.log.Warnf("Sampler: process enumeration failed: %v", err)
		snap.Failed = true
		return snap
	}

	for _, pid := range pids {
		reading, live, ok := s.readProcess(ctx, pid)
		if live {
			snap.Live[pid] = struct{}{}
		}
		if ok {
			snap.Readings = append(snap.Readings, reading)
		}
	}

	for _, pid := range s.procs.Keys() {
		if _, ok := snap.Live[pid]; !ok {
			s.procs.Delete(pid)
		}
	}
	s.procs.DeleteExpired()
	return snap
}

// readProcess returns the reading for pid, whether it counts as alive, and
// whether the reading is usable. A fault while reading one process is
// contained here: the pid was just enumerated, so it stays live and only its
// reading and cached handle are dropped.
func (s *HostSampler) readProcess(ctx context.Context, pid int32) (reading models.ProcessSample, live, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Debugf("Sampler: skipped pid %d: %v", pid, r)
			s.procs.Delete(pid)
			reading, live, ok = models.ProcessSample{}, true, false
		}
	}()

	var tracked *trackedProcess
	if item := s.procs.Get(pid); item != nil {
		tracked = item.Value()
	} else {
		h, err := s.openProcess(ctx, pid)
		if err != nil {
			return reading, false, false
		}
		tracked = &trackedProcess{handle: h}
		s.procs.Set(pid, tracked, ttlcache.DefaultTTL)
	}

	h := tracked.handle
	if h.Zombie(ctx) {
		s.procs.Delete(pid)
		return reading, false, false
	}

	name, err := h.Name(ctx)
	if err != nil {
		return reading, true, false
	}
	cpuPct, err := h.CPUPercent(ctx)
	if err != nil {
		return reading, true, false
	}
	if !tracked.primed {
		tracked.primed = true
		return reading, true, false
	}
	memPct, err := h.MemoryPercent(ctx)
	if err != nil {
		memPct = 0
	}

	return models.ProcessSample{
		PID:        pid,
		Name:       name,
		CPUPercent: clampFloat(cpuPct, 0, s.maxCPU),
		RAMPercent: clampFloat(memPct, 0, 100),
	}, true, true
}

func hostCPUPercent(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("no cpu readings")
	}
	return pcts[0], nil
}

func hostMemPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// gopsProcess adapts a gopsutil process to processHandle.
type gopsProcess struct {
	p *process.Process
}

func openGopsProcess(ctx context.Context, pid int32) (processHandle, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	return gopsProcess{p: p}, nil
}

func (g gopsProcess) Name(ctx context.Context) (string, error) {
	return g.p.NameWithContext(ctx)
}

func (g gopsProcess) CPUPercent(ctx context.Context) (float64, error) {
	return g.p.PercentWithContext(ctx, 0)
}

func (g gopsProcess) MemoryPercent(ctx context.Context) (float64, error) {
	v, err := g.p.MemoryPercentWithContext(ctx)
	return float64(v), err
}

func (g gopsProcess) Zombie(ctx context.Context) bool {
	status, err := g.p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, st := range status {
		if st == process.Zombie {
			return true
		}
	}
	return false
}

func clampFloat(val, min, max float64) float64 {
	if math.IsNaN(val) {
		return min
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
