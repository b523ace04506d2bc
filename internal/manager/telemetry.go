// Package manager runs the collection engine: it samples the host on a fixed
// cadence, evaluates alert latches, persists history and hands events to the
// presentation layer.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"procmon/internal/models"
	"procmon/internal/utils"
)

const (
	// DefaultInterval is the nominal time between two ticks.
	DefaultInterval = 1000 * time.Millisecond
	// DefaultSweepInterval is the wall-clock gap between retention sweeps.
	DefaultSweepInterval = time.Hour
)

// ErrAlreadyStarted is returned by Start on a manager that left INITIALIZING.
var ErrAlreadyStarted = errors.New("collection loop already started")

// HistoryStore is the persistence the loop writes to.
type HistoryStore interface {
	Append(ctx context.Context, sample models.Sample) error
	Sweep(ctx context.Context, retentionDays int, now time.Time) (int64, error)
	LoadTail(ctx context.Context, n int) ([]models.Sample, error)
	Close() error
}

// ThresholdSource supplies configuration that may change while running.
type ThresholdSource interface {
	Thresholds() models.Thresholds
	RetentionDays() int
}

// State is the lifecycle of the collection loop.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options wires a Manager. OpenStore is called once by Start.
type Options struct {
	Sampler       Sampler
	OpenStore     func() (HistoryStore, error)
	Settings      ThresholdSource
	Logger        *utils.Logger
	Interval      time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Manager is the collection loop. After Start it is the only writer of the
// latch state, the history store and the rolling windows.
type Manager struct {
	sampler       Sampler
	openStore     func() (HistoryStore, error)
	settings      ThresholdSource
	log           *utils.Logger
	interval      time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	events   *EventQueue
	series   *Series
	snapshot atomic.Pointer[models.HistorySnapshot]

	// Owned by the loop goroutine.
	store      HistoryStore
	latch      models.LatchState
	lastSweep  time.Time
	persistLog rate.Sometimes

	mu    sync.Mutex
	state State
	stop  chan struct{}
	wg    sync.WaitGroup
	ticks atomic.Uint64
}

// NewManager validates options and returns a manager in INITIALIZING.
func NewManager(opts Options) (*Manager, error) {
	if opts.Sampler == nil {
		return nil, errors.New("sampler is required")
	}
	if opts.OpenStore == nil {
		return nil, errors.New("history store opener is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("threshold source is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		sampler:       opts.Sampler,
		openStore:     opts.OpenStore,
		settings:      opts.Settings,
		log:           opts.Logger,
		interval:      opts.Interval,
		sweepInterval: opts.SweepInterval,
		now:           opts.Now,
		events:        NewEventQueue(),
		series:        NewSeries(HistorySize),
		latch:         models.NewLatchState(),
		persistLog:    rate.Sometimes{First: 3, Interval: time.Minute},
		state:         StateInitializing,
	}
	empty := m.series.Snapshot()
	m.snapshot.Store(&empty)
	return m, nil
}

// Events returns the queue consumers drain.
func (m *Manager) Events() *EventQueue {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HistorySnapshot returns a copy of the rolling windows as of the last tick
// (or of startup seeding).
func (m *Manager) HistorySnapshot() models.HistorySnapshot {
	return *m.snapshot.Load()
}

// Ticks returns the number of completed ticks.
func (m *Manager) Ticks() uint64 {
	return m.ticks.Load()
}

// Start opens the history store, seeds the rolling windows and launches the
// loop. A store that cannot be opened leaves the manager STOPPED; there is no
// store-less mode.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInitializing {
		return ErrAlreadyStarted
	}

	store, err := m.openStore()
	if err != nil {
		m.state = StateStopped
		m.events.Close()
		m.log.Errorf("Collection loop cannot start: history store unavailable: %v", err)
		return fmt.Errorf("open history store: %w", err)
	}
	m.store = store

	records, err := store.LoadTail(ctx, HistorySize)
	if err != nil {
		m.log.Warnf("Unable to load recent history: %v", err)
	}
	m.series.Seed(records)
	seeded := m.series.Snapshot()
	m.snapshot.Store(&seeded)
	m.log.Infof("Collection loop starting (interval=%s, seeded=%d points)", m.interval, len(records))

	m.stop = make(chan struct{})
	m.state = StateRunning
	m.wg.Add(1)
	go m.run(m.stop)
	return nil
}

// Stop ends the loop: no new tick starts, the running tick completes, the
// event queue is closed and the store is released. Safe to call repeatedly.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.state != StateRunning {
		if m.state == StateInitializing {
			m.state = StateStopped
			m.events.Close()
		}
		m.mu.Unlock()
		return
	}
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events.Close()
	if err := m.store.Close(); err != nil {
		m.log.Warnf("Closing history store: %v", err)
	}
	m.state = StateStopped
	m.log.Infof("Collection loop stopped after %d ticks", m.ticks.Load())
}

func (m *Manager) run(stop <-chan struct{}) {
	defer m.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}
		started := time.Now()
		m.safeTick()
		wait := m.interval - time.Since(started)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (m *Manager) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("Collection tick failed: %v", r)
		}
	}()
	timeout := 5 * m.interval
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	m.tick(ctx)
}

// tick runs one sample/evaluate/persist/emit cycle.
func (m *Manager) tick(ctx context.Context) {
	thresholds := m.settings.Thresholds()

	sample, procs := m.sampler.Sample(ctx)
	alerts, latch := Evaluate(sample, procs, thresholds, m.latch)
	m.latch = latch

	if err := m.store.Append(ctx, sample); err != nil {
		m.persistLog.Do(func() {
			m.log.Errorf("History insert failed: %v", err)
		})
	}

	m.series.Push(sample)
	snap := m.series.Snapshot()
	m.snapshot.Store(&snap)

	for _, alert := range alerts {
		m.log.WithFields(map[string]any{
			"scope": alert.Scope,
			"what":  alert.Subject(),
			"pid":   alert.PID,
			"value": fmt.Sprintf("%.1f", alert.Value),
		}).Warn("Alert raised")
		m.events.Send(alert)
	}
	m.events.Send(models.NewStatsEvent(sample, procs.Top(models.TopProcessCount), snap))

	m.maybeSweep(ctx)
	m.ticks.Add(1)
}

// maybeSweep runs the retention sweep when at least sweepInterval of wall
// clock has passed since the previous attempt.
func (m *Manager) maybeSweep(ctx context.Context) {
	now := m.now()
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.sweepInterval {
		return
	}
	m.lastSweep = now
	days := m.settings.RetentionDays()
	removed, err := m.store.Sweep(ctx, days, now)
	if err != nil {
		m.log.Errorf("History cleanup failed: %v", err)
		return
	}
	m.log.Infof("History cleanup: removed %d samples older than %d days", removed, days)
}
