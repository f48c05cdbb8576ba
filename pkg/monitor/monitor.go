// Package monitor watches named numeric signals against a target value and
// two tolerance bands, debounces sustained deviations through a confirmation
// window, and notifies callbacks once per committed transition.
//
// A Monitor is an explicitly owned instance; any number of independent
// monitors can coexist in one process.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is used by Start when no positive interval is given.
const DefaultPollInterval = 100 * time.Millisecond

// Monitor owns the signal registry and the background evaluation worker.
// All methods are safe for concurrent use.
type Monitor struct {
	// mu guards the signal map for registry operations and full evaluation
	// sweeps. Value callbacks run under it; notifications do not.
	mu      sync.Mutex
	signals map[string]*record

	// lcMu serializes Start/Stop. The running flag is atomic so Running
	// stays callable from notification callbacks while Stop is joining the
	// worker.
	lcMu    sync.Mutex
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	now     func() time.Time
	metrics *Metrics
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMetrics attaches Prometheus collectors. Without it the monitor records
// nothing, which is the intended mode for plain library use.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// New creates an empty, stopped monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		signals: make(map[string]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Register adds a signal. The signal becomes eligible for evaluation on the
// next sweep and starts in StateUnknown until its arm delay expires.
// Registering an id that is already present fails with ErrAlreadyRegistered
// and leaves the existing registration untouched.
func (m *Monitor) Register(id string, cfg SignalConfig) error {
	if cfg.Value == nil {
		return ErrNoValueFunc
	}
	if cfg.WarningThreshold >= cfg.FaultThreshold {
		return ErrThresholdOrder
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.signals[id]; exists {
		return ErrAlreadyRegistered
	}

	m.signals[id] = &record{
		id:           id,
		cfg:          cfg,
		state:        StateUnknown,
		registeredAt: m.now(),
	}
	if m.metrics != nil {
		m.metrics.Signals.Set(float64(len(m.signals)))
	}

	logrus.Infof("registered signal %s (target: %v, warning: %v, fault: %v)",
		id, cfg.Target, cfg.WarningThreshold, cfg.FaultThreshold)
	return nil
}

// Remove deletes a signal immediately, regardless of in-flight confirmation
// timers. Removing an unknown id is a no-op.
func (m *Monitor) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.signals[id]; !exists {
		return
	}

	delete(m.signals, id)
	if m.metrics != nil {
		m.metrics.Signals.Set(float64(len(m.signals)))
	}
	logrus.Infof("removed signal %s", id)
}

// State returns the committed classification of a signal. Unregistered ids
// report StateNormal: callers are not expected to distinguish "absent" from
// "fine".
func (m *Monitor) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, exists := m.signals[id]; exists {
		return rec.state
	}

	return StateNormal
}

// Count returns the number of registered signals.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.signals)
}

// Start launches the background worker sweeping every registered signal at
// the given interval. Starting a running monitor is a no-op. An interval of
// zero or less falls back to DefaultPollInterval.
func (m *Monitor) Start(interval time.Duration) {
	m.lcMu.Lock()
	defer m.lcMu.Unlock()

	if m.running.Load() {
		logrus.Warn("monitor already running, ignoring start")
		return
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.running.Store(true)
	go m.run(interval, m.stop, m.done)

	logrus.Infof("monitor started (poll interval: %v)", interval)
}

// Stop halts the background worker and blocks until the in-flight sweep, if
// any, has finished. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.lcMu.Lock()
	defer m.lcMu.Unlock()

	if !m.running.Load() {
		return
	}

	close(m.stop)
	<-m.done
	m.running.Store(false)

	logrus.Info("monitor stopped")
}

// Running reports whether the background worker is active.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// run is the worker loop: sweep, then wait for the next tick or shutdown.
func (m *Monitor) run(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.sweep(m.now())

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// sweep evaluates every registered signal under the lock, then dispatches
// the committed transitions after releasing it. A transition collected here
// is dispatched even if the signal is removed concurrently: at most one
// sweep of stale work, never a missed or duplicated notification.
func (m *Monitor) sweep(now time.Time) {
	start := time.Now()

	m.mu.Lock()
	var transitions []*transition
	for id, rec := range m.signals {
		tr, err := evaluate(rec, now)
		if err != nil {
			// One signal's acquisition failure never affects the rest of
			// the sweep; the next tick is the implicit retry.
			logrus.Errorf("failed to read value for signal %s: %v", id, err)
			if m.metrics != nil {
				m.metrics.AcquisitionFailures.WithLabelValues(id).Inc()
			}
			continue
		}
		if tr != nil {
			transitions = append(transitions, tr)
		}
	}
	m.mu.Unlock()

	for _, tr := range transitions {
		logrus.Infof("signal %s transitioned to %s (value: %v)", tr.signalID, tr.state, tr.value)
		if m.metrics != nil {
			m.metrics.Transitions.WithLabelValues(tr.state.String()).Inc()
		}
		if tr.notify != nil {
			tr.notify(tr.signalID, tr.value)
		}
	}

	if m.metrics != nil {
		m.metrics.Sweeps.Inc()
		m.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
}
