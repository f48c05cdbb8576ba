package monitor

import (
	"errors"
	"testing"
	"time"
)

// scenario wires one signal into a monitor with a manual clock and a
// test-controlled value, and steps sweeps at a fixed poll interval.
type scenario struct {
	t     *testing.T
	m     *Monitor
	clock *testClock

	value    float64
	warnings []float64
	faults   []float64
}

func newScenario(t *testing.T, cfg SignalConfig) *scenario {
	t.Helper()

	s := &scenario{t: t, value: cfg.Target}
	s.m, s.clock = newTestMonitor()

	cfg.Value = func(string) (float64, error) {
		return s.value, nil
	}
	cfg.OnWarning = func(_ string, value float64) {
		s.warnings = append(s.warnings, value)
	}
	cfg.OnFault = func(_ string, value float64) {
		s.faults = append(s.faults, value)
	}

	if err := s.m.Register("sig", cfg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return s
}

// step advances the clock by d and runs one sweep.
func (s *scenario) step(d time.Duration) {
	s.m.sweep(s.clock.advance(d))
}

func (s *scenario) state() State {
	return s.m.State("sig")
}

func defaultSignalConfig() SignalConfig {
	return SignalConfig{
		Target:           25.0,
		WarningThreshold: 8.0,
		FaultThreshold:   15.0,
		ArmDelay:         1000 * time.Millisecond,
		ConfirmWindow:    2000 * time.Millisecond,
	}
}

func TestEvaluate_ArmDelay(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 100.0 // far into the fault band

	// Classification stays UNKNOWN for every tick inside the arm delay,
	// regardless of value.
	for i := 0; i < 9; i++ {
		s.step(100 * time.Millisecond)
		if got := s.state(); got != StateUnknown {
			t.Fatalf("State() at %dms = %v, expected UNKNOWN", (i+1)*100, got)
		}
	}
	if len(s.warnings)+len(s.faults) != 0 {
		t.Errorf("callbacks fired while arming: %d warnings, %d faults", len(s.warnings), len(s.faults))
	}

	// At 1000ms the signal arms; the fault timer starts but the commit still
	// waits for the confirmation window.
	s.step(100 * time.Millisecond)
	if got := s.state(); got != StateUnknown {
		t.Fatalf("State() at 1000ms = %v, expected UNKNOWN (fault not yet confirmed)", got)
	}

	for i := 0; i < 20; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateFault {
		t.Errorf("State() after confirm window = %v, expected FAULT", got)
	}
	if len(s.faults) != 1 {
		t.Errorf("OnFault fired %d times, expected 1", len(s.faults))
	}
}

func TestEvaluate_ArmsDirectlyIntoNormal(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 20.0 // deviation 5.0, inside tolerance

	s.step(500 * time.Millisecond)
	if got := s.state(); got != StateUnknown {
		t.Fatalf("State() at 500ms = %v, expected UNKNOWN", got)
	}

	s.step(500 * time.Millisecond)
	if got := s.state(); got != StateNormal {
		t.Errorf("State() at 1000ms = %v, expected NORMAL immediately after arming", got)
	}
}

func TestEvaluate_DebouncedEscalation(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 25.0

	// Arm and settle in NORMAL.
	s.step(1000 * time.Millisecond)
	if got := s.state(); got != StateNormal {
		t.Fatalf("State() after arming = %v, expected NORMAL", got)
	}

	// Enter the warning band. The window runs from the first in-band sweep,
	// so nothing commits for a full confirmation window after that.
	s.value = 35.0 // deviation 10.0
	for i := 0; i < 20; i++ {
		s.step(100 * time.Millisecond)
		if got := s.state(); got != StateNormal {
			t.Fatalf("State() on in-band sweep %d = %v, expected NORMAL", i+1, got)
		}
		if len(s.warnings) != 0 {
			t.Fatalf("OnWarning fired on in-band sweep %d", i+1)
		}
	}

	s.step(100 * time.Millisecond)
	if got := s.state(); got != StateWarning {
		t.Fatalf("State() after confirm window = %v, expected WARNING", got)
	}
	if len(s.warnings) != 1 {
		t.Fatalf("OnWarning fired %d times, expected exactly 1", len(s.warnings))
	}
	if s.warnings[0] != 35.0 {
		t.Errorf("OnWarning value = %v, expected 35.0", s.warnings[0])
	}
}

func TestEvaluate_NoRefire(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 35.0

	// Arm, then sit in the warning band long enough to commit and then some.
	for i := 0; i < 60; i++ {
		s.step(100 * time.Millisecond)
	}

	if got := s.state(); got != StateWarning {
		t.Fatalf("State() = %v, expected WARNING", got)
	}
	if len(s.warnings) != 1 {
		t.Errorf("OnWarning fired %d times while staying in the band, expected 1", len(s.warnings))
	}
}

func TestEvaluate_ImmediateRecovery(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 45.0 // fault band

	for i := 0; i < 40; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateFault {
		t.Fatalf("State() = %v, expected FAULT before recovery", got)
	}

	// A single in-tolerance tick commits NORMAL, no debounce.
	s.value = 26.0
	s.step(100 * time.Millisecond)
	if got := s.state(); got != StateNormal {
		t.Errorf("State() one tick after recovery = %v, expected NORMAL", got)
	}
}

func TestEvaluate_FaultDominance(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 45.0 // deviation 20.0: above both thresholds

	for i := 0; i < 40; i++ {
		s.step(100 * time.Millisecond)
		if got := s.state(); got == StateWarning {
			t.Fatal("signal passed through a committed WARNING state on its way to FAULT")
		}
	}

	if got := s.state(); got != StateFault {
		t.Fatalf("State() = %v, expected FAULT", got)
	}
	if len(s.warnings) != 0 {
		t.Errorf("OnWarning fired %d times for a fault-band deviation", len(s.warnings))
	}
	if len(s.faults) != 1 {
		t.Errorf("OnFault fired %d times, expected 1", len(s.faults))
	}
}

func TestEvaluate_OscillationNeverCommits(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 25.0
	s.step(1000 * time.Millisecond) // arm, NORMAL

	// Bounce between the warning and fault bands, staying in each for less
	// than the confirmation window. Each band entry cancels the other
	// band's timer, so nothing ever commits.
	for cycle := 0; cycle < 5; cycle++ {
		s.value = 35.0 // warning band
		for i := 0; i < 10; i++ {
			s.step(100 * time.Millisecond)
		}
		s.value = 45.0 // fault band
		for i := 0; i < 10; i++ {
			s.step(100 * time.Millisecond)
		}
	}

	if got := s.state(); got != StateNormal {
		t.Errorf("State() after oscillation = %v, expected NORMAL (no commit)", got)
	}
	if len(s.warnings)+len(s.faults) != 0 {
		t.Errorf("callbacks fired during oscillation: %d warnings, %d faults", len(s.warnings), len(s.faults))
	}
}

func TestEvaluate_TimerRestartsOnBandReentry(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 25.0
	s.step(1000 * time.Millisecond) // arm, NORMAL

	// 1.9s in the warning band: 0.1s short of confirmation.
	s.value = 35.0
	for i := 0; i < 19; i++ {
		s.step(100 * time.Millisecond)
	}

	// Leave for one tick, then re-enter. The timer must restart, so another
	// 1.9s in-band still commits nothing.
	s.value = 25.0
	s.step(100 * time.Millisecond)
	s.value = 35.0
	for i := 0; i < 19; i++ {
		s.step(100 * time.Millisecond)
	}

	if got := s.state(); got != StateNormal {
		t.Errorf("State() = %v, expected NORMAL (timer must restart on re-entry)", got)
	}
	if len(s.warnings) != 0 {
		t.Errorf("OnWarning fired %d times, expected 0", len(s.warnings))
	}
}

func TestEvaluate_FaultToWarningTransition(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 45.0

	for i := 0; i < 40; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateFault {
		t.Fatalf("State() = %v, expected FAULT", got)
	}

	// Drop into the warning band; after a full confirmation window the
	// committed classification steps down and OnWarning fires once.
	s.value = 35.0
	for i := 0; i < 25; i++ {
		s.step(100 * time.Millisecond)
	}

	if got := s.state(); got != StateWarning {
		t.Errorf("State() = %v, expected WARNING after stepping down from FAULT", got)
	}
	if len(s.warnings) != 1 {
		t.Errorf("OnWarning fired %d times, expected 1", len(s.warnings))
	}
}

func TestEvaluate_BoundaryComparisons(t *testing.T) {
	// Escalation into a band uses >=: a deviation exactly at a threshold
	// belongs to that band.
	s := newScenario(t, defaultSignalConfig())

	s.value = 33.0 // deviation exactly 8.0: warning band
	for i := 0; i < 40; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateWarning {
		t.Errorf("State() at deviation == warning threshold = %v, expected WARNING", got)
	}

	s.value = 40.0 // deviation exactly 15.0: fault band
	for i := 0; i < 25; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateFault {
		t.Errorf("State() at deviation == fault threshold = %v, expected FAULT", got)
	}
}

func TestEvaluate_AcquisitionFailureSkipsSignalOnly(t *testing.T) {
	m, clock := newTestMonitor()

	// One signal whose source always fails, one healthy signal in the fault
	// band with no debounce.
	broken := validConfig(0)
	broken.Value = func(string) (float64, error) {
		return 0, errors.New("sensor offline")
	}
	if err := m.Register("broken", broken); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	faultFired := 0
	healthy := SignalConfig{
		Target:           10.0,
		WarningThreshold: 1.0,
		FaultThreshold:   2.0,
		Value:            constValue(20.0),
		OnFault:          func(string, float64) { faultFired++ },
	}
	if err := m.Register("healthy", healthy); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		m.sweep(clock.advance(100 * time.Millisecond))
	}

	// The failing signal keeps its last committed classification (UNKNOWN,
	// it never armed into anything) and does not poison the sweep.
	if got := m.State("broken"); got != StateUnknown {
		t.Errorf("State(broken) = %v, expected UNKNOWN", got)
	}
	if got := m.State("healthy"); got != StateFault {
		t.Errorf("State(healthy) = %v, expected FAULT", got)
	}
	if faultFired != 1 {
		t.Errorf("OnFault fired %d times, expected 1", faultFired)
	}
}

// TestEvaluate_ReferenceScenario walks the documented end-to-end sequence:
// target 25.0, warning 8.0, fault 15.0, arm 1000ms, confirm 2000ms, polled
// every 100ms.
func TestEvaluate_ReferenceScenario(t *testing.T) {
	s := newScenario(t, defaultSignalConfig())
	s.value = 20.0

	// t=0..500ms: still arming.
	for i := 0; i < 5; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateUnknown {
		t.Fatalf("t=500ms: State() = %v, expected UNKNOWN", got)
	}

	// t=1000ms: armed, deviation 5.0 < 8.0, NORMAL immediately.
	for i := 0; i < 5; i++ {
		s.step(100 * time.Millisecond)
	}
	if got := s.state(); got != StateNormal {
		t.Fatalf("t=1000ms: State() = %v, expected NORMAL", got)
	}

	// t=1100ms: value jumps to 35.0 (deviation 10.0, warning band).
	s.value = 35.0
	for i := 0; i < 20; i++ { // t=1100..3000ms
		s.step(100 * time.Millisecond)
		if got := s.state(); got != StateNormal {
			t.Fatalf("State() before confirm = %v, expected NORMAL", got)
		}
	}

	// t=3100ms: confirmation window elapsed, WARNING commits, callback
	// fires exactly once with the current value.
	s.step(100 * time.Millisecond)
	if got := s.state(); got != StateWarning {
		t.Fatalf("t=3100ms: State() = %v, expected WARNING", got)
	}
	if len(s.warnings) != 1 || s.warnings[0] != 35.0 {
		t.Fatalf("t=3100ms: warnings = %v, expected exactly [35.0]", s.warnings)
	}

	// t=3200ms: value recovers to 26.0; NORMAL commits on the very next
	// tick with no debounce.
	s.value = 26.0
	s.step(100 * time.Millisecond)
	if got := s.state(); got != StateNormal {
		t.Errorf("t=3300ms: State() = %v, expected NORMAL", got)
	}
	if len(s.warnings) != 1 {
		t.Errorf("OnWarning re-fired: %v", s.warnings)
	}
}
