package monitor

import (
	"errors"
	"time"
)

// State is the committed classification of a monitored signal.
type State int

const (
	// StateUnknown is the initial classification before the arm delay expires.
	StateUnknown State = iota
	// StateNormal means the deviation from target is within the warning band.
	StateNormal
	// StateWarning means the deviation exceeded the warning threshold for a
	// full confirmation window.
	StateWarning
	// StateFault means the deviation exceeded the fault threshold for a full
	// confirmation window.
	StateFault
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateFault:
		return "FAULT"
	default:
		return "INVALID"
	}
}

// ValueFunc supplies the current value of a signal. It is invoked once per
// evaluation tick while the registry lock is held, so it must be fast and
// must not call back into the Monitor. A returned error skips evaluation of
// that signal for the current tick only.
type ValueFunc func(signalID string) (float64, error)

// NotifyFunc receives a committed transition. Notifications are dispatched
// after the registry lock is released, so a NotifyFunc may safely call back
// into the Monitor.
type NotifyFunc func(signalID string, value float64)

// SignalConfig describes how a single signal is monitored. It is read-only
// after registration.
type SignalConfig struct {
	// Target is the expected value of the signal.
	Target float64

	// WarningThreshold is the minimum absolute deviation from Target that
	// classifies as WARNING. Must be strictly below FaultThreshold.
	WarningThreshold float64

	// FaultThreshold is the minimum absolute deviation from Target that
	// classifies as FAULT.
	FaultThreshold float64

	// ArmDelay is the grace period after registration before classification
	// begins. The signal stays UNKNOWN while arming.
	ArmDelay time.Duration

	// ConfirmWindow is how long a deviation must sit in a band before the
	// classification commits and the callback fires. Recovery to NORMAL is
	// never debounced.
	ConfirmWindow time.Duration

	// Value supplies the current signal value. Required.
	Value ValueFunc

	// OnWarning fires at most once per committed transition into WARNING.
	// Optional.
	OnWarning NotifyFunc

	// OnFault fires at most once per committed transition into FAULT.
	// Optional.
	OnFault NotifyFunc
}

var (
	// ErrAlreadyRegistered is returned when registering an id that is already
	// present. The existing registration is untouched.
	ErrAlreadyRegistered = errors.New("monitor: signal already registered")

	// ErrNoValueFunc is returned when SignalConfig.Value is nil.
	ErrNoValueFunc = errors.New("monitor: signal config has no value func")

	// ErrThresholdOrder is returned when the warning threshold is not below
	// the fault threshold, which would leave an empty or inverted warning
	// band.
	ErrThresholdOrder = errors.New("monitor: warning threshold must be below fault threshold")
)

// record is a registered signal: its immutable config plus the runtime state
// mutated only under the Monitor's lock.
type record struct {
	id  string
	cfg SignalConfig

	state        State
	registeredAt time.Time

	warningActive bool
	warningSince  time.Time
	faultActive   bool
	faultSince    time.Time
}
