// Package notify carries committed transitions out of the process. Notifier
// failures are logged and swallowed: a broken notification channel never
// feeds back into signal evaluation.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
)

// Event is a committed classification transition.
type Event struct {
	SignalID  string        `json:"signal_id"`
	State     monitor.State `json:"-"`
	StateName string        `json:"state"`
	Value     float64       `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier delivers a transition event to some sink.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Log writes transitions to the application log. It is the daemon's default
// notifier.
type Log struct{}

// NewLog creates a log notifier.
func NewLog() *Log {
	return &Log{}
}

// Notify logs the event at a severity matching its state.
func (l *Log) Notify(_ context.Context, ev Event) error {
	entry := logrus.WithFields(logrus.Fields{
		"signal_id": ev.SignalID,
		"state":     ev.State.String(),
		"value":     ev.Value,
	})

	switch ev.State {
	case monitor.StateFault:
		entry.Error("signal fault confirmed")
	case monitor.StateWarning:
		entry.Warn("signal warning confirmed")
	default:
		entry.Info("signal state committed")
	}

	return nil
}

// Multi fans an event out to several notifiers. One failing notifier never
// blocks delivery to the others.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Notify delivers to every notifier, logging individual failures.
func (m *Multi) Notify(ctx context.Context, ev Event) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			logrus.Errorf("notifier %T failed for signal %s: %v", n, ev.SignalID, err)
		}
	}

	return nil
}

// Bind adapts a Notifier to a monitor callback for one level. Use it to wire
// the same notifier chain into OnWarning and OnFault.
func Bind(n Notifier, state monitor.State) monitor.NotifyFunc {
	return func(signalID string, value float64) {
		ev := Event{
			SignalID:  signalID,
			State:     state,
			StateName: state.String(),
			Value:     value,
			Timestamp: time.Now(),
		}
		if err := n.Notify(context.Background(), ev); err != nil {
			logrus.Errorf("failed to notify %s for signal %s: %v", state, signalID, err)
		}
	}
}
