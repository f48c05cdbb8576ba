// Package source provides value source implementations feeding the monitor.
// Values are always pulled: the monitor asks a source on every tick, nothing
// is pushed into it.
package source

import (
	"math"
	"sync/atomic"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
)

// Static is a process-local, concurrently settable value. Producers (sensor
// drivers, simulators, tests) write into it; the monitor reads the latest
// value on every tick.
type Static struct {
	bits atomic.Uint64
}

// NewStatic creates a static source holding the initial value.
func NewStatic(initial float64) *Static {
	s := &Static{}
	s.Set(initial)
	return s
}

// Set stores a new current value.
func (s *Static) Set(value float64) {
	s.bits.Store(math.Float64bits(value))
}

// Get returns the current value.
func (s *Static) Get() float64 {
	return math.Float64frombits(s.bits.Load())
}

// ValueFunc adapts the source for signal registration. It never fails.
func (s *Static) ValueFunc() monitor.ValueFunc {
	return func(string) (float64, error) {
		return s.Get(), nil
	}
}
