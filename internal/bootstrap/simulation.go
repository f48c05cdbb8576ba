package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/tolerance-monitor/pkg/source"
)

// sensorProfile replays a sequence of readings into a simulated source,
// stepping to the next value on a fixed interval and wrapping around.
type sensorProfile struct {
	signalID string
	interval time.Duration
	values   []float64
}

// demoProfiles walk each sensor from normal through warning and fault and
// back, so a simulation-enabled daemon exercises every transition of the
// state machine without external producers.
var demoProfiles = []sensorProfile{
	{
		signalID: "temperature_sensor",
		interval: 800 * time.Millisecond,
		values:   []float64{20.0, 25.0, 65.0, 70.0, 75.0, 85.0, 90.0, 95.0, 70.0, 60.0, 30.0, 25.0},
	},
	{
		signalID: "pressure_sensor",
		interval: 1 * time.Second,
		values:   []float64{1000.0, 1200.0, 1400.0, 1600.0, 1700.0, 1900.0, 2100.0, 1500.0, 1000.0, 800.0},
	},
}

// Simulation drives simulated value sources with demo sensor data.
type Simulation struct {
	stores map[string]*source.Static
}

// NewSimulation creates a simulation over the simulated sources produced by
// RegisterSignals. Profiles without a matching simulated signal are skipped.
func NewSimulation(stores map[string]*source.Static) *Simulation {
	return &Simulation{stores: stores}
}

// Run replays all profiles until the context is cancelled.
func (s *Simulation) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, profile := range demoProfiles {
		store, ok := s.stores[profile.signalID]
		if !ok {
			logrus.Warnf("simulation profile %s has no simulated signal, skipping", profile.signalID)
			continue
		}

		wg.Add(1)
		go func(p sensorProfile, st *source.Static) {
			defer wg.Done()
			s.replay(ctx, p, st)
		}(profile, store)
	}

	wg.Wait()
}

func (s *Simulation) replay(ctx context.Context, p sensorProfile, store *source.Static) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value := p.values[i%len(p.values)]
			store.Set(value)
			logrus.Debugf("simulated sensor %s updated to %v", p.signalID, value)
			i++
		}
	}
}
