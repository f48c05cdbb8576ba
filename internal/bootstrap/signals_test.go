package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
	"github.com/edgewatch/tolerance-monitor/pkg/notify"
)

func writeSignalsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "signals.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write signals file: %v", err)
	}
	return path
}

const validSignalsYAML = `
signals:
  - id: temperature_sensor
    target: 40.0
    warning_threshold: 20.0
    fault_threshold: 40.0
    arm_delay_ms: 1000
    confirm_window_ms: 2000
    source: simulated
  - id: coolant_flow
    target: 12.0
    warning_threshold: 2.0
    fault_threshold: 4.0
    arm_delay_ms: 500
    confirm_window_ms: 1500
    source: redis
    source_key: plant_a_coolant
`

func TestLoadSignals(t *testing.T) {
	path := writeSignalsFile(t, validSignalsYAML)

	cfg, err := LoadSignals(path)
	if err != nil {
		t.Fatalf("LoadSignals() error = %v", err)
	}

	if len(cfg.Signals) != 2 {
		t.Fatalf("got %d signals, expected 2", len(cfg.Signals))
	}

	temp := cfg.Signals[0]
	if temp.ID != "temperature_sensor" || temp.Target != 40.0 || temp.ConfirmWindowMs != 2000 {
		t.Errorf("unexpected first definition: %+v", temp)
	}

	flow := cfg.Signals[1]
	if flow.Source != SourceRedis || flow.SourceKey != "plant_a_coolant" {
		t.Errorf("unexpected second definition: %+v", flow)
	}
}

func TestLoadSignals_MissingFile(t *testing.T) {
	if _, err := LoadSignals(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadSignals() error = nil, expected a read error")
	}
}

func TestLoadSignals_EnvExpansion(t *testing.T) {
	t.Setenv("FLOW_TARGET", "15.5")

	path := writeSignalsFile(t, `
signals:
  - id: flow
    target: ${FLOW_TARGET}
    warning_threshold: ${FLOW_WARN:2.0}
    fault_threshold: 4.0
    source: simulated
`)

	cfg, err := LoadSignals(path)
	if err != nil {
		t.Fatalf("LoadSignals() error = %v", err)
	}

	def := cfg.Signals[0]
	if def.Target != 15.5 {
		t.Errorf("Target = %v, expected the env value 15.5", def.Target)
	}
	if def.WarningThreshold != 2.0 {
		t.Errorf("WarningThreshold = %v, expected the default 2.0", def.WarningThreshold)
	}
}

func TestLoadSignals_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "empty id",
			yaml: `
signals:
  - id: ""
    target: 1.0
    warning_threshold: 1.0
    fault_threshold: 2.0
    source: simulated
`,
			wantErr: "empty ID",
		},
		{
			name: "duplicate id",
			yaml: `
signals:
  - id: temp
    target: 1.0
    warning_threshold: 1.0
    fault_threshold: 2.0
    source: simulated
  - id: temp
    target: 1.0
    warning_threshold: 1.0
    fault_threshold: 2.0
    source: simulated
`,
			wantErr: "duplicate signal ID",
		},
		{
			name: "unknown source kind",
			yaml: `
signals:
  - id: temp
    target: 1.0
    warning_threshold: 1.0
    fault_threshold: 2.0
    source: carrier_pigeon
`,
			wantErr: "unknown source kind",
		},
		{
			name: "thresholds out of order",
			yaml: `
signals:
  - id: temp
    target: 1.0
    warning_threshold: 5.0
    fault_threshold: 2.0
    source: simulated
`,
			wantErr: "must be below fault threshold",
		},
		{
			name: "negative confirm window",
			yaml: `
signals:
  - id: temp
    target: 1.0
    warning_threshold: 1.0
    fault_threshold: 2.0
    confirm_window_ms: -100
    source: simulated
`,
			wantErr: "non-negative",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSignalsFile(t, tc.yaml)

			_, err := LoadSignals(path)
			if err == nil {
				t.Fatalf("LoadSignals() error = nil, expected %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("LoadSignals() error = %v, expected it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterSignals_Simulated(t *testing.T) {
	cfg := &SignalsConfig{
		Signals: []SignalDef{
			{
				ID:               "temperature_sensor",
				Target:           40.0,
				WarningThreshold: 20.0,
				FaultThreshold:   40.0,
				Source:           SourceSimulated,
			},
		},
	}

	mon := monitor.New()
	sources := &Sources{}

	if err := RegisterSignals(mon, cfg, sources, notify.NewLog()); err != nil {
		t.Fatalf("RegisterSignals() error = %v", err)
	}

	if mon.Count() != 1 {
		t.Errorf("Count() = %d, expected 1", mon.Count())
	}

	st, ok := sources.Simulated["temperature_sensor"]
	if !ok {
		t.Fatal("simulated store for temperature_sensor was not created")
	}
	if got := st.Get(); got != 40.0 {
		t.Errorf("simulated store initial value = %v, expected the target 40.0", got)
	}
}

func TestRegisterSignals_RedisDisabled(t *testing.T) {
	cfg := &SignalsConfig{
		Signals: []SignalDef{
			{
				ID:               "coolant_flow",
				Target:           12.0,
				WarningThreshold: 2.0,
				FaultThreshold:   4.0,
				Source:           SourceRedis,
			},
		},
	}

	err := RegisterSignals(monitor.New(), cfg, &Sources{}, notify.NewLog())
	if err == nil {
		t.Fatal("RegisterSignals() error = nil, expected a disabled-redis error")
	}
	if !strings.Contains(err.Error(), "redis is disabled") {
		t.Errorf("error = %v, expected it to mention redis being disabled", err)
	}
}

func TestRegisterSignals_DuplicateAcrossCalls(t *testing.T) {
	cfg := &SignalsConfig{
		Signals: []SignalDef{
			{
				ID:               "temp",
				Target:           1.0,
				WarningThreshold: 1.0,
				FaultThreshold:   2.0,
				Source:           SourceSimulated,
			},
		},
	}

	mon := monitor.New()
	if err := RegisterSignals(mon, cfg, &Sources{}, notify.NewLog()); err != nil {
		t.Fatalf("first RegisterSignals() error = %v", err)
	}

	err := RegisterSignals(mon, cfg, &Sources{}, notify.NewLog())
	if err == nil {
		t.Fatal("second RegisterSignals() error = nil, expected a duplicate error")
	}
}
