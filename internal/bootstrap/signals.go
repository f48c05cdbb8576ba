package bootstrap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/edgewatch/tolerance-monitor/pkg/monitor"
	"github.com/edgewatch/tolerance-monitor/pkg/notify"
	"github.com/edgewatch/tolerance-monitor/pkg/source"
)

// Source kinds a signal definition may declare.
const (
	SourceRedis     = "redis"
	SourceSimulated = "simulated"
)

// SignalsConfig is the declarative set of signals registered at startup.
type SignalsConfig struct {
	Signals []SignalDef `yaml:"signals"`
}

// SignalDef is one signal definition entry.
type SignalDef struct {
	ID               string  `yaml:"id"`
	Target           float64 `yaml:"target"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	FaultThreshold   float64 `yaml:"fault_threshold"`
	ArmDelayMs       int     `yaml:"arm_delay_ms"`
	ConfirmWindowMs  int     `yaml:"confirm_window_ms"`
	Source           string  `yaml:"source"`
	SourceKey        string  `yaml:"source_key,omitempty"` // redis key suffix, defaults to the signal id
}

// LoadSignals loads signal definitions from a YAML file. Supports environment
// variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadSignals(path string) (*SignalsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signals file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var config SignalsConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML signals config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signals config: %w", err)
	}

	return &config, nil
}

// Validate checks the definitions for common errors. Threshold semantics are
// enforced again by the monitor at registration; the checks here exist to
// fail startup with a file-level message instead of a per-signal one.
func (c *SignalsConfig) Validate() error {
	ids := make(map[string]bool)
	for _, def := range c.Signals {
		if def.ID == "" {
			return fmt.Errorf("signal with empty ID found")
		}
		if ids[def.ID] {
			return fmt.Errorf("duplicate signal ID: %s", def.ID)
		}
		ids[def.ID] = true

		switch def.Source {
		case SourceRedis, SourceSimulated:
		default:
			return fmt.Errorf("signal %s has unknown source kind %q", def.ID, def.Source)
		}

		if def.WarningThreshold >= def.FaultThreshold {
			return fmt.Errorf("signal %s: warning threshold %v must be below fault threshold %v",
				def.ID, def.WarningThreshold, def.FaultThreshold)
		}
		if def.ArmDelayMs < 0 || def.ConfirmWindowMs < 0 {
			return fmt.Errorf("signal %s: arm delay and confirm window must be non-negative", def.ID)
		}
	}

	return nil
}

// Sources resolves a SignalDef into a monitor.ValueFunc.
type Sources struct {
	// Redis is the shared redis-backed source, nil when redis is disabled.
	Redis *source.Redis
	// Simulated holds the static stores the simulation writes into, keyed by
	// signal id. RegisterSignals fills it for every simulated definition.
	Simulated map[string]*source.Static
}

// RegisterSignals wires every definition into the monitor with its value
// source and the shared notifier chain.
func RegisterSignals(mon *monitor.Monitor, config *SignalsConfig, sources *Sources, notifier notify.Notifier) error {
	if sources.Simulated == nil {
		sources.Simulated = make(map[string]*source.Static)
	}

	for _, def := range config.Signals {
		var value monitor.ValueFunc
		switch def.Source {
		case SourceRedis:
			if sources.Redis == nil {
				return fmt.Errorf("signal %s requires the redis source but redis is disabled", def.ID)
			}
			value = sources.Redis.ValueFunc(def.SourceKey)
		case SourceSimulated:
			st := source.NewStatic(def.Target)
			sources.Simulated[def.ID] = st
			value = st.ValueFunc()
		}

		cfg := monitor.SignalConfig{
			Target:           def.Target,
			WarningThreshold: def.WarningThreshold,
			FaultThreshold:   def.FaultThreshold,
			ArmDelay:         time.Duration(def.ArmDelayMs) * time.Millisecond,
			ConfirmWindow:    time.Duration(def.ConfirmWindowMs) * time.Millisecond,
			Value:            value,
			OnWarning:        notify.Bind(notifier, monitor.StateWarning),
			OnFault:          notify.Bind(notifier, monitor.StateFault),
		}

		if err := mon.Register(def.ID, cfg); err != nil {
			return fmt.Errorf("failed to register signal %s: %w", def.ID, err)
		}
	}

	logrus.Infof("registered %d signals from config", len(config.Signals))
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
