package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Tunables holds the numeric thresholds spec.md lists as "default N". They
// are read once at startup and optionally hot-reloaded from a YAML file
// (see watcher.go); absent a file, DefaultTunables applies.
type Tunables struct {
	OperatingStartHour     int     `yaml:"operating_start_hour"`
	OperatingEndHour       int     `yaml:"operating_end_hour"`
	BreakStartHour         int     `yaml:"break_start_hour"`
	StaleThresholdMS       int64   `yaml:"stale_threshold_ms"`
	FeedHeartbeatTimeoutMS int64   `yaml:"feed_heartbeat_timeout_ms"`
	MaxSpreadTicks         int64   `yaml:"max_spread_ticks"`
	OverrunThresholdMS     int64   `yaml:"overrun_threshold_ms"`
	CycleTargetMS          float64 `yaml:"cycle_target_ms"`
}

// DefaultTunables matches every default named in spec.md §4.1/§4.2/§4.6.
func DefaultTunables() Tunables {
	return Tunables{
		OperatingStartHour:     7,
		OperatingEndHour:       16,
		BreakStartHour:         17,
		StaleThresholdMS:       5000,
		FeedHeartbeatTimeoutMS: 10000,
		MaxSpreadTicks:         4,
		OverrunThresholdMS:     500,
		CycleTargetMS:          100,
	}
}

// LoadTunables reads a YAML tunables file, starting from DefaultTunables and
// overlaying whatever fields are present. A missing file is not an error:
// the defaults are returned unchanged.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, err
	}
	return t, nil
}
