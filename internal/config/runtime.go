package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRuntimeSeconds is the fallback duration when neither MAX_RUNTIME_S
// nor a positional argument is given (spec.md §6).
const DefaultRuntimeSeconds = 30.0

var truthy = map[string]bool{"true": true, "1": true, "yes": true}

// RuntimeConfig is the process-level surface: how long to run and whether
// the trigger-card logger is enabled.
type RuntimeConfig struct {
	MaxRuntime             time.Duration
	EnableTriggerCardLogger bool
	TriggerCardLogDir       string
	TriggerCardCadenceHz    float64
}

// ResolveRuntimeConfig reads MAX_RUNTIME_S (falling back to positionalSeconds,
// then DefaultRuntimeSeconds) plus the trigger-card logger toggles.
func ResolveRuntimeConfig(positionalSeconds *int) RuntimeConfig {
	seconds := DefaultRuntimeSeconds
	if raw := strings.TrimSpace(os.Getenv("MAX_RUNTIME_S")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			seconds = v
		}
	} else if positionalSeconds != nil {
		seconds = float64(*positionalSeconds)
	}

	enabled := truthy[strings.ToLower(strings.TrimSpace(os.Getenv("ENABLE_TRIGGERCARD_LOGGER")))]

	logDir := strings.TrimSpace(os.Getenv("TRIGGERCARD_LOG_DIR"))
	if logDir == "" {
		logDir = "logs"
	}

	cadence := 1.0
	if raw := strings.TrimSpace(os.Getenv("TRIGGERCARD_CADENCE_HZ")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cadence = v
		}
	}

	return RuntimeConfig{
		MaxRuntime:              time.Duration(seconds * float64(time.Second)),
		EnableTriggerCardLogger: enabled,
		TriggerCardLogDir:       logDir,
		TriggerCardCadenceHz:    cadence,
	}
}
