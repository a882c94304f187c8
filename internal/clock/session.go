package clock

import (
	"time"

	"github.com/edgehunter/kernel/internal/model"
)

// SessionConfig holds the tunable hour boundaries for session computation.
// All hours are local, 0-23, half-open on the end.
type SessionConfig struct {
	OperatingStartHour int
	OperatingEndHour   int
	BreakStartHour     int
}

// DefaultSessionConfig matches spec defaults: operating 07:00-16:00 local,
// break window 17:00-18:00 local.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{OperatingStartHour: 7, OperatingEndHour: 16, BreakStartHour: 17}
}

// Session is the computed session facts for one engine cycle.
type Session struct {
	InOperatingWindow bool
	IsBreakWindow     bool
	SessionPhase      model.SessionPhase
	SessionDateISO    string
}

// Compute derives session facts from the local time now, per spec.md §4.6:
// the break window is [break_start_hour, break_start_hour+1); the operating
// window is [op_start, op_end); session_date_iso rolls to tomorrow once the
// local hour reaches break_start_hour.
func Compute(now time.Time, cfg SessionConfig) Session {
	hour := now.Hour()
	inOperating := hour >= cfg.OperatingStartHour && hour < cfg.OperatingEndHour
	inBreak := hour >= cfg.BreakStartHour && hour < cfg.BreakStartHour+1

	var phase model.SessionPhase
	switch {
	case inBreak:
		phase = model.SessionBreak
	case inOperating:
		phase = model.SessionOperating
	default:
		phase = model.SessionClosed
	}

	dateISO := now.Format("2006-01-02")
	if hour >= cfg.BreakStartHour {
		dateISO = now.AddDate(0, 0, 1).Format("2006-01-02")
	}

	return Session{
		InOperatingWindow: inOperating,
		IsBreakWindow:     inBreak,
		SessionPhase:      phase,
		SessionDateISO:    dateISO,
	}
}
