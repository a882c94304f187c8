// Package gates implements the Hard Gates panel: a pure, deterministic,
// multi-reason decision function with no I/O, no clock reads, and no
// mutation. Every row of the panel is always evaluated; there is no
// early exit and no precedence between reasons (spec.md §4.2).
package gates

import "github.com/edgehunter/kernel/internal/model"

// Reason codes, in fixed table order. ReasonCodes in a Result always appear
// in this order regardless of which ones actually fired.
const (
	ReasonArmOff                = "ARM_OFF"
	ReasonIntentFlat            = "INTENT_FLAT"
	ReasonOutsideOperatingWindow = "OUTSIDE_OPERATING_WINDOW"
	ReasonSessionBreak          = "SESSION_BREAK"
	ReasonFeedDisconnected      = "FEED_DISCONNECTED"
	ReasonMDNotRealtime         = "MD_NOT_REALTIME"
	ReasonNoContract            = "NO_CONTRACT"
	ReasonStaleData             = "STALE_DATA"
	ReasonSpreadUnavailable     = "SPREAD_UNAVAILABLE"
	ReasonSpreadWide            = "SPREAD_WIDE"
	ReasonEngineDegraded        = "ENGINE_DEGRADED"
)

// Defaults for the numeric thresholds the panel compares against.
const (
	DefaultStaleThresholdMS       = 5000
	DefaultFeedHeartbeatTimeoutMS = 10000
	DefaultMaxSpreadTicks         = 4
)

// Inputs is the full record the engine passes to Evaluate each cycle. All
// fields are as computed by the engine loop before gate evaluation.
type Inputs struct {
	Arm     bool
	Intent  model.Intent

	InOperatingWindow bool
	IsBreakWindow     bool

	FeedConnected bool
	MDMode        model.MDMode

	ConID *int64

	Bid         *float64
	Ask         *float64
	Last        *float64
	StalenessMS *int64
	SpreadTicks *int64

	NowMonoNS            int64
	LastQuoteEventMonoNS *int64

	EngineDegraded bool

	StaleThresholdMS       int64
	FeedHeartbeatTimeoutMS int64
	MaxSpreadTicks         int64
}

// Result is the panel's verdict: allowed iff ReasonCodes is empty, plus the
// raw diagnostic values used to reach it.
type Result struct {
	Allowed     bool
	ReasonCodes []string
	GateMetrics map[string]interface{}
}

// Evaluate runs the full 11-row panel in fixed order, appending a reason
// code for every row that fails. No row short-circuits another.
func Evaluate(in Inputs) Result {
	staleThreshold := in.StaleThresholdMS
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThresholdMS
	}
	heartbeatTimeout := in.FeedHeartbeatTimeoutMS
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = DefaultFeedHeartbeatTimeoutMS
	}
	maxSpreadTicks := in.MaxSpreadTicks
	if maxSpreadTicks <= 0 {
		maxSpreadTicks = DefaultMaxSpreadTicks
	}

	reasons := make([]string, 0, 11)

	if !in.Arm {
		reasons = append(reasons, ReasonArmOff)
	}
	if in.Intent == model.IntentFlat {
		reasons = append(reasons, ReasonIntentFlat)
	}
	if !in.InOperatingWindow {
		reasons = append(reasons, ReasonOutsideOperatingWindow)
	}
	if in.IsBreakWindow {
		reasons = append(reasons, ReasonSessionBreak)
	}
	if !in.FeedConnected {
		reasons = append(reasons, ReasonFeedDisconnected)
	}
	if in.MDMode != model.MDModeRealtime {
		reasons = append(reasons, ReasonMDNotRealtime)
	}
	if in.ConID == nil {
		reasons = append(reasons, ReasonNoContract)
	}

	stale := isStale(in, staleThreshold, heartbeatTimeout)
	if stale {
		reasons = append(reasons, ReasonStaleData)
	}

	spreadUnavailable := in.Bid == nil || in.Ask == nil || in.SpreadTicks == nil || *in.SpreadTicks <= 0
	if spreadUnavailable {
		reasons = append(reasons, ReasonSpreadUnavailable)
	}
	if !spreadUnavailable && *in.SpreadTicks > maxSpreadTicks {
		reasons = append(reasons, ReasonSpreadWide)
	}

	if in.EngineDegraded {
		reasons = append(reasons, ReasonEngineDegraded)
	}

	return Result{
		Allowed:     len(reasons) == 0,
		ReasonCodes: reasons,
		GateMetrics: map[string]interface{}{
			"arm":                      in.Arm,
			"intent":                   in.Intent,
			"feed_connected":           in.FeedConnected,
			"md_mode":                  in.MDMode,
			"con_id":                   in.ConID,
			"staleness_ms":             in.StalenessMS,
			"last_quote_event_mono_ns": in.LastQuoteEventMonoNS,
			"spread_ticks":             in.SpreadTicks,
			"engine_degraded":          in.EngineDegraded,
		},
	}
}

// isStale implements spec.md §4.2's three-way STALE_DATA condition: no
// price fields at all, staleness over threshold, or last-quote-event age
// over the feed heartbeat timeout (once a quote has ever been seen).
// Threshold comparisons are strict '>'; boundary values pass.
func isStale(in Inputs, staleThreshold, heartbeatTimeout int64) bool {
	if in.Bid == nil && in.Ask == nil && in.Last == nil {
		return true
	}
	if in.StalenessMS != nil && *in.StalenessMS > staleThreshold {
		return true
	}
	if in.LastQuoteEventMonoNS != nil {
		age := in.NowMonoNS - *in.LastQuoteEventMonoNS
		if age > heartbeatTimeout*int64(1e6) {
			return true
		}
	}
	return false
}
