// Package snapshot defines the immutable, schema-versioned records the
// engine publishes each cycle (Snapshot) and the audit logger emits
// (TriggerCard). Both are constructed once and never mutated afterward.
package snapshot

import "github.com/edgehunter/kernel/internal/model"

const SchemaVersion = "snapshot.v1"

// Instrument is the per-run, effectively-static contract identity, except
// for ConID which the engine fills in once the adapter qualifies the
// contract.
type Instrument struct {
	Symbol      string   `json:"symbol"`
	ContractKey string   `json:"contract_key"`
	ConID       *int64   `json:"con_id,omitempty"`
	TickSize    float64  `json:"tick_size"`
}

// Feed describes connectivity and market-data-mode state.
type Feed struct {
	Connected             bool             `json:"connected"`
	MDMode                model.MDMode     `json:"md_mode"`
	Degraded              bool             `json:"degraded"`
	ReasonCodes           []string         `json:"reason_codes"`
	LastStatusChangeMonoNS *int64          `json:"last_status_change_mono_ns,omitempty"`
}

// Quote is the latest known quote state, field-by-field last-write-wins.
type Quote struct {
	Bid           *float64 `json:"bid,omitempty"`
	Ask           *float64 `json:"ask,omitempty"`
	Last          *float64 `json:"last,omitempty"`
	BidSize       *float64 `json:"bid_size,omitempty"`
	AskSize       *float64 `json:"ask_size,omitempty"`
	TSRecvWallMS  *int64   `json:"ts_recv_wall_ms,omitempty"`
	TSRecvMonoNS  *int64   `json:"ts_recv_mono_ns,omitempty"`
	TSExchWallMS  *int64   `json:"ts_exch_wall_ms,omitempty"`
	StalenessMS   *int64   `json:"staleness_ms,omitempty"`
	SpreadTicks   *int64   `json:"spread_ticks,omitempty"`
}

// Session is the computed session-phase facts for this cycle.
type Session struct {
	InOperatingWindow bool               `json:"in_operating_window"`
	IsBreakWindow     bool               `json:"is_break_window"`
	SessionPhase      model.SessionPhase `json:"session_phase"`
	SessionDateISO    string             `json:"session_date_iso"`
}

// Controls is the coalesced UI-control state as of this cycle.
type Controls struct {
	Intent         model.Intent `json:"intent"`
	Arm            bool         `json:"arm"`
	LastCmdID      int64        `json:"last_cmd_id"`
	LastCmdTSWallMS *int64      `json:"last_cmd_ts_wall_ms,omitempty"`
}

// Loop is the per-cycle timing/health record.
type Loop struct {
	CycleMS              float64 `json:"cycle_ms"`
	CycleOverrun         bool    `json:"cycle_overrun"`
	EngineDegraded       bool    `json:"engine_degraded"`
	LastCycleStartMonoNS int64   `json:"last_cycle_start_mono_ns"`
}

// Gates is the Hard Gates evaluation result as published in this cycle's snapshot.
type Gates struct {
	Allowed     bool                   `json:"allowed"`
	ReasonCodes []string               `json:"reason_codes"`
	GateMetrics map[string]interface{} `json:"gate_metrics"`
}

// Snapshot is the immutable record published once per engine cycle.
type Snapshot struct {
	SchemaVersion     string     `json:"schema_version"`
	RunID             string     `json:"run_id"`
	RunStartWallMS    int64      `json:"run_start_wall_ms"`
	SnapshotID        int64      `json:"snapshot_id"`
	CycleCount        int64      `json:"cycle_count"`
	CycleStartWallMS  int64      `json:"cycle_start_wall_ms"`
	CycleStartMonoNS  int64      `json:"cycle_start_mono_ns"`
	Instrument        Instrument `json:"instrument"`
	Feed              Feed       `json:"feed"`
	Quote             Quote      `json:"quote"`
	Session           Session    `json:"session"`
	Controls          Controls   `json:"controls"`
	Loop              Loop       `json:"loop"`
	Gates             Gates      `json:"gates"`
	LastAnyEventMonoNS   *int64  `json:"last_any_event_mono_ns,omitempty"`
	LastQuoteEventMonoNS *int64  `json:"last_quote_event_mono_ns,omitempty"`
	QuotesReceivedCount  int64   `json:"quotes_received_count"`
	Ready             bool       `json:"ready"`
	ReadyReasons      []string   `json:"ready_reasons"`
}
