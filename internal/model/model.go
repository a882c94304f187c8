// Package model defines the wire-level record shapes that flow between the
// adapter, the engine loop, and the UI: events produced by adapters, commands
// produced by the UI, and the small enums shared by both.
package model

// Intent is the user-declared trading intent. FLAT means "do not trade".
type Intent string

const (
	IntentLong  Intent = "LONG"
	IntentShort Intent = "SHORT"
	IntentBoth  Intent = "BOTH"
	IntentFlat  Intent = "FLAT"
)

// MDMode is the broker-reported market-data mode, normalized at the adapter
// boundary from whatever integer or string representation the broker uses.
type MDMode string

const (
	MDModeRealtime MDMode = "REALTIME"
	MDModeDelayed  MDMode = "DELAYED"
	MDModeFrozen   MDMode = "FROZEN"
	MDModeNone     MDMode = "NONE"
)

// SessionPhase is the derived session state for the current cycle.
type SessionPhase string

const (
	SessionOperating SessionPhase = "OPERATING"
	SessionBreak     SessionPhase = "BREAK"
	SessionClosed    SessionPhase = "CLOSED"
)

// QuoteEvent carries one Level-1 update. Nullable numeric fields use pointers
// so "absent" and "zero" stay distinguishable; the engine only overwrites a
// stored value when the corresponding field here is non-nil.
type QuoteEvent struct {
	RecvWallMS  int64
	RecvMonoNS  int64
	ConID       *int64
	Bid         *float64
	Ask         *float64
	Last        *float64
	BidSize     *float64
	AskSize     *float64
	ExchWallMS  *int64
}

// StatusEvent reports a feed connectivity or mode change.
type StatusEvent struct {
	RecvWallMS int64
	RecvMonoNS int64
	Connected  bool
	MDMode     MDMode
	Reason     *string
	ErrorCode  *string
}

// AdapterErrorEvent reports a non-fatal adapter error.
type AdapterErrorEvent struct {
	RecvWallMS int64
	RecvMonoNS int64
	ErrorCode  string
	Message    string
	RequestID  *string
}

// Event is the tagged union the engine dispatches on. Exactly one of the
// three fields is non-nil; NewXEvent constructors enforce this.
type Event struct {
	Quote   *QuoteEvent
	Status  *StatusEvent
	AdapterError *AdapterErrorEvent
}

func NewQuoteEvent(e QuoteEvent) Event        { return Event{Quote: &e} }
func NewStatusEvent(e StatusEvent) Event      { return Event{Status: &e} }
func NewAdapterErrorEvent(e AdapterErrorEvent) Event { return Event{AdapterError: &e} }

// IntentCommand sets the user's trading intent.
type IntentCommand struct {
	CommandID int64
	WallMS    int64
	Intent    Intent
}

// ArmCommand arms or disarms the system.
type ArmCommand struct {
	CommandID int64
	WallMS    int64
	Arm       bool
}

// Command is the tagged union over {IntentCommand, ArmCommand}.
type Command struct {
	Intent *IntentCommand
	Arm    *ArmCommand
}

func NewIntentCommand(c IntentCommand) Command { return Command{Intent: &c} }
func NewArmCommand(c ArmCommand) Command        { return Command{Arm: &c} }

// Instrument identifies the single futures contract this process observes.
type Instrument struct {
	Symbol      string
	ContractKey string
	ConID       *int64
	TickSize    float64
}
