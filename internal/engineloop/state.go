package engineloop

import (
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
)

// state is the engine's single-writer mutable record: every field here is
// only ever touched from inside cycle(), never read or written concurrently
// from another goroutine. Published Snapshots are point-in-time copies out
// of this struct, never references into it.
type state struct {
	snapshotID int64
	cycleCount int64

	conID *int64

	bid, ask, last   *float64
	bidSize, askSize *float64
	tsRecvWallMS     *int64
	tsRecvMonoNS     *int64
	tsExchWallMS     *int64

	feedConnected          bool
	mdMode                 model.MDMode
	lastStatusChangeMonoNS *int64

	lastAnyEventMonoNS   *int64
	lastQuoteEventMonoNS *int64
	quotesReceivedCount  int64

	intent          model.Intent
	arm             bool
	lastCmdID       int64
	lastCmdTSWallMS *int64
}

func newState() *state {
	return &state{
		mdMode: model.MDModeNone,
		intent: model.IntentFlat,
		arm:    false,
	}
}

// applyQuote merges a QuoteEvent's non-nil fields into the state, leaving
// previously-known fields untouched where the event carries no update — the
// "field-by-field last-write-wins" rule spec.md's DATA MODEL describes.
func (s *state) applyQuote(e *model.QuoteEvent, nowMonoNS int64) {
	if e.ConID != nil {
		s.conID = e.ConID
	}
	if e.Bid != nil {
		s.bid = e.Bid
	}
	if e.Ask != nil {
		s.ask = e.Ask
	}
	if e.Last != nil {
		s.last = e.Last
	}
	if e.BidSize != nil {
		s.bidSize = e.BidSize
	}
	if e.AskSize != nil {
		s.askSize = e.AskSize
	}
	if e.ExchWallMS != nil {
		s.tsExchWallMS = e.ExchWallMS
	}

	wallMS, monoNS := e.RecvWallMS, e.RecvMonoNS
	s.tsRecvWallMS = &wallMS
	s.tsRecvMonoNS = &monoNS

	any := nowMonoNS
	s.lastAnyEventMonoNS = &any
	quoteMono := monoNS
	s.lastQuoteEventMonoNS = &quoteMono
	if e.Bid != nil || e.Ask != nil || e.Last != nil {
		s.quotesReceivedCount++
	}
}

func (s *state) applyStatus(e *model.StatusEvent, nowMonoNS int64) {
	s.feedConnected = e.Connected
	s.mdMode = e.MDMode
	changed := nowMonoNS
	s.lastStatusChangeMonoNS = &changed

	any := nowMonoNS
	s.lastAnyEventMonoNS = &any
}

func (s *state) applyAdapterError(nowMonoNS int64) {
	any := nowMonoNS
	s.lastAnyEventMonoNS = &any
}

// applyCoalescedCommand merges the drained command record, only moving the
// last-command bookkeeping forward when the drain actually saw a command.
func (s *state) applyCoalescedCommand(c queue.CoalescedCommands) {
	if !c.Applied {
		return
	}
	if c.Intent != nil {
		s.intent = *c.Intent
	}
	if c.Arm != nil {
		s.arm = *c.Arm
	}
	s.lastCmdID = c.LastCmdID
	ts := c.LastCmdTSWall
	s.lastCmdTSWallMS = &ts
}
