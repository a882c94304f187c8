package adapter

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// mockConID is the fixed synthetic contract id the mock feed reports.
const mockConID int64 = 999999

// MockOptions configures the deterministic quote generator. NewMock uses the
// fields as given and does not fill in zero values; start from
// DefaultMockOptions for the reference MNQ simulation.
type MockOptions struct {
	BasePrice             float64
	TickSize              float64
	SpreadTicks           int64
	QuoteRateHz           float64
	PriceDriftAmplitude   float64
	PriceDriftPeriodS     float64
}

// DefaultMockOptions matches the reference generator's MNQ-shaped defaults.
func DefaultMockOptions() MockOptions {
	return MockOptions{
		BasePrice:           18500.0,
		TickSize:            0.25,
		SpreadTicks:         1,
		QuoteRateHz:         10.0,
		PriceDriftAmplitude: 5.0,
		PriceDriftPeriodS:   60.0,
	}
}

// Mock is a deterministic L1 quote generator used in place of a live broker
// feed: a sinusoidal mid-price oscillation with a fixed spread, emitted at a
// fixed rate. It implements Adapter so it is interchangeable with IBKR.
type Mock struct {
	opts    MockOptions
	inbound *queue.Inbound
	clk     clock.Clock
	log     logging.Logger

	connected     atomic.Bool
	startWallMS   int64
	lastQuoteMono int64
	haveLastQuote atomic.Bool
}

// NewMock constructs a Mock adapter pushing events onto inbound.
func NewMock(inbound *queue.Inbound, opts MockOptions, clk clock.Clock, log logging.Logger) *Mock {
	return &Mock{opts: opts, inbound: inbound, clk: clk, log: log}
}

// Connect "always succeeds" (there is no real network to fail): it emits a
// connected StatusEvent and an initial con_id-only QuoteEvent so NO_CONTRACT
// clears immediately, before any price has been generated.
func (m *Mock) Connect(ctx context.Context) error {
	m.connected.Store(true)
	m.startWallMS = m.clk.NowWallMS()
	m.lastQuoteMono = m.clk.NowMonoNS()
	m.haveLastQuote.Store(true)
	conID := mockConID
	m.emitStatus(true, "mock connected")
	m.inbound.Push(model.NewQuoteEvent(model.QuoteEvent{
		RecvWallMS: m.clk.NowWallMS(),
		RecvMonoNS: m.clk.NowMonoNS(),
		ConID:      &conID,
	}))
	m.log.InfoCtx(ctx, "mock adapter connected", "base_price", m.opts.BasePrice, "rate_hz", m.opts.QuoteRateHz)
	return nil
}

// Disconnect marks the feed down and emits the matching StatusEvent.
func (m *Mock) Disconnect() {
	m.connected.Store(false)
	m.emitStatus(false, "mock disconnected")
}

// RunEventLoopIteration emits a new quote once the configured quote interval
// has elapsed since the last one.
func (m *Mock) RunEventLoopIteration(ctx context.Context) error {
	if !m.connected.Load() {
		return nil
	}
	now := m.clk.NowMonoNS()
	intervalNS := int64(1e9 / m.opts.QuoteRateHz)
	if m.haveLastQuote.Load() && now-m.lastQuoteMono < intervalNS {
		return nil
	}
	m.generateQuote(now)
	m.lastQuoteMono = now
	m.haveLastQuote.Store(true)
	return nil
}

func (m *Mock) generateQuote(nowMonoNS int64) {
	elapsedS := float64(nowMonoNS) / 1e9
	phase := (elapsedS / m.opts.PriceDriftPeriodS) * 2 * math.Pi
	drift := m.opts.PriceDriftAmplitude * math.Sin(phase)
	mid := m.opts.BasePrice + drift

	spread := float64(m.opts.SpreadTicks) * m.opts.TickSize
	half := spread / 2.0
	bid := roundToTick(mid-half, m.opts.TickSize)
	ask := roundToTick(mid+half, m.opts.TickSize)
	last := roundToTick(mid, m.opts.TickSize)
	bidSize, askSize := 10.0, 10.0

	wallMS := m.clk.NowWallMS()
	conID := mockConID
	m.inbound.Push(model.NewQuoteEvent(model.QuoteEvent{
		RecvWallMS: wallMS,
		RecvMonoNS: nowMonoNS,
		ConID:      &conID,
		Bid:        &bid,
		Ask:        &ask,
		Last:       &last,
		BidSize:    &bidSize,
		AskSize:    &askSize,
		ExchWallMS: &wallMS,
	}))
}

func roundToTick(price, tick float64) float64 {
	return math.Round(price/tick) * tick
}

func (m *Mock) emitStatus(connected bool, reason string) {
	mode := model.MDModeNone
	if connected {
		mode = model.MDModeRealtime
	}
	m.inbound.Push(model.NewStatusEvent(model.StatusEvent{
		RecvWallMS: m.clk.NowWallMS(),
		RecvMonoNS: m.clk.NowMonoNS(),
		Connected:  connected,
		MDMode:     mode,
		Reason:     &reason,
	}))
}
