// Package engineloop implements the single-writer engine cycle (spec.md
// §4.1): one goroutine that drains commands and events, recomputes session
// and feed state, evaluates the Hard Gates, publishes an immutable Snapshot,
// ticks the trigger-card logger, and sleeps the cycle's remainder. It is the
// only writer to the DataHub and the only reader of both queues.
package engineloop

import (
	"context"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/datahub"
	"github.com/edgehunter/kernel/internal/gates"
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/snapshot"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
	"github.com/edgehunter/kernel/internal/telemetry/metrics"
	"github.com/edgehunter/kernel/internal/telemetry/tracing"
	"github.com/edgehunter/kernel/internal/triggercard"
)

// joinTimeout bounds how long Stop waits for the cycle goroutine to notice
// cancellation before giving up, matching the adapter runner's discipline.
const joinTimeout = 2 * time.Second

// TunablesSource returns the currently-active Tunables; engineloop calls it
// once per cycle so a hot-reloaded config file takes effect on the very next
// tick without restarting the loop.
type TunablesSource func() config.Tunables

// Options configures a Loop. Every field is required except Metrics (falls
// back to a noop Provider), TriggerLogger (nil disables trigger-card
// logging) and TracerName.
type Options struct {
	Instrument     model.Instrument
	RunID          string
	Tunables       TunablesSource
	Clock          clock.Clock
	Inbound        *queue.Inbound
	Commands       *queue.Command
	Hub            *datahub.DataHub
	TriggerLogger  *triggercard.Logger
	Metrics        metrics.Provider
	Log            logging.Logger
	TracerName     string
}

// Loop is the engine's cycle driver.
type Loop struct {
	opts  Options
	state *state

	runStartWallMS int64

	cycleDuration   metrics.Histogram
	cycleOverrun    metrics.Counter
	gateReason      metrics.Counter
	inboundDepth    metrics.Gauge
	inboundOverflow metrics.Gauge
	commandDepth    metrics.Gauge
	commandOverflow metrics.Gauge
	triggerEmitted  metrics.Counter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Loop. Call Start to begin running cycles.
func New(opts Options) *Loop {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	l := &Loop{opts: opts, state: newState()}
	l.state.conID = opts.Instrument.ConID
	l.registerMetrics()
	return l
}

func (l *Loop) registerMetrics() {
	ns := "edgehunter"
	l.cycleDuration = l.opts.Metrics.NewHistogram(metrics.HistogramOpts{
		CommonOpts: metrics.CommonOpts{Namespace: ns, Subsystem: "engine", Name: "cycle_duration_ms", Help: "engine cycle wall duration in milliseconds"},
		Buckets:    []float64{10, 25, 50, 75, 100, 150, 250, 500, 1000},
	})
	l.cycleOverrun = l.opts.Metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "engine", Name: "cycle_overrun_total", Help: "cycles whose processing exceeded the overrun threshold",
	}})
	l.gateReason = l.opts.Metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "gates", Name: "reason_total", Help: "Hard Gates reason code occurrences", Labels: []string{"reason"},
	}})
	l.inboundDepth = l.opts.Metrics.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "queue", Name: "inbound_depth", Help: "buffered events in the inbound queue",
	}})
	l.inboundOverflow = l.opts.Metrics.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "queue", Name: "inbound_overflow_total", Help: "cumulative events dropped due to a full inbound queue",
	}})
	l.commandDepth = l.opts.Metrics.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "queue", Name: "command_depth", Help: "buffered commands in the command queue",
	}})
	l.commandOverflow = l.opts.Metrics.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "queue", Name: "command_overflow_total", Help: "cumulative commands dropped due to a full command queue",
	}})
	l.triggerEmitted = l.opts.Metrics.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: ns, Subsystem: "triggercard", Name: "cycles_total", Help: "engine cycles observed by the trigger-card logger",
	}})
}

// Start begins running cycles on a background goroutine at the configured
// cadence. Safe to call once; a second call while running is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.runStartWallMS = l.opts.Clock.NowWallMS()
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.run(runCtx)
}

// Stop cancels the loop and waits up to joinTimeout for the cycle goroutine
// to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(joinTimeout):
		l.opts.Log.WarnCtx(context.Background(), "engineloop: stop timed out waiting for cycle goroutine exit")
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tn := l.opts.Tunables()
		cycleTargetMS := tn.CycleTargetMS
		if cycleTargetMS <= 0 {
			cycleTargetMS = 100
		}

		started := time.Now()
		l.cycle(ctx, tn)
		elapsed := time.Since(started)

		remaining := time.Duration(cycleTargetMS)*time.Millisecond - elapsed
		if remaining <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(remaining):
		}
	}
}

// cycle implements spec.md §4.1's fourteen steps. Any panic here is
// recovered and logged rather than allowed to corrupt already-published
// state: the last successfully built Snapshot remains live in the DataHub.
func (l *Loop) cycle(ctx context.Context, tn config.Tunables) {
	defer func() {
		if r := recover(); r != nil {
			l.opts.Log.ErrorCtx(ctx, "engineloop: cycle panic recovered, previous snapshot remains published", "panic", r)
		}
	}()

	cycleCtx, span := tracing.Tracer(l.tracerName()).Start(ctx, "engine.cycle")
	defer span.End()

	cycleStartWallMS := l.opts.Clock.NowWallMS()
	cycleStartMonoNS := l.opts.Clock.NowMonoNS()
	cycleWallStart := time.Now()

	s := l.state
	s.snapshotID++
	s.cycleCount++

	coalesced := l.opts.Commands.Drain()
	s.applyCoalescedCommand(coalesced)

	events := l.opts.Inbound.Drain()
	for i := range events {
		ev := &events[i]
		switch {
		case ev.Quote != nil:
			s.applyQuote(ev.Quote, cycleStartMonoNS)
		case ev.Status != nil:
			s.applyStatus(ev.Status, cycleStartMonoNS)
		case ev.AdapterError != nil:
			l.opts.Log.WarnCtx(cycleCtx, "engineloop: adapter error event", "code", ev.AdapterError.ErrorCode, "message", ev.AdapterError.Message)
			s.applyAdapterError(cycleStartMonoNS)
		}
	}

	sessCfg := clock.SessionConfig{
		OperatingStartHour: tn.OperatingStartHour,
		OperatingEndHour:   tn.OperatingEndHour,
		BreakStartHour:     tn.BreakStartHour,
	}
	sess := clock.Compute(l.opts.Clock.NowLocal(), sessCfg)

	var stalenessMS *int64
	if s.tsRecvMonoNS != nil {
		age := (cycleStartMonoNS - *s.tsRecvMonoNS) / int64(time.Millisecond)
		stalenessMS = &age
	}

	spreadTicks := conservativeSpreadTicks(s.bid, s.ask, l.opts.Instrument.TickSize)

	feedDegraded, feedReasons := feedDegradedReasons(s.feedConnected, s.mdMode)

	preGateElapsedMS := float64(time.Since(cycleWallStart)) / float64(time.Millisecond)
	engineDegraded := preGateElapsedMS > float64(tn.OverrunThresholdMS)

	gateInputs := gates.Inputs{
		Arm:                    s.arm,
		Intent:                 s.intent,
		InOperatingWindow:      sess.InOperatingWindow,
		IsBreakWindow:          sess.IsBreakWindow,
		FeedConnected:          s.feedConnected,
		MDMode:                 s.mdMode,
		ConID:                  s.conID,
		Bid:                    s.bid,
		Ask:                    s.ask,
		Last:                   s.last,
		StalenessMS:            stalenessMS,
		SpreadTicks:            spreadTicks,
		NowMonoNS:              cycleStartMonoNS,
		LastQuoteEventMonoNS:   s.lastQuoteEventMonoNS,
		EngineDegraded:         engineDegraded,
		StaleThresholdMS:       tn.StaleThresholdMS,
		FeedHeartbeatTimeoutMS: tn.FeedHeartbeatTimeoutMS,
		MaxSpreadTicks:         tn.MaxSpreadTicks,
	}
	_, gateSpan := tracing.Tracer(l.tracerName()).Start(cycleCtx, "engine.gates")
	result := gates.Evaluate(gateInputs)
	gateSpan.End()

	for _, reason := range result.ReasonCodes {
		l.gateReason.Inc(1, reason)
	}

	cycleMS := float64(time.Since(cycleWallStart)) / float64(time.Millisecond)
	cycleOverrun := cycleMS > float64(tn.OverrunThresholdMS)
	if cycleOverrun {
		l.cycleOverrun.Inc(1)
	}
	l.cycleDuration.Observe(cycleMS)
	span.SetAttributes(
		attribute.Int64("snapshot_id", s.snapshotID),
		attribute.Bool("ready", result.Allowed),
		attribute.Float64("cycle_ms", cycleMS),
	)

	snap := l.buildSnapshot(cycleStartWallMS, cycleStartMonoNS, sess, stalenessMS, spreadTicks, feedDegraded, feedReasons, cycleMS, cycleOverrun, engineDegraded, result)
	l.opts.Hub.Publish(snap)

	l.inboundDepth.Set(float64(l.opts.Inbound.Len()))
	l.inboundOverflow.Set(float64(l.opts.Inbound.Overflow()))
	l.commandDepth.Set(float64(l.opts.Commands.Len()))
	l.commandOverflow.Set(float64(l.opts.Commands.Overflow()))

	if l.opts.TriggerLogger != nil {
		l.opts.TriggerLogger.Tick(cycleStartMonoNS, snap)
		l.triggerEmitted.Inc(1)
	}
}

func (l *Loop) buildSnapshot(cycleStartWallMS, cycleStartMonoNS int64, sess clock.Session, stalenessMS, spreadTicks *int64, feedDegraded bool, feedReasons []string, cycleMS float64, cycleOverrun, engineDegraded bool, gateResult gates.Result) *snapshot.Snapshot {
	s := l.state
	return &snapshot.Snapshot{
		SchemaVersion:    snapshot.SchemaVersion,
		RunID:            l.opts.RunID,
		RunStartWallMS:   l.runStartWallMS,
		SnapshotID:       s.snapshotID,
		CycleCount:       s.cycleCount,
		CycleStartWallMS: cycleStartWallMS,
		CycleStartMonoNS: cycleStartMonoNS,
		Instrument: snapshot.Instrument{
			Symbol:      l.opts.Instrument.Symbol,
			ContractKey: l.opts.Instrument.ContractKey,
			ConID:       s.conID,
			TickSize:    l.opts.Instrument.TickSize,
		},
		Feed: snapshot.Feed{
			Connected:              s.feedConnected,
			MDMode:                 s.mdMode,
			Degraded:               feedDegraded,
			ReasonCodes:            feedReasons,
			LastStatusChangeMonoNS: s.lastStatusChangeMonoNS,
		},
		Quote: snapshot.Quote{
			Bid:          s.bid,
			Ask:          s.ask,
			Last:         s.last,
			BidSize:      s.bidSize,
			AskSize:      s.askSize,
			TSRecvWallMS: s.tsRecvWallMS,
			TSRecvMonoNS: s.tsRecvMonoNS,
			TSExchWallMS: s.tsExchWallMS,
			StalenessMS:  stalenessMS,
			SpreadTicks:  spreadTicks,
		},
		Session: snapshot.Session{
			InOperatingWindow: sess.InOperatingWindow,
			IsBreakWindow:     sess.IsBreakWindow,
			SessionPhase:      sess.SessionPhase,
			SessionDateISO:    sess.SessionDateISO,
		},
		Controls: snapshot.Controls{
			Intent:          s.intent,
			Arm:             s.arm,
			LastCmdID:       s.lastCmdID,
			LastCmdTSWallMS: s.lastCmdTSWallMS,
		},
		Loop: snapshot.Loop{
			CycleMS:              cycleMS,
			CycleOverrun:         cycleOverrun,
			EngineDegraded:       engineDegraded,
			LastCycleStartMonoNS: cycleStartMonoNS,
		},
		Gates: snapshot.Gates{
			Allowed:     gateResult.Allowed,
			ReasonCodes: gateResult.ReasonCodes,
			GateMetrics: gateResult.GateMetrics,
		},
		LastAnyEventMonoNS:   s.lastAnyEventMonoNS,
		LastQuoteEventMonoNS: s.lastQuoteEventMonoNS,
		QuotesReceivedCount:  s.quotesReceivedCount,
		Ready:                gateResult.Allowed,
		ReadyReasons:         gateResult.ReasonCodes,
	}
}

func (l *Loop) tracerName() string {
	if l.opts.TracerName == "" {
		return "edgehunter/engineloop"
	}
	return l.opts.TracerName
}

// conservativeSpreadTicks computes ceil((ask-bid)/tickSize), the conservative
// rounding spec.md §4.1 requires so a fractional-tick spread never reads as
// narrower than it is. Returns nil when either side is unknown or the market
// is crossed/locked (ask <= bid), per spec.md line 68.
func conservativeSpreadTicks(bid, ask *float64, tickSize float64) *int64 {
	if bid == nil || ask == nil || tickSize <= 0 || *ask <= *bid {
		return nil
	}
	spread := *ask - *bid
	ticks := int64(math.Ceil(spread / tickSize))
	return &ticks
}

// feedDegradedReasons derives the Feed-level degraded flag and its reason
// codes, reusing the same vocabulary the Hard Gates panel uses for the
// equivalent conditions.
func feedDegradedReasons(connected bool, mode model.MDMode) (bool, []string) {
	var reasons []string
	if !connected {
		reasons = append(reasons, gates.ReasonFeedDisconnected)
	}
	if mode != model.MDModeRealtime {
		reasons = append(reasons, gates.ReasonMDNotRealtime)
	}
	return len(reasons) > 0, reasons
}
