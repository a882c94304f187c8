package engineloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/datahub"
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

func testLoop(t *testing.T) (*Loop, *queue.Inbound, *queue.Command, *datahub.DataHub, *clock.FakeClock) {
	t.Helper()
	inbound := queue.NewInbound(100)
	commands := queue.NewCommand(20)
	hub := datahub.New()
	clk := clock.NewFakeClock(time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC))

	conID := int64(42)
	l := New(Options{
		Instrument:    model.Instrument{Symbol: "MNQ", ContractKey: "MNQ.202603", ConID: &conID, TickSize: 0.25},
		RunID:         "test-run",
		Tunables:      func() config.Tunables { return config.DefaultTunables() },
		Clock:         clk,
		Inbound:       inbound,
		Commands:      commands,
		Hub:           hub,
		Log:           logging.New(nil),
	})
	return l, inbound, commands, hub, clk
}

func TestCycle_PublishesIncrementingSnapshotID(t *testing.T) {
	l, _, _, hub, _ := testLoop(t)
	tn := config.DefaultTunables()

	l.cycle(context.Background(), tn)
	first := hub.GetLatest()
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.SnapshotID)
	assert.Equal(t, "test-run", first.RunID)
	assert.Equal(t, "snapshot.v1", first.SchemaVersion)

	l.cycle(context.Background(), tn)
	second := hub.GetLatest()
	assert.Equal(t, int64(2), second.SnapshotID)
}

func TestCycle_CommandAndEventBothApplyWithinOneCycle(t *testing.T) {
	l, inbound, commands, hub, clk := testLoop(t)
	tn := config.DefaultTunables()

	commands.Push(model.NewArmCommand(model.ArmCommand{CommandID: 1, WallMS: clk.NowWallMS(), Arm: true}))
	commands.Push(model.NewIntentCommand(model.IntentCommand{CommandID: 2, WallMS: clk.NowWallMS(), Intent: model.IntentLong}))

	bid, ask, last := 100.0, 100.25, 100.1
	inbound.Push(model.NewStatusEvent(model.StatusEvent{RecvWallMS: clk.NowWallMS(), RecvMonoNS: clk.NowMonoNS(), Connected: true, MDMode: model.MDModeRealtime}))
	inbound.Push(model.NewQuoteEvent(model.QuoteEvent{RecvWallMS: clk.NowWallMS(), RecvMonoNS: clk.NowMonoNS(), Bid: &bid, Ask: &ask, Last: &last}))

	l.cycle(context.Background(), tn)
	snap := hub.GetLatest()
	require.NotNil(t, snap)

	assert.True(t, snap.Controls.Arm)
	assert.Equal(t, model.IntentLong, snap.Controls.Intent)
	assert.Equal(t, int64(2), snap.Controls.LastCmdID)
	assert.True(t, snap.Feed.Connected)
	assert.Equal(t, model.MDModeRealtime, snap.Feed.MDMode)
	assert.True(t, snap.Ready, "arm+intent+connected+fresh quote within session should clear gates given operating window")
}

func TestCycle_StaleQuoteProducesStaleDataReason(t *testing.T) {
	l, inbound, commands, hub, clk := testLoop(t)
	tn := config.DefaultTunables()

	commands.Push(model.NewArmCommand(model.ArmCommand{CommandID: 1, WallMS: clk.NowWallMS(), Arm: true}))
	bid, ask, last := 100.0, 100.25, 100.1
	inbound.Push(model.NewQuoteEvent(model.QuoteEvent{RecvWallMS: clk.NowWallMS(), RecvMonoNS: clk.NowMonoNS(), Bid: &bid, Ask: &ask, Last: &last}))
	inbound.Push(model.NewStatusEvent(model.StatusEvent{RecvWallMS: clk.NowWallMS(), RecvMonoNS: clk.NowMonoNS(), Connected: true, MDMode: model.MDModeRealtime}))
	l.cycle(context.Background(), tn)

	clk.Advance(6 * time.Second)
	l.cycle(context.Background(), tn)

	snap := hub.GetLatest()
	assert.Contains(t, snap.Gates.ReasonCodes, "STALE_DATA")
	assert.False(t, snap.Ready)
}

func TestConservativeSpreadTicks_CeilsFractionalSpread(t *testing.T) {
	bid, ask := 100.0, 100.30
	ticks := conservativeSpreadTicks(&bid, &ask, 0.25)
	require.NotNil(t, ticks)
	assert.Equal(t, int64(2), *ticks, "0.30/0.25 = 1.2 ticks, ceil to 2")
}

func TestConservativeSpreadTicks_NilWhenSidesMissing(t *testing.T) {
	assert.Nil(t, conservativeSpreadTicks(nil, nil, 0.25))
}

func TestConservativeSpreadTicks_NilWhenCrossedOrLocked(t *testing.T) {
	locked := 100.0
	assert.Nil(t, conservativeSpreadTicks(&locked, &locked, 0.25), "ask == bid is locked, not a zero-tick spread")

	bid, ask := 100.25, 100.0
	assert.Nil(t, conservativeSpreadTicks(&bid, &ask, 0.25), "ask < bid is crossed")
}

func TestFeedDegradedReasons(t *testing.T) {
	degraded, reasons := feedDegradedReasons(false, model.MDModeNone)
	assert.True(t, degraded)
	assert.Contains(t, reasons, "FEED_DISCONNECTED")
	assert.Contains(t, reasons, "MD_NOT_REALTIME")

	degraded, reasons = feedDegradedReasons(true, model.MDModeRealtime)
	assert.False(t, degraded)
	assert.Empty(t, reasons)
}

func TestStartStop_RunsCyclesAndStopsCleanly(t *testing.T) {
	l, _, _, hub, _ := testLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Start(ctx)
	time.Sleep(250 * time.Millisecond)
	l.Stop()

	snap := hub.GetLatest()
	require.NotNil(t, snap)
	assert.True(t, snap.SnapshotID > 0)
}
