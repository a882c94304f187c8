package gates

import (
	"testing"

	"github.com/edgehunter/kernel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func TestEvaluate_AllFail(t *testing.T) {
	in := Inputs{
		Arm:               false,
		Intent:            model.IntentFlat,
		InOperatingWindow: false,
		IsBreakWindow:     true,
		FeedConnected:     false,
		MDMode:            model.MDModeDelayed,
		ConID:             nil,
		Bid:               nil,
		Ask:               nil,
		Last:              nil,
		SpreadTicks:       nil,
		EngineDegraded:    true,
	}
	res := Evaluate(in)
	require.False(t, res.Allowed)
	assert.Equal(t, []string{
		ReasonArmOff,
		ReasonIntentFlat,
		ReasonOutsideOperatingWindow,
		ReasonSessionBreak,
		ReasonFeedDisconnected,
		ReasonMDNotRealtime,
		ReasonNoContract,
		ReasonStaleData,
		ReasonSpreadUnavailable,
		ReasonEngineDegraded,
	}, res.ReasonCodes)
}

func TestEvaluate_AllPass(t *testing.T) {
	conID := int64(12345)
	in := Inputs{
		Arm:               true,
		Intent:            model.IntentLong,
		InOperatingWindow: true,
		IsBreakWindow:     false,
		FeedConnected:     true,
		MDMode:            model.MDModeRealtime,
		ConID:             &conID,
		Bid:               ptrF(18500.00),
		Ask:               ptrF(18500.25),
		Last:              ptrF(18500.00),
		StalenessMS:       ptrI(100),
		SpreadTicks:       ptrI(1),
		EngineDegraded:    false,
	}
	res := Evaluate(in)
	assert.True(t, res.Allowed)
	assert.Empty(t, res.ReasonCodes)
}

func TestEvaluate_SpreadWideDependsOnMax(t *testing.T) {
	conID := int64(1)
	base := Inputs{
		Arm: true, Intent: model.IntentLong, InOperatingWindow: true,
		FeedConnected: true, MDMode: model.MDModeRealtime, ConID: &conID,
		Bid: ptrF(18500.00), Ask: ptrF(18500.30), StalenessMS: ptrI(0),
		SpreadTicks: ptrI(2), EngineDegraded: false,
	}

	wide := base
	wide.MaxSpreadTicks = 1
	res := Evaluate(wide)
	assert.Contains(t, res.ReasonCodes, ReasonSpreadWide)

	tight := base
	tight.MaxSpreadTicks = 4
	res = Evaluate(tight)
	assert.NotContains(t, res.ReasonCodes, ReasonSpreadWide)
}

func TestEvaluate_StaleDataBoundary(t *testing.T) {
	conID := int64(1)
	in := Inputs{
		Arm: true, Intent: model.IntentLong, InOperatingWindow: true,
		FeedConnected: true, MDMode: model.MDModeRealtime, ConID: &conID,
		Bid: ptrF(1), Ask: ptrF(2), SpreadTicks: ptrI(1),
		StalenessMS:    ptrI(DefaultStaleThresholdMS),
		EngineDegraded: false,
	}
	res := Evaluate(in)
	assert.NotContains(t, res.ReasonCodes, ReasonStaleData, "boundary value must not trigger")

	in.StalenessMS = ptrI(DefaultStaleThresholdMS + 1)
	res = Evaluate(in)
	assert.Contains(t, res.ReasonCodes, ReasonStaleData)
}

func TestEvaluate_SpreadZeroIsUnavailable(t *testing.T) {
	conID := int64(1)
	in := Inputs{
		Arm: true, Intent: model.IntentLong, InOperatingWindow: true,
		FeedConnected: true, MDMode: model.MDModeRealtime, ConID: &conID,
		Bid: ptrF(1), Ask: ptrF(1), SpreadTicks: ptrI(0), StalenessMS: ptrI(0),
	}
	res := Evaluate(in)
	assert.Contains(t, res.ReasonCodes, ReasonSpreadUnavailable)
	assert.NotContains(t, res.ReasonCodes, ReasonSpreadWide)
}

func TestEvaluate_HeartbeatTimeoutOnLastQuoteAge(t *testing.T) {
	conID := int64(1)
	lastQuote := int64(0)
	in := Inputs{
		Arm: true, Intent: model.IntentLong, InOperatingWindow: true,
		FeedConnected: true, MDMode: model.MDModeRealtime, ConID: &conID,
		Bid: ptrF(1), Ask: ptrF(2), SpreadTicks: ptrI(1), StalenessMS: ptrI(0),
		LastQuoteEventMonoNS: &lastQuote,
		NowMonoNS:            (DefaultFeedHeartbeatTimeoutMS + 1) * int64(1e6),
	}
	res := Evaluate(in)
	assert.Contains(t, res.ReasonCodes, ReasonStaleData)
}

func TestEvaluate_Deterministic(t *testing.T) {
	conID := int64(1)
	in := Inputs{
		Arm: true, Intent: model.IntentShort, InOperatingWindow: true,
		FeedConnected: true, MDMode: model.MDModeRealtime, ConID: &conID,
		Bid: ptrF(1), Ask: ptrF(1.5), SpreadTicks: ptrI(2), StalenessMS: ptrI(10),
	}
	a := Evaluate(in)
	b := Evaluate(in)
	assert.Equal(t, a.Allowed, b.Allowed)
	assert.Equal(t, a.ReasonCodes, b.ReasonCodes)
}
