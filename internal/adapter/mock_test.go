package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

func TestMock_ConnectEmitsStatusThenConIDOnlyQuote(t *testing.T) {
	inbound := queue.NewInbound(10)
	clk := clock.NewFakeClock(time.Now())
	m := NewMock(inbound, DefaultMockOptions(), clk, logging.New(nil))

	require.NoError(t, m.Connect(context.Background()))

	events := inbound.Drain()
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Status)
	assert.True(t, events[0].Status.Connected)

	require.NotNil(t, events[1].Quote)
	assert.Nil(t, events[1].Quote.Bid)
	assert.Nil(t, events[1].Quote.Ask)
	assert.Nil(t, events[1].Quote.Last)
	require.NotNil(t, events[1].Quote.ConID)
	assert.Equal(t, mockConID, *events[1].Quote.ConID)
}

func TestMock_EmitsQuoteOnceIntervalElapses(t *testing.T) {
	inbound := queue.NewInbound(10)
	clk := clock.NewFakeClock(time.Now())
	opts := DefaultMockOptions()
	opts.QuoteRateHz = 10.0
	m := NewMock(inbound, opts, clk, logging.New(nil))
	require.NoError(t, m.Connect(context.Background()))
	inbound.Drain()

	require.NoError(t, m.RunEventLoopIteration(context.Background()))
	assert.Empty(t, inbound.Drain(), "quote interval has not elapsed yet")

	clk.Advance(150 * time.Millisecond)
	require.NoError(t, m.RunEventLoopIteration(context.Background()))
	events := inbound.Drain()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Quote.Bid)
	require.NotNil(t, events[0].Quote.Ask)
	require.NotNil(t, events[0].Quote.Last)
	assert.LessOrEqual(t, *events[0].Quote.Bid, *events[0].Quote.Ask)
}

func TestMock_DisconnectEmitsDisconnectedStatus(t *testing.T) {
	inbound := queue.NewInbound(10)
	clk := clock.NewFakeClock(time.Now())
	m := NewMock(inbound, DefaultMockOptions(), clk, logging.New(nil))
	require.NoError(t, m.Connect(context.Background()))
	inbound.Drain()

	m.Disconnect()
	events := inbound.Drain()
	require.Len(t, events, 1)
	assert.False(t, events[0].Status.Connected)
}
