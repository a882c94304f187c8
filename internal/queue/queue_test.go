package queue

import (
	"testing"

	"github.com/edgehunter/kernel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbound_OverflowOnFull(t *testing.T) {
	q := NewInbound(2)
	require.True(t, q.Push(model.NewStatusEvent(model.StatusEvent{})))
	require.True(t, q.Push(model.NewStatusEvent(model.StatusEvent{})))
	ok := q.Push(model.NewStatusEvent(model.StatusEvent{}))
	assert.False(t, ok)
	assert.Equal(t, int64(1), q.Overflow())
}

func TestInbound_DrainReturnsAllBuffered(t *testing.T) {
	q := NewInbound(10)
	for i := 0; i < 5; i++ {
		q.Push(model.NewStatusEvent(model.StatusEvent{}))
	}
	drained := q.Drain()
	assert.Len(t, drained, 5)
	assert.Empty(t, q.Drain())
}

func TestCommand_CoalescingLastWriteWins(t *testing.T) {
	q := NewCommand(10)
	q.Push(model.NewIntentCommand(model.IntentCommand{CommandID: 1, WallMS: 100, Intent: model.IntentLong}))
	q.Push(model.NewIntentCommand(model.IntentCommand{CommandID: 2, WallMS: 200, Intent: model.IntentShort}))
	q.Push(model.NewIntentCommand(model.IntentCommand{CommandID: 3, WallMS: 300, Intent: model.IntentFlat}))
	q.Push(model.NewArmCommand(model.ArmCommand{CommandID: 4, WallMS: 400, Arm: true}))
	q.Push(model.NewArmCommand(model.ArmCommand{CommandID: 5, WallMS: 500, Arm: false}))

	result := q.Drain()
	require.True(t, result.Applied)
	require.NotNil(t, result.Intent)
	require.NotNil(t, result.Arm)
	assert.Equal(t, model.IntentFlat, *result.Intent)
	assert.False(t, *result.Arm)
	assert.Equal(t, int64(5), result.LastCmdID)
	assert.Equal(t, int64(500), result.LastCmdTSWall)
}

func TestCommand_DrainEmptyNotApplied(t *testing.T) {
	q := NewCommand(10)
	result := q.Drain()
	assert.False(t, result.Applied)
	assert.Nil(t, result.Intent)
	assert.Nil(t, result.Arm)
}
