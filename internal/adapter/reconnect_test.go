package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicy_BackoffDoubles(t *testing.T) {
	p := NewReconnectPolicy()
	base := time.Unix(0, 0)

	d1 := p.RecordFailure(base)
	assert.Equal(t, time.Second, d1)
	d2 := p.RecordFailure(base)
	assert.Equal(t, 2*time.Second, d2)
	d3 := p.RecordFailure(base)
	assert.Equal(t, 4*time.Second, d3)
}

func TestReconnectPolicy_RecordSuccessResets(t *testing.T) {
	p := NewReconnectPolicy()
	base := time.Unix(0, 0)
	p.RecordFailure(base)
	p.RecordFailure(base)
	p.RecordSuccess()
	assert.Equal(t, time.Second, p.RecordFailure(base))
}

func TestReconnectPolicy_CapsAttemptsPerMinute(t *testing.T) {
	p := NewReconnectPolicy()
	base := time.Unix(0, 0)
	for i := 0; i < p.MaxAttemptsPerMinute; i++ {
		assert.True(t, p.CanAttempt(base))
		p.RecordFailure(base)
	}
	assert.False(t, p.CanAttempt(base))
	assert.Greater(t, p.CooldownRemaining(base), time.Duration(0))
}
