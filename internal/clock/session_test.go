package clock

import (
	"testing"
	"time"

	"github.com/edgehunter/kernel/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCompute_SessionRoll(t *testing.T) {
	cfg := DefaultSessionConfig()
	loc := time.UTC

	t1 := time.Date(2026, 3, 16, 16, 59, 0, 0, loc)
	s1 := Compute(t1, cfg)
	assert.Equal(t, "2026-03-16", s1.SessionDateISO)
	assert.Equal(t, model.SessionClosed, s1.SessionPhase)

	t2 := time.Date(2026, 3, 16, 17, 0, 0, 0, loc)
	s2 := Compute(t2, cfg)
	assert.Equal(t, "2026-03-17", s2.SessionDateISO)
	assert.Equal(t, model.SessionBreak, s2.SessionPhase)

	t3 := time.Date(2026, 3, 16, 18, 0, 0, 0, loc)
	s3 := Compute(t3, cfg)
	assert.Equal(t, "2026-03-17", s3.SessionDateISO)
	assert.Equal(t, model.SessionClosed, s3.SessionPhase)

	t4 := time.Date(2026, 3, 17, 16, 59, 0, 0, loc)
	s4 := Compute(t4, cfg)
	assert.Equal(t, "2026-03-17", s4.SessionDateISO)
	assert.Equal(t, model.SessionClosed, s4.SessionPhase)

	t5 := time.Date(2026, 3, 17, 17, 0, 0, 0, loc)
	s5 := Compute(t5, cfg)
	assert.Equal(t, "2026-03-18", s5.SessionDateISO)
	assert.Equal(t, model.SessionBreak, s5.SessionPhase)
}

func TestCompute_OperatingWindowBoundary(t *testing.T) {
	cfg := DefaultSessionConfig()
	loc := time.UTC

	end := time.Date(2026, 1, 5, 16, 0, 0, 0, loc)
	s := Compute(end, cfg)
	assert.False(t, s.InOperatingWindow, "end hour is exclusive")

	justBefore := time.Date(2026, 1, 5, 15, 59, 59, 0, loc)
	s = Compute(justBefore, cfg)
	assert.True(t, s.InOperatingWindow)
}

func TestFakeClock_AdvancesMonoAndWall(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFakeClock(start)
	assert.Equal(t, int64(0), fc.NowMonoNS())
	fc.Advance(5 * time.Second)
	assert.Equal(t, int64(5*time.Second), fc.NowMonoNS())
	assert.Equal(t, start.Add(5*time.Second).UnixMilli(), fc.NowWallMS())
}
