// Package triggercard implements the crash-tolerant audit logger (§4.5) and
// its companion validator (§4.5, §8 scenario 6), grounded on the original
// TriggerCardLogger/validator and on the teacher's append-mode file handling
// in its resource manager.
package triggercard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/snapshot"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// DefaultCadenceHz matches spec.md §4.5's default emit rate.
const DefaultCadenceHz = 1.0

// Logger is a crash-tolerant, append-only JSONL writer, ticked once per
// engine cycle but emitting at most once per cadence interval. Only one
// file is open at a time; it rotates on local-date change.
type Logger struct {
	runID         string
	logDir        string
	cadenceIntervalNS int64
	clk           clock.Clock
	log           logging.Logger

	lastEmitMonoNS *int64
	currentFile    *os.File
	currentDate    string
}

// NewLogger constructs a Logger. cadenceHz <= 0 uses DefaultCadenceHz.
func NewLogger(runID, logDir string, cadenceHz float64, clk clock.Clock, log logging.Logger) (*Logger, error) {
	if cadenceHz <= 0 {
		cadenceHz = DefaultCadenceHz
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("triggercard: create log dir: %w", err)
	}
	return &Logger{
		runID:             runID,
		logDir:            logDir,
		cadenceIntervalNS: int64(1e9 / cadenceHz),
		clk:               clk,
		log:               log,
	}, nil
}

// Tick is called once per engine cycle. It emits a TriggerCard iff snap is
// non-nil and the cadence interval has elapsed since the last emit.
func (l *Logger) Tick(nowMonoNS int64, snap *snapshot.Snapshot) {
	if snap == nil {
		return
	}
	if l.lastEmitMonoNS != nil && nowMonoNS-*l.lastEmitMonoNS < l.cadenceIntervalNS {
		return
	}

	if err := l.rotateIfNeeded(); err != nil {
		l.log.ErrorCtx(context.Background(), "triggercard: rotation failed, discarding this emit", "error", err)
		return
	}

	card := snapshot.NewTriggerCard(snap)
	line, err := json.Marshal(card)
	if err != nil {
		l.log.ErrorCtx(context.Background(), "triggercard: marshal failed", "error", err)
		return
	}
	line = append(line, '\n')

	if _, err := l.currentFile.Write(line); err != nil {
		l.log.ErrorCtx(context.Background(), "triggercard: write failed", "error", err)
		return
	}
	if err := l.currentFile.Sync(); err != nil {
		l.log.ErrorCtx(context.Background(), "triggercard: fsync failed", "error", err)
		return
	}

	now := nowMonoNS
	l.lastEmitMonoNS = &now
}

func (l *Logger) rotateIfNeeded() error {
	date := l.clk.NowLocal().Format("2006-01-02")
	if date == l.currentDate && l.currentFile != nil {
		return nil
	}
	if l.currentFile != nil {
		_ = l.currentFile.Sync()
		_ = l.currentFile.Close()
	}
	name := fmt.Sprintf("triggercards_%s_%s.jsonl", date, l.runID)
	f, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.currentFile = f
	l.currentDate = date
	return nil
}

// Close flushes and closes any open file handle. Safe to call multiple times.
func (l *Logger) Close() error {
	if l.currentFile == nil {
		return nil
	}
	_ = l.currentFile.Sync()
	err := l.currentFile.Close()
	l.currentFile = nil
	return err
}
