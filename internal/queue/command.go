package queue

import (
	"sync/atomic"

	"github.com/edgehunter/kernel/internal/model"
)

// DefaultCommandCapacity matches spec.md §4.4's default bound of 100 commands.
const DefaultCommandCapacity = 100

// CoalescedCommands is the result of draining CommandQueue: the last-seen
// payload of each kind, plus the id/time of the newest command observed
// across both kinds (per spec.md §4.4).
type CoalescedCommands struct {
	Intent        *model.Intent
	Arm           *bool
	LastCmdID     int64
	LastCmdTSWall int64
	Applied       bool
}

// Command is a bounded, multi-producer single-consumer queue of UI control
// commands. Drain coalesces in FIFO order: last-write-wins per kind.
type Command struct {
	ch       chan model.Command
	overflow atomic.Int64
}

// NewCommand returns a Command queue with the given capacity (DefaultCommandCapacity if <= 0).
func NewCommand(capacity int) *Command {
	if capacity <= 0 {
		capacity = DefaultCommandCapacity
	}
	return &Command{ch: make(chan model.Command, capacity)}
}

// Push enqueues a command. Never blocks; reports ok=false and counts an
// overflow if the queue is full.
func (q *Command) Push(c model.Command) (ok bool) {
	select {
	case q.ch <- c:
		return true
	default:
		q.overflow.Add(1)
		return false
	}
}

// Drain empties the queue and coalesces it into one CoalescedCommands
// record. FIFO order within the drained batch is preserved while scanning,
// so the final Intent/Arm values are whichever was pushed last.
func (q *Command) Drain() CoalescedCommands {
	var result CoalescedCommands
	for {
		select {
		case cmd := <-q.ch:
			result.Applied = true
			switch {
			case cmd.Intent != nil:
				intent := cmd.Intent.Intent
				result.Intent = &intent
				if cmd.Intent.CommandID >= result.LastCmdID {
					result.LastCmdID = cmd.Intent.CommandID
					result.LastCmdTSWall = cmd.Intent.WallMS
				}
			case cmd.Arm != nil:
				arm := cmd.Arm.Arm
				result.Arm = &arm
				if cmd.Arm.CommandID >= result.LastCmdID {
					result.LastCmdID = cmd.Arm.CommandID
					result.LastCmdTSWall = cmd.Arm.WallMS
				}
			}
		default:
			return result
		}
	}
}

// Len reports the number of currently-buffered commands (for depth metrics).
func (q *Command) Len() int { return len(q.ch) }

// Overflow reports the cumulative count of dropped pushes.
func (q *Command) Overflow() int64 { return q.overflow.Load() }
