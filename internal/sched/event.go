// internal/sched/event.go

package sched

import (
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventTaskStart EventKind = iota
	EventTaskRun
	EventTaskYield
	EventTaskComplete
	EventTaskCancel
	EventTaskError
	EventSchedulerSuspend
	EventSchedulerResume
)

// Event is emitted on every task state change and at the edges of each turn.
// At is scheduler time; TaskID and Priority are zero for scheduler events.
type Event struct {
	At       time.Duration
	Kind     EventKind
	TaskID   TaskID
	Priority Priority
}

func (ek EventKind) String() string {
	switch ek {
	case EventTaskStart:
		return "TaskStart"
	case EventTaskRun:
		return "TaskRun"
	case EventTaskYield:
		return "TaskYield"
	case EventTaskComplete:
		return "TaskComplete"
	case EventTaskCancel:
		return "TaskCancel"
	case EventTaskError:
		return "TaskError"
	case EventSchedulerSuspend:
		return "SchedulerSuspend"
	case EventSchedulerResume:
		return "SchedulerResume"
	default:
		return "Unknown"
	}
}
