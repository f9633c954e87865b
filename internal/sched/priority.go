package sched

import (
	"strings"
	"time"
)

// Priority is a task's urgency class. Only the relative order of the levels
// and their timeouts are meaningful.
type Priority int

const (
	NoPriority Priority = iota
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

// maxSigned31BitInt is the largest timeout we hand out, in milliseconds.
const maxSigned31BitInt = 1073741823

// Timeouts per priority. Immediate tasks are already expired when created.
const (
	ImmediatePriorityTimeout    = -1 * time.Millisecond
	UserBlockingPriorityTimeout = 250 * time.Millisecond
	NormalPriorityTimeout       = 5000 * time.Millisecond
	LowPriorityTimeout          = 10000 * time.Millisecond
	IdlePriorityTimeout         = maxSigned31BitInt * time.Millisecond
)

var (
	priorityNames = map[Priority]string{
		NoPriority:           "none",
		ImmediatePriority:    "immediate",
		UserBlockingPriority: "user-blocking",
		NormalPriority:       "normal",
		LowPriority:          "low",
		IdlePriority:         "idle",
	}

	namePriorities = map[string]Priority{
		"immediate":     ImmediatePriority,
		"user-blocking": UserBlockingPriority,
		"userblocking":  UserBlockingPriority,
		"normal":        NormalPriority,
		"low":           LowPriority,
		"idle":          IdlePriority,
	}
)

// Priorities lists the valid levels from most to least urgent.
func Priorities() []Priority {
	return []Priority{ImmediatePriority, UserBlockingPriority, NormalPriority, LowPriority, IdlePriority}
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return "unknown"
}

// IsValid reports whether p is one of the five schedulable levels.
func (p Priority) IsValid() bool {
	return p >= ImmediatePriority && p <= IdlePriority
}

// Normalize coerces anything that is not a schedulable level to Normal.
func (p Priority) Normalize() Priority {
	if !p.IsValid() {
		return NormalPriority
	}
	return p
}

// Timeout returns how long after its start time a task at this level expires.
func (p Priority) Timeout() time.Duration {
	switch p.Normalize() {
	case ImmediatePriority:
		return ImmediatePriorityTimeout
	case UserBlockingPriority:
		return UserBlockingPriorityTimeout
	case LowPriority:
		return LowPriorityTimeout
	case IdlePriority:
		return IdlePriorityTimeout
	default:
		return NormalPriorityTimeout
	}
}

// ParsePriority maps a level name to a Priority. Unknown names yield Normal
// and false.
func ParsePriority(s string) (Priority, bool) {
	p, ok := namePriorities[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return NormalPriority, false
	}
	return p, true
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	*p, _ = ParsePriority(string(b))
	return nil
}
