package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1 // span start
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd // span end
	// KindPoint represents an instant event.
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent higher-level/coarser events.
type Scope uint8

const (
	// ScopeExecutor represents executor lifecycle events.
	ScopeExecutor Scope = iota + 1
	// ScopeTask represents per-task lifecycle events.
	ScopeTask
	// ScopeSync represents timers, mutexes, channels and selects.
	ScopeSync
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeExecutor:
		return "executor"
	case ScopeTask:
		return "task"
	case ScopeSync:
		return "sync"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         `msgpack:"time"`             // wall-clock timestamp
	Clock    time.Duration     `msgpack:"clock"`            // executor clock reading
	Seq      uint64            `msgpack:"seq"`              // global sequence number (monotonic)
	Kind     Kind              `msgpack:"kind"`             // event kind
	Scope    Scope             `msgpack:"scope"`            // granularity level
	SpanID   uint64            `msgpack:"span,omitempty"`   // unique span identifier
	ParentID uint64            `msgpack:"parent,omitempty"` // parent span (0 if root)
	GID      uint64            `msgpack:"gid,omitempty"`    // goroutine ID
	Task     uint64            `msgpack:"task,omitempty"`   // runtime task the event concerns
	Name     string            `msgpack:"name"`             // e.g., "task.spawn", "timer.fire"
	Detail   string            `msgpack:"detail,omitempty"` // optional detail message
	Extra    map[string]string `msgpack:"extra,omitempty"`  // extensible key-value pairs
}
