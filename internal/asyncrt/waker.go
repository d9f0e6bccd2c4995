package asyncrt

import "fmt"

// WakerKind identifies a wait queue category.
type WakerKind uint8

const (
	// WakerInvalid indicates an invalid waker key.
	WakerInvalid WakerKind = iota
	// WakerJoin indicates a join wait queue.
	WakerJoin
	// WakerChannelRecv indicates a channel receive wait queue.
	WakerChannelRecv
	// WakerChannelSend indicates a channel send wait queue.
	WakerChannelSend
	// WakerTimer indicates a timer wait queue.
	WakerTimer
	// WakerMutex indicates a mutex wait queue.
	WakerMutex
	// WakerOneshot indicates a oneshot receive wait queue.
	WakerOneshot
	// WakerJoinSet indicates a join-set completion wait queue.
	WakerJoinSet
	// WakerScope indicates a scope drain wait queue.
	WakerScope
)

func (k WakerKind) String() string {
	switch k {
	case WakerJoin:
		return "join"
	case WakerChannelRecv:
		return "recv"
	case WakerChannelSend:
		return "send"
	case WakerTimer:
		return "timer"
	case WakerMutex:
		return "mutex"
	case WakerOneshot:
		return "oneshot"
	case WakerJoinSet:
		return "joinset"
	case WakerScope:
		return "scope"
	default:
		return "invalid"
	}
}

// WakerKey identifies a wait queue entry.
type WakerKey struct {
	Kind WakerKind
	A    uint64
}

// IsValid reports whether the key is usable for waiting.
func (k WakerKey) IsValid() bool {
	return k.Kind != WakerInvalid
}

func (k WakerKey) String() string {
	return fmt.Sprintf("%s#%d", k.Kind, k.A)
}

// JoinKey builds a join wait key for a target task.
func JoinKey(target TaskID) WakerKey {
	return WakerKey{Kind: WakerJoin, A: uint64(target)}
}

// ChannelRecvKey builds a wait key for channel receivers.
func ChannelRecvKey(channelID uint64) WakerKey {
	return WakerKey{Kind: WakerChannelRecv, A: channelID}
}

// ChannelSendKey builds a wait key for channel senders.
func ChannelSendKey(channelID uint64) WakerKey {
	return WakerKey{Kind: WakerChannelSend, A: channelID}
}

// TimerKey builds a wait key for a timer.
func TimerKey(timerID TimerID) WakerKey {
	return WakerKey{Kind: WakerTimer, A: uint64(timerID)}
}

// MutexKey builds a wait key for a mutex.
func MutexKey(mutexID uint64) WakerKey {
	return WakerKey{Kind: WakerMutex, A: mutexID}
}

// OneshotKey builds a wait key for a oneshot receiver.
func OneshotKey(id uint64) WakerKey {
	return WakerKey{Kind: WakerOneshot, A: id}
}

// JoinSetKey builds a wait key for join-set completions.
func JoinSetKey(id uint64) WakerKey {
	return WakerKey{Kind: WakerJoinSet, A: id}
}

// ScopeKey builds a wait key for a scope becoming empty.
func ScopeKey(id ScopeID) WakerKey {
	return WakerKey{Kind: WakerScope, A: uint64(id)}
}

// newResourceID hands out ids for mutexes, channels and join sets. Wait
// keys only live in one executor, so ids are counted per executor.
func (e *Executor) newResourceID() uint64 {
	e.nextResID++
	return e.nextResID
}
