package asyncrt

import (
	"fmt"

	"strand/internal/trace"
)

// channel is the shared state behind a Sender/Receiver pair. Values are
// delivered in send order; a bounded channel holds at most cap values.
type channel[T any] struct {
	id      uint64
	exec    *Executor
	cap     int
	buf     []T
	head    int
	senders int
	closed  bool
	rxGone  bool
}

// Sender is one producer end of a channel. Clone makes more; the channel
// closes once every sender has been closed.
type Sender[T any] struct {
	ch     *channel[T]
	closed bool
}

// Receiver is the single consumer end of a channel.
type Receiver[T any] struct {
	ch *channel[T]
}

// NewBounded creates a channel that holds at most capacity values.
// Senders wait while it is full. Capacity must be positive.
func NewBounded[T any](sp Spawner, capacity int) (*Sender[T], *Receiver[T]) {
	if capacity <= 0 {
		panic(fmt.Sprintf("asyncrt: bounded channel capacity must be positive, got %d", capacity))
	}
	return newChannel[T](sp, capacity)
}

// NewUnbounded creates a channel whose sends never wait.
func NewUnbounded[T any](sp Spawner) (*Sender[T], *Receiver[T]) {
	return newChannel[T](sp, 0)
}

func newChannel[T any](sp Spawner, capacity int) (*Sender[T], *Receiver[T]) {
	exec := sp.spawnScope().exec
	ch := &channel[T]{
		id:      exec.newResourceID(),
		exec:    exec,
		cap:     capacity,
		senders: 1,
	}
	return &Sender[T]{ch: ch}, &Receiver[T]{ch: ch}
}

func (ch *channel[T]) len() int {
	return len(ch.buf) - ch.head
}

func (ch *channel[T]) full() bool {
	return ch.cap > 0 && ch.len() >= ch.cap
}

func (ch *channel[T]) push(v T) {
	ch.buf = append(ch.buf, v)
	ch.exec.WakeKeyAll(ChannelRecvKey(ch.id))
}

func (ch *channel[T]) pop() (T, bool) {
	var zero T
	if ch.len() == 0 {
		return zero, false
	}
	v := ch.buf[ch.head]
	ch.buf[ch.head] = zero
	ch.head++
	if ch.head == len(ch.buf) {
		ch.buf = ch.buf[:0]
		ch.head = 0
	} else if ch.head > 32 && ch.head*2 > len(ch.buf) {
		n := copy(ch.buf, ch.buf[ch.head:])
		clear(ch.buf[n:])
		ch.buf = ch.buf[:n]
		ch.head = 0
	}
	if ch.cap > 0 {
		ch.exec.WakeKeyAll(ChannelSendKey(ch.id))
	}
	return v, true
}

// ID returns the channel identifier used in wait keys.
func (s *Sender[T]) ID() uint64 {
	return s.ch.id
}

// Send delivers v, waiting for room in a bounded channel. It fails with
// ErrChannelClosed once the receiver is closed or this sender was closed.
func (s *Sender[T]) Send(t *Task, v T) error {
	t.checkCurrent()
	for {
		if err := s.trySend(v); err != ErrChannelFull {
			return err
		}
		t.block(nil, ChannelSendKey(s.ch.id))
	}
}

// TrySend delivers v without waiting, or returns ErrChannelFull.
func (s *Sender[T]) TrySend(v T) error {
	return s.trySend(v)
}

func (s *Sender[T]) trySend(v T) error {
	switch {
	case s.closed || s.ch.rxGone:
		return ErrChannelClosed
	case s.ch.full():
		return ErrChannelFull
	}
	s.ch.push(v)
	return nil
}

// Clone returns another sender for the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	if s.closed {
		panic("asyncrt: clone of closed sender")
	}
	s.ch.senders++
	return &Sender[T]{ch: s.ch}
}

// Close drops this sender. When the last sender closes, the receiver drains
// what is buffered and then sees ErrChannelClosed.
func (s *Sender[T]) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	ch := s.ch
	ch.senders--
	if ch.senders > 0 {
		return
	}
	ch.closed = true
	ch.exec.emit(trace.ScopeSync, trace.KindPoint, "chan.close", ch.exec.Current(), fmt.Sprintf("chan %d", ch.id), nil)
	ch.exec.WakeKeyAll(ChannelRecvKey(ch.id))
}

// SendOp is a Select operation that completes once v is delivered.
func (s *Sender[T]) SendOp(v T) Op {
	return sendOp[T]{s: s, v: v}
}

type sendOp[T any] struct {
	s *Sender[T]
	v T
}

func (o sendOp[T]) poll(*Task) (bool, any, error) {
	err := o.s.trySend(o.v)
	if err == ErrChannelFull {
		return false, nil, nil
	}
	return true, nil, err
}

func (o sendOp[T]) keys() []WakerKey {
	return []WakerKey{ChannelSendKey(o.s.ch.id)}
}

func (sendOp[T]) abandon(*Task) {}

// ID returns the channel identifier used in wait keys.
func (r *Receiver[T]) ID() uint64 {
	return r.ch.id
}

// Len reports how many values are buffered.
func (r *Receiver[T]) Len() int {
	return r.ch.len()
}

// Recv returns the next value, waiting while the channel is empty. Once
// every sender is closed and the buffer is drained it returns
// ErrChannelClosed, and keeps doing so.
func (r *Receiver[T]) Recv(t *Task) (T, error) {
	t.checkCurrent()
	for {
		v, err := r.TryRecv()
		if err != ErrChannelEmpty {
			return v, err
		}
		t.block(nil, ChannelRecvKey(r.ch.id))
	}
}

// TryRecv returns a buffered value without waiting, ErrChannelEmpty if
// there is none yet, or ErrChannelClosed once the channel is finished.
func (r *Receiver[T]) TryRecv() (T, error) {
	if v, ok := r.ch.pop(); ok {
		return v, nil
	}
	var zero T
	if r.ch.closed || r.ch.rxGone {
		return zero, ErrChannelClosed
	}
	return zero, ErrChannelEmpty
}

// Close drops the receiver. Buffered values are discarded and senders get
// ErrChannelClosed.
func (r *Receiver[T]) Close() {
	ch := r.ch
	if ch.rxGone {
		return
	}
	ch.rxGone = true
	clear(ch.buf)
	ch.buf = nil
	ch.head = 0
	ch.exec.WakeKeyAll(ChannelSendKey(ch.id))
}

// RecvOp is a Select operation that receives one value. A value is taken
// from the channel only when this branch wins.
func (r *Receiver[T]) RecvOp() Op {
	return recvOp[T]{r: r}
}

type recvOp[T any] struct {
	r *Receiver[T]
}

func (o recvOp[T]) poll(*Task) (bool, any, error) {
	v, err := o.r.TryRecv()
	if err == ErrChannelEmpty {
		return false, nil, nil
	}
	if err != nil {
		return true, nil, err
	}
	return true, v, nil
}

func (o recvOp[T]) keys() []WakerKey {
	return []WakerKey{ChannelRecvKey(o.r.ch.id)}
}

func (recvOp[T]) abandon(*Task) {}
