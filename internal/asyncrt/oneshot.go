package asyncrt

// oneshot carries at most one value from one sender to one receiver.
type oneshot[T any] struct {
	id      uint64
	exec    *Executor
	value   T
	sent    bool
	dropped bool
	taken   bool
	rxGone  bool
}

// OnceSender is the sending half of a oneshot channel.
type OnceSender[T any] struct {
	o *oneshot[T]
}

// OnceReceiver is the receiving half of a oneshot channel.
type OnceReceiver[T any] struct {
	o *oneshot[T]
}

// NewOneshot creates a single-use channel.
func NewOneshot[T any](sp Spawner) (*OnceSender[T], *OnceReceiver[T]) {
	exec := sp.spawnScope().exec
	o := &oneshot[T]{id: exec.newResourceID(), exec: exec}
	return &OnceSender[T]{o: o}, &OnceReceiver[T]{o: o}
}

// Send delivers v without waiting. A second send fails with
// ErrAlreadySent; a send after the receiver closed fails with
// ErrChannelClosed.
func (s *OnceSender[T]) Send(v T) error {
	o := s.o
	switch {
	case o.sent:
		return ErrAlreadySent
	case o.dropped:
		return ErrSenderDropped
	case o.rxGone:
		return ErrChannelClosed
	}
	o.value = v
	o.sent = true
	o.exec.WakeKeyAll(OneshotKey(o.id))
	return nil
}

// Drop discards the sender. A receiver waiting for a value gets
// ErrSenderDropped. Dropping after a send is a no-op.
func (s *OnceSender[T]) Drop() {
	o := s.o
	if o.sent || o.dropped {
		return
	}
	o.dropped = true
	o.exec.WakeKeyAll(OneshotKey(o.id))
}

// Recv waits for the value. It returns ErrSenderDropped if the sender was
// dropped first, and ErrChannelClosed if the value was already taken.
func (r *OnceReceiver[T]) Recv(t *Task) (T, error) {
	t.checkCurrent()
	for {
		v, ok, err := r.tryRecv()
		if ok {
			return v, err
		}
		t.block(nil, OneshotKey(r.o.id))
	}
}

// TryRecv returns the value if it has been sent, ErrChannelEmpty if not.
func (r *OnceReceiver[T]) TryRecv() (T, error) {
	v, ok, err := r.tryRecv()
	if !ok {
		return v, ErrChannelEmpty
	}
	return v, err
}

func (r *OnceReceiver[T]) tryRecv() (T, bool, error) {
	var zero T
	o := r.o
	switch {
	case o.taken, o.rxGone:
		return zero, true, ErrChannelClosed
	case o.sent:
		v := o.value
		o.value = zero
		o.taken = true
		return v, true, nil
	case o.dropped:
		return zero, true, ErrSenderDropped
	}
	return zero, false, nil
}

// Close drops the receiver; later sends fail.
func (r *OnceReceiver[T]) Close() {
	var zero T
	r.o.rxGone = true
	r.o.value = zero
}

// RecvOp is a Select operation that completes with the value or the
// reason none will come.
func (r *OnceReceiver[T]) RecvOp() Op {
	return onceOp[T]{r: r}
}

type onceOp[T any] struct {
	r *OnceReceiver[T]
}

func (o onceOp[T]) poll(*Task) (bool, any, error) {
	v, ok, err := o.r.tryRecv()
	if !ok {
		return false, nil, nil
	}
	if err != nil {
		return true, nil, err
	}
	return true, v, nil
}

func (o onceOp[T]) keys() []WakerKey {
	return []WakerKey{OneshotKey(o.r.o.id)}
}

func (onceOp[T]) abandon(*Task) {}
