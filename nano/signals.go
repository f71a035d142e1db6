package nano

type WriteableSignal[T comparable] struct {
	node
	value T
}

func Signal[T comparable](rt *Runtime, initialValue T) *WriteableSignal[T] {
	return &WriteableSignal[T]{
		node:  newNode(rt),
		value: initialValue,
	}
}

func (s *WriteableSignal[T]) Value() T {
	s.track()
	return s.value
}

// Peek returns the current value without tracking the read.
func (s *WriteableSignal[T]) Peek() T {
	return s.value
}

// SetValue stores v and notifies subscribers. Writing the current value is a
// no-op, and so is writing NaN over NaN. The returned error is a fatal
// condition raised by the flush this write triggered.
func (s *WriteableSignal[T]) SetValue(v T) error {
	if same(s.value, v) {
		return nil
	}
	s.value = v
	return s.notify()
}

// same reports whether writing b over a changes nothing. NaN matches NaN.
// Dynamic values that cannot be compared, such as slices held in an any, are
// never the same.
func same[T comparable](a, b T) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b || (a != a && b != b)
}

func (s *WriteableSignal[T]) Update(fn func(oldValue T) T) error {
	return s.SetValue(fn(s.value))
}

func (s *WriteableSignal[T]) Version() uint64 {
	return s.version
}

func (s *WriteableSignal[T]) ID() uint64 {
	return s.id
}

// Subscribe adds sub to the subscriber set and returns an idempotent detach.
func (s *WriteableSignal[T]) Subscribe(sub *Subscriber) (detach func()) {
	return s.subscribe(sub)
}

func (s *WriteableSignal[T]) Detach(sub *Subscriber) {
	s.unlink(sub)
}

// Dispose severs every subscriber edge. The signal stays readable and
// writable.
func (s *WriteableSignal[T]) Dispose() {
	s.dispose()
}

func (s *WriteableSignal[T]) SubscriberCount() int {
	return s.subs.Cardinality()
}

func (s *WriteableSignal[T]) HasSubscriber(sub *Subscriber) bool {
	return s.subs.Contains(sub)
}
