package nano

// ReadonlySignal is a derived value. It has no setter; its internal effect is
// the only writer.
type ReadonlySignal[T comparable] struct {
	out       *WriteableSignal[T]
	getter    func(oldValue T) T
	computing bool
	stop      ErrFn
}

// Computed evaluates getter once without tracking to seed the value, then
// wraps it in an effect that re-evaluates and writes the result whenever a
// signal getter read changes.
//
// Reading the computed while it is computing is a cycle and fails with
// ErrCycleDetected. The guard is per node: a loop through several computeds
// is only caught when it re-enters the same node, otherwise it runs into the
// effect depth ceiling.
func Computed[T comparable](rt *Runtime, getter func(oldValue T) T) (*ReadonlySignal[T], error) {
	var zero T
	c := &ReadonlySignal[T]{
		out:    Signal(rt, zero),
		getter: getter,
	}

	err := invoke(func() error {
		c.computing = true
		defer func() {
			c.computing = false
		}()
		c.out.value = Untrack(rt, func() T {
			return getter(zero)
		})
		return nil
	})
	if err != nil {
		if IsFatal(err) {
			rt.fail(err)
			err = rt.settle()
		}
		return nil, err
	}

	c.stop, err = Effect(rt, c.recompute)
	return c, err
}

func (c *ReadonlySignal[T]) recompute() error {
	if c.computing {
		return &CycleError{Node: c.out.id}
	}
	c.computing = true
	defer func() {
		c.computing = false
	}()
	return c.out.SetValue(c.getter(c.out.value))
}

func (c *ReadonlySignal[T]) Value() T {
	if c.computing {
		panic(&CycleError{Node: c.out.id})
	}
	return c.out.Value()
}

func (c *ReadonlySignal[T]) Peek() T {
	return c.out.value
}

func (c *ReadonlySignal[T]) Version() uint64 {
	return c.out.version
}

func (c *ReadonlySignal[T]) ID() uint64 {
	return c.out.id
}

func (c *ReadonlySignal[T]) Subscribe(sub *Subscriber) (detach func()) {
	return c.out.Subscribe(sub)
}

func (c *ReadonlySignal[T]) Detach(sub *Subscriber) {
	c.out.Detach(sub)
}

func (c *ReadonlySignal[T]) SubscriberCount() int {
	return c.out.SubscriberCount()
}

// Dispose stops recomputation and severs every downstream edge.
func (c *ReadonlySignal[T]) Dispose() {
	if c.stop != nil {
		c.stop()
	}
	c.out.Dispose()
}
