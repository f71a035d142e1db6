package nano

import (
	"log/slog"
)

// DefaultMaxEffectDepth is the ceiling on nested effect runs, and on how many
// times a single subscriber may run within one flush.
const DefaultMaxEffectDepth = 100

type OnErrorFunc func(from *Subscriber, err error)

// Runtime holds every piece of state that reads and writes share implicitly:
// the active subscriber, the batch and effect depths and the pending work.
// A Runtime is not safe for concurrent use; confine it to one goroutine.
type Runtime struct {
	active      *Subscriber
	pauseStack  []*Subscriber
	batchDepth  int
	effectDepth int
	maxDepth    int

	queue workQueue
	// draining is set while drain runs; scheduled while a microtask drain
	// is queued but has not started.
	draining  bool
	scheduled bool
	// fault latches a fatal error until the outermost call returns it.
	fault error

	microtask func(func())
	logger    *slog.Logger
	onError   OnErrorFunc
	nextID    uint64
}

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithErrorHandler routes isolated callback errors to fn instead of the
// logger.
func WithErrorHandler(fn OnErrorFunc) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

func WithMaxEffectDepth(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxDepth = n
		}
	}
}

// WithMicrotask defers every flush to the host's microtask checkpoint. Without
// it a flush runs at the end of the outermost write or batch that triggered
// it.
func WithMicrotask(schedule func(func())) Option {
	return func(rt *Runtime) {
		rt.microtask = schedule
	}
}

func CreateReactiveSystem(opts ...Option) *Runtime {
	rt := &Runtime{
		maxDepth: DefaultMaxEffectDepth,
		logger:   slog.Default(),
		queue:    newWorkQueue(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Reset drops pending work and returns every counter to its initial state.
// Signals and effects created earlier keep their edges.
func (rt *Runtime) Reset() {
	rt.active = nil
	rt.pauseStack = rt.pauseStack[:0]
	rt.batchDepth = 0
	rt.effectDepth = 0
	rt.queue.clear()
	rt.draining = false
	rt.scheduled = false
	rt.fault = nil
}

func (rt *Runtime) PauseTracking() {
	rt.pauseStack = append(rt.pauseStack, rt.active)
	rt.active = nil
}

func (rt *Runtime) ResumeTracking() {
	lastIdx := len(rt.pauseStack) - 1
	rt.active = rt.pauseStack[lastIdx]
	rt.pauseStack = rt.pauseStack[:lastIdx]
}

// Untrack evaluates fn without attributing its reads to the active
// subscriber.
func Untrack[T any](rt *Runtime, fn func() T) T {
	prev := rt.active
	rt.active = nil
	defer func() {
		rt.active = prev
	}()
	return fn()
}

// fail latches err as the runtime's fault unless one is already pending.
func (rt *Runtime) fail(err error) error {
	if rt.fault == nil {
		rt.fault = err
	}
	return rt.fault
}

// settle returns the latched fault, clearing it once no run or drain is left
// on the stack to observe it. A queued microtask drain does not count; it
// starts with a clean fault.
func (rt *Runtime) settle() error {
	err := rt.fault
	if rt.effectDepth == 0 && !rt.draining {
		rt.fault = nil
	}
	return err
}

func (rt *Runtime) report(from *Subscriber, err error) {
	if rt.onError != nil {
		rt.onError(from, err)
		return
	}
	var id uint64
	if from != nil {
		id = from.id
	}
	rt.logger.Error("reactive callback failed", "subscriber", id, "error", err)
}
