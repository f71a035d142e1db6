package nano

import (
	"errors"
	"fmt"
)

var (
	// ErrEffectDepthExceeded is returned when an effect keeps re-triggering
	// itself past the runtime's depth ceiling, either through nested runs or
	// by re-entering the queue within a single flush. The per-flush count
	// also trips loops that would converge: an effect that writes its own
	// dependency until it reaches 150 fails at the default ceiling of 100.
	// Raise it with WithMaxEffectDepth.
	ErrEffectDepthExceeded = errors.New("nano: effect depth exceeded, likely an infinite loop")

	// ErrCycleDetected is returned when a computed value is read or
	// re-evaluated while it is still computing.
	ErrCycleDetected = errors.New("nano: cycle detected in computed")
)

type CycleError struct {
	Node uint64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s (node %d)", ErrCycleDetected, e.Node)
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// PanicError wraps a value recovered from a user callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("nano: callback panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsFatal reports whether err must stop forward progress at the call site
// that triggered it. Everything else is isolated to the callback that
// produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrEffectDepthExceeded) || errors.Is(err, ErrCycleDetected)
}

// invoke runs fn inside a fault boundary. Panics carrying a fatal error are
// returned as that error; any other panic becomes a *PanicError.
func invoke(fn ErrFn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok && IsFatal(rErr) {
				err = rErr
				return
			}
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
