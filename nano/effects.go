package nano

type EffectRunner struct {
	*Subscriber
	fn      ErrFn
	stopped bool
}

// Effect runs fn now and again whenever a signal it read during its latest
// run changes. Errors and panics from fn are reported and swallowed; fatal
// conditions raised while running fn are returned.
//
// The returned stop detaches the effect from its dependencies for good.
func Effect(rt *Runtime, fn ErrFn) (stop ErrFn, err error) {
	e := &EffectRunner{fn: fn}
	e.Subscriber = rt.NewSubscriber(e.run)

	e.run()
	err = rt.settle()

	return func() error {
		e.stopped = true
		e.unlinkAll()
		return nil
	}, err
}

func (e *EffectRunner) run() error {
	rt := e.rt
	if e.stopped {
		return nil
	}

	rt.effectDepth++
	if rt.effectDepth > rt.maxDepth {
		rt.effectDepth--
		return rt.fail(ErrEffectDepthExceeded)
	}
	defer func() {
		rt.effectDepth--
	}()

	e.unlinkAll()

	prevSub := rt.active
	rt.active = e.Subscriber
	err := invoke(e.fn)
	rt.active = prevSub
	if e.stopped {
		// stopped mid-run, drop whatever was read after stop
		e.unlinkAll()
	}

	if err != nil {
		if IsFatal(err) {
			return rt.fail(err)
		}
		rt.report(e.Subscriber, err)
	}
	return rt.fault
}
