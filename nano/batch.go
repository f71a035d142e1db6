package nano

import "errors"

func (rt *Runtime) StartBatch() {
	rt.batchDepth++
}

// EndBatch closes one batch level and flushes when the outermost one closes.
// It panics when no batch is open.
func (rt *Runtime) EndBatch() error {
	if rt.batchDepth == 0 {
		panic("nano: EndBatch called without a matching StartBatch")
	}
	rt.batchDepth--
	if rt.batchDepth == 0 {
		return rt.flush()
	}
	return nil
}

// Batch defers flushing until fn and every enclosing batch have returned, so
// several writes reach subscribers as one pass. fn's error is returned
// alongside any fatal error from the flush; a panic in fn propagates once the
// depth has been restored.
func (rt *Runtime) Batch(fn ErrFn) (err error) {
	rt.StartBatch()
	defer func() {
		err = errors.Join(err, rt.EndBatch())
	}()
	return fn()
}
