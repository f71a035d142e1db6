// Package nano is a small push-based reactive core: writable signals,
// effects that re-run when a signal they read changes, eager computed values
// and batches that coalesce writes into one pass.
//
// All state lives on a *Runtime. Reads made while an effect runs are tracked
// as dependencies; writes enqueue dependents and drain the queue to a fixed
// point before returning, unless a batch is open or WithMicrotask defers the
// drain. Without WithMicrotask each unbatched write drains on its own; wrap
// related writes in Batch, or defer to a microtask, to have them reach
// subscribers as one pass.
//
//	rt := nano.CreateReactiveSystem()
//	count := nano.Signal(rt, 1)
//	double, _ := nano.Computed(rt, func(int) int { return count.Value() * 2 })
//	nano.Effect(rt, func() error {
//		fmt.Println(double.Value())
//		return nil
//	})
//	count.SetValue(2) // prints 4
package nano
