package nano

import (
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

type ErrFn func() error

// Readable is the capability shared by writable and derived signals.
type Readable[T comparable] interface {
	Value() T
	Subscribe(sub *Subscriber) (detach func())
}

// Subscriber is a callback with identity and a dependency set. It is the unit
// of work held by the scheduler; the same subscriber enqueued twice in one
// cycle runs once.
type Subscriber struct {
	rt   *Runtime
	id   uint64
	fn   ErrFn
	deps mapset.Set[*node]
}

func (rt *Runtime) NewSubscriber(fn ErrFn) *Subscriber {
	rt.nextID++
	return &Subscriber{
		rt:   rt,
		id:   rt.nextID,
		fn:   fn,
		deps: mapset.NewThreadUnsafeSet[*node](),
	}
}

func (sub *Subscriber) ID() uint64 {
	return sub.id
}

// Deps reports how many signals the subscriber currently depends on.
func (sub *Subscriber) Deps() int {
	return sub.deps.Cardinality()
}

// unlinkAll removes every edge in the dependency set, from both ends.
func (sub *Subscriber) unlinkAll() {
	for _, n := range sub.deps.ToSlice() {
		n.unlink(sub)
	}
}

// node is the untyped half of a signal: identity, version and the subscriber
// side of the adjacency structure.
type node struct {
	rt      *Runtime
	id      uint64
	version uint64
	subs    mapset.Set[*Subscriber]
}

func newNode(rt *Runtime) node {
	rt.nextID++
	return node{
		rt:   rt,
		id:   rt.nextID,
		subs: mapset.NewThreadUnsafeSet[*Subscriber](),
	}
}

// track links the active subscriber, if any.
func (n *node) track() {
	if sub := n.rt.active; sub != nil {
		n.link(sub)
	}
}

// link and unlink always touch both sides of the edge.
func (n *node) link(sub *Subscriber) {
	n.subs.Add(sub)
	sub.deps.Add(n)
}

func (n *node) unlink(sub *Subscriber) {
	n.subs.Remove(sub)
	sub.deps.Remove(n)
}

func (n *node) subscribe(sub *Subscriber) func() {
	n.link(sub)
	return func() {
		n.unlink(sub)
	}
}

// notify bumps the version and enqueues every subscriber in id order, then
// flushes unless a batch is open.
func (n *node) notify() error {
	n.version++
	subs := n.subs.ToSlice()
	slices.SortFunc(subs, func(a, b *Subscriber) int {
		return cmp.Compare(a.id, b.id)
	})
	for _, sub := range subs {
		n.rt.Enqueue(sub)
	}
	if n.rt.batchDepth == 0 {
		return n.rt.flush()
	}
	return nil
}

func (n *node) dispose() {
	for _, sub := range n.subs.ToSlice() {
		n.unlink(sub)
	}
}
