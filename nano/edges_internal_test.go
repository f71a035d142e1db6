package nano

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlySubscriber(t *testing.T, n *node) *Subscriber {
	t.Helper()
	subs := n.subs.ToSlice()
	require.Len(t, subs, 1)
	return subs[0]
}

func TestEdgesArePaired(t *testing.T) {
	rt := CreateReactiveSystem()
	cond := Signal(rt, true)
	a := Signal(rt, 1)
	b := Signal(rt, 2)

	_, err := Effect(rt, func() error {
		if cond.Value() {
			a.Value()
		} else {
			b.Value()
		}
		return nil
	})
	require.NoError(t, err)

	runner := onlySubscriber(t, &cond.node)
	assert.True(t, runner.deps.Contains(&cond.node, &a.node))
	assert.False(t, runner.deps.Contains(&b.node))
	assert.True(t, a.HasSubscriber(runner))

	require.NoError(t, cond.SetValue(false))
	assert.True(t, runner.deps.Contains(&cond.node, &b.node))
	assert.False(t, runner.deps.Contains(&a.node))
	assert.False(t, a.HasSubscriber(runner))
	assert.True(t, b.HasSubscriber(runner))
}

func TestStopLeavesNoResidualEdges(t *testing.T) {
	rt := CreateReactiveSystem()
	a := Signal(rt, 1)
	b := Signal(rt, 2)

	stop, err := Effect(rt, func() error {
		a.Value()
		b.Value()
		return nil
	})
	require.NoError(t, err)

	runner := onlySubscriber(t, &a.node)
	require.NoError(t, stop())
	assert.False(t, a.HasSubscriber(runner))
	assert.False(t, b.HasSubscriber(runner))
	assert.Equal(t, 0, runner.Deps())

	require.NoError(t, a.SetValue(3))
	assert.Equal(t, 0, rt.Pending())
}

func TestDisposeRemovesReverseEdges(t *testing.T) {
	rt := CreateReactiveSystem()
	a := Signal(rt, 1)

	_, err := Effect(rt, func() error {
		a.Value()
		return nil
	})
	require.NoError(t, err)

	runner := onlySubscriber(t, &a.node)
	a.Dispose()
	assert.False(t, runner.deps.Contains(&a.node))
	assert.NotPanics(t, a.Dispose)
}

func TestWorkQueueDeduplicatesAndReverses(t *testing.T) {
	rt := CreateReactiveSystem()
	q := newWorkQueue()
	x := rt.NewSubscriber(nil)
	y := rt.NewSubscriber(nil)
	z := rt.NewSubscriber(nil)

	q.add(x)
	q.add(y)
	q.add(x)
	q.add(z)
	assert.Equal(t, 3, q.len())

	assert.Equal(t, []*Subscriber{z, y, x}, q.take())
	assert.Equal(t, 0, q.len())
	assert.False(t, q.queued.Contains(x))

	q.add(x)
	assert.Equal(t, []*Subscriber{x}, q.take())
}

func TestDepthCountersUnwind(t *testing.T) {
	rt := CreateReactiveSystem()
	a := Signal(rt, 0)

	_, err := Effect(rt, func() error {
		return a.SetValue(a.Value() + 1)
	})
	require.ErrorIs(t, err, ErrEffectDepthExceeded)

	assert.Equal(t, 0, rt.effectDepth)
	assert.Equal(t, 0, rt.batchDepth)
	assert.False(t, rt.draining)
	assert.False(t, rt.scheduled)
	assert.Nil(t, rt.active)
	assert.NoError(t, rt.fault)
}
