package nano_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/nanosignals/nano"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCoalescesWrites(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)

	seen := []int{}
	_, err := nano.Effect(rt, func() error {
		seen = append(seen, a.Value())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.Batch(func() error {
		if err := a.SetValue(1); err != nil {
			return err
		}
		return a.SetValue(2)
	}))
	assert.Equal(t, []int{0, 2}, seen)
}

func TestNestedBatchFlushesOnceAtOutermostExit(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)
	b := nano.Signal(rt, 0)

	runs := 0
	_, err := nano.Effect(rt, func() error {
		runs++
		a.Value()
		b.Value()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.Batch(func() error {
		if err := a.SetValue(1); err != nil {
			return err
		}
		if err := rt.Batch(func() error {
			return b.SetValue(1)
		}); err != nil {
			return err
		}
		assert.Equal(t, 1, runs)
		assert.Equal(t, 1, rt.Pending())
		return nil
	}))
	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, rt.Pending())
}

func TestStartEndBatch(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)

	runs := 0
	_, err := nano.Effect(rt, func() error {
		runs++
		a.Value()
		return nil
	})
	require.NoError(t, err)

	rt.StartBatch()
	require.NoError(t, a.SetValue(1))
	require.NoError(t, a.SetValue(2))
	assert.Equal(t, 1, runs)
	require.NoError(t, rt.EndBatch())
	assert.Equal(t, 2, runs)
}

func TestUnpairedEndBatchPanics(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)

	runs := 0
	_, err := nano.Effect(rt, func() error {
		runs++
		a.Value()
		return nil
	})
	require.NoError(t, err)

	assert.Panics(t, func() {
		rt.EndBatch()
	})

	// depth stays at zero, so writes still flush
	require.NoError(t, a.SetValue(1))
	assert.Equal(t, 2, runs)
}

func TestBatchReturnsErrorAndStillFlushes(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)

	seen := []int{}
	_, err := nano.Effect(rt, func() error {
		seen = append(seen, a.Value())
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = rt.Batch(func() error {
		if err := a.SetValue(1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1}, seen)
}

func TestBatchPanicRestoresDepth(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)

	seen := []int{}
	_, err := nano.Effect(rt, func() error {
		seen = append(seen, a.Value())
		return nil
	})
	require.NoError(t, err)

	assert.Panics(t, func() {
		rt.Batch(func() error {
			a.SetValue(1)
			panic("mid batch")
		})
	})
	assert.Equal(t, []int{0, 1}, seen)

	// writes flush immediately again
	require.NoError(t, a.SetValue(2))
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestBatchReturnsFatalFlushError(t *testing.T) {
	rt := newRuntime(t)
	a := nano.Signal(rt, 0)
	trigger := nano.Signal(rt, false)

	_, err := nano.Effect(rt, func() error {
		if trigger.Value() {
			return a.SetValue(a.Value() + 1)
		}
		return nil
	})
	require.NoError(t, err)

	err = rt.Batch(func() error {
		return trigger.SetValue(true)
	})
	require.ErrorIs(t, err, nano.ErrEffectDepthExceeded)
}
