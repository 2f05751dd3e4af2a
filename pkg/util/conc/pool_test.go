package conc

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

func TestPool(t *testing.T) {
	pool := NewPool[int](4)
	defer pool.Release()
	assert.Equal(t, 4, pool.Cap())

	futures := make([]*Future[int], 0, 16)
	for i := 0; i < 16; i++ {
		res := i
		futures = append(futures, pool.Submit(func() (int, error) {
			time.Sleep(time.Millisecond)
			return res * 2, nil
		}))
	}
	require.NoError(t, AwaitAll(futures...))
	for i, f := range futures {
		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, i*2, v)
		assert.Equal(t, i*2, f.Value())
		assert.True(t, f.OK())
	}
	assert.LessOrEqual(t, pool.Running(), pool.Cap())
	assert.LessOrEqual(t, pool.Free(), pool.Cap())
}

func TestPoolError(t *testing.T) {
	pool := NewPool[string](2)
	defer pool.Release()

	boom := errors.New("boom")
	ok := pool.Submit(func() (string, error) { return "ok", nil })
	bad := pool.Submit(func() (string, error) { return "ignored", boom })

	<-bad.Done()
	assert.ErrorIs(t, bad.Err(), boom)
	assert.Equal(t, "", bad.Value())
	assert.False(t, bad.OK())
	assert.ErrorIs(t, AwaitAll(ok, bad), boom)
}

func TestPoolConcealPanic(t *testing.T) {
	pool := NewPool[int](1, WithConcealPanic(true))
	defer pool.Release()

	f := pool.Submit(func() (int, error) { panic("bad payload") })
	assert.ErrorIs(t, f.Err(), merr.ErrTaskPanicked)
}

func TestPoolReleased(t *testing.T) {
	pool := NewPool[int](1)
	pool.Release()

	f := pool.Submit(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, f.Err(), merr.ErrServiceUnavailable)
}

func TestPoolDefaultCap(t *testing.T) {
	pool := NewPool[int](0)
	defer pool.Release()
	assert.Greater(t, pool.Cap(), 0)
}

func TestGo(t *testing.T) {
	f := Go(func() (int, error) { return 7, nil })
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
