package shmem

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier(t *testing.T) {
	var (
		parties = 5
		rounds  = 20
		b       = NewBarrier(parties)
		counter atomic.Int64
		wg      sync.WaitGroup
	)
	for n := 0; n < parties; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				counter.Add(1)
				assert.NoError(t, b.Wait())
				// Everybody incremented before anybody passed
				assert.True(t, counter.Load() >= int64((r+1)*parties))
				assert.NoError(t, b.Wait())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(parties*rounds), counter.Load())
}

func TestBarrierBreak(t *testing.T) {
	b := NewBarrier(3)
	errs := make(chan error, 2)
	for n := 0; n < 2; n++ {
		go func() { errs <- b.Wait() }()
	}
	boom := errors.New("boom")
	b.Break(boom)
	assert.Equal(t, boom, <-errs)
	assert.Equal(t, boom, <-errs)
	assert.Equal(t, boom, b.Wait())
}

func TestPutQuiet(t *testing.T) {
	const nPes = 4
	w, err := NewWorld(nPes)
	require.NoError(t, err)
	received := make([][]float64, nPes)
	err = w.Run(func(pe *PE) error {
		rbuf := pe.Malloc(3)
		if err := pe.SyncAll(); err != nil {
			return err
		}
		// Ring: write my rank into the next PE
		src := []float64{float64(pe.Rank()), float64(pe.Rank() * 10), -1}
		ctx := pe.CreateContext()
		if err := ctx.PutNBI(rbuf, src, (pe.Rank()+1)%nPes); err != nil {
			return err
		}
		ctx.Quiet()
		if err := pe.SyncAll(); err != nil {
			return err
		}
		received[pe.Rank()] = append([]float64(nil), pe.Local(rbuf)...)
		if d := pe.Delivered(rbuf); d != 3 {
			return fmt.Errorf("delivered %d values, expected 3", d)
		}
		pe.ResetDelivered(rbuf)
		if d := pe.Delivered(rbuf); d != 0 {
			return fmt.Errorf("delivered count not reset")
		}
		return pe.SyncAll()
	})
	require.NoError(t, err)
	for rank := 0; rank < nPes; rank++ {
		from := float64((rank + nPes - 1) % nPes)
		assert.Equal(t, []float64{from, from * 10, -1}, received[rank])
	}
}

func TestBarrierAllDrainsDefaultContext(t *testing.T) {
	const nPes = 3
	w, err := NewWorld(nPes)
	require.NoError(t, err)
	sums := make([]float64, nPes)
	err = w.Run(func(pe *PE) error {
		slots := make([]Symmetric, nPes)
		for n := range slots {
			slots[n] = pe.Malloc(1)
		}
		if err := pe.SyncAll(); err != nil {
			return err
		}
		// All-to-all, each PE writes its slot on every PE
		ctx := pe.DefaultContext()
		src := []float64{float64(pe.Rank() + 1)}
		for target := 0; target < nPes; target++ {
			if err := ctx.PutNBI(slots[pe.Rank()], src, target); err != nil {
				return err
			}
		}
		if err := pe.BarrierAll(); err != nil {
			return err
		}
		for _, s := range slots {
			sums[pe.Rank()] += pe.Local(s)[0]
		}
		return pe.SyncAll()
	})
	require.NoError(t, err)
	for rank := 0; rank < nPes; rank++ {
		assert.Equal(t, 6., sums[rank])
	}
}

func TestReductions(t *testing.T) {
	const nPes = 6
	w, err := NewWorld(nPes)
	require.NoError(t, err)
	sums := make([]float64, nPes)
	maxes := make([]float64, nPes)
	err = w.Run(func(pe *PE) (err error) {
		for round := 0; round < 10; round++ {
			if sums[pe.Rank()], err = pe.SumAll(float64(pe.Rank() + round)); err != nil {
				return
			}
		}
		maxes[pe.Rank()], err = pe.MaxAll(float64(pe.Rank() * pe.Rank()))
		return
	})
	require.NoError(t, err)
	for rank := 0; rank < nPes; rank++ {
		assert.Equal(t, float64(15+6*9), sums[rank])
		assert.Equal(t, 25., maxes[rank])
	}
}

func TestGlobalExitReleasesBarriers(t *testing.T) {
	const nPes = 4
	w, err := NewWorld(nPes)
	require.NoError(t, err)
	boom := errors.New("bad mesh")
	err = w.Run(func(pe *PE) error {
		tb := pe.NewThreadBarrier(2)
		if pe.Rank() == 2 {
			return boom
		}
		// One thread waits on the thread barrier, the other on the world
		errs := make(chan error, 1)
		go func() { errs <- tb.Wait() }()
		if err := pe.SyncAll(); err == nil {
			return fmt.Errorf("sync completed without rank 2")
		}
		if err := <-errs; err == nil {
			return fmt.Errorf("thread barrier completed with one thread")
		}
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestPutErrors(t *testing.T) {
	w, err := NewWorld(2)
	require.NoError(t, err)
	err = w.Run(func(pe *PE) error {
		s := pe.Malloc(2)
		if err := pe.SyncAll(); err != nil {
			return err
		}
		ctx := pe.DefaultContext()
		if ctx.PutNBI(s, []float64{1, 2, 3}, 0) == nil {
			return fmt.Errorf("overflowing put accepted")
		}
		if ctx.PutNBI(s, []float64{1}, 2) == nil {
			return fmt.Errorf("put to missing PE accepted")
		}
		if ctx.PutNBI(Symmetric{id: 5, n: 2}, []float64{1}, 1) == nil {
			return fmt.Errorf("put to unallocated region accepted")
		}
		private := pe.CreateContext()
		assert.True(t, private.Private())
		private.Destroy()
		if private.PutNBI(s, []float64{1}, 0) == nil {
			return fmt.Errorf("put on destroyed context accepted")
		}
		return pe.SyncAll()
	})
	assert.NoError(t, err)
}
