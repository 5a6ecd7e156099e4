// Package shmem provides the one-sided communication layer shared by the
// participants of a run.
//
// Each participant (PE) runs in its own goroutine and owns a symmetric heap
// that other PEs can write with non-blocking puts. PEs do not share any other
// memory; ordering between puts and local reads is established only through
// Context.Quiet and the collective barriers.
package shmem

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// World hosts all PEs of one run
type World struct {
	nPes    int
	heaps   []*Heap
	barrier *Barrier
	scratch []float64 // Reduction work array, one slot per PE

	mu       sync.Mutex
	err      error
	barriers []*Barrier // Thread barriers broken on global exit
}

func NewWorld(nPes int) (w *World, err error) {
	if nPes <= 0 {
		err = fmt.Errorf("number of PEs must be positive, got %d", nPes)
		return
	}
	w = &World{
		nPes:    nPes,
		heaps:   make([]*Heap, nPes),
		barrier: NewBarrier(nPes),
		scratch: make([]float64, nPes),
	}
	for n := range w.heaps {
		w.heaps[n] = &Heap{}
	}
	return
}

func (w *World) NPes() int {
	return w.nPes
}

// Run starts fn on every PE and waits for all of them. The first error or
// panic of any PE triggers a global exit and is returned.
func (w *World) Run(fn func(pe *PE) error) error {
	var wg sync.WaitGroup
	for rank := 0; rank < w.nPes; rank++ {
		pe := &PE{world: w, rank: rank, heap: w.heaps[rank]}
		pe.defaultCtx = newContext(pe, false)
		wg.Add(1)
		go func(pe *PE) {
			defer wg.Done()
			defer pe.finalize()
			defer func() {
				if r := recover(); r != nil {
					w.GlobalExit(fmt.Errorf("pe %d panicked: %v", pe.rank, r))
				}
			}()
			if err := fn(pe); err != nil {
				w.GlobalExit(fmt.Errorf("pe %d: %w", pe.rank, err))
			}
		}(pe)
	}
	wg.Wait()
	return w.Err()
}

// GlobalExit records the first failure and releases every PE blocked on a
// barrier, so that no participant waits for one that will never arrive
func (w *World) GlobalExit(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	barriers := w.barriers
	w.mu.Unlock()
	w.barrier.Break(err)
	for _, b := range barriers {
		b.Break(err)
	}
}

func (w *World) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *World) register(b *Barrier) {
	w.mu.Lock()
	w.barriers = append(w.barriers, b)
	err := w.err
	w.mu.Unlock()
	if err != nil {
		b.Break(err)
	}
}

// PE is one participant's handle on the world
type PE struct {
	world      *World
	rank       int
	heap       *Heap
	defaultCtx *Context
	mu         sync.Mutex
	contexts   []*Context
}

func (pe *PE) Rank() int {
	return pe.rank
}

func (pe *PE) NPes() int {
	return pe.world.nPes
}

// Malloc allocates n values on the symmetric heap. Every PE must perform the
// same sequence of allocations before any put targets them.
func (pe *PE) Malloc(n int) Symmetric {
	return pe.heap.malloc(n)
}

// Local returns this PE's copy of a symmetric region
func (pe *PE) Local(s Symmetric) []float64 {
	r, err := pe.heap.lookup(s)
	if err != nil {
		panic(err)
	}
	return r.data
}

func (pe *PE) Free(s Symmetric) {
	pe.heap.free(s)
}

// Delivered returns the number of values written into s by puts since the
// last reset. Only meaningful after a barrier that follows the puts.
func (pe *PE) Delivered(s Symmetric) int {
	r, err := pe.heap.lookup(s)
	if err != nil {
		return 0
	}
	return int(r.delivered.Load())
}

func (pe *PE) ResetDelivered(s Symmetric) {
	if r, err := pe.heap.lookup(s); err == nil {
		r.delivered.Store(0)
	}
}

// DefaultContext is shared by all worker threads of the PE
func (pe *PE) DefaultContext() *Context {
	return pe.defaultCtx
}

// CreateContext returns a private context, released by Destroy or at the end
// of the run
func (pe *PE) CreateContext() *Context {
	c := newContext(pe, true)
	pe.mu.Lock()
	pe.contexts = append(pe.contexts, c)
	pe.mu.Unlock()
	return c
}

// NewThreadBarrier returns a barrier for the worker threads of this PE. It is
// broken by a global exit.
func (pe *PE) NewThreadBarrier(parties int) *Barrier {
	b := NewBarrier(parties)
	pe.world.register(b)
	return b
}

// SyncAll blocks until every PE has reached the same point
func (pe *PE) SyncAll() error {
	return pe.world.barrier.Wait()
}

// BarrierAll quiets the default context before synchronizing, so every put
// issued on it has landed when the barrier completes
func (pe *PE) BarrierAll() error {
	pe.defaultCtx.Quiet()
	return pe.SyncAll()
}

func (pe *PE) reduceAll(v float64, op func([]float64) float64) (result float64, err error) {
	w := pe.world
	w.scratch[pe.rank] = v
	if err = w.barrier.Wait(); err != nil {
		return
	}
	result = op(w.scratch)
	// Nobody may overwrite the work array until every PE has read it
	err = w.barrier.Wait()
	return
}

// SumAll returns the sum of v over all PEs, identical on every PE
func (pe *PE) SumAll(v float64) (float64, error) {
	return pe.reduceAll(v, floats.Sum)
}

func (pe *PE) MaxAll(v float64) (float64, error) {
	return pe.reduceAll(v, floats.Max)
}

// GlobalExit aborts the whole run
func (pe *PE) GlobalExit(err error) {
	pe.world.GlobalExit(fmt.Errorf("pe %d requested global exit: %w", pe.rank, err))
}

func (pe *PE) finalize() {
	pe.mu.Lock()
	contexts := pe.contexts
	pe.contexts = nil
	pe.mu.Unlock()
	for _, c := range contexts {
		c.Destroy()
	}
	pe.defaultCtx.Destroy()
	pe.heap.release()
}
