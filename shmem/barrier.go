package shmem

import (
	"errors"
	"sync"
)

var ErrBarrierBroken = errors.New("barrier broken")

// Barrier is a reusable barrier for a fixed number of parties. Once broken,
// every current and future Wait returns the breaking error.
type Barrier struct {
	parties int
	mu      sync.Mutex
	cond    *sync.Cond
	waiting int
	gen     uint64
	broken  error
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken != nil {
		return b.broken
	}
	gen := b.gen
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		return nil
	}
	for gen == b.gen && b.broken == nil {
		b.cond.Wait()
	}
	if gen == b.gen {
		return b.broken
	}
	return nil
}

// Break releases all waiters with err
func (b *Barrier) Break(err error) {
	if err == nil {
		err = ErrBarrierBroken
	}
	b.mu.Lock()
	if b.broken == nil {
		b.broken = err
	}
	b.mu.Unlock()
	b.cond.Broadcast()
}
