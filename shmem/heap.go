package shmem

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Symmetric names a region allocated collectively on every PE. Because all PEs
// allocate in the same order, the same handle addresses the matching region of
// any PE.
type Symmetric struct {
	id, n int
}

type region struct {
	data      []float64
	delivered atomic.Int64 // Values written by remote puts since the last reset
}

// Heap is the remotely writable memory of one PE
type Heap struct {
	mu      sync.RWMutex
	regions []*region
}

func (h *Heap) malloc(n int) Symmetric {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regions = append(h.regions, &region{data: make([]float64, n)})
	return Symmetric{id: len(h.regions) - 1, n: n}
}

func (h *Heap) lookup(s Symmetric) (*region, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s.id < 0 || s.id >= len(h.regions) || h.regions[s.id] == nil {
		return nil, fmt.Errorf("symmetric region %d is not allocated", s.id)
	}
	r := h.regions[s.id]
	if len(r.data) != s.n {
		return nil, fmt.Errorf("symmetric region %d has length %d, handle expects %d", s.id, len(r.data), s.n)
	}
	return r, nil
}

func (h *Heap) free(s Symmetric) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.id >= 0 && s.id < len(h.regions) {
		h.regions[s.id] = nil
	}
}

func (h *Heap) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regions = nil
}
