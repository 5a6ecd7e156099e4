package shmem

import (
	"fmt"
	"sync"
)

type putJob struct {
	dst    []float64
	src    []float64
	target *region
}

// Context is an independent channel for one-sided operations. Puts issued on
// a context are delivered in order by the context's own goroutine; Quiet waits
// for that queue to drain. A context is safe for concurrent use, though private
// contexts are meant to be driven by a single worker.
type Context struct {
	pe      *PE
	private bool
	jobs    chan putJob
	done    chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	closed  bool
}

const contextQueueDepth = 64

func newContext(pe *PE, private bool) *Context {
	c := &Context{
		pe:      pe,
		private: private,
		jobs:    make(chan putJob, contextQueueDepth),
		done:    make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.deliver()
	return c
}

func (c *Context) deliver() {
	defer close(c.done)
	for job := range c.jobs {
		copy(job.dst, job.src)
		job.target.delivered.Add(int64(len(job.src)))
		c.mu.Lock()
		c.pending--
		if c.pending == 0 {
			c.cond.Broadcast()
		}
		c.mu.Unlock()
	}
}

// PutNBI copies src into the region dst of PE target without waiting for
// delivery. src must not be modified until the context has been quieted.
func (c *Context) PutNBI(dst Symmetric, src []float64, target int) (err error) {
	if target < 0 || target >= c.pe.world.nPes {
		return fmt.Errorf("put to PE %d out of range [0,%d)", target, c.pe.world.nPes)
	}
	if len(src) > dst.n {
		return fmt.Errorf("put of %d values overflows symmetric region of %d", len(src), dst.n)
	}
	var r *region
	if r, err = c.pe.world.heaps[target].lookup(dst); err != nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("put on a destroyed context")
	}
	c.pending++
	c.mu.Unlock()
	c.jobs <- putJob{dst: r.data[:len(src)], src: src, target: r}
	return
}

// Quiet blocks until every put previously issued on this context has been
// delivered into the target memory
func (c *Context) Quiet() {
	c.mu.Lock()
	for c.pending != 0 {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

func (c *Context) Private() bool {
	return c.private
}

// Destroy quiets the context and stops its delivery goroutine
func (c *Context) Destroy() {
	c.Quiet()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.jobs)
	<-c.done
}
