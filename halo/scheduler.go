package halo

import (
	"fmt"
	"strings"

	"github.com/notargets/gohalo/shmem"
	"github.com/notargets/gohalo/types"
	"github.com/notargets/gohalo/utils"
)

// AssignFacets distributes the six facets round-robin over nThreads worker
// threads: thread tid gets tid, tid+nThreads, ... The per-thread count follows
// the partition map, so the remainder lands on the lowest threads and threads
// beyond the sixth own nothing.
func AssignFacets(tid, nThreads int) (facets []types.Facet) {
	if nThreads <= 0 || tid < 0 || tid >= nThreads {
		return
	}
	count := utils.NewPartitionMap(nThreads, int(types.NumFacets)).GetBucketDimension(tid)
	for n := 0; n < count; n++ {
		facets = append(facets, types.Facet(tid+n*nThreads))
	}
	return
}

// ContextMode selects how worker threads issue their puts
type ContextMode uint8

const (
	SharedContext    ContextMode = iota // All threads use the PE default context
	PrivateContext                      // One private context per owned facet
	PipelinedContext                    // Two private contexts alternating between iterations
)

var contextModeNames = map[ContextMode]string{
	SharedContext:    "shared",
	PrivateContext:   "private",
	PipelinedContext: "pipelined",
}

func (m ContextMode) String() string {
	if name, ok := contextModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ContextMode(%d)", m)
}

func ParseContextMode(label string) (ContextMode, error) {
	for m, name := range contextModeNames {
		if strings.EqualFold(strings.TrimSpace(label), name) {
			return m, nil
		}
	}
	return 0, types.NewConfigurationError("unknown context mode %q, must be one of shared, private, pipelined", label)
}

// ThreadComm is the communication state of one worker thread. It is used only
// by the thread that created it.
type ThreadComm struct {
	Tid    int
	Facets []types.Facet
	mode   ContextMode
	ctxs   []*shmem.Context
	// Pipelined mode alternates between two contexts and two slot sets.
	// Quiesce drains the active context before every Advance, so a slot is
	// never repacked while a put still reads it.
	slots  [2][][]float64
	active int
}

func NewThreadComm(pe *shmem.PE, e *Engine, tid, nThreads int, mode ContextMode) (tc *ThreadComm) {
	tc = &ThreadComm{
		Tid:    tid,
		Facets: AssignFacets(tid, nThreads),
		mode:   mode,
	}
	switch mode {
	case PrivateContext:
		for range tc.Facets {
			tc.ctxs = append(tc.ctxs, pe.CreateContext())
		}
	case PipelinedContext:
		if len(tc.Facets) == 0 {
			break
		}
		tc.ctxs = []*shmem.Context{pe.CreateContext(), pe.CreateContext()}
		for s := range tc.slots {
			for _, f := range tc.Facets {
				tc.slots[s] = append(tc.slots[s], make([]float64, e.Catalog.Get(f).BufLen))
			}
		}
	default:
		for range tc.Facets {
			tc.ctxs = append(tc.ctxs, pe.DefaultContext())
		}
	}
	return
}

// PackSend packs and sends every facet owned by the thread, without waiting
// for delivery
func (tc *ThreadComm) PackSend(e *Engine) (err error) {
	if tc.mode == PipelinedContext {
		if len(tc.Facets) == 0 {
			return
		}
		ctx := tc.ctxs[tc.active]
		for n, f := range tc.Facets {
			if err = e.Send(ctx, f, e.PackInto(f, tc.slots[tc.active][n])); err != nil {
				return
			}
		}
		return
	}
	for n, f := range tc.Facets {
		if err = e.Send(tc.ctxs[n], f, e.Pack(f)); err != nil {
			return
		}
	}
	return
}

// Quiesce waits for the delivery of every put issued by PackSend in this
// iteration
func (tc *ThreadComm) Quiesce(e *Engine) {
	if tc.mode == PipelinedContext {
		if len(tc.ctxs) != 0 {
			e.ForceCompletion(tc.ctxs[tc.active])
		}
		return
	}
	for _, ctx := range tc.ctxs {
		e.ForceCompletion(ctx)
	}
}

// Advance switches the pipeline to the other slot, a no-op in other modes
func (tc *ThreadComm) Advance() {
	if tc.mode == PipelinedContext {
		tc.active ^= 1
	}
}

// Close destroys the private contexts created for this thread
func (tc *ThreadComm) Close() {
	for _, ctx := range tc.ctxs {
		if ctx.Private() {
			ctx.Destroy()
		}
	}
	tc.ctxs = nil
}
