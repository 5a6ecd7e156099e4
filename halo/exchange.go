package halo

import (
	"fmt"

	"github.com/notargets/gohalo/grid"
	"github.com/notargets/gohalo/shmem"
	"github.com/notargets/gohalo/topology"
	"github.com/notargets/gohalo/types"
)

// Engine owns the double buffered sub-domain of one PE along with the send and
// receive buffers of its six facets.
//
// The receive region of facet f holds the ghost data for the outer layer of f.
// It is written by the neighbor across f, which sends its reversed facet, so
// sending facet f targets the neighbor's receive region of f.Reverse().
type Engine struct {
	pe      *shmem.PE
	Topo    *topology.Topology
	Catalog *Catalog
	grids   *grid.DoubleBuffer
	send    [types.NumFacets][]float64
	recv    [types.NumFacets]shmem.Symmetric
}

// NewEngine allocates the receive regions collectively: every PE must call it
// in the same order relative to its other symmetric allocations
func NewEngine(pe *shmem.PE, topo *topology.Topology, npt [3]int) (e *Engine, err error) {
	if topo.Rank != pe.Rank() || topo.NPes != pe.NPes() {
		err = &types.TopologyConsistencyError{
			Rank:     pe.Rank(),
			Computed: topo.Rank,
			Coord:    topo.Coord,
			Detail:   fmt.Sprintf("topology built for %d PEs, world has %d", topo.NPes, pe.NPes()),
		}
		return
	}
	e = &Engine{
		pe:      pe,
		Topo:    topo,
		Catalog: NewCatalog(npt, topo.Neighbors),
		grids:   grid.NewDoubleBuffer(npt),
	}
	if err = e.Catalog.Validate(); err != nil {
		return nil, err
	}
	for _, f := range types.AllFacets {
		fd := e.Catalog.Get(f)
		e.send[f] = make([]float64, fd.BufLen)
		e.recv[f] = pe.Malloc(fd.BufLen)
	}
	return
}

func (e *Engine) Grids() *grid.DoubleBuffer {
	return e.grids
}

// Pack copies the inner layer of facet f of the new grid into its send buffer
func (e *Engine) Pack(f types.Facet) []float64 {
	return e.PackInto(f, e.send[f])
}

// PackInto is Pack with a caller supplied buffer of at least BufLen values
func (e *Engine) PackInto(f types.Facet, dst []float64) []float64 {
	var (
		fd = e.Catalog.Get(f)
		g  = e.grids.New()
		d  = g.Data()
		n  int
	)
	if len(dst) < fd.BufLen {
		panic(fmt.Errorf("pack buffer for facet %s holds %d values, need %d", f, len(dst), fd.BufLen))
	}
	dst = dst[:fd.BufLen]
	fd.Inner.Each(func(i, j, k int) {
		dst[n] = d[g.Index(i, j, k)]
		n++
	})
	return dst
}

// Send issues a non-blocking put of src to the neighbor across f. src must not
// be reused until ctx has been quieted.
func (e *Engine) Send(ctx *shmem.Context, f types.Facet, src []float64) error {
	fd := e.Catalog.Get(f)
	return ctx.PutNBI(e.recv[fd.Paired], src, fd.Neighbor)
}

// ForceCompletion returns once every put issued on ctx has landed
func (e *Engine) ForceCompletion(ctx *shmem.Context) {
	ctx.Quiet()
}

// Unpack copies the receive region of facet f into its outer layer of the new
// grid, in the order the neighbor packed it
func (e *Engine) Unpack(f types.Facet) {
	var (
		fd  = e.Catalog.Get(f)
		g   = e.grids.New()
		d   = g.Data()
		src = e.pe.Local(e.recv[f])
		n   int
	)
	fd.Outer.Each(func(i, j, k int) {
		d[g.Index(i, j, k)] = src[n]
		n++
	})
}

// VerifyArrival checks that the receive region of f got exactly one facet worth
// of data since the previous verification, then resets the count
func (e *Engine) VerifyArrival(f types.Facet) (err error) {
	var (
		fd       = e.Catalog.Get(f)
		received = e.pe.Delivered(e.recv[f])
	)
	e.pe.ResetDelivered(e.recv[f])
	if received != fd.BufLen {
		err = &types.TransferCompletionViolation{
			Rank:     e.pe.Rank(),
			Facet:    f,
			Expected: fd.BufLen,
			Received: received,
		}
	}
	return
}

func (e *Engine) Swap() {
	e.grids.Swap()
}

// Release frees the receive regions. No puts may target them afterward.
func (e *Engine) Release() {
	for _, f := range types.AllFacets {
		e.pe.Free(e.recv[f])
	}
}
