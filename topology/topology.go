// Package topology maps participant ranks onto a 3D grid of sub-domains
package topology

import (
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/notargets/gohalo/types"
)

// Coord locates a rank inside the decomposition grid
type Coord [3]int

// Topology is the per-participant view of the decomposition grid. It is
// computed once at startup and never changes during a run.
type Topology struct {
	NPes, Rank int
	Dims       [3]int // Number of sub-domains in each direction
	Coord      Coord  // Sub-domain coordinates of this rank
	// Neighbor ranks indexed by facet, periodic in every direction
	Neighbors [types.NumFacets]int
}

// Encode fills a z-column first, then the yz-plane, then advances in x
func Encode(c Coord, dims [3]int) int {
	return c[0]*dims[1]*dims[2] + c[1]*dims[2] + c[2]
}

func Decode(rank int, dims [3]int) (c Coord) {
	plane := dims[1] * dims[2]
	c[0] = rank / plane
	c[1] = (rank - c[0]*plane) / dims[2]
	c[2] = rank - c[0]*plane - c[1]*dims[2]
	return
}

// NeighborOf returns the rank across facet f, wrapping around the grid
func NeighborOf(c Coord, dims [3]int, f types.Facet) int {
	var (
		a  = int(f.Axis())
		nc = c
	)
	nc[a] = (c[a] + f.Offset() + dims[a]) % dims[a]
	return Encode(nc, dims)
}

func CheckDims(nPes int, dims [3]int) error {
	for a, n := range dims {
		if n <= 0 {
			return types.NewConfigurationError("number of sub-domains in the %s-direction must be positive, got %d",
				types.Axis(a), n)
		}
	}
	if dims[0]*dims[1]*dims[2] != nPes {
		return types.NewConfigurationError("number of PEs (%d) doesn't equal the number of sub-domains (%d x %d x %d)",
			nPes, dims[0], dims[1], dims[2])
	}
	return nil
}

func NewTopology(nPes, rank int, dims [3]int) (tp *Topology, err error) {
	if err = CheckDims(nPes, dims); err != nil {
		return
	}
	if rank < 0 || rank >= nPes {
		err = types.NewConfigurationError("rank %d out of range [0,%d)", rank, nPes)
		return
	}
	tp = &Topology{
		NPes: nPes,
		Rank: rank,
		Dims: dims,
	}
	tp.Coord = Decode(rank, dims)
	if computed := Encode(tp.Coord, dims); computed != rank {
		err = &types.TopologyConsistencyError{Rank: rank, Computed: computed, Coord: tp.Coord}
		return nil, err
	}
	for _, f := range types.AllFacets {
		tp.Neighbors[f] = NeighborOf(tp.Coord, dims, f)
	}
	return
}

// Neighbor returns the rank that owns the ghost data across facet f
func (tp *Topology) Neighbor(f types.Facet) int {
	return tp.Neighbors[f]
}

func (tp *Topology) String() string {
	return fmt.Sprintf("rank %d of %d at %v in %d x %d x %d, neighbors %v",
		tp.Rank, tp.NPes, tp.Coord, tp.Dims[0], tp.Dims[1], tp.Dims[2], tp.Neighbors)
}

// CommGraph returns the communication graph of the decomposition, entry (a,b)
// counts the facets through which rank a writes into rank b
func CommGraph(dims [3]int) *sparse.CSR {
	nPes := dims[0] * dims[1] * dims[2]
	dok := sparse.NewDOK(nPes, nPes)
	for rank := 0; rank < nPes; rank++ {
		c := Decode(rank, dims)
		for _, f := range types.AllFacets {
			nbr := NeighborOf(c, dims, f)
			dok.Set(rank, nbr, dok.At(rank, nbr)+1)
		}
	}
	return dok.ToCSR()
}

// ValidateSymmetry checks that every facet pairing is mirrored by the
// neighbor's reverse facet and that the communication graph is symmetric
func ValidateSymmetry(dims [3]int) (err error) {
	nPes := dims[0] * dims[1] * dims[2]
	for rank := 0; rank < nPes; rank++ {
		c := Decode(rank, dims)
		for _, f := range types.AllFacets {
			nbr := NeighborOf(c, dims, f)
			if back := NeighborOf(Decode(nbr, dims), dims, f.Reverse()); back != rank {
				return &types.TopologyConsistencyError{Rank: rank, Computed: back, Coord: c,
					Detail: fmt.Sprintf("facet %s reaches rank %d whose %s facet reaches rank %d",
						f, nbr, f.Reverse(), back)}
			}
		}
	}
	graph := CommGraph(dims)
	graph.DoNonZero(func(i, j int, v float64) {
		if err == nil && graph.At(j, i) != v {
			err = &types.TopologyConsistencyError{Rank: i,
				Detail: fmt.Sprintf("rank %d writes %v facets to rank %d but receives %v",
					i, v, j, graph.At(j, i))}
		}
	})
	return
}
