// Package halo keeps the ghost shells of neighboring sub-domains synchronized.
//
// Every sub-domain looks like an onion with three layers:
//  1. The outer shell holds the ghost points of the six facets, refreshed every
//     iteration with the data sent by the six neighbors. One coordinate is fixed
//     to 0 or npt+1, the other two run over [1, npt]. Edges and corners of the
//     shell are unused.
//  2. The inner shell is the surface owned by this PE. One coordinate is fixed
//     to 1 or npt, the other two run over [1, npt]. These facets overlap at
//     edges and corners, so they are sent in full but updated from the
//     deduplicated ranges: full X facets, Y facets without the X edges, Z
//     facets without the X and Y edges.
//  3. The interior, [2, npt-1] on every axis, needs no data from other PEs.
package halo

import (
	"fmt"

	"github.com/notargets/gohalo/grid"
	"github.com/notargets/gohalo/types"
)

// FacetDescriptor stores everything needed to exchange one facet. It depends
// only on the sub-domain extents and the topology, so it never changes during
// a run.
type FacetDescriptor struct {
	Facet    types.Facet
	Paired   types.Facet // The facet on the neighbor connected to this one
	Neighbor int         // Rank across this facet
	BufLen   int         // Values exchanged per iteration
	Outer    grid.Range  // Ghost layer written by Unpack
	Inner    grid.Range  // Owned layer read by Pack, overlaps at edges
	Dedup    grid.Range  // Part of Inner updated by this facet
}

type Catalog struct {
	Npt    [3]int
	Facets [types.NumFacets]FacetDescriptor
}

func NewCatalog(npt [3]int, neighbors [types.NumFacets]int) (c *Catalog) {
	c = &Catalog{Npt: npt}
	for _, f := range types.AllFacets {
		c.Facets[f] = describeFacet(f, npt, neighbors[f])
	}
	return
}

func describeFacet(f types.Facet, npt [3]int, neighbor int) (fd FacetDescriptor) {
	fd = FacetDescriptor{
		Facet:    f,
		Paired:   f.Reverse(),
		Neighbor: neighbor,
		BufLen:   1,
	}
	fixed := int(f.Axis())
	for a := 0; a < 3; a++ {
		if a == fixed {
			outer, inner := 0, 1
			if f.IsUp() {
				outer, inner = npt[a]+1, npt[a]
			}
			fd.Outer.Lo[a], fd.Outer.Hi[a] = outer, outer
			fd.Inner.Lo[a], fd.Inner.Hi[a] = inner, inner
			fd.Dedup.Lo[a], fd.Dedup.Hi[a] = inner, inner
			continue
		}
		fd.BufLen *= npt[a]
		fd.Outer.Lo[a], fd.Outer.Hi[a] = 1, npt[a]
		fd.Inner.Lo[a], fd.Inner.Hi[a] = 1, npt[a]
		// Axes ahead of the fixed one in x, y, z priority already own their edges
		if a < fixed {
			fd.Dedup.Lo[a], fd.Dedup.Hi[a] = 2, npt[a]-1
		} else {
			fd.Dedup.Lo[a], fd.Dedup.Hi[a] = 1, npt[a]
		}
	}
	return
}

func (c *Catalog) Get(f types.Facet) *FacetDescriptor {
	return &c.Facets[f]
}

// Interior is the block of owned points that does not touch the surface
func (c *Catalog) Interior() grid.Range {
	return grid.Range{
		Lo: [3]int{2, 2, 2},
		Hi: [3]int{c.Npt[0] - 1, c.Npt[1] - 1, c.Npt[2] - 1},
	}
}

// Validate checks the shape agreement between packing and unpacking ranges
func (c *Catalog) Validate() error {
	for _, fd := range c.Facets {
		if fd.Outer.Shape() != fd.Inner.Shape() {
			return fmt.Errorf("facet %s: outer shape %v differs from inner shape %v",
				fd.Facet, fd.Outer.Shape(), fd.Inner.Shape())
		}
		if fd.Inner.Count() != fd.BufLen {
			return fmt.Errorf("facet %s: buffer length %d differs from %d inner points",
				fd.Facet, fd.BufLen, fd.Inner.Count())
		}
		// The neighbor packs its paired facet into our receive buffer
		if paired := c.Facets[fd.Paired]; paired.Inner.Shape() != fd.Outer.Shape() {
			return fmt.Errorf("facet %s: paired facet %s has shape %v, expected %v",
				fd.Facet, fd.Paired, paired.Inner.Shape(), fd.Outer.Shape())
		}
	}
	return nil
}

func (fd FacetDescriptor) String() string {
	return fmt.Sprintf("%s -> rank %d (%s), %d values, outer %v, inner %v, dedup %v",
		fd.Facet, fd.Neighbor, fd.Paired, fd.BufLen, fd.Outer, fd.Inner, fd.Dedup)
}
