// Package grid stores a padded 3D sub-domain in one contiguous buffer.
//
// Indices 0 and npt+1 on every axis are the ghost shell, [1, npt] are owned
// points. Points are stored z-column by z-column, then yz-plane by yz-plane, so
// the x index has stride (npt_y+2)*(npt_z+2) and the y index has stride npt_z+2.
package grid

import "fmt"

type Grid struct {
	Npt              [3]int
	strideX, strideY int
	data             []float64
}

func NewGrid(npt [3]int) *Grid {
	g := &Grid{
		Npt:     npt,
		strideY: npt[2] + 2,
		strideX: (npt[1] + 2) * (npt[2] + 2),
	}
	g.data = make([]float64, (npt[0]+2)*g.strideX)
	return g
}

func (g *Grid) Index(i, j, k int) int {
	return i*g.strideX + j*g.strideY + k
}

func (g *Grid) At(i, j, k int) float64 {
	return g.data[g.Index(i, j, k)]
}

func (g *Grid) Set(i, j, k int, v float64) {
	g.data[g.Index(i, j, k)] = v
}

// Data returns the underlying flat storage, ghost shell included
func (g *Grid) Data() []float64 {
	return g.data
}

// Strides returns the flat index distance between neighbors along x and y
func (g *Grid) Strides() (sx, sy int) {
	return g.strideX, g.strideY
}

func (g *Grid) Fill(v float64) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Owned is the range of non-ghost points
func (g *Grid) Owned() Range {
	return Range{
		Lo: [3]int{1, 1, 1},
		Hi: g.Npt,
	}
}

// FillOwned sets every owned point from fn, ghosts are left untouched
func (g *Grid) FillOwned(fn func(i, j, k int) float64) {
	g.Owned().Each(func(i, j, k int) {
		g.Set(i, j, k, fn(i, j, k))
	})
}

func (g *Grid) String() string {
	return fmt.Sprintf("grid %d x %d x %d (+ghosts)", g.Npt[0], g.Npt[1], g.Npt[2])
}

// Range is an inclusive coordinate range over a padded grid. A range with
// Hi < Lo on any axis is empty.
type Range struct {
	Lo, Hi [3]int
}

func (r Range) Extent(axis int) int {
	if n := r.Hi[axis] - r.Lo[axis] + 1; n > 0 {
		return n
	}
	return 0
}

func (r Range) Shape() [3]int {
	return [3]int{r.Extent(0), r.Extent(1), r.Extent(2)}
}

func (r Range) Count() int {
	return r.Extent(0) * r.Extent(1) * r.Extent(2)
}

func (r Range) Empty() bool {
	return r.Count() == 0
}

func (r Range) Contains(i, j, k int) bool {
	return i >= r.Lo[0] && i <= r.Hi[0] &&
		j >= r.Lo[1] && j <= r.Hi[1] &&
		k >= r.Lo[2] && k <= r.Hi[2]
}

// Each visits the range with x outermost and z innermost. Every traversal
// that maps a range onto a flat buffer must use this order.
func (r Range) Each(fn func(i, j, k int)) {
	for i := r.Lo[0]; i <= r.Hi[0]; i++ {
		for j := r.Lo[1]; j <= r.Hi[1]; j++ {
			for k := r.Lo[2]; k <= r.Hi[2]; k++ {
				fn(i, j, k)
			}
		}
	}
}

// SliceX restricts the range to x in [xlo, xhi]
func (r Range) SliceX(xlo, xhi int) Range {
	if xlo > r.Lo[0] {
		r.Lo[0] = xlo
	}
	if xhi < r.Hi[0] {
		r.Hi[0] = xhi
	}
	return r
}

func (r Range) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d, %d:%d]", r.Lo[0], r.Hi[0], r.Lo[1], r.Hi[1], r.Lo[2], r.Hi[2])
}
