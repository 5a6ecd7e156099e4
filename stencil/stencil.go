// Package stencil holds the explicit 7-point heat update and initial
// temperature distributions applied to a padded sub-domain
package stencil

import (
	"math"

	"github.com/notargets/gohalo/domain"
	"github.com/notargets/gohalo/grid"
)

// Heat is the explicit scheme
//
//	u = w (T[i-1] + T[i+1] + T[j-1] + T[j+1] + T[k-1] + T[k+1] - 6 T)
//	T' = T + u
//
// with w = K dt / ds^2
type Heat struct {
	Weight float64
}

func NewHeat(d *domain.Descriptor) *Heat {
	return &Heat{Weight: d.Weight()}
}

// Update writes the next time step of every point in r into next, reading
// only old, and returns the sum of squared increments
func (h *Heat) Update(old, next *grid.Grid, r grid.Range) (residual float64) {
	var (
		sx, sy = old.Strides()
		od     = old.Data()
		nd     = next.Data()
		w      = h.Weight
	)
	for i := r.Lo[0]; i <= r.Hi[0]; i++ {
		for j := r.Lo[1]; j <= r.Hi[1]; j++ {
			base := old.Index(i, j, 0)
			for k := r.Lo[2]; k <= r.Hi[2]; k++ {
				ind := base + k
				u := w * (od[ind-sx] + od[ind+sx] +
					od[ind-sy] + od[ind+sy] +
					od[ind-1] + od[ind+1] -
					6*od[ind])
				nd[ind] = od[ind] + u
				residual += u * u
			}
		}
	}
	return
}

const (
	Ambient     = 20.
	HotBall     = 1000.
	BallRadiusF = 0.1 // Ball radius as a fraction of the shortest side
)

// Seeder fills the owned points of a sub-domain whose first owned point sits
// at global mesh index origin
type Seeder func(g *grid.Grid, origin [3]int, d *domain.Descriptor)

// SeedHotBall puts a high temperature ball in the center of the domain
func SeedHotBall(g *grid.Grid, origin [3]int, d *domain.Descriptor) {
	var (
		half = d.SideLength / 2
		r2   = math.Pow(BallRadiusF*d.SideLength, 2)
	)
	g.FillOwned(func(i, j, k int) float64 {
		x, y, z := d.CellCenter(origin, i, j, k)
		if (half-x)*(half-x)+(half-y)*(half-y)+(half-z)*(half-z) > r2 {
			return Ambient
		}
		return HotBall
	})
}

// SeedUniform returns a Seeder that sets every owned point to v
func SeedUniform(v float64) Seeder {
	return func(g *grid.Grid, origin [3]int, d *domain.Descriptor) {
		g.FillOwned(func(i, j, k int) float64 { return v })
	}
}
