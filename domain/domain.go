package domain

import (
	"fmt"

	"github.com/notargets/gohalo/topology"
	"github.com/notargets/gohalo/types"
)

const (
	DefaultSideLength   = 1.0
	DefaultConductivity = 1.0
	// Explicit 7-point scheme is stable for dt <= ds^2/(6K), 8.1 leaves margin
	StabilityFactor = 8.1
)

// Descriptor holds the discretization of the cubic domain as seen by one
// sub-domain. All values are read-only once constructed.
type Descriptor struct {
	MeshLen    int     // Mesh points on each side of the global cube
	Dims       [3]int  // Number of sub-domains in each direction
	Npt        [3]int  // Mesh points on each side of a sub-domain, sans ghosts
	SideLength float64 // Physical side length of the cube
	K          float64 // Thermal conductivity parameter
	Ds, Dt     float64
	// Total non-ghost points in the entire mesh, as a float to avoid conversions
	TotalPoints float64
}

func NewDescriptor(meshLen int, dims [3]int, sideLength, K float64) (d *Descriptor, err error) {
	if meshLen <= 0 {
		err = types.NewConfigurationError("mesh length must be positive, got %d", meshLen)
		return
	}
	if sideLength <= 0 || K <= 0 {
		err = types.NewConfigurationError("side length and conductivity must be positive, got %g and %g",
			sideLength, K)
		return
	}
	d = &Descriptor{
		MeshLen:    meshLen,
		Dims:       dims,
		SideLength: sideLength,
		K:          K,
	}
	for a, n := range dims {
		if n <= 0 {
			return nil, types.NewConfigurationError("number of sub-domains in the %s-direction must be positive, got %d",
				types.Axis(a), n)
		}
		if meshLen%n != 0 {
			return nil, types.NewConfigurationError("bad mesh size: %d is not divisible by %d sub-domains in the %s-direction",
				meshLen, n, types.Axis(a))
		}
		d.Npt[a] = meshLen / n
	}
	d.TotalPoints = float64(meshLen) * float64(meshLen) * float64(meshLen)
	d.Ds = sideLength / float64(meshLen)
	d.Dt = d.Ds * d.Ds / (StabilityFactor * K)
	return
}

// CheckUpdatable reports a sub-domain too thin for the stencil update, which
// needs two distinct planes on every axis to split facets from their edges
func (d *Descriptor) CheckUpdatable() error {
	for a, n := range d.Npt {
		if n < 2 {
			return types.NewConfigurationError("mesh too small: %d points per sub-domain in the %s-direction, need at least 2",
				n, types.Axis(a))
		}
	}
	return nil
}

// Weight is the stencil coefficient K dt / ds^2
func (d *Descriptor) Weight() float64 {
	return d.K * d.Dt / (d.Ds * d.Ds)
}

// Origin returns the global mesh index of the first owned point of a sub-domain
func (d *Descriptor) Origin(c topology.Coord) (o [3]int) {
	for a := 0; a < 3; a++ {
		o[a] = c[a] * d.Npt[a]
	}
	return
}

// CellCenter returns the physical coordinate of owned cell (i,j,k), 1-based
// as stored in the padded grid
func (d *Descriptor) CellCenter(origin [3]int, i, j, k int) (x, y, z float64) {
	x = d.Ds * (float64(origin[0]+i-1) + 0.5)
	y = d.Ds * (float64(origin[1]+j-1) + 0.5)
	z = d.Ds * (float64(origin[2]+k-1) + 0.5)
	return
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("sub-domain mesh %d x %d x %d, ds = %g, dt = %g",
		d.Npt[0], d.Npt[1], d.Npt[2], d.Ds, d.Dt)
}
