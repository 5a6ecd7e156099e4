package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gohalo/topology"
	"github.com/notargets/gohalo/types"
)

func TestNewDescriptor(t *testing.T) {
	{
		d, err := NewDescriptor(768, [3]int{4, 4, 4}, DefaultSideLength, DefaultConductivity)
		require.NoError(t, err)
		assert.Equal(t, [3]int{192, 192, 192}, d.Npt)
		assert.InDelta(t, 1./768, d.Ds, 1e-15)
		assert.InDelta(t, d.Ds*d.Ds/8.1, d.Dt, 1e-18)
		assert.InDelta(t, 1./8.1, d.Weight(), 1e-12)
		assert.Equal(t, 768.*768.*768., d.TotalPoints)
	}
	{ // Anisotropic decomposition of a cubic mesh
		d, err := NewDescriptor(12, [3]int{2, 3, 6}, 2., 0.5)
		require.NoError(t, err)
		assert.Equal(t, [3]int{6, 4, 2}, d.Npt)
		assert.InDelta(t, 2./12, d.Ds, 1e-15)
		assert.InDelta(t, (2./12)*(2./12)/(8.1*0.5), d.Dt, 1e-15)
		assert.Equal(t, [3]int{6, 8, 10}, d.Origin(topology.Coord{1, 2, 5}))
	}
}

func TestDescriptorErrors(t *testing.T) {
	var ce *types.ConfigurationError
	_, err := NewDescriptor(10, [3]int{3, 1, 1}, 1, 1)
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Check, "bad mesh size")
	// One point per sub-domain still exchanges halos, but cannot be updated
	d, err := NewDescriptor(4, [3]int{1, 4, 1}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 1, 4}, d.Npt)
	require.True(t, errors.As(d.CheckUpdatable(), &ce))
	assert.Contains(t, ce.Check, "mesh too small")
	d, err = NewDescriptor(4, [3]int{2, 2, 2}, 1, 1)
	require.NoError(t, err)
	assert.NoError(t, d.CheckUpdatable())
	_, err = NewDescriptor(0, [3]int{1, 1, 1}, 1, 1)
	assert.True(t, errors.As(err, &ce))
	_, err = NewDescriptor(8, [3]int{2, 0, 2}, 1, 1)
	assert.True(t, errors.As(err, &ce))
	_, err = NewDescriptor(8, [3]int{2, 2, 2}, 1, -1)
	assert.True(t, errors.As(err, &ce))
}

func TestCellCenter(t *testing.T) {
	d, err := NewDescriptor(4, [3]int{2, 2, 2}, 1, 1)
	require.NoError(t, err)
	origin := d.Origin(topology.Coord{1, 0, 1})
	x, y, z := d.CellCenter(origin, 1, 2, 2)
	assert.InDelta(t, 0.625, x, 1e-15)
	assert.InDelta(t, 0.375, y, 1e-15)
	assert.InDelta(t, 0.875, z, 1e-15)
}
