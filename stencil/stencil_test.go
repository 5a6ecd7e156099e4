package stencil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gohalo/domain"
	"github.com/notargets/gohalo/grid"
)

func TestHeatUniformField(t *testing.T) {
	var (
		npt       = [3]int{4, 3, 5}
		old, next = grid.NewGrid(npt), grid.NewGrid(npt)
		h         = &Heat{Weight: 0.1}
	)
	old.Fill(42)
	res := h.Update(old, next, old.Owned())
	assert.Equal(t, 0., res)
	old.Owned().Each(func(i, j, k int) {
		assert.Equal(t, 42., next.At(i, j, k))
	})
	// Ghosts of the target are never written
	assert.Equal(t, 0., next.At(0, 1, 1))
}

func TestHeatPointSource(t *testing.T) {
	var (
		npt       = [3]int{3, 3, 3}
		old, next = grid.NewGrid(npt), grid.NewGrid(npt)
		w         = 0.1
		h         = &Heat{Weight: w}
	)
	old.Set(2, 2, 2, 1)
	res := h.Update(old, next, old.Owned())
	assert.InDelta(t, 1-6*w, next.At(2, 2, 2), 1e-15)
	for _, p := range [][3]int{{1, 2, 2}, {3, 2, 2}, {2, 1, 2}, {2, 3, 2}, {2, 2, 1}, {2, 2, 3}} {
		assert.InDelta(t, w, next.At(p[0], p[1], p[2]), 1e-15)
	}
	assert.Equal(t, 0., next.At(1, 1, 1))
	assert.InDelta(t, 36*w*w+6*w*w, res, 1e-15)

	// Restricting the range leaves other points untouched
	next.Fill(-1)
	h.Update(old, next, grid.Range{Lo: [3]int{2, 2, 2}, Hi: [3]int{2, 2, 2}})
	assert.InDelta(t, 1-6*w, next.At(2, 2, 2), 1e-15)
	assert.Equal(t, -1., next.At(1, 2, 2))
}

func TestHeatReadsGhosts(t *testing.T) {
	var (
		npt       = [3]int{2, 2, 2}
		old, next = grid.NewGrid(npt), grid.NewGrid(npt)
		h         = &Heat{Weight: 0.125}
	)
	old.Set(0, 1, 1, 8) // Ghost of the X-down facet
	h.Update(old, next, old.Owned())
	assert.Equal(t, 1., next.At(1, 1, 1))
	assert.Equal(t, 0., next.At(2, 1, 1))
}

func TestSeedHotBall(t *testing.T) {
	d, err := domain.NewDescriptor(20, [3]int{2, 1, 1}, 1, 1)
	require.NoError(t, err)
	var hot, cold int
	for cx := 0; cx < 2; cx++ {
		g := grid.NewGrid(d.Npt)
		SeedHotBall(g, [3]int{cx * d.Npt[0], 0, 0}, d)
		g.Owned().Each(func(i, j, k int) {
			switch g.At(i, j, k) {
			case HotBall:
				hot++
			case Ambient:
				cold++
			}
		})
		assert.Equal(t, 0., g.At(0, 1, 1))
	}
	assert.Equal(t, 20*20*20, hot+cold)
	// Cells within 0.1 of the center at spacing 0.05: the 2x2x2 core plus shells
	assert.True(t, hot >= 8 && hot < 100)
	assert.Equal(t, 0, hot%8) // Symmetric about the center
}

func TestNewHeat(t *testing.T) {
	d, err := domain.NewDescriptor(8, [3]int{2, 2, 2}, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1/8.1, NewHeat(d).Weight, 1e-12)
	g := grid.NewGrid(d.Npt)
	SeedUniform(3)(g, [3]int{}, d)
	assert.Equal(t, 3., g.At(4, 4, 4))
	assert.Equal(t, 0., g.At(5, 4, 4))
}
