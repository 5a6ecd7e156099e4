package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiverged(t *testing.T) {
	assert.False(t, Diverged())
	assert.False(t, Diverged(0, 1e300, -4))
	assert.True(t, Diverged(1, math.NaN()))
	assert.True(t, Diverged(math.Inf(-1)))
	assert.Contains(t, MemUsage(), "heap in use")
}
