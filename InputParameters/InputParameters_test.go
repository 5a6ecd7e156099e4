package InputParameters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gohalo/halo"
	"github.com/notargets/gohalo/types"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
Dims: [2, 1, 3]
MeshLength: 12
MaxIterations: 40
ContextMode: Pipelined # Can be shared or private
Update: true
InitType: Uniform
InitValue: 3.5
`)
	ip := NewHaloParameters()
	require.NoError(t, ip.Parse(fileInput))
	ip.Print()
	assert.Equal(t, "Test Case", ip.Title)
	assert.Equal(t, [3]int{2, 1, 3}, ip.Dims)
	assert.Equal(t, 12, ip.MeshLength)
	assert.Equal(t, 40, ip.MaxIterations)
	// Missing keys keep their defaults
	assert.Equal(t, 1e-4, ip.Tolerance)
	assert.Equal(t, 1, ip.Threads)
	assert.False(t, ip.Verify)

	cfg, err := ip.Config()
	require.NoError(t, err)
	assert.Equal(t, halo.PipelinedContext, cfg.ContextMode)
	assert.True(t, cfg.Update)
	require.NoError(t, cfg.Validate())
	cfg.MaxIter = 2
	r, err := halo.Run(cfg)
	require.NoError(t, err)
	assert.InEpsilon(t, 3.5*12*12*12, r.Sum, 1e-12)
}

func TestExampleFile(t *testing.T) {
	ip := NewHaloParameters()
	require.NoError(t, ip.Parse([]byte(ExampleFile)))
	cfg, err := ip.Config()
	require.NoError(t, err)
	assert.Equal(t, halo.PrivateContext, cfg.ContextMode)
	assert.Equal(t, [3]int{2, 2, 2}, cfg.Dims)
	assert.NoError(t, cfg.Validate())
}

func TestConfigErrors(t *testing.T) {
	var ce *types.ConfigurationError
	ip := NewHaloParameters()
	ip.InitType = "Checkerboard"
	_, err := ip.Config()
	assert.True(t, errors.As(err, &ce))

	ip = NewHaloParameters()
	ip.ContextMode = "mpi"
	_, err = ip.Config()
	assert.True(t, errors.As(err, &ce))

	assert.Error(t, NewHaloParameters().Parse([]byte("Dims: four")))
}
