package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gohalo/halo"
	"github.com/notargets/gohalo/types"
)

func TestProcessInput(t *testing.T) {
	fileInput := []byte(`
Title: Layered
Dims: [2, 1, 1]
MeshLength: 12
MaxIterations: 40
Threads: 2
ContextMode: private
`)
	inputFile := filepath.Join(t.TempDir(), "halo.yaml")
	require.NoError(t, os.WriteFile(inputFile, fileInput, 0644))

	// File values beat defaults, environment beats the file, flags beat both
	viper.SetEnvPrefix("GOHALO")
	viper.AutomaticEnv()
	t.Setenv("GOHALO_MAXITER", "7")
	t.Setenv("GOHALO_THREADS", "5")
	require.NoError(t, Halo3DCmd.Flags().Set("threads", "3"))
	defer func() {
		require.NoError(t, Halo3DCmd.Flags().Set("threads", "1"))
		Halo3DCmd.Flags().Lookup("threads").Changed = false
	}()

	ip, err := processInput(&Model3D{InputFile: inputFile})
	require.NoError(t, err)
	assert.Equal(t, "Layered", ip.Title)
	assert.Equal(t, [3]int{2, 1, 1}, ip.Dims)
	assert.Equal(t, 12, ip.MeshLength)
	assert.Equal(t, 7, ip.MaxIterations)
	assert.Equal(t, 3, ip.Threads)
	assert.Equal(t, "private", ip.ContextMode)
	// Flags left alone do not clobber defaults
	assert.Equal(t, 1e-4, ip.Tolerance)

	_, err = processInput(&Model3D{InputFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestRun3D(t *testing.T) {
	cfg := halo.DefaultConfig()
	cfg.Dims = [3]int{1, 2, 1}
	cfg.MeshLen = 6
	cfg.MaxIter = 4
	cfg.Update = true
	cfg.Tolerance = 0
	report, err := Run3D(&Model3D{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Iterations)
	assert.Equal(t, 2, report.PEs)

	var ce *types.ConfigurationError
	_, err = Run3D(&Model3D{Profile: "gpu"}, cfg)
	assert.True(t, errors.As(err, &ce))
	cfg.MeshLen = 7
	_, err = Run3D(&Model3D{}, cfg)
	assert.True(t, errors.As(err, &ce))
}
