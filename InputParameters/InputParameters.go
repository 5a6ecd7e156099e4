package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/gohalo/domain"
	"github.com/notargets/gohalo/halo"
	"github.com/notargets/gohalo/stencil"
	"github.com/notargets/gohalo/types"
)

// Parameters obtained from the YAML input file
type HaloParameters struct {
	Title         string  `yaml:"Title"`
	Dims          [3]int  `yaml:"Dims"` // Sub-domains in x, y and z
	MeshLength    int     `yaml:"MeshLength"`
	Tolerance     float64 `yaml:"Tolerance"`
	MaxIterations int     `yaml:"MaxIterations"`
	Threads       int     `yaml:"Threads"`
	ContextMode   string  `yaml:"ContextMode"`
	Update        bool    `yaml:"Update"`
	Verify        bool    `yaml:"Verify"`
	SideLength    float64 `yaml:"SideLength"`
	Conductivity  float64 `yaml:"Conductivity"`
	InitType      string  `yaml:"InitType"` // HotBall or Uniform
	InitValue     float64 `yaml:"InitValue"`
}

const ExampleFile = `
########################################
Title: "Hot ball"
Dims: [2, 2, 2]
MeshLength: 96
Tolerance: 1.e-4
MaxIterations: 500
Threads: 2
ContextMode: private # Can be shared or pipelined
Update: true
InitType: HotBall # Can be Uniform, with InitValue
########################################
`

// NewHaloParameters returns the defaults used for keys missing from the file
func NewHaloParameters() (ip *HaloParameters) {
	cfg := halo.DefaultConfig()
	ip = &HaloParameters{
		Title:         "3D halo exchange",
		Dims:          cfg.Dims,
		MeshLength:    cfg.MeshLen,
		Tolerance:     cfg.Tolerance,
		MaxIterations: cfg.MaxIter,
		Threads:       cfg.Threads,
		ContextMode:   cfg.ContextMode.String(),
		SideLength:    domain.DefaultSideLength,
		Conductivity:  domain.DefaultConductivity,
		InitType:      "HotBall",
	}
	return
}

func (ip *HaloParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *HaloParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d x %d]\t\t= Sub-domains\n", ip.Dims[0], ip.Dims[1], ip.Dims[2])
	fmt.Printf("[%d]\t\t\t= Mesh Length\n", ip.MeshLength)
	fmt.Printf("%8.5g\t\t= Tolerance\n", ip.Tolerance)
	fmt.Printf("[%d]\t\t\t= Max Iterations\n", ip.MaxIterations)
	fmt.Printf("[%d]\t\t\t= Threads\n", ip.Threads)
	fmt.Printf("[%s]\t\t= Context Mode\n", ip.ContextMode)
	fmt.Printf("[%t/%t]\t\t= Update/Verify\n", ip.Update, ip.Verify)
	fmt.Printf("[%s]\t\t= InitType\n", ip.InitType)
}

// Seeder maps InitType onto an initial temperature distribution
func (ip *HaloParameters) Seeder() (seed stencil.Seeder, err error) {
	switch strings.ToLower(ip.InitType) {
	case "", "hotball":
		seed = stencil.SeedHotBall
	case "uniform":
		seed = stencil.SeedUniform(ip.InitValue)
	default:
		err = types.NewConfigurationError("unknown InitType %q, must be HotBall or Uniform", ip.InitType)
	}
	return
}

// Config converts the parameters into a run configuration, without validating
// the decomposition
func (ip *HaloParameters) Config() (cfg halo.Config, err error) {
	cfg = halo.Config{
		Dims:         ip.Dims,
		MeshLen:      ip.MeshLength,
		Tolerance:    ip.Tolerance,
		MaxIter:      ip.MaxIterations,
		Threads:      ip.Threads,
		Update:       ip.Update,
		Verify:       ip.Verify,
		SideLength:   ip.SideLength,
		Conductivity: ip.Conductivity,
	}
	if cfg.ContextMode, err = halo.ParseContextMode(ip.ContextMode); err != nil {
		return
	}
	cfg.Seed, err = ip.Seeder()
	return
}
