/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	perf "github.com/hodgesds/perf-utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gohalo/InputParameters"
	"github.com/notargets/gohalo/halo"
	"github.com/notargets/gohalo/types"
)

type Model3D struct {
	InputFile    string
	Profile      string // cpu or mem
	PerfCounters bool
}

// Halo3DCmd represents the halo3d command
var Halo3DCmd = &cobra.Command{
	Use:   "halo3d",
	Short: "Three dimensional halo exchange with an optional heat equation update",
	Long: `
Decomposes a cube of mesh points into x * y * z sub-domains and exchanges the
six ghost facets of every sub-domain each iteration. With --update the explicit
heat equation is advanced between exchanges until the residual drops below the
tolerance.

gohalo halo3d -x 4 -y 4 -z 4 -M 768 -I 500 -T 1e-4 -t 1`,
	Run: func(cmd *cobra.Command, args []string) {
		m3d := &Model3D{}
		m3d.InputFile, _ = cmd.Flags().GetString("inputFile")
		m3d.Profile, _ = cmd.Flags().GetString("profile")
		m3d.PerfCounters, _ = cmd.Flags().GetBool("perfCounters")
		ip, err := processInput(m3d)
		if err != nil {
			exitOnError(err)
		}
		ip.Print()
		cfg, err := ip.Config()
		if err != nil {
			exitOnError(err)
		}
		cfg.Verbose = true
		if _, err = Run3D(m3d, cfg); err != nil {
			exitOnError(err)
		}
	},
}

// Flags and the matching keys in the config file and GOHALO_ environment
var overrides = []struct {
	key, flag, shorthand, usage string
	def                         interface{}
}{
	{"x", "x", "x", "number of sub-domains in the x-direction", 4},
	{"y", "y", "y", "number of sub-domains in the y-direction", 4},
	{"z", "z", "z", "number of sub-domains in the z-direction", 4},
	{"tolerance", "tolerance", "T", "convergence tolerance, 0 to run all iterations", 1e-4},
	{"maxIter", "maxIter", "I", "maximum number of iterations", 500},
	{"meshLength", "meshLength", "M", "mesh points on each side of the cube", 3 * 256},
	{"threads", "threads", "t", "worker threads per participant", 1},
	{"contextMode", "contextMode", "", "put contexts: shared, private or pipelined", "shared"},
	{"update", "update", "u", "advance the heat equation between exchanges", false},
	{"verify", "verify", "", "check the volume received on every facet", false},
}

func init() {
	rootCmd.AddCommand(Halo3DCmd)
	flags := Halo3DCmd.Flags()
	for _, o := range overrides {
		switch def := o.def.(type) {
		case int:
			flags.IntP(o.flag, o.shorthand, def, o.usage)
		case float64:
			flags.Float64P(o.flag, o.shorthand, def, o.usage)
		case string:
			flags.StringP(o.flag, o.shorthand, def, o.usage)
		case bool:
			flags.BoolP(o.flag, o.shorthand, def, o.usage)
		}
		if err := viper.BindPFlag(o.key, flags.Lookup(o.flag)); err != nil {
			panic(err)
		}
	}
	flags.StringP("inputFile", "f", "", "YAML file for input parameters, overridden by flags, environment and config file")
	flags.String("profile", "", "write a cpu or mem profile of the run")
	flags.Bool("perfCounters", false, "report the CPU instructions retired during the run (Linux only)")
}

// processInput layers the sources of parameters: defaults, then the input
// file, then whatever viper finds in the config file, environment or flags
func processInput(m3d *Model3D) (ip *InputParameters.HaloParameters, err error) {
	ip = InputParameters.NewHaloParameters()
	if len(m3d.InputFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(m3d.InputFile); err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing input file %s: %w", m3d.InputFile, err)
		}
	}
	for _, o := range overrides {
		if !viper.IsSet(o.key) {
			continue
		}
		switch o.key {
		case "x":
			ip.Dims[0] = viper.GetInt(o.key)
		case "y":
			ip.Dims[1] = viper.GetInt(o.key)
		case "z":
			ip.Dims[2] = viper.GetInt(o.key)
		case "tolerance":
			ip.Tolerance = viper.GetFloat64(o.key)
		case "maxIter":
			ip.MaxIterations = viper.GetInt(o.key)
		case "meshLength":
			ip.MeshLength = viper.GetInt(o.key)
		case "threads":
			ip.Threads = viper.GetInt(o.key)
		case "contextMode":
			ip.ContextMode = viper.GetString(o.key)
		case "update":
			ip.Update = viper.GetBool(o.key)
		case "verify":
			ip.Verify = viper.GetBool(o.key)
		}
	}
	return
}

func Run3D(m3d *Model3D, cfg halo.Config) (report *halo.Report, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	switch m3d.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return nil, types.NewConfigurationError("unknown profile %q, must be cpu or mem", m3d.Profile)
	}
	var (
		ran bool
		run = func() error {
			ran = true
			report, err = halo.Run(cfg)
			return err
		}
	)
	if !m3d.PerfCounters {
		run()
		return
	}
	pv, perr := perf.CPUInstructions(run)
	switch {
	case !ran:
		log.Printf("Warning: hardware counters unavailable: %v", perr)
		run()
	case perr == nil && err == nil:
		fmt.Printf("CPU instructions: %d\n", pv.Value)
	}
	return
}

func exitOnError(err error) {
	fmt.Printf("error: %s\n", err.Error())
	var ce *types.ConfigurationError
	if errors.As(err, &ce) {
		fmt.Printf("Example Input File:%s\n", InputParameters.ExampleFile)
	}
	os.Exit(1)
}
