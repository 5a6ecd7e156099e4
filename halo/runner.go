package halo

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gohalo/domain"
	"github.com/notargets/gohalo/grid"
	"github.com/notargets/gohalo/shmem"
	"github.com/notargets/gohalo/stencil"
	"github.com/notargets/gohalo/topology"
	"github.com/notargets/gohalo/types"
	"github.com/notargets/gohalo/utils"
)

// Updater computes the next time step of the owned points in r and returns the
// sum of squared increments over r
type Updater interface {
	Update(old, next *grid.Grid, r grid.Range) float64
}

type Config struct {
	Dims        [3]int  // Number of sub-domains in each direction, one PE each
	MeshLen     int     // Mesh points on each side of the global cube
	Tolerance   float64 // Stop once the global residual drops below, 0 disables
	MaxIter     int
	Threads     int // Worker threads per PE
	ContextMode ContextMode
	Update      bool // Run the stencil update, otherwise only exchange halos
	Verify      bool // Check the volume received on every facet
	SideLength  float64
	// Thermal conductivity
	Conductivity float64
	Seed         stencil.Seeder
	NewUpdater   func(d *domain.Descriptor) Updater
	Verbose      bool
}

func DefaultConfig() Config {
	return Config{
		Dims:         [3]int{4, 4, 4},
		MeshLen:      3 * 256,
		Tolerance:    1e-4,
		MaxIter:      500,
		Threads:      1,
		ContextMode:  SharedContext,
		SideLength:   domain.DefaultSideLength,
		Conductivity: domain.DefaultConductivity,
	}
}

func (cfg *Config) NPes() int {
	return cfg.Dims[0] * cfg.Dims[1] * cfg.Dims[2]
}

// Validate reports the first configuration problem, before any PE is started
func (cfg *Config) Validate() (err error) {
	if err = topology.CheckDims(cfg.NPes(), cfg.Dims); err != nil {
		return
	}
	switch {
	case cfg.MaxIter <= 0:
		return types.NewConfigurationError("maximum iterations must be positive, got %d", cfg.MaxIter)
	case cfg.Threads <= 0:
		return types.NewConfigurationError("number of threads must be positive, got %d", cfg.Threads)
	case cfg.Tolerance < 0:
		return types.NewConfigurationError("convergence tolerance must not be negative, got %g", cfg.Tolerance)
	}
	if _, ok := contextModeNames[cfg.ContextMode]; !ok {
		return types.NewConfigurationError("unknown context mode %d", cfg.ContextMode)
	}
	var d *domain.Descriptor
	if d, err = domain.NewDescriptor(cfg.MeshLen, cfg.Dims, cfg.SideLength, cfg.Conductivity); err != nil {
		return
	}
	if cfg.Update {
		if err = d.CheckUpdatable(); err != nil {
			return
		}
	}
	return topology.ValidateSymmetry(cfg.Dims)
}

// unpacks is true when received ghost values are consumed
func (cfg *Config) unpacks() bool {
	return cfg.Update || cfg.Verify
}

type Report struct {
	PEs, Threads int
	Mode         ContextMode
	Npt          [3]int
	Ds, Dt       float64
	Iterations   int
	Residual     float64 // Global sum of squared increments of the last iteration
	RMS          float64 // Root mean square increment per mesh point
	Converged    bool
	// Sum and sum of squares of the owned points of the final field
	Sum, SumSquares float64
	// Per-thread loop time in seconds over all threads of all PEs
	ThreadMin, ThreadMax, ThreadAvg float64
	Elapsed                         float64 // Loop time of the slowest PE
}

func (r *Report) String() string {
	return fmt.Sprintf("%d iterations on %d PEs x %d threads (%s contexts), residual = %g, rms = %g, converged = %t\n"+
		"Time elapsed: %g seconds, per thread min/max/avg = %g/%g/%g seconds",
		r.Iterations, r.PEs, r.Threads, r.Mode, r.Residual, r.RMS, r.Converged,
		r.Elapsed, r.ThreadMin, r.ThreadMax, r.ThreadAvg)
}

// RunContext is the state of one PE shared by its worker threads
type RunContext struct {
	pe         *shmem.PE
	cfg        *Config
	Descriptor *domain.Descriptor
	Engine     *Engine
	updater    Updater
	barrier    *shmem.Barrier
	interior   *utils.PartitionMap // Interior x-planes split over threads
	residuals  []float64           // Per thread, summed by thread 0
	times      []float64           // Per thread loop time in seconds

	// Written by thread 0 between thread barriers
	Iterations int
	Residual   float64
	Converged  bool
}

func NewRunContext(pe *shmem.PE, cfg *Config, d *domain.Descriptor) (rc *RunContext, err error) {
	var topo *topology.Topology
	if topo, err = topology.NewTopology(pe.NPes(), pe.Rank(), cfg.Dims); err != nil {
		return
	}
	rc = &RunContext{
		pe:         pe,
		cfg:        cfg,
		Descriptor: d,
		barrier:    pe.NewThreadBarrier(cfg.Threads),
		interior:   utils.NewPartitionMap(cfg.Threads, d.Npt[0]-2),
		residuals:  make([]float64, cfg.Threads),
		times:      make([]float64, cfg.Threads),
	}
	if rc.Engine, err = NewEngine(pe, topo, d.Npt); err != nil {
		return nil, err
	}
	if cfg.NewUpdater != nil {
		rc.updater = cfg.NewUpdater(d)
	} else {
		rc.updater = stencil.NewHeat(d)
	}
	return
}

// UpdateRanges returns the owned points updated by thread tid: the dedup
// ranges of its facets and its share of the interior x-planes. Over all
// threads these cover every owned point exactly once.
func (rc *RunContext) UpdateRanges(tid int) (ranges []grid.Range) {
	cat := rc.Engine.Catalog
	for _, f := range AssignFacets(tid, rc.cfg.Threads) {
		ranges = append(ranges, cat.Get(f).Dedup)
	}
	lo, hi := rc.interior.GetBucketRange(tid)
	if hi > lo {
		ranges = append(ranges, cat.Interior().SliceX(lo+2, hi+1))
	}
	return
}

// prologue fills both grids, then performs one complete exchange on the
// default context so the first update sees valid ghosts
func (rc *RunContext) prologue() (err error) {
	var (
		e      = rc.Engine
		origin = rc.Descriptor.Origin(e.Topo.Coord)
		seed   = rc.cfg.Seed
	)
	if seed == nil {
		seed = stencil.SeedHotBall
	}
	seed(e.Grids().Old(), origin, rc.Descriptor)
	seed(e.Grids().New(), origin, rc.Descriptor)
	// Every receive region must exist before anybody puts into it
	if err = rc.pe.SyncAll(); err != nil {
		return
	}
	ctx := rc.pe.DefaultContext()
	for _, f := range types.AllFacets {
		if err = e.Send(ctx, f, e.Pack(f)); err != nil {
			return
		}
	}
	if err = rc.pe.BarrierAll(); err != nil {
		return
	}
	if rc.cfg.unpacks() {
		for _, f := range types.AllFacets {
			e.Unpack(f)
			if rc.cfg.Verify {
				if err = e.VerifyArrival(f); err != nil {
					return
				}
			}
		}
		// Unpacking must finish everywhere before the loop puts again
		if err = rc.pe.SyncAll(); err != nil {
			return
		}
	}
	e.Swap()
	return
}

// collective runs fn on thread 0 while the other threads wait on both sides
func (rc *RunContext) collective(tid int, fn func() error) (err error) {
	if err = rc.barrier.Wait(); err != nil {
		return
	}
	if tid == 0 {
		if err = fn(); err != nil {
			return
		}
	}
	return rc.barrier.Wait()
}

// finishIteration swaps the grids and reduces the residual. The reduction is
// also what keeps the puts of the next iteration away from receive regions
// that are still being unpacked.
func (rc *RunContext) finishIteration() (err error) {
	rc.Engine.Swap()
	rc.Iterations++
	if !rc.cfg.unpacks() {
		return
	}
	if rc.Residual, err = rc.pe.SumAll(floats.Sum(rc.residuals)); err != nil {
		return
	}
	if utils.Diverged(rc.Residual) {
		return fmt.Errorf("residual diverged to %g after %d iterations", rc.Residual, rc.Iterations)
	}
	rc.Converged = rc.cfg.Update && rc.cfg.Tolerance > 0 && rc.Residual < rc.cfg.Tolerance
	return
}

func (rc *RunContext) worker(tid int) (err error) {
	var (
		e      = rc.Engine
		cfg    = rc.cfg
		ranges = rc.UpdateRanges(tid)
		tc     = NewThreadComm(rc.pe, e, tid, cfg.Threads, cfg.ContextMode)
	)
	defer tc.Close()
	if err = rc.collective(tid, rc.pe.BarrierAll); err != nil {
		return
	}
	start := time.Now()
	for iter := 0; iter < cfg.MaxIter; iter++ {
		if cfg.Update {
			var (
				res       float64
				old, next = e.Grids().Old(), e.Grids().New()
			)
			for _, r := range ranges {
				res += rc.updater.Update(old, next, r)
			}
			rc.residuals[tid] = res
			// Facets overlap at edges updated by other threads
			if err = rc.barrier.Wait(); err != nil {
				return
			}
		}
		if err = tc.PackSend(e); err != nil {
			return
		}
		tc.Quiesce(e)
		if err = rc.collective(tid, rc.pe.SyncAll); err != nil {
			return
		}
		if cfg.unpacks() {
			for _, f := range tc.Facets {
				e.Unpack(f)
				if cfg.Verify {
					if err = e.VerifyArrival(f); err != nil {
						return
					}
				}
			}
		}
		tc.Advance()
		if err = rc.collective(tid, rc.finishIteration); err != nil {
			return
		}
		if rc.Converged {
			break
		}
	}
	rc.times[tid] = time.Since(start).Seconds()
	return
}

// Solve runs the worker threads of this PE through the whole iteration loop
func (rc *RunContext) Solve() (err error) {
	if err = rc.prologue(); err != nil {
		return
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for tid := 0; tid < rc.cfg.Threads; tid++ {
		wg.Add(1)
		go func(tid int) {
			var err error
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("thread %d panicked: %v", tid, r)
				} else if err != nil {
					err = fmt.Errorf("thread %d: %w", tid, err)
				}
				if err == nil {
					return
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				// Peers may be waiting on a barrier this thread will never reach
				rc.pe.GlobalExit(err)
			}()
			err = rc.worker(tid)
		}(tid)
	}
	wg.Wait()
	return firstErr
}

// summarize reduces the final field and the timings over all PEs
func (rc *RunContext) summarize() (r *Report, err error) {
	var (
		g          = rc.Engine.Grids().Old()
		sum, sumSq float64
		minTime    float64
		avgTime    float64
	)
	g.Owned().Each(func(i, j, k int) {
		v := g.At(i, j, k)
		sum += v
		sumSq += v * v
	})
	r = &Report{
		PEs:        rc.pe.NPes(),
		Threads:    rc.cfg.Threads,
		Mode:       rc.cfg.ContextMode,
		Npt:        rc.Descriptor.Npt,
		Ds:         rc.Descriptor.Ds,
		Dt:         rc.Descriptor.Dt,
		Iterations: rc.Iterations,
		Residual:   rc.Residual,
		RMS:        math.Sqrt(rc.Residual / rc.Descriptor.TotalPoints),
		Converged:  rc.Converged,
	}
	if r.Sum, err = rc.pe.SumAll(sum); err != nil {
		return
	}
	if r.SumSquares, err = rc.pe.SumAll(sumSq); err != nil {
		return
	}
	if minTime, err = rc.pe.MaxAll(-floats.Min(rc.times)); err != nil {
		return
	}
	r.ThreadMin = -minTime
	if r.ThreadMax, err = rc.pe.MaxAll(floats.Max(rc.times)); err != nil {
		return
	}
	if avgTime, err = rc.pe.SumAll(stat.Mean(rc.times, nil)); err != nil {
		return
	}
	r.ThreadAvg = avgTime / float64(r.PEs)
	r.Elapsed = r.ThreadMax
	return
}

// Run executes a complete halo exchange run and returns the report of rank 0
func Run(cfg Config) (report *Report, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	var (
		d     *domain.Descriptor
		world *shmem.World
	)
	if d, err = domain.NewDescriptor(cfg.MeshLen, cfg.Dims, cfg.SideLength, cfg.Conductivity); err != nil {
		return
	}
	if world, err = shmem.NewWorld(cfg.NPes()); err != nil {
		return
	}
	if cfg.Verbose {
		fmt.Printf("3D halo exchange: %d x %d x %d sub-domains, %s\n", cfg.Dims[0], cfg.Dims[1], cfg.Dims[2], d)
		fmt.Printf("Using %d worker threads per PE, %s contexts\n", cfg.Threads, cfg.ContextMode)
		if total := cfg.NPes() * cfg.Threads; total > runtime.NumCPU() {
			log.Printf("Warning: %d threads in total exceed %d CPUs", total, runtime.NumCPU())
		}
	}
	err = world.Run(func(pe *shmem.PE) (err error) {
		var rc *RunContext
		if rc, err = NewRunContext(pe, &cfg, d); err != nil {
			return
		}
		if err = rc.Solve(); err != nil {
			return
		}
		var r *Report
		if r, err = rc.summarize(); err != nil {
			return
		}
		// Nobody may put into a released region
		if err = pe.SyncAll(); err != nil {
			return
		}
		rc.Engine.Release()
		if pe.Rank() == 0 {
			report = r
		}
		return
	})
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		fmt.Println(report)
		fmt.Println(utils.MemUsage())
	}
	return
}
