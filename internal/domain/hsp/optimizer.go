package hsp

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/mixingcompass/pkg/errors"
)

// Objective is a scalar function to minimize over a bounded box.
type Objective func(x []float64) float64

// BoxBounds is the per-dimension search box for a global optimization run.
type BoxBounds struct {
	Lower []float64
	Upper []float64
}

// Validate checks dimensionality and ordering of the box.
func (b BoxBounds) Validate() error {
	if len(b.Lower) == 0 || len(b.Lower) != len(b.Upper) {
		return errors.New(errors.ErrCodeHSPInvalidBounds, "bounds must have matching non-empty lower/upper vectors")
	}
	for i := range b.Lower {
		if b.Lower[i] > b.Upper[i] {
			return errors.Newf(errors.ErrCodeHSPInvalidBounds,
				"bound %d has lower %g > upper %g", i, b.Lower[i], b.Upper[i])
		}
	}
	return nil
}

// OptimizeResult is the outcome of a global optimization run.  When the run
// stops on the iteration budget rather than the convergence criterion,
// Converged is false but X still holds the best point found — callers decide
// whether a best-effort result is acceptable.
type OptimizeResult struct {
	X           []float64
	F           float64
	Iterations  int
	Evaluations int
	Converged   bool
}

// GlobalOptimizer is a pluggable derivative-free, bound-constrained global
// minimizer.  The concrete algorithm (differential evolution, CMA-ES,
// particle swarm) is an implementation choice, not part of the contract.
type GlobalOptimizer interface {
	Minimize(ctx context.Context, obj Objective, bounds BoxBounds) (OptimizeResult, error)
}

// DifferentialEvolution implements GlobalOptimizer with the classic
// best/1/bin strategy: each trial vector mutates the current best with a
// dithered differential weight, then binomially crosses over with its parent.
//
// A run with Seed != 0 is fully deterministic.  With Seed == 0 a random
// source is drawn per call, so repeated fits may differ — non-deterministic
// by default, matching the underlying algorithm's nature.
type DifferentialEvolution struct {
	// MaxIterations caps the number of generations.  Values < 1 fall back to
	// the default.
	MaxIterations int

	// PopulationMultiplier scales the population: size = multiplier × dim,
	// with a floor of 4 individuals (the minimum for best/1/bin).
	PopulationMultiplier int

	// Tolerance is the relative convergence criterion: the run stops when the
	// population energies satisfy std ≤ atol + Tolerance·|mean|.
	Tolerance float64

	// MutationMin and MutationMax bound the dithered differential weight,
	// re-drawn each generation.
	MutationMin float64
	MutationMax float64

	// CrossoverProb is the binomial crossover probability.
	CrossoverProb float64

	// Seed fixes the RNG stream when non-zero.
	Seed int64

	// Workers bounds concurrent objective evaluations.  Values ≤ 1 select
	// the serial path with immediate selection; larger values evaluate each
	// generation's trial vectors concurrently and defer selection to the end
	// of the generation.  Trial vectors are always drawn serially from the
	// single RNG stream, so a seeded run is deterministic for any worker
	// count, though the serial and deferred trajectories differ.
	Workers int
}

// Differential-evolution defaults, matching the conventional best/1/bin
// parameterization.
const (
	deDefaultMaxIterations        = 1000
	deDefaultPopulationMultiplier = 15
	deDefaultTolerance            = 0.01
	deDefaultMutationMin          = 0.5
	deDefaultMutationMax          = 1.0
	deDefaultCrossoverProb        = 0.7
	deAbsoluteTolerance           = 0
)

// NewDifferentialEvolution returns a DifferentialEvolution with conventional
// defaults.  Fields may be adjusted before the first Minimize call.
func NewDifferentialEvolution() *DifferentialEvolution {
	return &DifferentialEvolution{
		MaxIterations:        deDefaultMaxIterations,
		PopulationMultiplier: deDefaultPopulationMultiplier,
		Tolerance:            deDefaultTolerance,
		MutationMin:          deDefaultMutationMin,
		MutationMax:          deDefaultMutationMax,
		CrossoverProb:        deDefaultCrossoverProb,
	}
}

// Minimize runs the evolution until convergence, the generation budget, or
// context cancellation.  On cancellation the best point found so far is
// returned together with the context error.
func (d *DifferentialEvolution) Minimize(ctx context.Context, obj Objective, bounds BoxBounds) (OptimizeResult, error) {
	if err := bounds.Validate(); err != nil {
		return OptimizeResult{}, err
	}

	dim := len(bounds.Lower)
	maxIter := d.MaxIterations
	if maxIter < 1 {
		maxIter = deDefaultMaxIterations
	}
	popMult := d.PopulationMultiplier
	if popMult < 1 {
		popMult = deDefaultPopulationMultiplier
	}
	popSize := popMult * dim
	if popSize < 4 {
		popSize = 4
	}
	tol := d.Tolerance
	if tol <= 0 {
		tol = deDefaultTolerance
	}
	fMin, fMax := d.MutationMin, d.MutationMax
	if fMin <= 0 || fMax <= fMin {
		fMin, fMax = deDefaultMutationMin, deDefaultMutationMax
	}
	cr := d.CrossoverProb
	if cr <= 0 || cr > 1 {
		cr = deDefaultCrossoverProb
	}
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	rng := newRNG(d.Seed)

	// Initialise the population uniformly inside the box.
	pop := make([][]float64, popSize)
	energies := make([]float64, popSize)
	for i := range pop {
		pop[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			pop[i][j] = bounds.Lower[j] + rng.Float64()*(bounds.Upper[j]-bounds.Lower[j])
		}
	}
	evaluatePopulation(obj, pop, energies, workers)
	evals := popSize
	bestIdx := argmin(energies)

	trial := make([]float64, dim)
	var trials [][]float64
	var trialEnergies []float64
	if workers > 1 {
		trials = make([][]float64, popSize)
		for i := range trials {
			trials[i] = make([]float64, dim)
		}
		trialEnergies = make([]float64, popSize)
	}
	converged := false
	iter := 0

	for ; iter < maxIter; iter++ {
		select {
		case <-ctx.Done():
			return OptimizeResult{
				X:           append([]float64(nil), pop[bestIdx]...),
				F:           energies[bestIdx],
				Iterations:  iter,
				Evaluations: evals,
			}, ctx.Err()
		default:
		}

		// Dither the differential weight once per generation.
		f := fMin + rng.Float64()*(fMax-fMin)

		if workers > 1 {
			// Deferred selection: all trials mutate the generation-start
			// best, are evaluated concurrently, and compete with their
			// parents only once the whole generation is scored.
			for i := 0; i < popSize; i++ {
				r1, r2 := distinctPair(rng, popSize, i, bestIdx)
				forced := rng.Intn(dim)
				for j := 0; j < dim; j++ {
					if j == forced || rng.Float64() < cr {
						trials[i][j] = clipToBounds(pop[bestIdx][j]+f*(pop[r1][j]-pop[r2][j]), bounds, j)
					} else {
						trials[i][j] = pop[i][j]
					}
				}
			}
			evaluatePopulation(obj, trials, trialEnergies, workers)
			evals += popSize
			for i := 0; i < popSize; i++ {
				if trialEnergies[i] <= energies[i] {
					copy(pop[i], trials[i])
					energies[i] = trialEnergies[i]
				}
			}
			bestIdx = argmin(energies)
		} else {
			for i := 0; i < popSize; i++ {
				r1, r2 := distinctPair(rng, popSize, i, bestIdx)

				// Guarantee at least one mutated component.
				forced := rng.Intn(dim)
				for j := 0; j < dim; j++ {
					if j == forced || rng.Float64() < cr {
						trial[j] = clipToBounds(pop[bestIdx][j]+f*(pop[r1][j]-pop[r2][j]), bounds, j)
					} else {
						trial[j] = pop[i][j]
					}
				}

				e := obj(trial)
				evals++
				if e <= energies[i] {
					copy(pop[i], trial)
					energies[i] = e
					if e < energies[bestIdx] {
						bestIdx = i
					}
				}
			}
		}

		mean := stat.Mean(energies, nil)
		std := math.Sqrt(stat.Variance(energies, nil))
		if std <= deAbsoluteTolerance+tol*math.Abs(mean) {
			converged = true
			iter++
			break
		}
	}

	return OptimizeResult{
		X:           append([]float64(nil), pop[bestIdx]...),
		F:           energies[bestIdx],
		Iterations:  iter,
		Evaluations: evals,
		Converged:   converged,
	}, nil
}

// newRNG returns a deterministic source for a non-zero seed, otherwise a
// randomly seeded one.
func newRNG(seed int64) *rand.Rand {
	if seed != 0 {
		return rand.New(rand.NewSource(seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// clipToBounds clips component j of a mutated vector to the search box.
// Reflection adds no value for these smooth objectives.
func clipToBounds(v float64, bounds BoxBounds, j int) float64 {
	if v < bounds.Lower[j] {
		return bounds.Lower[j]
	}
	if v > bounds.Upper[j] {
		return bounds.Upper[j]
	}
	return v
}

// argmin returns the index of the smallest energy, keeping the first on ties.
func argmin(energies []float64) int {
	best := 0
	for i, e := range energies {
		if e < energies[best] {
			best = i
		}
	}
	return best
}

// evaluatePopulation scores every vector, fanning the objective calls across
// a bounded worker pool when workers > 1.  Results land by index, so the
// outcome never depends on scheduling order.
func evaluatePopulation(obj Objective, xs [][]float64, out []float64, workers int) {
	if workers <= 1 || len(xs) < 2 {
		for i, x := range xs {
			out[i] = obj(x)
		}
		return
	}
	if workers > len(xs) {
		workers = len(xs)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = obj(xs[i])
			}
		}()
	}
	for i := range xs {
		idx <- i
	}
	close(idx)
	wg.Wait()
}

// distinctPair draws two distinct population indices different from each
// other and from both excluded indices.
func distinctPair(rng *rand.Rand, n, exclude1, exclude2 int) (int, int) {
	r1 := rng.Intn(n)
	for r1 == exclude1 || r1 == exclude2 {
		r1 = rng.Intn(n)
	}
	r2 := rng.Intn(n)
	for r2 == exclude1 || r2 == exclude2 || r2 == r1 {
		r2 = rng.Intn(n)
	}
	return r1, r2
}
