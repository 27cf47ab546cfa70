// Package genetic searches the space of buffer placements with a
// generational genetic algorithm, using the ddmrp simulator and objective as
// its fitness function.
package genetic

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"bufferplan/internal/ddmrp"
	"bufferplan/internal/metrics"
	"bufferplan/internal/network"
)

// SolverError reports an optimizer-level failure, e.g. being invoked before
// the network was built or finishing without a single feasible plan.
type SolverError struct {
	Reason string
}

func (e *SolverError) Error() string { return "solver: " + e.Reason }

// fitnessFloor keeps the reciprocal transform defined when the raw
// objective degenerates to zero (possible only with all-zero weights).
const fitnessFloor = 1e-9

// Params are the optimizer knobs. Zero values select defaults.
type Params struct {
	PopulationSize  int           // clamped to [50,100], default 60
	TournamentSize  int           // default 3
	CrossoverMix    float64       // per-gene probability of inheriting from the first parent, default 0.5
	MutationRate    float64       // per-gene bit-flip probability, default 0.1
	StagnationLimit int           // generations without improvement before stopping, default 100
	MaxGenerations  int           // optional hard cap, 0 = none
	TimeBudget      time.Duration // coarse between-generation budget, 0 = none
	Parallelism     int           // concurrent fitness evaluations, default 1
	Seed            int64         // 0 = derived from wall clock
	Weights         ddmrp.Weights // zero value = ddmrp.DefaultWeights
}

func (p Params) withDefaults() Params {
	if p.PopulationSize == 0 {
		p.PopulationSize = 60
	}
	if p.PopulationSize < 50 {
		p.PopulationSize = 50
	}
	if p.PopulationSize > 100 {
		p.PopulationSize = 100
	}
	if p.TournamentSize <= 0 {
		p.TournamentSize = 3
	}
	if p.CrossoverMix <= 0 || p.CrossoverMix >= 1 {
		p.CrossoverMix = 0.5
	}
	if p.MutationRate <= 0 {
		p.MutationRate = 0.1
	}
	if p.StagnationLimit <= 0 {
		p.StagnationLimit = 100
	}
	if p.Parallelism <= 0 {
		p.Parallelism = 1
	}
	if p.Weights == (ddmrp.Weights{}) {
		p.Weights = ddmrp.DefaultWeights
	}
	return p
}

// Stats summarizes one optimizer run.
type Stats struct {
	Generations  int
	Evaluations  int
	Improvements int
	Faults       int
	BestCost     float64
}

// Result is the optimizer output: the best fully simulated plan, its genes,
// and the de-duplicated descending fitness curve for plotting by callers.
type Result struct {
	RunID        string
	BestGenes    []bool
	BestPlan     *ddmrp.Plan
	FitnessCurve []float64
	Stats        Stats
}

type evaluation struct {
	fitness float64
	plan    *ddmrp.Plan
}

// Optimize evolves buffer placements for the given network until the search
// stagnates or a configured budget runs out. Runs with the same seed and
// network are bit-reproducible: fitness evaluation is deterministic per
// chromosome and the random source is consumed only by the sequential
// breeding phase.
func Optimize(net *network.Network, params Params) (*Result, error) {
	if net == nil {
		return nil, &SolverError{Reason: "optimizer invoked before network initialization"}
	}
	p := params.withDefaults()
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	runID := uuid.New().String()

	genes := net.StationCount()
	pop := make([][]bool, p.PopulationSize)
	for i := range pop {
		c := make([]bool, genes)
		for g := range c {
			c[g] = rng.Intn(2) == 1
		}
		pop[i] = c
	}

	var (
		best        evaluation
		bestGenes   []bool
		history     []float64
		stats       Stats
		stagnant    int
		deadline    time.Time
		progressLog = rate.Sometimes{Interval: 2 * time.Second}
	)
	if p.TimeBudget > 0 {
		deadline = time.Now().Add(p.TimeBudget)
	}
	log.Printf("solver run %s: %d stations, population %d, seed %d", runID, genes, p.PopulationSize, seed)

	for {
		stats.Generations++
		metrics.SolverGenerations.Inc()

		evals := evaluatePopulation(net, pop, p, &stats)

		improved := false
		genBest := 0
		for i := 1; i < len(evals); i++ {
			if evals[i].fitness > evals[genBest].fitness {
				genBest = i
			}
		}
		if evals[genBest].fitness > best.fitness {
			best = evals[genBest]
			bestGenes = append([]bool(nil), pop[genBest]...)
			improved = true
			stats.Improvements++
			if best.plan != nil {
				stats.BestCost = ddmrp.Cost(best.plan, p.Weights)
				metrics.SolverBestObjective.Set(stats.BestCost)
			}
		}
		if best.fitness > 0 {
			history = append(history, best.fitness)
		}

		if improved {
			stagnant = 0
		} else {
			stagnant++
		}
		progressLog.Do(func() {
			log.Printf("solver run %s: generation %d, best fitness %.6g, stagnant %d",
				runID, stats.Generations, best.fitness, stagnant)
		})

		if stagnant >= p.StagnationLimit {
			break
		}
		if p.MaxGenerations > 0 && stats.Generations >= p.MaxGenerations {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		pop = breed(pop, evals, bestGenes, p, rng)
	}

	if best.plan == nil {
		return nil, &SolverError{Reason: fmt.Sprintf("run %s finished without a feasible plan", runID)}
	}
	log.Printf("solver run %s: done after %d generations, best cost %.6g (%d faults)",
		runID, stats.Generations, stats.BestCost, stats.Faults)

	return &Result{
		RunID:        runID,
		BestGenes:    bestGenes,
		BestPlan:     best.plan,
		FitnessCurve: fitnessCurve(history),
		Stats:        stats,
	}, nil
}

// evaluatePopulation scores every chromosome, optionally across a bounded
// worker pool. Each evaluation builds its own propagation and plan, so
// workers share nothing but the read-only network.
func evaluatePopulation(net *network.Network, pop [][]bool, p Params, stats *Stats) []evaluation {
	evals := make([]evaluation, len(pop))
	faults := make([]bool, len(pop))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.Parallelism)
	for i := range pop {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fit, plan, err := evaluate(net, pop[i], p.Weights)
			if err != nil {
				// A faulting chromosome is maximally unfit but
				// must not kill the run; the condition itself
				// is a defect worth surfacing.
				log.Printf("solver: discarding chromosome %d: %v", i, err)
				faults[i] = true
				return
			}
			evals[i] = evaluation{fitness: fit, plan: plan}
		}(i)
	}
	wg.Wait()

	stats.Evaluations += len(pop)
	metrics.SolverEvaluations.Add(float64(len(pop)))
	for _, f := range faults {
		if f {
			stats.Faults++
			metrics.SolverInvariantFaults.Inc()
		}
	}
	return evals
}

func evaluate(net *network.Network, genes []bool, w ddmrp.Weights) (float64, *ddmrp.Plan, error) {
	prop, err := ddmrp.Propagate(net, genes)
	if err != nil {
		return 0, nil, err
	}
	plan, err := ddmrp.Simulate(prop)
	if err != nil {
		return 0, nil, err
	}
	cost := ddmrp.Cost(plan, w)
	if cost < fitnessFloor {
		cost = fitnessFloor
	}
	return 1 / cost, plan, nil
}

// breed produces the next generation: the best-so-far chromosome survives
// unchanged, the rest come from tournament selection, uniform crossover and
// bit-flip mutation.
func breed(pop [][]bool, evals []evaluation, bestGenes []bool, p Params, rng *rand.Rand) [][]bool {
	elite := bestGenes
	if elite == nil {
		// No chromosome has produced a feasible plan yet; carry the
		// current generation's best forward instead of seeding an
		// empty elite.
		best := 0
		for i := 1; i < len(evals); i++ {
			if evals[i].fitness > evals[best].fitness {
				best = i
			}
		}
		elite = pop[best]
	}
	next := make([][]bool, 0, len(pop))
	next = append(next, append([]bool(nil), elite...))
	for len(next) < len(pop) {
		pa := tournament(pop, evals, p.TournamentSize, rng)
		pb := tournament(pop, evals, p.TournamentSize, rng)
		child := make([]bool, len(pa))
		for g := range child {
			if rng.Float64() < p.CrossoverMix {
				child[g] = pa[g]
			} else {
				child[g] = pb[g]
			}
			if rng.Float64() < p.MutationRate {
				child[g] = !child[g]
			}
		}
		next = append(next, child)
	}
	return next
}

func tournament(pop [][]bool, evals []evaluation, size int, rng *rand.Rand) []bool {
	winner := rng.Intn(len(pop))
	for i := 1; i < size; i++ {
		c := rng.Intn(len(pop))
		if evals[c].fitness > evals[winner].fitness {
			winner = c
		}
	}
	return pop[winner]
}

// fitnessCurve de-duplicates the recorded fitness values and sorts them in
// descending order.
func fitnessCurve(history []float64) []float64 {
	seen := make(map[float64]struct{}, len(history))
	curve := make([]float64, 0, len(history))
	for _, f := range history {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		curve = append(curve, f)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(curve)))
	return curve
}
