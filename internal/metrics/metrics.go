package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the planner.
	Registry = prometheus.NewRegistry()
	// SolverGenerations counts completed optimizer generations.
	SolverGenerations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_generations_total", Help: "Completed optimizer generations."},
	)
	// SolverEvaluations counts chromosome fitness evaluations.
	SolverEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_evaluations_total", Help: "Chromosome fitness evaluations."},
	)
	// SolverInvariantFaults counts evaluations aborted by a simulation
	// invariant violation.
	SolverInvariantFaults = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_invariant_faults_total", Help: "Fitness evaluations aborted by simulation invariant violations."},
	)
	// SolverBestObjective tracks the best objective value found so far.
	SolverBestObjective = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "solver_best_objective", Help: "Best (lowest) objective value of the current run."},
	)
)

// RegisterDefault registers the solver collectors on the registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SolverGenerations)
		Registry.MustRegister(SolverEvaluations)
		Registry.MustRegister(SolverInvariantFaults)
		Registry.MustRegister(SolverBestObjective)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
