// Package network builds the immutable station network one planning run
// operates on: precedence and input-amount matrices, adjacency lists and
// input/output role classification.
package network

import (
	"fmt"

	"bufferplan/internal/model"
)

// ConfigurationError reports a malformed or incomplete station declaration.
// It carries enough context to localize the bad field without re-reading the
// source configuration.
type ConfigurationError struct {
	StationIndex int
	Field        string
	Expected     string
	Actual       string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("station %d: %s: expected %s, got %s",
		e.StationIndex, e.Field, e.Expected, e.Actual)
}

// Network is the static description of a manufacturing line. It is built
// once from declarations and never mutated afterwards; every fitness
// evaluation reads from the same shared instance.
type Network struct {
	horizons model.Horizons

	processing    []int
	initialBuffer []int
	isInput       []bool
	isOutput      []bool
	variability   []float64 // declared, output stations only
	forecast      [][]int   // declared, output stations only
	past          [][]model.PastState

	precedence  [][]bool
	inputAmount [][]int

	// Adjacency index lists, precomputed so per-instant traversals never
	// rescan the matrices. upstream[s] and downstream[s] are sorted
	// ascending.
	upstream   [][]int
	downstream [][]int
}

// Build validates the declarations and materializes the network. Station
// indices must be dense and contiguous starting at zero; flows must point at
// higher-indexed stations.
func Build(decls []model.StationDecl, horizons model.Horizons) (*Network, error) {
	n := len(decls)
	if n == 0 {
		return nil, &ConfigurationError{StationIndex: -1, Field: "stations", Expected: "at least one station", Actual: "none"}
	}
	if horizons.Planning < 1 {
		return nil, &ConfigurationError{StationIndex: -1, Field: "planningHorizon", Expected: ">= 1", Actual: fmt.Sprint(horizons.Planning)}
	}
	if horizons.Past < 1 {
		return nil, &ConfigurationError{StationIndex: -1, Field: "pastHorizon", Expected: ">= 1", Actual: fmt.Sprint(horizons.Past)}
	}
	if horizons.Peak < 0 {
		return nil, &ConfigurationError{StationIndex: -1, Field: "peakHorizon", Expected: ">= 0", Actual: fmt.Sprint(horizons.Peak)}
	}
	if horizons.PeakThreshold == 0 {
		horizons.PeakThreshold = 1
	}
	if horizons.PeakThreshold < 0 {
		return nil, &ConfigurationError{StationIndex: -1, Field: "peakThreshold", Expected: "> 0", Actual: fmt.Sprint(horizons.PeakThreshold)}
	}

	// Arrange declarations by index, detecting gaps and duplicates.
	ordered := make([]*model.StationDecl, n)
	for i := range decls {
		d := &decls[i]
		if d.Index < 0 || d.Index >= n {
			return nil, &ConfigurationError{StationIndex: d.Index, Field: "index", Expected: fmt.Sprintf("0..%d", n-1), Actual: fmt.Sprint(d.Index)}
		}
		if ordered[d.Index] != nil {
			return nil, &ConfigurationError{StationIndex: d.Index, Field: "index", Expected: "unique", Actual: "duplicate"}
		}
		ordered[d.Index] = d
	}
	for i, d := range ordered {
		if d == nil {
			return nil, &ConfigurationError{StationIndex: i, Field: "index", Expected: "declared", Actual: "missing"}
		}
	}

	net := &Network{
		horizons:      horizons,
		processing:    make([]int, n),
		initialBuffer: make([]int, n),
		isInput:       make([]bool, n),
		isOutput:      make([]bool, n),
		variability:   make([]float64, n),
		forecast:      make([][]int, n),
		past:          make([][]model.PastState, n),
		precedence:    make([][]bool, n),
		inputAmount:   make([][]int, n),
		upstream:      make([][]int, n),
		downstream:    make([][]int, n),
	}
	for s := range net.precedence {
		net.precedence[s] = make([]bool, n)
		net.inputAmount[s] = make([]int, n)
	}

	hasIncoming := make([]bool, n)
	for s, d := range ordered {
		if d.ProcessingTime < 0 {
			return nil, &ConfigurationError{StationIndex: s, Field: "processingTime", Expected: ">= 0", Actual: fmt.Sprint(d.ProcessingTime)}
		}
		if d.InitialBuffer < 0 {
			return nil, &ConfigurationError{StationIndex: s, Field: "initialBuffer", Expected: ">= 0", Actual: fmt.Sprint(d.InitialBuffer)}
		}
		if len(d.PastBuffers) != horizons.Past {
			return nil, &ConfigurationError{StationIndex: s, Field: "pastBuffers", Expected: fmt.Sprintf("length %d", horizons.Past), Actual: fmt.Sprintf("length %d", len(d.PastBuffers))}
		}
		if len(d.PastOrders) != horizons.Past {
			return nil, &ConfigurationError{StationIndex: s, Field: "pastOrders", Expected: fmt.Sprintf("length %d", horizons.Past), Actual: fmt.Sprintf("length %d", len(d.PastOrders))}
		}
		for _, f := range d.Flows {
			if f.Target <= s || f.Target >= n {
				return nil, &ConfigurationError{StationIndex: s, Field: "flows.target", Expected: fmt.Sprintf("%d..%d", s+1, n-1), Actual: fmt.Sprint(f.Target)}
			}
			if f.Amount < 1 {
				return nil, &ConfigurationError{StationIndex: s, Field: "flows.amount", Expected: ">= 1", Actual: fmt.Sprint(f.Amount)}
			}
			if net.precedence[s][f.Target] {
				return nil, &ConfigurationError{StationIndex: s, Field: "flows.target", Expected: "unique", Actual: fmt.Sprintf("duplicate flow to %d", f.Target)}
			}
			net.precedence[s][f.Target] = true
			net.inputAmount[s][f.Target] = f.Amount
			hasIncoming[f.Target] = true
		}

		net.processing[s] = d.ProcessingTime
		net.initialBuffer[s] = d.InitialBuffer
		net.past[s] = make([]model.PastState, horizons.Past)
		for k := range net.past[s] {
			net.past[s][k] = model.PastState{Buffer: d.PastBuffers[k], OrderAmount: d.PastOrders[k]}
		}
	}

	// Role classification and role-dependent validation.
	for s, d := range ordered {
		net.isInput[s] = !hasIncoming[s]
		net.isOutput[s] = len(d.Flows) == 0

		if net.isOutput[s] {
			if len(d.DemandForecast) != horizons.Planning {
				return nil, &ConfigurationError{StationIndex: s, Field: "demandForecast", Expected: fmt.Sprintf("length %d", horizons.Planning), Actual: fmt.Sprintf("length %d", len(d.DemandForecast))}
			}
			if d.DemandVariability == nil {
				return nil, &ConfigurationError{StationIndex: s, Field: "demandVariability", Expected: "declared for output station", Actual: "missing"}
			}
			net.variability[s] = *d.DemandVariability
			net.forecast[s] = append([]int(nil), d.DemandForecast...)
		} else {
			if len(d.DemandForecast) != 0 {
				return nil, &ConfigurationError{StationIndex: s, Field: "demandForecast", Expected: "derived for non-output station", Actual: fmt.Sprintf("declared, length %d", len(d.DemandForecast))}
			}
		}
	}

	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if net.precedence[u][v] {
				net.downstream[u] = append(net.downstream[u], v)
				net.upstream[v] = append(net.upstream[v], u)
			}
		}
	}
	return net, nil
}

// StationCount returns the number of stations.
func (n *Network) StationCount() int { return len(n.processing) }

// Horizons returns the run's time parameters.
func (n *Network) Horizons() model.Horizons { return n.horizons }

// ProcessingTime returns station s's own processing time.
func (n *Network) ProcessingTime(s int) int { return n.processing[s] }

// InitialBuffer returns the seed buffer level for station s at instant 0.
func (n *Network) InitialBuffer(s int) int { return n.initialBuffer[s] }

// IsInput reports whether no station feeds s.
func (n *Network) IsInput(s int) bool { return n.isInput[s] }

// IsOutput reports whether s feeds no station.
func (n *Network) IsOutput(s int) bool { return n.isOutput[s] }

// DeclaredVariability returns the configured demand variability; meaningful
// only for output stations.
func (n *Network) DeclaredVariability(s int) float64 { return n.variability[s] }

// DeclaredForecast returns the configured external forecast; nil for
// non-output stations.
func (n *Network) DeclaredForecast(s int) []int { return n.forecast[s] }

// InputAmount returns the units u sends to v per unit v produces; zero when
// u does not feed v.
func (n *Network) InputAmount(u, v int) int { return n.inputAmount[u][v] }

// Upstream returns the indices of the stations feeding s, ascending.
func (n *Network) Upstream(s int) []int { return n.upstream[s] }

// Downstream returns the indices of the stations fed by s, ascending.
func (n *Network) Downstream(s int) []int { return n.downstream[s] }

// PastAt returns station s's historical record for instant k, where k ranges
// over -pastHorizon+1 .. 0. Instants older than the recorded history clamp
// to the oldest record.
func (n *Network) PastAt(s, k int) model.PastState {
	idx := n.horizons.Past - 1 + k
	if idx < 0 {
		idx = 0
	}
	return n.past[s][idx]
}
