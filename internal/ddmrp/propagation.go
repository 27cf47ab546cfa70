// Package ddmrp implements the demand-driven MRP core: propagation of lead
// times and demand through the station network, buffer zone thresholds, the
// time-indexed replenishment simulator and the plan objective.
package ddmrp

import (
	"fmt"

	"bufferplan/internal/network"
)

// InvariantError is a fatal simulation-invariant violation. It indicates a
// logic bug or a misconfigured network, never a recoverable input problem;
// the current fitness evaluation must be abandoned.
type InvariantError struct {
	StationIndex int
	Instant      int
	Reason       string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("simulation invariant violated at station %d, instant %d: %s",
		e.StationIndex, e.Instant, e.Reason)
}

// Propagation holds the per-station scalars derived from one buffer
// placement. Constructing it is the only way to obtain a Simulator input, so
// zone and simulation code can never observe a half-computed station.
type Propagation struct {
	net      *network.Network
	buffered []bool

	leadTime       []int
	leadTimeFactor []float64
	avgDemand      []float64
	variability    []float64
	forecast       [][]int
}

// Propagate derives lead times, lead-time factors, average demand and demand
// variability for the given buffer placement. Output stations are forced to
// hold a buffer regardless of their gene. The traversal order is fixed:
// lead times ascend (they depend on upstream), forecasts and variability
// descend (they depend on downstream), factors follow once every lead time
// is final.
func Propagate(net *network.Network, placement []bool) (*Propagation, error) {
	n := net.StationCount()
	if len(placement) != n {
		return nil, &InvariantError{StationIndex: -1, Instant: -1,
			Reason: fmt.Sprintf("placement length %d does not match %d stations", len(placement), n)}
	}

	p := &Propagation{
		net:            net,
		buffered:       make([]bool, n),
		leadTime:       make([]int, n),
		leadTimeFactor: make([]float64, n),
		avgDemand:      make([]float64, n),
		variability:    make([]float64, n),
		forecast:       make([][]int, n),
	}
	for s := 0; s < n; s++ {
		p.buffered[s] = placement[s] || net.IsOutput(s)
	}

	// Lead times, ascending: a buffered upstream station decouples its
	// lead time, an unbuffered one transmits it weighted by flow amount.
	for s := 0; s < n; s++ {
		lt := net.ProcessingTime(s)
		if !net.IsInput(s) {
			for _, u := range net.Upstream(s) {
				if !p.buffered[u] {
					lt += net.InputAmount(u, s) * p.leadTime[u]
				}
			}
		}
		p.leadTime[s] = lt
	}

	// Forecasts and variability, descending: non-output demand is the
	// flow-weighted sum of already-finalized downstream values.
	horizon := net.Horizons().Planning
	for s := n - 1; s >= 0; s-- {
		if net.IsOutput(s) {
			p.forecast[s] = append([]int(nil), net.DeclaredForecast(s)...)
			p.variability[s] = net.DeclaredVariability(s)
		} else {
			f := make([]int, horizon)
			v := 0.0
			for _, d := range net.Downstream(s) {
				amt := net.InputAmount(s, d)
				for t := 0; t < horizon; t++ {
					f[t] += amt * p.forecast[d][t]
				}
				v += float64(amt) * p.variability[d]
			}
			p.forecast[s] = f
			p.variability[s] = v
		}
		sum := 0
		for _, d := range p.forecast[s] {
			sum += d
		}
		p.avgDemand[s] = float64(sum) / float64(horizon)
	}

	// Lead-time factor: network-wide minimum nonzero lead time over own
	// lead time; zero-lead stations get factor zero.
	minNonzero := 0
	for s := 0; s < n; s++ {
		if lt := p.leadTime[s]; lt > 0 && (minNonzero == 0 || lt < minNonzero) {
			minNonzero = lt
		}
	}
	for s := 0; s < n; s++ {
		if p.leadTime[s] > 0 {
			p.leadTimeFactor[s] = float64(minNonzero) / float64(p.leadTime[s])
		}
	}
	return p, nil
}

// Network returns the network the propagation was computed against.
func (p *Propagation) Network() *network.Network { return p.net }

// Buffered reports whether station s holds a buffer in this placement,
// output-station forcing included.
func (p *Propagation) Buffered(s int) bool { return p.buffered[s] }

// BufferedCount returns the number of stations holding a buffer.
func (p *Propagation) BufferedCount() int {
	c := 0
	for _, b := range p.buffered {
		if b {
			c++
		}
	}
	return c
}

// LeadTime returns station s's decoupled lead time under this placement.
func (p *Propagation) LeadTime(s int) int { return p.leadTime[s] }

// LeadTimeFactor returns min nonzero lead time / LeadTime(s), or 0.
func (p *Propagation) LeadTimeFactor(s int) float64 { return p.leadTimeFactor[s] }

// AverageDemand returns the mean of station s's forecast.
func (p *Propagation) AverageDemand(s int) float64 { return p.avgDemand[s] }

// DemandVariability returns the declared (output) or derived variability.
func (p *Propagation) DemandVariability(s int) float64 { return p.variability[s] }

// Forecast returns a copy of station s's per-instant demand forecast: the
// declared array for output stations, the derived one otherwise.
func (p *Propagation) Forecast(s int) []int {
	return append([]int(nil), p.forecast[s]...)
}

// Placement returns a copy of the effective buffer placement.
func (p *Propagation) Placement() []bool {
	return append([]bool(nil), p.buffered...)
}

// keyStation resolves the buffered station protecting s: s itself when
// buffered, otherwise the nearest buffered ancestor strictly upstream. The
// second return is false when no such station exists; for a true input
// station without its own buffer that is always the case.
func (p *Propagation) keyStation(s int) (int, bool) {
	if p.buffered[s] {
		return s, true
	}
	for _, u := range p.net.Upstream(s) {
		if k, ok := p.keyStation(u); ok {
			return k, true
		}
	}
	return 0, false
}

// supplyAncestor resolves the station that physically supplies s: the
// nearest upstream station that holds a buffer or is an input station, with
// unbuffered intermediates skipped. Feeders are visited in ascending index
// order so the walk is deterministic.
func (p *Propagation) supplyAncestor(s int) (int, bool) {
	for _, u := range p.net.Upstream(s) {
		if p.buffered[u] || p.net.IsInput(u) {
			return u, true
		}
		if a, ok := p.supplyAncestor(u); ok {
			return a, true
		}
	}
	return 0, false
}
