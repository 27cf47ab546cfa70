package ddmrp

import (
	"math"

	"bufferplan/internal/model"
)

// Plan is one fully simulated production-control trajectory for a fixed
// buffer placement. Future[s][t] is station s's record at instant t.
type Plan struct {
	Prop   *Propagation
	Zones  []Zones
	Future [][]FutureState
}

// FutureState aliases the model record so simulator callers read
// trajectories without importing the model package themselves.
type FutureState = model.FutureState

// Simulate steps through the planning horizon instant by instant and builds
// every station's trajectory. Within an instant, stations run in descending
// index order so that a station's demand can read the already-finalized
// records of everything it feeds. The network itself is never mutated, so
// concurrent simulations of different placements may share it.
func Simulate(p *Propagation) (*Plan, error) {
	net := p.Network()
	n := net.StationCount()
	horizon := net.Horizons().Planning

	plan := &Plan{
		Prop:   p,
		Zones:  make([]Zones, n),
		Future: make([][]FutureState, n),
	}
	for s := 0; s < n; s++ {
		plan.Zones[s] = p.Zones(s)
		plan.Future[s] = make([]FutureState, horizon)
	}

	// Resolve supply ancestors up front; a station with no buffered or
	// input ancestor means the network is disconnected.
	ancestor := make([]int, n)
	for s := 0; s < n; s++ {
		if net.IsInput(s) {
			ancestor[s] = -1
			continue
		}
		a, ok := p.supplyAncestor(s)
		if !ok {
			return nil, &InvariantError{StationIndex: s, Instant: -1,
				Reason: "no buffered or input ancestor supplies this station"}
		}
		ancestor[s] = a
	}

	for t := 0; t < horizon; t++ {
		for s := n - 1; s >= 0; s-- {
			var st FutureState

			// Demand: external forecast for output stations, the
			// flow-weighted pull of downstream orders otherwise. A
			// replenishing downstream station pulls its order
			// amount; one that is not pulls its own demand.
			if net.IsOutput(s) {
				st.Demand = p.forecast[s][t]
			} else {
				for _, d := range net.Downstream(s) {
					ds := plan.Future[d][t]
					qty := ds.Demand
					if ds.Replenishment {
						qty = ds.OrderAmount
					}
					st.Demand += net.InputAmount(s, d) * qty
				}
			}

			// Qualified demand: buffered stations look ahead for
			// demand spikes inside the peak horizon.
			st.QualifiedDemand = st.Demand
			if p.Buffered(s) {
				st.QualifiedDemand += plan.peakDemand(s, t)
			}

			// Buffer and on-order inventory. Instant 0 is seeded
			// directly instead of running the recurrence.
			if t == 0 {
				if p.Buffered(s) {
					st.Buffer = net.InitialBuffer(s)
				}
				st.OnOrderInventory = net.PastAt(s, 0).OrderAmount
			} else {
				prev := plan.Future[s][t-1]
				supply := plan.incomingSupply(ancestor, s, t-1)
				st.Buffer = prev.Buffer - prev.Demand + supply
				if st.Buffer < 0 {
					st.Buffer = 0
				}
				st.OnOrderInventory = prev.OnOrderInventory - supply + prev.OrderAmount
			}

			// Replenishment: order up to top of green whenever the
			// net flow position falls to top of yellow or below.
			z := plan.Zones[s]
			netFlow := float64(st.Buffer + st.OnOrderInventory - st.QualifiedDemand)
			st.Replenishment = netFlow <= z.TOY
			if st.Replenishment {
				if q := int(math.Ceil(z.TOG - netFlow)); q > 0 {
					st.OrderAmount = q
				}
			}

			plan.Future[s][t] = st
		}
	}
	return plan, nil
}

// peakDemand sums the forecast values inside the peak horizon that qualify
// as demand spikes: instant i counts when its forecast reaches
// (i-t+1) * TOR * peakThreshold.
func (plan *Plan) peakDemand(s, t int) int {
	h := plan.Prop.Network().Horizons()
	tor := plan.Zones[s].TOR
	forecast := plan.Prop.forecast[s]

	end := t + h.Peak
	if end > len(forecast) {
		end = len(forecast)
	}
	peak := 0
	for i := t; i < end; i++ {
		if float64(forecast[i]) >= float64(i-t+1)*tor*h.PeakThreshold {
			peak += forecast[i]
		}
	}
	return peak
}

// incomingSupply returns the quantity arriving at station s during instant
// t. Input stations draw from an external source: their own past order while
// the horizon still overlaps history, their current demand afterwards. Every
// other station receives what its supply ancestor could ship a lead time
// ago, bounded by both the ancestor's buffer and its order amount.
func (plan *Plan) incomingSupply(ancestor []int, s, t int) int {
	net := plan.Prop.Network()
	lt := plan.Prop.LeadTime(s)

	if net.IsInput(s) {
		if t-lt < 0 {
			return net.PastAt(s, t-lt).OrderAmount
		}
		return plan.Future[s][t].Demand
	}

	a := ancestor[s]
	if t-lt < 0 {
		past := net.PastAt(a, t-lt)
		return minInt(past.Buffer, past.OrderAmount)
	}
	shipped := plan.Future[a][t-lt]
	return minInt(shipped.Buffer, shipped.OrderAmount)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
