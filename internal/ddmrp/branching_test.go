package ddmrp

import (
	"testing"

	"bufferplan/internal/model"
	"bufferplan/internal/network"
)

// fanOutNetwork builds a weighted fan-out: station 0 feeds station 1 with
// amount 2 and station 2 with amount 3. Both sinks are outputs with flat
// forecasts (4 and 6) and variabilities (0.4 and 0.3).
func fanOutNetwork(t *testing.T) *network.Network {
	t.Helper()
	decls := []model.StationDecl{
		{
			Index:          0,
			ProcessingTime: 1,
			PastBuffers:    []int{10, 10},
			PastOrders:     []int{5, 5},
			Flows:          []model.Flow{{Target: 1, Amount: 2}, {Target: 2, Amount: 3}},
		},
		{
			Index:             1,
			ProcessingTime:    1,
			InitialBuffer:     20,
			PastBuffers:       []int{8, 8},
			PastOrders:        []int{3, 3},
			DemandForecast:    []int{4, 4, 4, 4},
			DemandVariability: floatPtr(0.4),
		},
		{
			Index:             2,
			ProcessingTime:    2,
			InitialBuffer:     30,
			PastBuffers:       []int{9, 9},
			PastOrders:        []int{4, 4},
			DemandForecast:    []int{6, 6, 6, 6},
			DemandVariability: floatPtr(0.3),
		},
	}
	net, err := network.Build(decls, model.Horizons{Planning: 4, Past: 2, Peak: 2, PeakThreshold: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func TestPropagateWeightedFanOut(t *testing.T) {
	p, err := Propagate(fanOutNetwork(t), []bool{false, false, false})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	// Lead times inherit the unbuffered feeder weighted by flow amount:
	// 1+2*1 and 2+3*1.
	if got := []int{p.LeadTime(0), p.LeadTime(1), p.LeadTime(2)}; got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("lead times: got %v, want [1 3 5]", got)
	}
	if !almostEqual(p.LeadTimeFactor(1), 1.0/3.0) || !almostEqual(p.LeadTimeFactor(2), 1.0/5.0) {
		t.Errorf("lead time factors: got %v %v", p.LeadTimeFactor(1), p.LeadTimeFactor(2))
	}

	// Derived forecast of the feeder is the flow-weighted sum 2*4 + 3*6.
	for i, f := range p.Forecast(0) {
		if f != 26 {
			t.Fatalf("forecast of 0 at %d: got %d, want 26", i, f)
		}
	}
	if !almostEqual(p.AverageDemand(0), 26) {
		t.Errorf("average demand of 0: got %v, want 26", p.AverageDemand(0))
	}
	// Variability propagates the same weighting: 2*0.4 + 3*0.3.
	if !almostEqual(p.DemandVariability(0), 1.7) {
		t.Errorf("variability of 0: got %v, want 1.7", p.DemandVariability(0))
	}
}

func TestSimulateWeightedDemandPull(t *testing.T) {
	p, err := Propagate(fanOutNetwork(t), []bool{false, false, false})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	plan, err := Simulate(p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	// At instant 0 station 2 replenishes (net flow 28 against TOY 37.8,
	// order 16) while station 1 does not (net flow 19 against TOY 17.6).
	if got := plan.Future[2][0]; !got.Replenishment || got.OrderAmount != 16 {
		t.Errorf("station 2 at 0: got %+v", got)
	}
	if got := plan.Future[1][0]; got.Replenishment || got.OrderAmount != 0 {
		t.Errorf("station 1 at 0: got %+v", got)
	}
	// The feeder pulls the order where one fired and plain demand where
	// it did not, each weighted by flow amount: 2*4 + 3*16.
	if got := plan.Future[0][0].Demand; got != 56 {
		t.Errorf("station 0 demand at 0: got %d, want 56", got)
	}
	if got := plan.Future[0][0].OrderAmount; got != 174 {
		t.Errorf("station 0 order at 0: got %d, want 174", got)
	}
	if err := CheckReplenishmentConsistency(plan); err != nil {
		t.Errorf("consistency: %v", err)
	}
}

// fanInNetwork builds a weighted fan-in: inputs 0 and 2 both reach output
// station 3, station 0 through the unbuffered intermediate 1. Station 0's
// history carries distinctive quantities (11) and station 2's carries 99, so
// a trajectory reveals which feeder the supply walk resolved.
func fanInNetwork(t *testing.T) *network.Network {
	t.Helper()
	decls := []model.StationDecl{
		{
			Index:          0,
			ProcessingTime: 1,
			PastBuffers:    []int{11, 11},
			PastOrders:     []int{11, 11},
			Flows:          []model.Flow{{Target: 1, Amount: 1}},
		},
		{
			Index:          1,
			ProcessingTime: 1,
			PastBuffers:    []int{2, 2},
			PastOrders:     []int{2, 2},
			Flows:          []model.Flow{{Target: 3, Amount: 1}},
		},
		{
			Index:          2,
			ProcessingTime: 1,
			PastBuffers:    []int{99, 99},
			PastOrders:     []int{99, 99},
			Flows:          []model.Flow{{Target: 3, Amount: 1}},
		},
		{
			Index:             3,
			ProcessingTime:    1,
			InitialBuffer:     12,
			PastBuffers:       []int{7, 7},
			PastOrders:        []int{6, 6},
			DemandForecast:    []int{5, 5, 5},
			DemandVariability: floatPtr(0.1),
		},
	}
	net, err := network.Build(decls, model.Horizons{Planning: 3, Past: 2, Peak: 1, PeakThreshold: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func TestSimulateFanInSupplyWalk(t *testing.T) {
	p, err := Propagate(fanInNetwork(t), []bool{false, false, false, false})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	// Station 3 accumulates lead time from both unbuffered branches:
	// 1 + 1*2 + 1*1.
	if got := p.LeadTime(3); got != 4 {
		t.Fatalf("lead time of 3: got %d, want 4", got)
	}
	plan, err := Simulate(p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	// Instant 0: station 3 orders 18; both feeders see it, station 1
	// replenishes in turn and its order propagates to input 0.
	if got := plan.Future[3][0].OrderAmount; got != 18 {
		t.Errorf("station 3 order at 0: got %d, want 18", got)
	}
	if got := plan.Future[2][0].Demand; got != 18 {
		t.Errorf("station 2 demand at 0: got %d, want 18", got)
	}
	if got := plan.Future[1][0].Demand; got != 18 {
		t.Errorf("station 1 demand at 0: got %d, want 18", got)
	}
	if got := plan.Future[0][0].Demand; got != 37 {
		t.Errorf("station 0 demand at 0: got %d, want 37", got)
	}

	// Instant 1: station 3's incoming supply resolves through the first
	// feeder's chain to input 0 (history 11), not to the sibling input 2
	// (history 99): buffer is 12 - 5 + 11.
	if got := plan.Future[3][1].Buffer; got != 18 {
		t.Errorf("station 3 buffer at 1: got %d, want 18", got)
	}
}
