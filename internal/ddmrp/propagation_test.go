package ddmrp

import (
	"math"
	"testing"

	"bufferplan/internal/model"
	"bufferplan/internal/network"
)

func floatPtr(v float64) *float64 { return &v }

// chainNetwork builds the canonical 3-station line 0 -> 1 -> 2 with unit
// flows and processing times, planning horizon 5, station 2 forecast
// [10,10,10,10,10] and variability 0.2.
func chainNetwork(t *testing.T) *network.Network {
	t.Helper()
	decls := []model.StationDecl{
		{
			Index:          0,
			ProcessingTime: 1,
			PastBuffers:    []int{30, 30, 30},
			PastOrders:     []int{7, 8, 9},
			Flows:          []model.Flow{{Target: 1, Amount: 1}},
		},
		{
			Index:          1,
			ProcessingTime: 1,
			PastBuffers:    []int{25, 25, 25},
			PastOrders:     []int{10, 10, 10},
			Flows:          []model.Flow{{Target: 2, Amount: 1}},
		},
		{
			Index:             2,
			ProcessingTime:    1,
			InitialBuffer:     40,
			PastBuffers:       []int{20, 20, 20},
			PastOrders:        []int{5, 5, 5},
			DemandForecast:    []int{10, 10, 10, 10, 10},
			DemandVariability: floatPtr(0.2),
		},
	}
	net, err := network.Build(decls, model.Horizons{Planning: 5, Past: 3, Peak: 3, PeakThreshold: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func propagateChain(t *testing.T, placement []bool) *Propagation {
	t.Helper()
	p, err := Propagate(chainNetwork(t), placement)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	return p
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPropagateChainScenario(t *testing.T) {
	p := propagateChain(t, []bool{false, false, true})

	if p.Buffered(0) || p.Buffered(1) || !p.Buffered(2) {
		t.Errorf("placement: got %v %v %v", p.Buffered(0), p.Buffered(1), p.Buffered(2))
	}
	if got := []int{p.LeadTime(0), p.LeadTime(1), p.LeadTime(2)}; got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("lead times: got %v, want [1 2 3]", got)
	}
	if !almostEqual(p.LeadTimeFactor(0), 1) || !almostEqual(p.LeadTimeFactor(1), 0.5) || !almostEqual(p.LeadTimeFactor(2), 1.0/3.0) {
		t.Errorf("lead time factors: got %v %v %v", p.LeadTimeFactor(0), p.LeadTimeFactor(1), p.LeadTimeFactor(2))
	}
	for s := 0; s < 3; s++ {
		if !almostEqual(p.AverageDemand(s), 10) {
			t.Errorf("average demand of %d: got %v, want 10", s, p.AverageDemand(s))
		}
		if !almostEqual(p.DemandVariability(s), 0.2) {
			t.Errorf("variability of %d: got %v, want 0.2", s, p.DemandVariability(s))
		}
		for i, f := range p.Forecast(s) {
			if f != 10 {
				t.Fatalf("forecast of %d at %d: got %d, want 10", s, i, f)
			}
		}
	}
}

func TestPropagateBufferDecouplesLeadTime(t *testing.T) {
	// With station 1 buffered, station 2 no longer inherits upstream lead
	// time through it.
	p := propagateChain(t, []bool{false, true, true})
	if p.LeadTime(2) != 1 {
		t.Errorf("lead time of 2: got %d, want 1", p.LeadTime(2))
	}
	if p.LeadTime(1) != 2 {
		t.Errorf("lead time of 1: got %d, want 2", p.LeadTime(1))
	}
}

func TestPropagateLeadTimeAtLeastProcessingTime(t *testing.T) {
	net := chainNetwork(t)
	for mask := 0; mask < 8; mask++ {
		placement := []bool{mask&1 != 0, mask&2 != 0, mask&4 != 0}
		p, err := Propagate(net, placement)
		if err != nil {
			t.Fatalf("Propagate(%v): %v", placement, err)
		}
		for s := 0; s < net.StationCount(); s++ {
			if p.LeadTime(s) < net.ProcessingTime(s) {
				t.Errorf("placement %v: lead time of %d is %d, below processing time %d",
					placement, s, p.LeadTime(s), net.ProcessingTime(s))
			}
		}
		if !p.Buffered(2) {
			t.Errorf("placement %v: output station lost its forced buffer", placement)
		}
	}
}

func TestPropagateRejectsWrongPlacementLength(t *testing.T) {
	if _, err := Propagate(chainNetwork(t), []bool{true}); err == nil {
		t.Fatal("want error for short placement vector")
	}
}

func TestForecastReturnsCopy(t *testing.T) {
	p := propagateChain(t, []bool{false, false, true})
	p.Forecast(2)[0] = -1
	if got := p.Forecast(2)[0]; got != 10 {
		t.Errorf("forecast mutated through returned slice: got %d, want 10", got)
	}
}

func TestZonesChainScenario(t *testing.T) {
	p := propagateChain(t, []bool{false, false, true})

	cases := []struct {
		station       int
		tor, toy, tog float64
	}{
		{0, 12, 22, 32},
		{1, 12, 32, 42},
		{2, 12, 42, 52},
	}
	for _, tc := range cases {
		z := p.Zones(tc.station)
		if !almostEqual(z.TOR, tc.tor) || !almostEqual(z.TOY, tc.toy) || !almostEqual(z.TOG, tc.tog) {
			t.Errorf("zones of %d: got {%v %v %v}, want {%v %v %v}",
				tc.station, z.TOR, z.TOY, z.TOG, tc.tor, tc.toy, tc.tog)
		}
	}
}
