package ddmrp

// Weights configures the composite plan cost.
type Weights struct {
	BufferLevel float64
	UnmetDemand float64
	BufferCount float64
}

// DefaultWeights is the standard cost weighting.
var DefaultWeights = Weights{BufferLevel: 1, UnmetDemand: 100, BufferCount: 10}

// UnprotectedPenalty is the sentinel charged for the whole unmet-demand term
// when some input station has no buffered station protecting it.
const UnprotectedPenalty = 1e9

// Cost scores a simulated plan. Lower is better:
//
//	w1*meanBufferLevel + w2*meanUnmetDemand + w3*activatedBufferCount
//
// meanBufferLevel averages the time-averaged buffer of every buffered
// station. meanUnmetDemand sums, over the buffered stations protecting the
// input stations, the time-averaged shortfall max(Demand-Buffer, 0).
func Cost(plan *Plan, w Weights) float64 {
	return w.BufferLevel*meanBufferLevel(plan) +
		w.UnmetDemand*meanUnmetDemand(plan) +
		w.BufferCount*float64(plan.Prop.BufferedCount())
}

func meanBufferLevel(plan *Plan) float64 {
	n := plan.Prop.Network().StationCount()
	total, buffered := 0.0, 0
	for s := 0; s < n; s++ {
		if !plan.Prop.Buffered(s) {
			continue
		}
		sum := 0
		for _, st := range plan.Future[s] {
			sum += st.Buffer
		}
		total += float64(sum) / float64(len(plan.Future[s]))
		buffered++
	}
	if buffered == 0 {
		return 0
	}
	return total / float64(buffered)
}

func meanUnmetDemand(plan *Plan) float64 {
	net := plan.Prop.Network()
	n := net.StationCount()

	keys := make(map[int]struct{})
	for s := 0; s < n; s++ {
		if !net.IsInput(s) {
			continue
		}
		k, ok := plan.Prop.keyStation(s)
		if !ok {
			return UnprotectedPenalty
		}
		keys[k] = struct{}{}
	}

	total := 0.0
	for k := range keys {
		short := 0
		for _, st := range plan.Future[k] {
			if d := st.Demand - st.Buffer; d > 0 {
				short += d
			}
		}
		total += float64(short) / float64(len(plan.Future[k]))
	}
	return total
}

// CheckReplenishmentConsistency verifies, for every station and instant,
// that the binary replenishment trigger agrees with the continuous
// threshold comparison TOY - NetFlow >= 0. A violation is a simulator
// defect, not a user error.
func CheckReplenishmentConsistency(plan *Plan) error {
	n := plan.Prop.Network().StationCount()
	for s := 0; s < n; s++ {
		toy := plan.Zones[s].TOY
		for t, st := range plan.Future[s] {
			want := toy-float64(st.NetFlow()) >= 0
			if st.Replenishment != want {
				return &InvariantError{StationIndex: s, Instant: t,
					Reason: "replenishment trigger disagrees with net flow threshold"}
			}
		}
	}
	return nil
}
