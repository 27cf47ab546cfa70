package model

// Core domain types shared by the network builder, the simulation engine and
// the optimizer. Quantities are integer units of product; buffer thresholds
// and rates stay float64.

// Flow declares that a station sends Amount units to the station at Target
// for every unit the target produces. Targets always carry a higher index
// than the declaring station, so the flow graph is acyclic by construction.
type Flow struct {
	Target int
	Amount int
}

// StationDecl is the static, already-parsed declaration of one station.
// Decoding from whatever source format (YAML, database rows) is the caller's
// problem; the declaration only carries validated-shape data.
type StationDecl struct {
	Index          int
	ProcessingTime int
	InitialBuffer  int

	// PastBuffers and PastOrders cover instants -pastHorizon+1 .. 0,
	// stored oldest first. Both must have length pastHorizon.
	PastBuffers []int
	PastOrders  []int

	// DemandForecast is declared only for output stations and must have
	// length planningHorizon. Non-output forecasts are derived.
	DemandForecast []int

	// DemandVariability must be declared for output stations; nil means
	// "not declared". Non-output values are derived and any declared
	// value is rejected.
	DemandVariability *float64

	Flows []Flow
}

// Horizons bundles the time parameters of one planning run.
type Horizons struct {
	Planning int
	Past     int
	Peak     int

	// PeakThreshold scales the spike-detection bar; 1.0 is the neutral
	// value (a forecast instant qualifies as a peak when it reaches
	// (i-t+1) * TOR * PeakThreshold).
	PeakThreshold float64
}

// PastState is one immutable historical record of a station.
type PastState struct {
	Buffer      int
	OrderAmount int
}

// FutureState is one simulated instant of a station. The simulator writes a
// whole record per instant; records are never patched incrementally.
type FutureState struct {
	Demand           int
	QualifiedDemand  int
	Buffer           int
	OnOrderInventory int
	OrderAmount      int
	Replenishment    bool
}

// NetFlow is the record's net flow position: on-hand plus on-order minus
// qualified demand. Replenishment triggers compare it against top-of-yellow.
func (f FutureState) NetFlow() int {
	return f.Buffer + f.OnOrderInventory - f.QualifiedDemand
}
