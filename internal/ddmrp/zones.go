package ddmrp

// Zones are the three ascending DDMRP buffer thresholds of a station.
type Zones struct {
	TOR float64 // top of red
	TOY float64 // top of yellow
	TOG float64 // top of green
}

// Zones computes station s's buffer thresholds from the finalized
// propagation scalars:
//
//	TOR = LT * AD * (LTF + LTF*DV)
//	TOY = TOR + LT * AD
//	TOG = TOY + LT * AD * LTF
func (p *Propagation) Zones(s int) Zones {
	lt := float64(p.leadTime[s])
	ad := p.avgDemand[s]
	ltf := p.leadTimeFactor[s]
	dv := p.variability[s]

	tor := lt * ad * (ltf + ltf*dv)
	toy := tor + lt*ad
	tog := toy + lt*ad*ltf
	return Zones{TOR: tor, TOY: toy, TOG: tog}
}
