package catalog

import "github.com/destiny-opt/destiny-gear-optimizer/internal/gear"

// #region default
// Default returns the built-in season catalog: soft cap 1050, hard cap 1060,
// three weekly reward tiers and four raid encounters.
func Default() *gear.Configuration {
	const e = 1.0 / gear.NumSlots
	any8 := [gear.NumSlots]float64{e, e, e, e, e, e, e, e}
	armor := [gear.NumSlots]float64{0, 0, 0, 0.2, 0.2, 0.2, 0.2, 0.2}
	raid1 := [gear.NumSlots]float64{1.0 / 3, 1.0 / 3, 0, 0, 0, 0, 1.0 / 3, 0}
	raid2 := [gear.NumSlots]float64{0, 0.5, 0, 0, 0.5, 0, 0, 0}
	raid3 := [gear.NumSlots]float64{1.0 / 3, 1.0 / 3, 0, 0, 0, 1.0 / 3, 0, 0}
	raid4 := [gear.NumSlots]float64{0, 0.5, 0, 0, 0.5, 0, 0, 0}

	return &gear.Configuration{
		PowerfulStart: 1040,
		PowerfulCap:   1050,
		PinnacleCap:   1060,
		Actions: []gear.ActionSpec{
			{Name: "weekly pinnacle +1", PowerfulGain: 5, PinnacleGain: 1, Arity: 4, PMF: any8},
			{Name: "weekly pinnacle +2", PowerfulGain: 5, PinnacleGain: 2, Arity: 3, PMF: any8},
			{Name: "armor pinnacle", PowerfulGain: 5, PinnacleGain: 2, Arity: 2, PMF: armor},
			{Name: "raid encounter 1", PowerfulGain: 5, PinnacleGain: 2, Arity: 1, PMF: raid1},
			{Name: "raid encounter 2", PowerfulGain: 5, PinnacleGain: 2, Arity: 1, PMF: raid2},
			{Name: "raid encounter 3", PowerfulGain: 5, PinnacleGain: 2, Arity: 2, PMF: raid3},
			{Name: "raid encounter 4", PowerfulGain: 5, PinnacleGain: 2, Arity: 1, PMF: raid4},
		},
	}
}

// #endregion default
