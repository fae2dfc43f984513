// Package protocol defines the per-turn messages exchanged with the host
// simulation after decoding from (and before encoding to) its wire format.
package protocol

import "github.com/elektrokombinacija/relic-fleet/internal/core"

// Observation is one turn of partial map information. Grids are indexed
// [x][y]; relic and unit coordinates are [x, y] pairs.
type Observation struct {
	Steps          int         `json:"steps"`
	MatchSteps     int         `json:"match_steps"`
	SensorMask     [][]bool    `json:"sensor_mask"`
	MapFeatures    MapFeatures `json:"map_features"`
	RelicNodesMask []bool      `json:"relic_nodes_mask"`
	RelicNodes     [][2]int    `json:"relic_nodes"`
	UnitsMask      [][]bool    `json:"units_mask"`
	Units          Units       `json:"units"`
	TeamPoints     []int       `json:"team_points"`
}

// MapFeatures holds the per-cell readings; values are meaningful only
// where SensorMask is true.
type MapFeatures struct {
	Energy   [][]int `json:"energy"`
	TileType [][]int `json:"tile_type"`
}

// Units holds per-team, per-slot unit state.
type Units struct {
	Position [][][2]int `json:"position"`
	Energy   [][]int    `json:"energy"`
}

// Visible reports whether p is inside the sensor mask.
func (o *Observation) Visible(p core.Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < len(o.SensorMask) && p.Y < len(o.SensorMask[p.X]) && o.SensorMask[p.X][p.Y]
}

// TileAt returns the observed tile type at p.
func (o *Observation) TileAt(p core.Pos) core.TileType {
	return core.TileType(o.MapFeatures.TileType[p.X][p.Y])
}

// EnergyAt returns the observed tile energy at p.
func (o *Observation) EnergyAt(p core.Pos) int {
	return o.MapFeatures.Energy[p.X][p.Y]
}

// Relics returns the relic coordinates reported this turn.
func (o *Observation) Relics() []core.Pos {
	var out []core.Pos
	for i, ok := range o.RelicNodesMask {
		if ok && i < len(o.RelicNodes) {
			out = append(out, core.Pos{X: o.RelicNodes[i][0], Y: o.RelicNodes[i][1]})
		}
	}
	return out
}

// UnitSlot is one live unit of a team as reported by the host.
type UnitSlot struct {
	ID     core.UnitID
	Pos    core.Pos
	Energy int
}

// TeamUnits returns the live units of a team in slot order.
func (o *Observation) TeamUnits(team int) []UnitSlot {
	if team >= len(o.UnitsMask) {
		return nil
	}
	var out []UnitSlot
	for i, alive := range o.UnitsMask[team] {
		if !alive {
			continue
		}
		slot := UnitSlot{ID: core.UnitID(i)}
		if team < len(o.Units.Position) && i < len(o.Units.Position[team]) {
			p := o.Units.Position[team][i]
			slot.Pos = core.Pos{X: p[0], Y: p[1]}
		}
		if team < len(o.Units.Energy) && i < len(o.Units.Energy[team]) {
			slot.Energy = o.Units.Energy[team][i]
		}
		out = append(out, slot)
	}
	return out
}

// Points returns the cumulative score of a team.
func (o *Observation) Points(team int) int {
	if team >= len(o.TeamPoints) {
		return 0
	}
	return o.TeamPoints[team]
}

// ActionRecord is the per-unit output: action type, then the sap offset.
type ActionRecord [3]int
