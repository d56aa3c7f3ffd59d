package world

import "sort"

// Map is a hexagon-shaped grid of hexes centred on the origin.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"`
	Radius int               `json:"radius"`
}

// NewMap creates an empty map. A map of radius R covers every coordinate
// within hex distance R of the origin.
func NewMap(radius int) *Map {
	return &Map{Hexes: make(map[HexCoord]*Hex), Radius: radius}
}

// Get returns the hex at c, or nil when c is off the map.
func (m *Map) Get(c HexCoord) *Hex { return m.Hexes[c] }

// Set stores hex under its own coordinate.
func (m *Map) Set(hex *Hex) { m.Hexes[hex.Coord] = hex }

// InBounds reports whether c lies within the map radius.
func (m *Map) InBounds(c HexCoord) bool {
	return Distance(c, HexCoord{}) <= m.Radius
}

// HexCount returns how many hexes the map holds.
func (m *Map) HexCount() int { return len(m.Hexes) }

// Coords returns every coordinate on the map in a stable (q, r) order.
func (m *Map) Coords() []HexCoord {
	out := make([]HexCoord, 0, len(m.Hexes))
	for c := range m.Hexes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Q != out[j].Q {
			return out[i].Q < out[j].Q
		}
		return out[i].R < out[j].R
	})
	return out
}
