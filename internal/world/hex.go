// Package world provides the hex grid and terrain the settlement is built on.
// Uses axial coordinates (q, r) for the hex grid.
package world

import (
	"fmt"
	"strings"
)

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

func (h HexCoord) String() string {
	return fmt.Sprintf("(%d,%d)", h.Q, h.R)
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Open land, buildable
	TerrainForest                  // Timber
	TerrainMountain                // Stone and ore
	TerrainCoast                   // Fishing
	TerrainRiver                   // Freshwater
	TerrainDesert
	TerrainSwamp
	TerrainTundra
	TerrainOcean // Not buildable
)

var terrainNames = [...]string{
	TerrainPlains:   "plains",
	TerrainForest:   "forest",
	TerrainMountain: "mountain",
	TerrainCoast:    "coast",
	TerrainRiver:    "river",
	TerrainDesert:   "desert",
	TerrainSwamp:    "swamp",
	TerrainTundra:   "tundra",
	TerrainOcean:    "ocean",
}

func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return "unknown"
}

// ParseTerrain resolves a terrain name as written in configuration.
func ParseTerrain(name string) (Terrain, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range terrainNames {
		if s == n {
			return Terrain(i), nil
		}
	}
	return 0, fmt.Errorf("world: unknown terrain %q", name)
}

// Buildable reports whether structures may be placed on the terrain.
func (t Terrain) Buildable() bool {
	return t != TerrainOcean
}

// Hex is one tile of the settlement map.
type Hex struct {
	Coord     HexCoord `json:"coord"`
	Terrain   Terrain  `json:"terrain"`
	Elevation float64  `json:"elevation"` // 0 at the shore, 1 at the peak
	Moisture  float64  `json:"moisture"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates in direction order.
func (h HexCoord) Neighbors() (out [6]HexCoord) {
	for i, d := range HexNeighborDirections {
		out[i] = HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
	}
	return out
}

// Distance is the number of steps between a and b on the grid.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
