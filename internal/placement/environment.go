// Package placement answers the spatial questions the scheduler asks about
// buildings: road access, terrain adjacency, service coverage and noise.
package placement

import (
	"fmt"
	"sort"

	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

// NoiseRadius is how far a noisy producer disturbs houses.
const NoiseRadius = 1

// Environment holds the map, the road set and which hex each building uses.
type Environment struct {
	Map      *world.Map
	roads    map[world.HexCoord]bool
	occupied map[world.HexCoord]entity.ID
}

// NewEnvironment wraps a generated map with no roads and no buildings.
func NewEnvironment(m *world.Map) *Environment {
	return &Environment{
		Map:      m,
		roads:    make(map[world.HexCoord]bool),
		occupied: make(map[world.HexCoord]entity.ID),
	}
}

// AddRoad lays a road on a buildable, in-bounds hex.
func (e *Environment) AddRoad(c world.HexCoord) error {
	hex := e.Map.Get(c)
	if hex == nil {
		return fmt.Errorf("road at %s: out of bounds", c)
	}
	if !hex.Terrain.Buildable() {
		return fmt.Errorf("road at %s: %s is not buildable", c, hex.Terrain)
	}
	e.roads[c] = true
	return nil
}

// RemoveRoad deletes a road segment. Missing segments are ignored.
func (e *Environment) RemoveRoad(c world.HexCoord) {
	delete(e.roads, c)
}

// HasRoad reports whether a road runs through c.
func (e *Environment) HasRoad(c world.HexCoord) bool {
	return e.roads[c]
}

// Roads returns every road hex in (q, r) order.
func (e *Environment) Roads() []world.HexCoord {
	out := make([]world.HexCoord, 0, len(e.roads))
	for c := range e.roads {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// LayLine lays a straight road of length hexes from start along one of the
// six neighbor directions. Unbuildable or off-map hexes are skipped.
func (e *Environment) LayLine(start world.HexCoord, dir, length int) int {
	d := world.HexNeighborDirections[((dir%6)+6)%6]
	laid := 0
	c := start
	for i := 0; i < length; i++ {
		if e.AddRoad(c) == nil {
			laid++
		}
		c = world.HexCoord{Q: c.Q + d.Q, R: c.R + d.R}
	}
	return laid
}

// HasRoadAccess reports whether c is on or next to a road.
func (e *Environment) HasRoadAccess(c world.HexCoord) bool {
	if e.roads[c] {
		return true
	}
	for _, n := range c.Neighbors() {
		if e.roads[n] {
			return true
		}
	}
	return false
}

// IsNear reports whether c or one of its neighbors has any of the terrains.
// An empty list is always satisfied.
func (e *Environment) IsNear(c world.HexCoord, terrains []world.Terrain) bool {
	if len(terrains) == 0 {
		return true
	}
	check := func(at world.HexCoord) bool {
		hex := e.Map.Get(at)
		if hex == nil {
			return false
		}
		for _, t := range terrains {
			if hex.Terrain == t {
				return true
			}
		}
		return false
	}
	if check(c) {
		return true
	}
	for _, n := range c.Neighbors() {
		if check(n) {
			return true
		}
	}
	return false
}

// IsEligible reports whether a building's site satisfies its road and
// terrain prerequisites.
func (e *Environment) IsEligible(b entity.Building) bool {
	site := b.Site()
	hex := e.Map.Get(site)
	if hex == nil || !hex.Terrain.Buildable() {
		return false
	}
	if b.NeedsRoad() && !e.HasRoadAccess(site) {
		return false
	}
	return e.IsNear(site, b.NearTerrain())
}

// CheckSite reports why a building cannot go on c, or nil if it can.
func (e *Environment) CheckSite(c world.HexCoord) error {
	if e.Map.Get(c) == nil {
		return fmt.Errorf("site %s: out of bounds", c)
	}
	if e.roads[c] {
		return fmt.Errorf("site %s: road in the way", c)
	}
	if other, ok := e.occupied[c]; ok {
		return fmt.Errorf("site %s: occupied by #%d", c, other)
	}
	return nil
}

// Occupy claims a hex for a building. Roads and other buildings block it.
func (e *Environment) Occupy(c world.HexCoord, id entity.ID) error {
	if err := e.CheckSite(c); err != nil {
		return err
	}
	e.occupied[c] = id
	return nil
}

// Vacate frees a hex if id still holds it.
func (e *Environment) Vacate(c world.HexCoord, id entity.ID) {
	if e.occupied[c] == id {
		delete(e.occupied, c)
	}
}

// OccupiedBy returns the building on c, if any.
func (e *Environment) OccupiedBy(c world.HexCoord) (entity.ID, bool) {
	id, ok := e.occupied[c]
	return id, ok
}

func sortCoords(cs []world.HexCoord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Q != cs[j].Q {
			return cs[i].Q < cs[j].Q
		}
		return cs[i].R < cs[j].R
	})
}
