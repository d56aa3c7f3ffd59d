package world

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Radius      int     // Hex grid radius
	Seed        int64   // Noise seed
	SeaLevel    float64 // Elevation below this is ocean (0.0–1.0)
	MountainLvl float64 // Elevation above this is mountain (0.0–1.0)
	ClearRadius int     // Hexes within this distance of the origin are plains
	Rivers      int     // Upper bound on traced rivers

	// Overrides pins terrain on specific hexes after generation.
	Overrides map[HexCoord]Terrain
}

// DefaultGenConfig returns a village-sized map.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      8,
		Seed:        42,
		SeaLevel:    0.22,
		MountainLvl: 0.75,
		ClearRadius: 2,
		Rivers:      2,
	}
}

// Generate creates a map with terrain. The same config always yields the
// same map.
func Generate(cfg GenConfig) *Map {
	elevation := opensimplex.NewNormalized(cfg.Seed)
	moisture := opensimplex.NewNormalized(cfg.Seed + 1)

	m := NewMap(cfg.Radius)
	span := math.Max(float64(cfg.Radius), 1)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			c := HexCoord{Q: q, R: r}
			if !m.InBounds(c) {
				continue
			}
			x, y := c.center()

			elev := fractal(elevation, x, y, 4, 0.15)
			wet := fractal(moisture, x, y, 3, 0.12)

			// Sink the rim so the village sits on an island.
			rim := math.Hypot(x, y) / span
			elev *= math.Max(0, 1-math.Pow(rim, 3.5))

			t := classify(elev, wet, cfg)
			if Distance(c, HexCoord{}) <= cfg.ClearRadius {
				t = TerrainPlains
			}
			m.Set(&Hex{Coord: c, Terrain: t, Elevation: elev, Moisture: wet})
		}
	}

	shoreline(m)
	for _, src := range riverSources(m, cfg.Rivers) {
		carveRiver(m, src, cfg.ClearRadius)
	}

	for c, t := range cfg.Overrides {
		if hex := m.Get(c); hex != nil {
			hex.Terrain = t
		}
	}
	return m
}

// center converts axial coordinates to cartesian for noise sampling.
func (h HexCoord) center() (x, y float64) {
	return float64(h.Q) + float64(h.R)*0.5, float64(h.R) * math.Sqrt(3) / 2
}

func classify(elev, wet float64, cfg GenConfig) Terrain {
	switch {
	case elev < cfg.SeaLevel:
		return TerrainOcean
	case elev > cfg.MountainLvl:
		return TerrainMountain
	case elev > 0.65 && wet < 0.35:
		return TerrainTundra
	case wet < 0.2:
		return TerrainDesert
	case wet > 0.7 && elev < 0.4:
		return TerrainSwamp
	case wet > 0.45 && elev > 0.4:
		return TerrainForest
	}
	return TerrainPlains
}

// shoreline turns low plains and forest touching the ocean into coast.
func shoreline(m *Map) {
	var coast []HexCoord
	for _, c := range m.Coords() {
		hex := m.Get(c)
		if (hex.Terrain != TerrainPlains && hex.Terrain != TerrainForest) || hex.Elevation >= 0.5 {
			continue
		}
		for _, n := range c.Neighbors() {
			if nh := m.Get(n); nh != nil && nh.Terrain == TerrainOcean {
				coast = append(coast, c)
				break
			}
		}
	}
	for _, c := range coast {
		m.Get(c).Terrain = TerrainCoast
	}
}

// riverSources picks the highest non-mountain land hexes, at most n of them
// and never two adjacent.
func riverSources(m *Map, n int) []HexCoord {
	var candidates []HexCoord
	for _, c := range m.Coords() {
		hex := m.Get(c)
		if hex.Elevation > 0.55 && hex.Terrain != TerrainOcean && hex.Terrain != TerrainMountain {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return m.Get(candidates[i]).Elevation > m.Get(candidates[j]).Elevation
	})

	var out []HexCoord
	for _, c := range candidates {
		if len(out) >= n {
			break
		}
		apart := true
		for _, s := range out {
			if Distance(s, c) <= 2 {
				apart = false
				break
			}
		}
		if apart {
			out = append(out, c)
		}
	}
	return out
}

// carveRiver walks downhill from src until it reaches the sea or a pit.
// The cleared village centre and coastline are left untouched.
func carveRiver(m *Map, src HexCoord, clearRadius int) {
	seen := make(map[HexCoord]bool)
	at := src
	for {
		seen[at] = true
		hex := m.Get(at)
		if hex.Terrain == TerrainOcean {
			return
		}
		if hex.Terrain != TerrainCoast && Distance(at, HexCoord{}) > clearRadius {
			hex.Terrain = TerrainRiver
		}

		next, low := at, hex.Elevation
		for _, n := range at.Neighbors() {
			if nh := m.Get(n); nh != nil && !seen[n] && nh.Elevation < low {
				next, low = n, nh.Elevation
			}
		}
		if next == at {
			return
		}
		at = next
	}
}

// fractal sums octaves of noise, halving amplitude and doubling frequency.
func fractal(noise opensimplex.Noise, x, y float64, octaves int, freq float64) float64 {
	sum, amp, norm := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		sum += noise.Eval2(x*freq, y*freq) * amp
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}
