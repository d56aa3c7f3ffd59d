package world

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	if a.HexCount() != b.HexCount() {
		t.Fatalf("Hex count mismatch: %d vs %d", a.HexCount(), b.HexCount())
	}
	for _, c := range a.Coords() {
		if a.Get(c).Terrain != b.Get(c).Terrain {
			t.Errorf("Terrain mismatch at %v: %v vs %v", c, a.Get(c).Terrain, b.Get(c).Terrain)
		}
	}
}

func TestGenerateHexCount(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Radius = 3
	m := Generate(cfg)

	// 3R(R+1)+1 hexes in a radius-R hexagon.
	if want := 3*3*4 + 1; m.HexCount() != want {
		t.Errorf("Expected %d hexes, got %d", want, m.HexCount())
	}
}

func TestClearRadiusAndOverrides(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Overrides = map[HexCoord]Terrain{{Q: 1, R: 0}: TerrainForest}
	m := Generate(cfg)

	if got := m.Get(HexCoord{}).Terrain; got != TerrainPlains {
		t.Errorf("Expected cleared origin to be plains, got %v", got)
	}
	if got := m.Get(HexCoord{Q: 1, R: 0}).Terrain; got != TerrainForest {
		t.Errorf("Expected override to forest, got %v", got)
	}
}

func TestDistanceAndNeighbors(t *testing.T) {
	origin := HexCoord{}
	for _, n := range origin.Neighbors() {
		if d := Distance(origin, n); d != 1 {
			t.Errorf("Neighbor %v at distance %d, want 1", n, d)
		}
	}
	if d := Distance(HexCoord{Q: 2, R: -1}, HexCoord{Q: -1, R: 1}); d != 3 {
		t.Errorf("Expected distance 3, got %d", d)
	}
}

func TestParseTerrain(t *testing.T) {
	tr, err := ParseTerrain(" Forest ")
	if err != nil || tr != TerrainForest {
		t.Errorf("ParseTerrain(Forest) = %v, %v", tr, err)
	}
	if _, err := ParseTerrain("lava"); err == nil {
		t.Error("Expected error for unknown terrain")
	}
}

func TestRiversRunDownhill(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Rivers = 3
	m := Generate(cfg)

	for _, c := range m.Coords() {
		hex := m.Get(c)
		if hex.Terrain == TerrainRiver && Distance(c, HexCoord{}) <= cfg.ClearRadius {
			t.Errorf("River carved inside the cleared centre at %v", c)
		}
	}
	if got := len(riverSources(m, 3)); got > 3 {
		t.Errorf("riverSources returned %d, want at most 3", got)
	}
}

func TestRimIsOcean(t *testing.T) {
	m := Generate(DefaultGenConfig())
	// The outermost ring is sunk to zero elevation.
	for _, c := range m.Coords() {
		if Distance(c, HexCoord{}) == m.Radius {
			if x, y := c.center(); x*x+y*y >= float64(m.Radius*m.Radius) && m.Get(c).Terrain != TerrainOcean {
				t.Errorf("Expected ocean on the rim at %v, got %v", c, m.Get(c).Terrain)
			}
		}
	}
}
