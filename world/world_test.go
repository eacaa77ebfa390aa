package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

// World and FixedClock are the concrete collaborators agents are wired to.
var (
	_ agent.Environment    = (*World)(nil)
	_ agent.Clock          = FixedClock(0)
	_ agent.DayNightSignal = (*DayNight)(nil)
)

func smallWorldConfig() config.WorldConfig {
	return config.WorldConfig{
		Width:               40,
		Depth:               20,
		MaxHeight:           10,
		HeightmapResolution: 33,
		DetailWidth:         40,
		DetailHeight:        20,
		NoiseScale:          3,
		NoiseOctaves:        3,
	}
}

func TestTerrainHeightRange(t *testing.T) {
	terrain := NewTerrain(smallWorldConfig(), 42)

	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0.0; z < 20; z += 0.37 {
		for x := 0.0; x < 40; x += 0.37 {
			h := terrain.HeightAt(x, z)
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}
	if lo < 0 || hi > 10 {
		t.Errorf("heights span [%v, %v], want inside [0, 10]", lo, hi)
	}
	if hi-lo < 1 {
		t.Errorf("terrain is nearly flat: [%v, %v]", lo, hi)
	}
}

func TestTerrainDeterministicPerSeed(t *testing.T) {
	a := NewTerrain(smallWorldConfig(), 7)
	b := NewTerrain(smallWorldConfig(), 7)
	c := NewTerrain(smallWorldConfig(), 8)

	if a.HeightAt(12.3, 4.5) != b.HeightAt(12.3, 4.5) {
		t.Error("same seed produced different terrain")
	}
	same := true
	for x := 0.0; x < 40; x += 3 {
		if a.HeightAt(x, 7) != c.HeightAt(x, 7) {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical terrain")
	}
}

func TestTerrainWraps(t *testing.T) {
	terrain := NewTerrain(smallWorldConfig(), 42)

	tests := []struct{ x, z float64 }{
		{3.5, 2.25},
		{0, 0},
		{39.9, 19.9},
	}
	for _, tt := range tests {
		h := terrain.HeightAt(tt.x, tt.z)
		if got := terrain.HeightAt(tt.x+40, tt.z-20); math.Abs(got-h) > 1e-9 {
			t.Errorf("HeightAt(%v,%v) = %v, wrapped = %v", tt.x, tt.z, h, got)
		}
	}
}

func TestSlopeNormal(t *testing.T) {
	flat := NewFlatTerrain(smallWorldConfig(), 3)
	n := flat.SlopeNormalAt(5, 5)
	if n.X != 0 || n.Z != 0 || math.Abs(n.Y-1) > 1e-12 {
		t.Errorf("flat normal = %+v, want (0,1,0)", n)
	}

	terrain := NewTerrain(smallWorldConfig(), 42)
	for x := 0.5; x < 40; x += 4.1 {
		n := terrain.SlopeNormalAt(x, 10)
		length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
		if math.Abs(length-1) > 1e-9 {
			t.Errorf("normal at x=%v has length %v", x, length)
		}
		if n.Y <= 0 {
			t.Errorf("normal at x=%v points down: %+v", x, n)
		}
	}
}

func TestResourcesConsume(t *testing.T) {
	r := NewResources(4, 3, config.ResourcesConfig{}, nil)
	r.Set(1, 2, Grass)

	if !r.Present(1, 2) || r.Count() != 1 {
		t.Fatalf("Set did not plant: present=%v count=%d", r.Present(1, 2), r.Count())
	}
	if !r.Consume(1, 2) {
		t.Error("Consume on a grown cell should report true")
	}
	if r.Consume(1, 2) {
		t.Error("second Consume should report false")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
	if r.Present(-1, 0) || r.Present(4, 0) || r.Present(0, 3) {
		t.Error("out of range cells must be empty")
	}
}

func TestGrowAccumulatesFractionalRate(t *testing.T) {
	cfg := config.ResourcesConfig{GrowthRate: 2.5, MaxAttempts: 8, HighAltitude: 100}
	r := NewResources(50, 50, cfg, nil)
	rng := rand.New(rand.NewSource(42))

	// 2.5 per second at dt=0.2 -> one patch every other tick
	total := 0
	for i := 0; i < 10; i++ {
		total += r.Grow(0.2, true, rng)
	}
	if total != 5 {
		t.Errorf("planted %d patches in 2s, want 5", total)
	}
}

func TestGrowDayOnly(t *testing.T) {
	cfg := config.ResourcesConfig{GrowthRate: 10, MaxAttempts: 8, DayOnly: true, HighAltitude: 100}
	r := NewResources(10, 10, cfg, nil)
	rng := rand.New(rand.NewSource(1))

	if n := r.Grow(1, false, rng); n != 0 || r.Count() != 0 {
		t.Errorf("grew %d patches at night", n)
	}
	if n := r.Grow(0.5, true, rng); n != 5 {
		t.Errorf("grew %d patches by day, want 5", n)
	}
}

func TestGrowRespectsAltitudeBand(t *testing.T) {
	wc := smallWorldConfig()
	flat := NewFlatTerrain(wc, 5)
	rng := rand.New(rand.NewSource(3))

	below := NewResources(wc.DetailWidth, wc.DetailHeight,
		config.ResourcesConfig{GrowthRate: 10, LowAltitude: 6, HighAltitude: 9, MaxAttempts: 4}, flat)
	if n := below.Grow(1, true, rng); n != 0 {
		t.Errorf("planted %d patches below the altitude band", n)
	}

	inside := NewResources(wc.DetailWidth, wc.DetailHeight,
		config.ResourcesConfig{GrowthRate: 10, LowAltitude: 4, HighAltitude: 9, MaxAttempts: 4}, flat)
	if n := inside.Grow(1, true, rng); n != 10 {
		t.Errorf("planted %d patches inside the band, want 10", n)
	}
}

func TestPatchClippedAtEdge(t *testing.T) {
	r := NewResources(5, 5, config.ResourcesConfig{PatchRadius: 1}, nil)
	r.plant(0, 0)

	// 3x3 patch at the corner keeps only the in-bounds 2x2
	if r.Count() != 4 {
		t.Errorf("Count = %d, want 4", r.Count())
	}
	if r.Present(4, 4) {
		t.Error("patch wrapped to the opposite corner")
	}
}

func TestSeedCoverage(t *testing.T) {
	r := NewResources(100, 100, config.ResourcesConfig{MaxAttempts: 4}, nil)
	r.Seed(0.1, rand.New(rand.NewSource(42)))

	// duplicates land on the same cell, so the count is at most the target
	if r.Count() == 0 || r.Count() > 1000 {
		t.Errorf("Count = %d, want (0, 1000]", r.Count())
	}

	r.Clear()
	if r.Count() != 0 {
		t.Errorf("Count after Clear = %d", r.Count())
	}
}

func TestDayNightCycle(t *testing.T) {
	dn := NewDayNight(config.DayNightConfig{DayDuration: 1, NightDuration: 0.5, TimeStep: 0.25})

	if !dn.IsDaytime() || dn.CyclePhase() != 0 {
		t.Fatal("cycle should start at the beginning of a day")
	}
	dn.Advance()
	if dn.CyclePhase() != 0.25 {
		t.Errorf("phase = %v, want 0.25", dn.CyclePhase())
	}
	dn.Advance()
	dn.Advance()
	if switched := dn.Advance(); !switched || dn.IsDaytime() {
		t.Fatal("fourth step should switch to night")
	}
	dn.Advance()
	if dn.CyclePhase() != 0.5 {
		t.Errorf("night phase = %v, want 0.5", dn.CyclePhase())
	}
	if switched := dn.Advance(); !switched || !dn.IsDaytime() {
		t.Error("night should end after 0.5")
	}
}

func TestGridMappingRoundTrip(t *testing.T) {
	cfg := config.Default().Clone()
	cfg.World = smallWorldConfig()
	cfg.World.DetailWidth = 80
	cfg.World.DetailHeight = 10
	cfg.Recompute()
	w := New(cfg, 1)

	gx, gy := w.WorldToGrid(10, 5)
	if gx != 20 || gy != 2.5 {
		t.Errorf("WorldToGrid(10,5) = (%v,%v), want (20,2.5)", gx, gy)
	}
	x, z := w.GridToWorld(gx, gy)
	if math.Abs(x-10) > 1e-12 || math.Abs(z-5) > 1e-12 {
		t.Errorf("GridToWorld round trip = (%v,%v)", x, z)
	}

	wx, wz := w.Wrap(-1, 21)
	if wx != 39 || wz != 1 {
		t.Errorf("Wrap(-1,21) = (%v,%v), want (39,1)", wx, wz)
	}
	if !w.Contains(wx, wz) || w.Contains(40, 0) {
		t.Error("Contains disagrees with bounds")
	}
}
