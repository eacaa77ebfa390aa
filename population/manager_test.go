package population

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/world"
)

type countingObserver struct {
	births, deaths, refused, spawns int
}

func (o *countingObserver) OnBirth(child, parent *agent.Agent) { o.births++ }
func (o *countingObserver) OnDeath(a *agent.Agent)             { o.deaths++ }
func (o *countingObserver) OnRefused(parent *agent.Agent)      { o.refused++ }
func (o *countingObserver) OnSpawn(a *agent.Agent)             { o.spawns++ }

func testConfig(t *testing.T, modify func(c *config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default().Clone()
	cfg.World.Width = 20
	cfg.World.Depth = 20
	cfg.World.DetailWidth = 20
	cfg.World.DetailHeight = 20
	cfg.Population.PopSize = 5
	cfg.Population.MaxAnimals = 10
	if modify != nil {
		modify(cfg)
	}
	cfg.Recompute()
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config, obs Observer) (*Manager, *world.World) {
	t.Helper()
	terrain := world.NewFlatTerrain(cfg.World, 5)
	w := &world.World{
		Terrain:   terrain,
		Resources: world.NewResources(cfg.World.DetailWidth, cfg.World.DetailHeight, cfg.Resources, terrain),
	}
	h := agent.Habitat{
		Env:      w,
		Clock:    world.FixedClock(cfg.Physics.DT),
		DayNight: world.NewDayNight(cfg.DayNight),
	}
	return New(cfg, h, terrain, rand.New(rand.NewSource(42)), obs), w
}

func fillGrid(w *world.World) {
	gw, gh := w.GridSize()
	for y := 0; y < gh; y++ {
		for x := 0; x < gw; x++ {
			w.Resources.Set(x, y, world.Grass)
		}
	}
}

func TestInitialize(t *testing.T) {
	cfg := testConfig(t, nil)
	obs := &countingObserver{}
	m, _ := newTestManager(t, cfg, obs)

	if err := m.Initialize(5); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if m.Count() != 5 {
		t.Errorf("Count = %d, want 5", m.Count())
	}
	if obs.spawns != 5 {
		t.Errorf("observer saw %d spawns, want 5", obs.spawns)
	}

	width, depth := 20.0, 20.0
	for _, a := range m.Agents() {
		if a.Pose.X < 0 || a.Pose.X >= width || a.Pose.Z < 0 || a.Pose.Z >= depth {
			t.Errorf("agent placed outside terrain: %+v", a.Pose)
		}
		if a.Pose.Y != 5 {
			t.Errorf("agent Y = %v, want terrain height 5", a.Pose.Y)
		}
		if a.Generation != 0 {
			t.Errorf("fresh agent generation = %d", a.Generation)
		}
	}
}

func TestInitializeRejectsTargetAboveCeiling(t *testing.T) {
	cfg := testConfig(t, nil)
	m, _ := newTestManager(t, cfg, nil)

	if err := m.Initialize(11); err == nil {
		t.Fatal("expected error for target above max_animals")
	}
	if m.Count() != 0 {
		t.Errorf("rejected Initialize created %d agents", m.Count())
	}
}

func TestRequestOffspringAtCeiling(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Population.PopSize = 3
		c.Population.MaxAnimals = 3
	})
	obs := &countingObserver{}
	m, _ := newTestManager(t, cfg, obs)
	if err := m.Initialize(3); err != nil {
		t.Fatal(err)
	}

	parent := m.Agents()[0]
	energy := parent.Energy
	if m.RequestOffspring(parent) {
		t.Fatal("offspring admitted at the ceiling")
	}
	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
	if parent.Energy != energy {
		t.Errorf("parent energy changed to %v", parent.Energy)
	}
	if _, _, refused, _ := m.Counters(); refused != 1 || obs.refused != 1 {
		t.Errorf("refused = %d (observer %d), want 1", refused, obs.refused)
	}
}

func TestRequestOffspringBelowCeiling(t *testing.T) {
	cfg := testConfig(t, nil)
	obs := &countingObserver{}
	m, _ := newTestManager(t, cfg, obs)
	if err := m.Initialize(2); err != nil {
		t.Fatal(err)
	}

	parent := m.Agents()[0]
	parent.Generation = 3
	if !m.RequestOffspring(parent) {
		t.Fatal("offspring refused below the ceiling")
	}
	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
	if m.MaxGeneration() != 4 {
		t.Errorf("MaxGeneration = %d, want 4", m.MaxGeneration())
	}
	if obs.births != 1 {
		t.Errorf("observer saw %d births, want 1", obs.births)
	}
}

func TestExtinctionAndRepopulation(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Population.PopSize = 1
		c.Energy.LossEnergy = 0.1
	})
	m, _ := newTestManager(t, cfg, nil)
	if err := m.Initialize(1); err != nil {
		t.Fatal(err)
	}

	only := m.Agents()[0]
	only.Energy = 0.05

	m.Update()
	if only.Energy != 0 {
		t.Errorf("Energy = %v, want 0", only.Energy)
	}
	if m.Count() != 0 {
		t.Fatalf("Count after death = %d, want 0", m.Count())
	}
	if len(m.Agents()) != 0 {
		t.Fatal("dead agent still in the live set")
	}

	m.Tick()
	if m.Count() != 1 {
		t.Errorf("Count after Tick = %d, want 1", m.Count())
	}
	if m.Extinctions() != 1 {
		t.Errorf("Extinctions = %d, want 1", m.Extinctions())
	}
	if m.Agents()[0] == only {
		t.Error("repopulation reused the dead agent")
	}
}

func TestRemovalDuringSweepSkipsNobody(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Population.PopSize = 8
		c.Energy.LossEnergy = 0.1
	})
	obs := &countingObserver{}
	m, _ := newTestManager(t, cfg, obs)
	if err := m.Initialize(8); err != nil {
		t.Fatal(err)
	}

	agents := m.Agents()
	for i, a := range agents {
		if i%2 == 0 {
			a.Energy = 0.05
		}
	}

	m.Update()

	if m.Count() != 4 {
		t.Errorf("Count = %d, want 4", m.Count())
	}
	if obs.deaths != 4 {
		t.Errorf("deaths = %d, want 4", obs.deaths)
	}
	for i, a := range agents {
		if i%2 == 1 && a.TimeAlive != cfg.Physics.DT {
			t.Errorf("survivor %d ticked %v seconds, want exactly one tick", i, a.TimeAlive)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	cfg := testConfig(t, nil)
	obs := &countingObserver{}
	m, _ := newTestManager(t, cfg, obs)
	if err := m.Initialize(3); err != nil {
		t.Fatal(err)
	}

	a := m.Agents()[1]
	m.Remove(a)
	m.Remove(a)
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
	if obs.deaths != 1 {
		t.Errorf("deaths = %d, want 1", obs.deaths)
	}

	stranger := agent.New(cfg, 999, agent.Pose{}, rand.New(rand.NewSource(1)))
	m.Remove(stranger)
	if m.Count() != 2 {
		t.Errorf("removing an unknown agent changed Count to %d", m.Count())
	}
}

func TestPopulationBoundHolds(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Population.PopSize = 5
		c.Population.MaxAnimals = 12
		c.Energy.SpawnChance = 1
		c.Energy.SpawnEnergyRequired = 1
		c.Energy.LossEnergy = 1
	})
	m, w := newTestManager(t, cfg, nil)
	if err := m.Initialize(5); err != nil {
		t.Fatal(err)
	}

	for tick := 0; tick < 60; tick++ {
		if tick%3 == 0 {
			fillGrid(w)
		}
		m.Update()
		m.Tick()

		n := m.Count()
		if n < cfg.Population.PopSize || n > cfg.Population.MaxAnimals {
			t.Fatalf("tick %d: count %d outside [%d, %d]", tick, n, cfg.Population.PopSize, cfg.Population.MaxAnimals)
		}
		if got := len(m.Agents()); got != n {
			t.Fatalf("tick %d: Count %d disagrees with live agents %d", tick, n, got)
		}
	}

	births, _, refused, _ := m.Counters()
	if births == 0 {
		t.Error("no offspring were admitted")
	}
	if refused == 0 {
		t.Error("the ceiling never refused an offspring")
	}
}

func TestOldest(t *testing.T) {
	cfg := testConfig(t, nil)
	m, _ := newTestManager(t, cfg, nil)
	if m.Oldest() != nil {
		t.Error("Oldest on an empty population should be nil")
	}
	if err := m.Initialize(3); err != nil {
		t.Fatal(err)
	}
	agents := m.Agents()
	agents[2].TimeAlive = 10
	if m.Oldest() != agents[2] {
		t.Error("Oldest did not pick the longest-lived agent")
	}
}
