package telemetry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

func newTestAgent(t *testing.T, id uint64, gen int) *agent.Agent {
	t.Helper()
	a := agent.New(config.Default(), id, agent.Pose{}, rand.New(rand.NewSource(int64(id))))
	a.Generation = gen
	return a
}

func testHallConfig(size int) config.HallOfFameConfig {
	var cfg config.HallOfFameConfig
	cfg.Size = size
	cfg.Entry.MinChildren = 1
	cfg.Entry.MinSurvivalSec = 60
	cfg.Fitness.ChildrenWeight = 10
	cfg.Fitness.SurvivalWeight = 0.1
	return cfg
}

func TestCollectorWindowTicks(t *testing.T) {
	tests := []struct {
		window, dt float64
		want       int32
	}{
		{10, 0.5, 20},
		{1, 2, 1},
		{0, 1, 1},
	}
	for _, tt := range tests {
		c := NewCollector(tt.window, tt.dt, testHallConfig(0))
		if got := c.WindowDurationTicks(); got != tt.want {
			t.Errorf("NewCollector(%v, %v) ticks = %d, want %d", tt.window, tt.dt, got, tt.want)
		}
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10, 0.5, testHallConfig(5))

	if c.ShouldFlush(19) {
		t.Error("flushed before the window ended")
	}
	if !c.ShouldFlush(20) {
		t.Error("did not flush at the window end")
	}

	founder := newTestAgent(t, 1, 0)
	founder.Energy = 10
	founder.TimeAlive = 4
	c.OnSpawn(founder)

	child := newTestAgent(t, 2, 1)
	child.Energy = 30
	child.TimeAlive = 2
	c.OnBirth(child, founder)
	c.OnRefused(founder)

	dead := newTestAgent(t, 3, 0)
	c.OnSpawn(dead)
	dead.TimeAlive = 8
	c.OnDeath(dead)

	stats := c.Flush(20, []*agent.Agent{founder, child}, 42, true)

	if stats.Agents != 2 || stats.Grass != 42 || !stats.Daytime {
		t.Errorf("population fields wrong: %+v", stats)
	}
	if stats.Births != 1 || stats.Deaths != 1 || stats.Refused != 1 || stats.Spawned != 2 {
		t.Errorf("event counters wrong: births=%d deaths=%d refused=%d spawned=%d",
			stats.Births, stats.Deaths, stats.Refused, stats.Spawned)
	}
	if stats.MaxGeneration != 1 || stats.MeanGeneration != 0.5 {
		t.Errorf("generation = %d/%v, want 1/0.5", stats.MaxGeneration, stats.MeanGeneration)
	}
	if stats.ActiveClades != 1 {
		t.Errorf("active clades = %d, want 1", stats.ActiveClades)
	}
	if stats.EnergyMean != 20 || math.Abs(stats.EnergyStd-10) > 1e-9 {
		t.Errorf("energy mean/std = %v/%v, want 20/10", stats.EnergyMean, stats.EnergyStd)
	}
	if stats.AgeMax != 4 || stats.DeathAgeMean != 8 {
		t.Errorf("age max/death age = %v/%v, want 4/8", stats.AgeMax, stats.DeathAgeMean)
	}
	if stats.SimTimeSec != 10 {
		t.Errorf("sim time = %v, want 10", stats.SimTimeSec)
	}

	next := c.Flush(40, nil, 0, false)
	if next.Births != 0 || next.Deaths != 0 || next.DeathAgeMean != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if next.WindowStartTick != 20 {
		t.Errorf("window start = %d, want 20", next.WindowStartTick)
	}
	if births, deaths := c.Totals(); births != 1 || deaths != 1 {
		t.Errorf("totals = %d/%d, want 1/1", births, deaths)
	}
}

func TestCollectorLineage(t *testing.T) {
	c := NewCollector(10, 1, testHallConfig(5))

	root := newTestAgent(t, 1, 0)
	c.OnSpawn(root)
	child := newTestAgent(t, 2, 1)
	c.OnBirth(child, root)
	grandchild := newTestAgent(t, 3, 2)
	c.OnBirth(grandchild, child)

	if got := c.Lifetime().Get(3); got == nil || got.CladeID != 1 || got.ParentID != 2 {
		t.Errorf("grandchild lineage = %+v, want clade 1 parent 2", got)
	}
	if got := c.Lifetime().Get(1).Children; got != 1 {
		t.Errorf("root children = %d, want 1", got)
	}

	c.OnDeath(root)
	if c.Lifetime().Get(1) != nil {
		t.Error("dead agent still tracked")
	}
	if c.HallOfFame().Size() != 1 {
		t.Errorf("hall size = %d, want 1 after a parent died", c.HallOfFame().Size())
	}
}

func TestLifetimeTrackerUnknownParent(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.RegisterChild(5, 99, 3)

	got := lt.Get(5)
	if got == nil || got.CladeID != 99 {
		t.Errorf("orphan clade = %+v, want 99", got)
	}
	if lt.Count() != 1 {
		t.Errorf("count = %d, want 1", lt.Count())
	}
	if lt.Remove(5) == nil || lt.Count() != 0 {
		t.Error("remove did not return and drop the stats")
	}
}

func TestCollectorDrainLineage(t *testing.T) {
	c := NewCollector(10, 1, testHallConfig(5))

	root := newTestAgent(t, 1, 0)
	c.OnSpawn(root)
	child := newTestAgent(t, 2, 1)
	c.OnBirth(child, root)

	c.SetTick(57)
	root.TimeAlive = 12
	c.OnDeath(root)
	c.SetTick(58)
	c.OnDeath(child)
	// never registered; still recorded
	stray := newTestAgent(t, 9, 4)
	c.OnDeath(stray)

	got := c.DrainLineage()
	want := []LineageRecord{
		{Tick: 57, AgentID: 1, ParentID: 0, CladeID: 1, Generation: 0, Children: 1, TimeAlive: 12},
		{Tick: 58, AgentID: 2, ParentID: 1, CladeID: 1, Generation: 1},
		{Tick: 58, AgentID: 9, Generation: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("drained %d records, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.Tick != w.Tick || g.AgentID != w.AgentID || g.ParentID != w.ParentID ||
			g.CladeID != w.CladeID || g.Generation != w.Generation || g.Children != w.Children ||
			g.TimeAlive != w.TimeAlive {
			t.Errorf("record %d = %+v, want %+v", i, g, w)
		}
	}

	if rest := c.DrainLineage(); len(rest) != 0 {
		t.Errorf("second drain returned %d records", len(rest))
	}
}
