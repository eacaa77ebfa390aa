// Package telemetry aggregates population statistics over fixed time
// windows and writes them out as CSV.
package telemetry

import (
	"math"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

// Collector accumulates events within time windows and produces WindowStats.
// It implements population.Observer.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	births    int
	deaths    int
	refused   int
	spawned   int
	deathAges []float64

	// Lifetime totals
	totalBirths int
	totalDeaths int

	lifetime *LifetimeTracker
	hall     *HallOfFame

	// Deaths not yet handed out by DrainLineage
	tick    int32
	lineage []LineageRecord
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
// hof: hall of fame parameters for agents that die
func NewCollector(windowDurationSec, dt float64, hof config.HallOfFameConfig) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		lifetime:            NewLifetimeTracker(),
		hall:                NewHallOfFame(hof),
	}
}

// OnBirth records an admitted offspring.
func (c *Collector) OnBirth(child, parent *agent.Agent) {
	c.births++
	c.totalBirths++
	c.lifetime.RegisterChild(child.ID, parent.ID, child.Generation)
}

// OnDeath records a death and the agent's lifespan.
func (c *Collector) OnDeath(a *agent.Agent) {
	c.deaths++
	c.totalDeaths++
	c.deathAges = append(c.deathAges, a.TimeAlive)

	stats := c.lifetime.Remove(a.ID)
	rec := LineageRecord{
		Tick:       c.tick,
		AgentID:    a.ID,
		Generation: a.Generation,
		TimeAlive:  a.TimeAlive,
		Energy:     a.Energy,
		Water:      a.WaterEnergy,
	}
	if stats != nil {
		rec.ParentID = stats.ParentID
		rec.CladeID = stats.CladeID
		rec.Children = stats.Children
	}
	c.lineage = append(c.lineage, rec)

	c.hall.Consider(a, stats)
}

// OnRefused records an offspring request refused at the ceiling.
func (c *Collector) OnRefused(parent *agent.Agent) {
	c.refused++
}

// OnSpawn records a fresh random agent.
func (c *Collector) OnSpawn(a *agent.Agent) {
	c.spawned++
	c.lifetime.RegisterSpawn(a.ID, a.Generation)
}

// SetTick sets the tick stamped on death records.
func (c *Collector) SetTick(tick int32) {
	c.tick = tick
}

// DrainLineage returns the death records since the last call and clears
// the buffer.
func (c *Collector) DrainLineage() []LineageRecord {
	out := c.lineage
	c.lineage = nil
	return out
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the live agents and resets counters for
// the next window.
func (c *Collector) Flush(currentTick int32, agents []*agent.Agent, grass int, daytime bool) WindowStats {
	energies := make([]float64, len(agents))
	water := make([]float64, len(agents))
	ages := make([]float64, len(agents))
	gens := make([]float64, len(agents))
	maxGen := 0
	for i, a := range agents {
		energies[i] = a.Energy
		water[i] = a.WaterEnergy
		ages[i] = a.TimeAlive
		gens[i] = float64(a.Generation)
		if a.Generation > maxGen {
			maxGen = a.Generation
		}
	}

	eMean, eStd, p10, p50, p90 := ComputeEnergyStats(energies)
	ageMax := 0.0
	for _, v := range ages {
		ageMax = math.Max(ageMax, v)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Daytime:         daytime,

		Agents: len(agents),
		Grass:  grass,

		Births:  c.births,
		Deaths:  c.deaths,
		Refused: c.refused,
		Spawned: c.spawned,

		MaxGeneration:  maxGen,
		MeanGeneration: mean(gens),
		ActiveClades:   c.lifetime.ActiveCladeCount(),

		EnergyMean: eMean,
		EnergyStd:  eStd,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,
		WaterMean:  mean(water),

		AgeMean:      mean(ages),
		AgeMax:       ageMax,
		DeathAgeMean: mean(c.deathAges),
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.refused = 0
	c.spawned = 0
	c.deathAges = c.deathAges[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// Totals returns births and deaths since the collector was created.
func (c *Collector) Totals() (births, deaths int) {
	return c.totalBirths, c.totalDeaths
}

// Lifetime returns the per-agent lineage tracker.
func (c *Collector) Lifetime() *LifetimeTracker {
	return c.lifetime
}

// HallOfFame returns the fittest agents that have died so far.
func (c *Collector) HallOfFame() *HallOfFame {
	return c.hall
}
