package agent

import "gonum.org/v1/gonum/spatial/r3"

// Environment is the terrain and resource grid an agent lives on.
// World coordinates are (x, z) on the ground plane with y up; grid cells are
// (cx, cy) into the resource detail map.
type Environment interface {
	HeightAt(x, z float64) float64
	SlopeNormalAt(x, z float64) r3.Vec
	ResourcePresent(cx, cy int) bool
	ConsumeResource(cx, cy int)
	WorldToGrid(x, z float64) (gx, gy float64)
	GridToWorld(gx, gy float64) (x, z float64)
	GridSize() (w, h int)
	Size() (width, depth float64)
}

// Clock reports simulated time per tick.
type Clock interface {
	DeltaTime() float64
}

// DayNightSignal exposes the environmental cycle.
type DayNightSignal interface {
	IsDaytime() bool
	CyclePhase() float64
}

// Population is the part of the population manager an agent talks to.
type Population interface {
	// RequestOffspring asks for a child of parent. False means the
	// population is full and nothing changed.
	RequestOffspring(parent *Agent) bool
	// Remove takes the agent out of the live set.
	Remove(a *Agent)
}

// Habitat bundles the collaborators an agent reads during its tick.
type Habitat struct {
	Env      Environment
	Clock    Clock
	DayNight DayNightSignal
}
