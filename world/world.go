package world

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/forage/config"
)

// FixedClock reports a constant time step.
type FixedClock float64

// DeltaTime implements agent.Clock.
func (c FixedClock) DeltaTime() float64 { return float64(c) }

// World joins terrain and resources into the environment agents sense and
// forage in.
type World struct {
	Terrain   *Terrain
	Resources *Resources
}

// New builds a world from config with a noise terrain generated from seed.
// The resource grid starts empty.
func New(cfg *config.Config, seed int64) *World {
	terrain := NewTerrain(cfg.World, seed)
	return &World{
		Terrain:   terrain,
		Resources: NewResources(cfg.World.DetailWidth, cfg.World.DetailHeight, cfg.Resources, terrain),
	}
}

// HeightAt returns terrain height at world (x, z).
func (w *World) HeightAt(x, z float64) float64 {
	return w.Terrain.HeightAt(x, z)
}

// SlopeNormalAt returns the terrain normal at world (x, z).
func (w *World) SlopeNormalAt(x, z float64) r3.Vec {
	return w.Terrain.SlopeNormalAt(x, z)
}

// ResourcePresent reports whether the detail cell holds a resource.
func (w *World) ResourcePresent(cx, cy int) bool {
	return w.Resources.Present(cx, cy)
}

// ConsumeResource clears a detail cell.
func (w *World) ConsumeResource(cx, cy int) {
	w.Resources.Consume(cx, cy)
}

// WorldToGrid maps world (x, z) to fractional detail grid coordinates.
func (w *World) WorldToGrid(x, z float64) (float64, float64) {
	width, depth := w.Terrain.Size()
	gw, gh := w.Resources.Size()
	return x / width * float64(gw), z / depth * float64(gh)
}

// GridToWorld maps fractional grid coordinates back to world (x, z).
func (w *World) GridToWorld(gx, gy float64) (float64, float64) {
	width, depth := w.Terrain.Size()
	gw, gh := w.Resources.Size()
	return gx / float64(gw) * width, gy / float64(gh) * depth
}

// GridSize returns the detail grid dimensions.
func (w *World) GridSize() (int, int) {
	return w.Resources.Size()
}

// Size returns the world extent along x and z.
func (w *World) Size() (float64, float64) {
	return w.Terrain.Size()
}

// Wrap folds a world position back inside the terrain bounds.
func (w *World) Wrap(x, z float64) (float64, float64) {
	width, depth := w.Terrain.Size()
	return wrap(x, width), wrap(z, depth)
}

// Contains reports whether (x, z) lies inside the terrain bounds.
func (w *World) Contains(x, z float64) bool {
	width, depth := w.Terrain.Size()
	return x >= 0 && x < width && z >= 0 && z < depth && !math.IsNaN(x) && !math.IsNaN(z)
}
