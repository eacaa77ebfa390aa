package world

import (
	"math/rand"

	"github.com/pthm-cable/forage/config"
)

// Grass is the detail value written into a grown cell.
const Grass uint8 = 2

// Resources is the vegetation detail grid. A cell is present when its value
// is non-zero. Cell (cx, cy) covers world x in [cx, cx+1)*width/w and world z
// in [cy, cy+1)*depth/h.
type Resources struct {
	w, h  int
	cells []uint8
	count int

	cfg     config.ResourcesConfig
	terrain *Terrain
	growth  float64 // Fractional patches carried between ticks
}

// NewResources creates an empty w x h grid over terrain.
func NewResources(w, h int, cfg config.ResourcesConfig, terrain *Terrain) *Resources {
	return &Resources{
		w:       w,
		h:       h,
		cells:   make([]uint8, w*h),
		cfg:     cfg,
		terrain: terrain,
	}
}

// Size returns the grid dimensions.
func (r *Resources) Size() (w, h int) {
	return r.w, r.h
}

// Present reports whether cell (cx, cy) holds a resource. Out of range cells
// are empty.
func (r *Resources) Present(cx, cy int) bool {
	if cx < 0 || cx >= r.w || cy < 0 || cy >= r.h {
		return false
	}
	return r.cells[cy*r.w+cx] > 0
}

// Consume clears cell (cx, cy) and reports whether anything was there.
func (r *Resources) Consume(cx, cy int) bool {
	if !r.Present(cx, cy) {
		return false
	}
	r.cells[cy*r.w+cx] = 0
	r.count--
	return true
}

// Set writes a detail value into a cell.
func (r *Resources) Set(cx, cy int, v uint8) {
	if cx < 0 || cx >= r.w || cy < 0 || cy >= r.h {
		return
	}
	i := cy*r.w + cx
	if r.cells[i] == 0 && v > 0 {
		r.count++
	} else if r.cells[i] > 0 && v == 0 {
		r.count--
	}
	r.cells[i] = v
}

// Count returns the number of non-empty cells.
func (r *Resources) Count() int {
	return r.count
}

// Cells returns the raw detail grid, row-major by cy. Callers must not
// modify it.
func (r *Resources) Cells() []uint8 {
	return r.cells
}

// Clear empties the grid.
func (r *Resources) Clear() {
	clear(r.cells)
	r.count = 0
	r.growth = 0
}

// Seed fills roughly coverage * w * h eligible cells.
func (r *Resources) Seed(coverage float64, rng *rand.Rand) {
	n := int(coverage * float64(r.w*r.h))
	for i := 0; i < n; i++ {
		if cx, cy, ok := r.pickEligible(rng); ok {
			r.Set(cx, cy, Grass)
		}
	}
}

// Grow runs the growth policy for one tick and returns the number of
// patches planted. growth_rate*dt accumulates; each whole unit plants one
// patch on a random cell whose terrain height lies inside the altitude
// band. With day_only set nothing grows at night.
func (r *Resources) Grow(dt float64, daytime bool, rng *rand.Rand) int {
	if r.cfg.DayOnly && !daytime {
		return 0
	}
	r.growth += r.cfg.GrowthRate * dt

	planted := 0
	for r.growth >= 1 {
		r.growth--
		cx, cy, ok := r.pickEligible(rng)
		if !ok {
			continue
		}
		r.plant(cx, cy)
		planted++
	}
	return planted
}

// plant fills a square patch around (cx, cy), clipped at the grid edge.
func (r *Resources) plant(cx, cy int) {
	rad := r.cfg.PatchRadius
	for y := cy - rad; y <= cy+rad; y++ {
		for x := cx - rad; x <= cx+rad; x++ {
			r.Set(x, y, Grass)
		}
	}
}

func (r *Resources) pickEligible(rng *rand.Rand) (int, int, bool) {
	attempts := r.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		cx := rng.Intn(r.w)
		cy := rng.Intn(r.h)
		if r.eligible(cx, cy) {
			return cx, cy, true
		}
	}
	return 0, 0, false
}

func (r *Resources) eligible(cx, cy int) bool {
	if r.terrain == nil {
		return true
	}
	width, depth := r.terrain.Size()
	x := (float64(cx) + 0.5) / float64(r.w) * width
	z := (float64(cy) + 0.5) / float64(r.h) * depth
	h := r.terrain.HeightAt(x, z)
	return h >= r.cfg.LowAltitude && h <= r.cfg.HighAltitude
}
