// Package world provides the environment agents live in: a periodic
// heightmap, the resource detail grid with its growth policy, the
// day/night cycle and the simulation clock.
package world

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/forage/config"
)

// Terrain is a square heightmap spanning width x depth world units. It is
// periodic in both directions so wrapped agents never see a seam.
type Terrain struct {
	res       int
	heights   []float64 // res*res, row-major by z
	width     float64
	depth     float64
	maxHeight float64
}

// NewTerrain generates a heightmap from fractal OpenSimplex noise. Sampling
// happens on a 4D torus, which makes the map tile seamlessly. Heights are
// rescaled to [0, maxHeight].
func NewTerrain(cfg config.WorldConfig, seed int64) *Terrain {
	res := cfg.HeightmapResolution
	t := &Terrain{
		res:       res,
		heights:   make([]float64, res*res),
		width:     cfg.Width,
		depth:     cfg.Depth,
		maxHeight: cfg.MaxHeight,
	}

	noise := opensimplex.New(seed)
	radius := cfg.NoiseScale / (2 * math.Pi)

	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0; z < res; z++ {
		for x := 0; x < res; x++ {
			u := 2 * math.Pi * float64(x) / float64(res)
			v := 2 * math.Pi * float64(z) / float64(res)
			h := torusFBM(noise, radius, u, v, cfg.NoiseOctaves)
			t.heights[z*res+x] = h
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}

	span := hi - lo
	for i, h := range t.heights {
		if span > 0 {
			t.heights[i] = (h - lo) / span * cfg.MaxHeight
		} else {
			t.heights[i] = 0
		}
	}
	return t
}

// NewFlatTerrain returns a terrain of constant height.
func NewFlatTerrain(cfg config.WorldConfig, height float64) *Terrain {
	t := &Terrain{
		res:       2,
		heights:   []float64{height, height, height, height},
		width:     cfg.Width,
		depth:     cfg.Depth,
		maxHeight: cfg.MaxHeight,
	}
	return t
}

// torusFBM sums octaves of 4D noise sampled on a torus with angles u, v.
func torusFBM(noise opensimplex.Noise, radius, u, v float64, octaves int) float64 {
	var sum, amp, norm float64 = 0, 1, 0
	freq := 1.0
	for o := 0; o < octaves; o++ {
		r := radius * freq
		sum += amp * noise.Eval4(
			r*math.Cos(u), r*math.Sin(u),
			r*math.Cos(v), r*math.Sin(v),
		)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// HeightAt bilinearly interpolates the heightmap at world position (x, z).
// Positions outside the terrain wrap.
func (t *Terrain) HeightAt(x, z float64) float64 {
	fx := wrap(x/t.width, 1) * float64(t.res)
	fz := wrap(z/t.depth, 1) * float64(t.res)

	x0, z0 := int(fx), int(fz)
	tx, tz := fx-float64(x0), fz-float64(z0)
	x0 %= t.res
	z0 %= t.res
	x1 := (x0 + 1) % t.res
	z1 := (z0 + 1) % t.res

	h00 := t.heights[z0*t.res+x0]
	h10 := t.heights[z0*t.res+x1]
	h01 := t.heights[z1*t.res+x0]
	h11 := t.heights[z1*t.res+x1]

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

// SlopeNormalAt returns the unit surface normal at (x, z) from central
// differences one heightmap cell apart.
func (t *Terrain) SlopeNormalAt(x, z float64) r3.Vec {
	ex := t.width / float64(t.res)
	ez := t.depth / float64(t.res)
	dhdx := (t.HeightAt(x+ex, z) - t.HeightAt(x-ex, z)) / (2 * ex)
	dhdz := (t.HeightAt(x, z+ez) - t.HeightAt(x, z-ez)) / (2 * ez)
	return r3.Unit(r3.Vec{X: -dhdx, Y: 1, Z: -dhdz})
}

// Size returns the world extent along x and z.
func (t *Terrain) Size() (width, depth float64) {
	return t.width, t.depth
}

// MaxHeight returns the heightmap scale.
func (t *Terrain) MaxHeight() float64 {
	return t.maxHeight
}

// Resolution returns the number of samples per side.
func (t *Terrain) Resolution() int {
	return t.res
}

func wrap(v, n float64) float64 {
	v = math.Mod(v, n)
	if v < 0 {
		v += n
	}
	if v >= n {
		v = 0
	}
	return v
}
