// Package render draws a top-down view of a running simulation with raylib.
package render

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/forage/world"
)

// sun is the light direction used for slope shading.
var sun = r3.Unit(r3.Vec{X: -1, Y: 2, Z: -1})

// TerrainLayer is the heightmap baked into a shaded texture once.
type TerrainLayer struct {
	texture rl.Texture2D
	size    int32
}

// NewTerrainLayer bakes terrain into a size x size texture. Cells below
// waterLevel are drawn as water.
func NewTerrainLayer(t *world.Terrain, size int32, waterLevel float64) *TerrainLayer {
	img := rl.GenImageColor(int(size), int(size), rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	rl.UpdateTexture(texture, shadeTerrain(t, int(size), waterLevel))
	return &TerrainLayer{texture: texture, size: size}
}

// shadeTerrain colors each pixel by height and lights it by slope.
func shadeTerrain(t *world.Terrain, size int, waterLevel float64) []color.RGBA {
	width, depth := t.Size()
	maxHeight := t.MaxHeight()
	pixels := make([]color.RGBA, size*size)

	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			x := (float64(px) + 0.5) / float64(size) * width
			z := (float64(py) + 0.5) / float64(size) * depth
			h := t.HeightAt(x, z)

			light := 0.35 + 0.65*math.Max(0, r3.Dot(t.SlopeNormalAt(x, z), sun))

			var r, g, b float64
			switch {
			case h < waterLevel:
				r, g, b = 30, 70, 140
			case maxHeight > 0 && h/maxHeight > 0.75:
				r, g, b = 140, 130, 120 // rock
			default:
				v := h / math.Max(maxHeight, 1e-9)
				r, g, b = 70+v*60, 110+v*30, 50
			}
			pixels[py*size+px] = color.RGBA{
				R: uint8(r * light),
				G: uint8(g * light),
				B: uint8(b * light),
				A: 255,
			}
		}
	}
	return pixels
}

// Draw stretches the terrain over dst.
func (l *TerrainLayer) Draw(dst rl.Rectangle) {
	src := rl.Rectangle{Width: float32(l.size), Height: float32(l.size)}
	rl.DrawTexturePro(l.texture, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload releases the texture.
func (l *TerrainLayer) Unload() {
	rl.UnloadTexture(l.texture)
}

// GrassLayer mirrors the resource grid into a texture every frame.
type GrassLayer struct {
	texture rl.Texture2D
	w, h    int
	pixels  []color.RGBA
}

// NewGrassLayer creates a texture matching the resource grid size.
func NewGrassLayer(res *world.Resources) *GrassLayer {
	w, h := res.Size()
	img := rl.GenImageColor(w, h, rl.Blank)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	return &GrassLayer{texture: texture, w: w, h: h, pixels: make([]color.RGBA, w*h)}
}

// Draw uploads the current grid and stretches it over dst.
func (l *GrassLayer) Draw(res *world.Resources, dst rl.Rectangle) {
	for i, c := range res.Cells() {
		if c != 0 {
			l.pixels[i] = color.RGBA{R: 90, G: 200, B: 60, A: 200}
		} else {
			l.pixels[i] = color.RGBA{}
		}
	}
	rl.UpdateTexture(l.texture, l.pixels)
	src := rl.Rectangle{Width: float32(l.w), Height: float32(l.h)}
	rl.DrawTexturePro(l.texture, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload releases the texture.
func (l *GrassLayer) Unload() {
	rl.UnloadTexture(l.texture)
}
