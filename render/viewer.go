package render

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/camera"
	"github.com/pthm-cable/forage/sim"
)

const (
	panelWidth   = 260
	maxSpeed     = 20
	agentRadius  = 5
	terrainTexPx = 512
)

// Viewer runs a simulation inside a raylib window. The window must be open
// before NewViewer is called.
type Viewer struct {
	sim     *sim.Simulation
	terrain *TerrainLayer
	grass   *GrassLayer
	cam     *camera.Camera

	screenW, screenH int32

	paused bool
	speed  float32 // Steps per frame
}

// NewViewer bakes the static layers for s.
func NewViewer(s *sim.Simulation, screenW, screenH int32) *Viewer {
	w := s.World()
	v := &Viewer{
		sim:     s,
		terrain: NewTerrainLayer(w.Terrain, terrainTexPx, s.Config().Energy.SubmersionHeight),
		grass:   NewGrassLayer(w.Resources),
		screenW: screenW,
		screenH: screenH,
		speed:   1,
	}
	view := v.view()
	width, depth := w.Size()
	v.cam = camera.New(view.Width, view.Height, float32(width), float32(depth))
	return v
}

// Update handles input and advances the simulation.
func (v *Viewer) Update() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	v.handleCamera()
	if v.paused {
		return
	}
	for i := 0; i < int(v.speed); i++ {
		v.sim.Step()
	}
}

// handleCamera zooms with the wheel, pans with a right drag and resets on R.
func (v *Viewer) handleCamera() {
	if rl.IsKeyPressed(rl.KeyR) {
		v.cam.Reset()
	}
	mouse := rl.GetMousePosition()
	if !rl.CheckCollisionPointRec(mouse, v.view()) {
		return
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomAt(float32(math.Pow(1.1, float64(wheel))), mouse.X, mouse.Y)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(d.X, d.Y)
	}
}

// view returns the square map area left of the panel.
func (v *Viewer) view() rl.Rectangle {
	side := float32(math.Min(float64(v.screenW-panelWidth), float64(v.screenH)))
	return rl.Rectangle{Width: side, Height: side}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	v.sim.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	view := v.view()
	rl.BeginScissorMode(int32(view.X), int32(view.Y), int32(view.Width), int32(view.Height))
	dst := v.worldRect()
	v.terrain.Draw(dst)
	v.grass.Draw(v.sim.World().Resources, dst)
	v.drawAgents()

	dn := v.sim.DayNight()
	if !dn.IsDaytime() {
		rl.DrawRectangleRec(view, rl.Color{R: 0, G: 0, B: 40, A: 110})
	}
	rl.EndScissorMode()

	v.drawPanel(view.Width + 10)

	rl.EndDrawing()
}

// worldRect is the screen rectangle covered by the whole world.
func (v *Viewer) worldRect() rl.Rectangle {
	width, depth := v.sim.World().Size()
	x0, y0 := v.cam.WorldToScreen(0, 0)
	x1, y1 := v.cam.WorldToScreen(float32(width), float32(depth))
	return rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (v *Viewer) drawAgents() {
	margin := agentRadius * 2 / v.cam.Zoom
	v.sim.Population().Each(func(a *agent.Agent) {
		wx, wz := float32(a.Pose.X), float32(a.Pose.Z)
		if !v.cam.IsVisible(wx, wz, margin) {
			return
		}
		x, y := v.cam.WorldToScreen(wx, wz)
		drawOrientedTriangle(x, y, float32(a.Pose.Heading), agentRadius, healthColor(a.Health()))
	})
}

// healthColor fades from red at zero health to yellow-green at full.
func healthColor(h float64) rl.Color {
	h = math.Max(0, math.Min(1, h))
	return rl.Color{
		R: uint8(230 - h*150),
		G: uint8(60 + h*170),
		B: 40,
		A: 255,
	}
}

func (v *Viewer) drawPanel(x float32) {
	y := float32(10)
	s := v.sim.Summary()
	dn := v.sim.DayNight()

	phase := "day"
	if !dn.IsDaytime() {
		phase = "night"
	}

	lines := []string{
		fmt.Sprintf("Tick: %d", s.Ticks),
		fmt.Sprintf("Agents: %d / %d", s.Alive, v.sim.Population().MaxAnimals()),
		fmt.Sprintf("Grass: %d", s.Grass),
		fmt.Sprintf("Births: %d  Deaths: %d", s.Births, s.Deaths),
		fmt.Sprintf("Refused: %d  Spawned: %d", s.Refused, s.Spawned),
		fmt.Sprintf("Max generation: %d", s.MaxGeneration),
		fmt.Sprintf("Extinctions: %d", s.Extinctions),
		fmt.Sprintf("%s %.0f%%", phase, dn.CyclePhase()*100),
		fmt.Sprintf("Zoom: %.1fx", v.cam.Zoom/v.cam.MinZoom),
	}
	for _, line := range lines {
		gui.Label(rl.Rectangle{X: x, Y: y, Width: panelWidth - 20, Height: 20}, line)
		y += 22
	}

	y += 10
	label := "Pause"
	if v.paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, label) {
		v.paused = !v.paused
	}
	y += 45

	gui.Label(rl.Rectangle{X: x, Y: y, Width: panelWidth - 20, Height: 20}, fmt.Sprintf("Steps per frame: %d", int(v.speed)))
	y += 22
	v.speed = float32(math.Round(float64(gui.SliderBar(
		rl.Rectangle{X: x + 10, Y: y, Width: panelWidth - 60, Height: 20},
		"1", fmt.Sprint(maxSpeed),
		v.speed, 1, maxSpeed,
	))))
}

// drawOrientedTriangle draws a triangle pointing in the heading direction.
func drawOrientedTriangle(x, y, heading, radius float32, color rl.Color) {
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	front := rl.Vector2{X: x + cos*radius*1.5, Y: y + sin*radius*1.5}

	backAngle := float64(heading) + math.Pi*0.8
	backLeft := rl.Vector2{
		X: x + float32(math.Cos(backAngle))*radius,
		Y: y + float32(math.Sin(backAngle))*radius,
	}
	backAngle = float64(heading) - math.Pi*0.8
	backRight := rl.Vector2{
		X: x + float32(math.Cos(backAngle))*radius,
		Y: y + float32(math.Sin(backAngle))*radius,
	}

	// DrawTriangle requires counter-clockwise winding
	rl.DrawTriangle(front, backRight, backLeft, color)
	rl.DrawTriangleLines(front, backLeft, backRight, rl.White)
}

// Unload releases all textures.
func (v *Viewer) Unload() {
	v.terrain.Unload()
	v.grass.Unload()
}
