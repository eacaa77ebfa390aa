package agent

import (
	"math"

	"github.com/pthm-cable/forage/sampling"
)

const degToRad = math.Pi / 180

// Tick advances the agent by one simulation step. It returns false when the
// agent died this tick; pop.Remove has then already been called and the
// agent must not be ticked again.
func (a *Agent) Tick(h Habitat, pop Population) bool {
	if a.dead {
		return false
	}
	dt := h.Clock.DeltaTime()
	e := a.cfg.Energy

	// Metabolism
	a.Energy -= e.LossEnergy
	a.WaterEnergy -= e.LossWaterEnergy
	a.TimeAlive += dt

	a.AteThisTick = a.forage(h.Env)

	if a.Pose.Y < e.SubmersionHeight {
		a.WaterEnergy = e.MaxWaterEnergy
	}

	if a.Energy < 0 || a.WaterEnergy < 0 {
		a.Energy = math.Max(a.Energy, 0)
		a.WaterEnergy = math.Max(a.WaterEnergy, 0)
		a.dead = true
		pop.Remove(a)
		return false
	}

	if a.AteThisTick && a.shouldSpawn() {
		if pop.RequestOffspring(a) {
			a.Energy -= e.SpawnEnergyRequired * 2 / 3
		}
	}

	a.sense(h.Env)
	a.buildInputs(h.Env, h.DayNight)
	a.decide(dt)
	return true
}

// forage eats every resource cell in the window around the agent's cell.
func (a *Agent) forage(env Environment) bool {
	gw, gh := env.GridSize()
	fx, fy := env.WorldToGrid(a.Pose.X, a.Pose.Z)
	cx, cy := int(math.Floor(fx)), int(math.Floor(fy))
	half := a.cfg.Foraging.Window / 2

	ate := false
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			x := wrapIndex(cx+dx, gw)
			y := wrapIndex(cy+dy, gh)
			if !env.ResourcePresent(x, y) {
				continue
			}
			env.ConsumeResource(x, y)
			a.Energy = math.Min(a.Energy+a.cfg.Energy.GainEnergy, a.cfg.Energy.MaxEnergy)
			ate = true
		}
	}
	return ate
}

func (a *Agent) shouldSpawn() bool {
	e := a.cfg.Energy
	return a.Energy >= e.SpawnEnergyRequired &&
		a.rng.Float64() < e.SpawnChance*(1+a.TimeAlive)
}

// sense casts a symmetric fan of rays over the resource grid. Each eye
// records 1/distance to the first sample that sees a resource.
func (a *Agent) sense(env Environment) {
	v := a.cfg.Vision
	gw, gh := env.GridSize()
	width, depth := env.Size()
	ratioX := float64(gw) / width
	ratioY := float64(gh) / depth
	sx, sy := env.WorldToGrid(a.Pose.X, a.Pose.Z)
	half := v.Window / 2
	center := float64(v.Eyes-1) / 2

	for i := range a.Vision {
		a.Vision[i] = 0
		angle := a.Pose.Heading + (float64(i)-center)*v.StepAngle*degToRad
		dirX, dirZ := math.Cos(angle), math.Sin(angle)

		for d := 1.0; d < v.MaxRange; d += v.SampleStep {
			px := gridCell(sx+d*dirX*ratioX, gw)
			py := gridCell(sy+d*dirZ*ratioY, gh)
			if windowHasResource(env, px, py, half, gw, gh) {
				a.Vision[i] = 1 / d
				break
			}
		}
	}
}

func windowHasResource(env Environment, cx, cy, half, gw, gh int) bool {
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			if env.ResourcePresent(wrapIndex(cx+dx, gw), wrapIndex(cy+dy, gh)) {
				return true
			}
		}
	}
	return false
}

// buildInputs fills the controller input in a fixed order: vision, position,
// day/night pair, then last tick's feedback outputs.
func (a *Agent) buildInputs(env Environment, dn DayNightSignal) {
	width, depth := env.Size()
	in := a.input[:0]

	in = append(in, a.Vision...)
	in = append(in,
		a.Pose.X/width,
		a.Pose.Y/a.cfg.World.MaxHeight,
		a.Pose.Z/depth,
	)
	d0, d1 := DaySignal(dn)
	in = append(in, d0, d1)
	in = append(in, a.feedback...)

	a.input = in
}

// DaySignal returns two complementary values whose roles swap between day
// and night. With phase p and m = -min(p, 1-p), day gives (p, m) and night
// gives (m, p).
func DaySignal(dn DayNightSignal) (float64, float64) {
	p := dn.CyclePhase()
	m := -math.Min(p, 1-p)
	if dn.IsDaytime() {
		return p, m
	}
	return m, p
}

// decide runs the controller and turns its outputs into a turn, a speed and
// (every goal interval) a new goal heading.
func (a *Agent) decide(dt float64) {
	act := a.cfg.Action
	out := a.Brain.Infer(a.input)
	copy(a.LastOutputs, out)

	mean := (out[0]*2 - 1) * act.MaxAngle
	variance := act.MinVariance + out[1]*(act.MaxVariance-act.MinVariance)
	a.Speed = act.MinSpeed + out[2]*(act.MaxSpeed-act.MinSpeed)
	copy(a.feedback, out[3:])

	turn := sampling.Normal(a.rng, mean, math.Sqrt(variance))
	a.TurnAngle = clamp(turn, -act.MaxAngle, act.MaxAngle)

	a.goalTimer += dt
	if a.goalTimer >= act.GoalInterval {
		a.goalTimer = 0
		a.Pose.GoalHeading = a.Pose.Heading + a.TurnAngle*degToRad
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// gridCell maps a grid coordinate to a wrapped cell index. Mod of a tiny
// negative value can round up to exactly n, so the floor is wrapped again.
func gridCell(v float64, n int) int {
	return wrapIndex(int(math.Floor(wrapFloat(v, float64(n)))), n)
}

func wrapFloat(v, n float64) float64 {
	v = math.Mod(v, n)
	if v < 0 {
		v += n
	}
	return v
}
