// Package stream publishes read-only population frames to websocket
// clients.
package stream

import "github.com/pthm-cable/forage/agent"

// Frame is one published view of the simulation.
type Frame struct {
	Type    string      `json:"type"`
	Tick    int32       `json:"tick"`
	Daytime bool        `json:"daytime"`
	Phase   float64     `json:"phase"`
	Grass   int         `json:"grass"`
	Agents  []AgentView `json:"agents"`
}

// AgentView is the presentation state of one agent.
type AgentView struct {
	ID         uint64    `json:"id"`
	Generation int       `json:"gen"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	Heading    float64   `json:"heading"`
	Health     float64   `json:"health"`
	Energy     float64   `json:"energy"`
	Water      float64   `json:"water"`
	Vision     []float64 `json:"vision"`
	Outputs    []float64 `json:"outputs"`
}

// NewFrame copies the state a client needs out of the live agents.
func NewFrame(tick int32, daytime bool, phase float64, grass int, agents []*agent.Agent) Frame {
	views := make([]AgentView, len(agents))
	for i, a := range agents {
		views[i] = AgentView{
			ID:         a.ID,
			Generation: a.Generation,
			X:          a.Pose.X,
			Y:          a.Pose.Y,
			Z:          a.Pose.Z,
			Heading:    a.Pose.Heading,
			Health:     a.Health(),
			Energy:     a.Energy,
			Water:      a.WaterEnergy,
			Vision:     append([]float64(nil), a.Vision...),
			Outputs:    append([]float64(nil), a.LastOutputs...),
		}
	}
	return Frame{
		Type:    "frame",
		Tick:    tick,
		Daytime: daytime,
		Phase:   phase,
		Grass:   grass,
		Agents:  views,
	}
}
