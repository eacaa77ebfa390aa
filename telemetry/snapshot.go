package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/forage/agent"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population state at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth float64 `json:"world_width"`
	WorldDepth float64 `json:"world_depth"`

	Tick    int32 `json:"tick"`
	Daytime bool  `json:"daytime"`
	Grass   int   `json:"grass"`

	Agents []AgentState `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentState holds one agent's complete state.
type AgentState struct {
	ID         uint64 `json:"id"`
	Generation int    `json:"generation"`

	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"`
	Goal    float64 `json:"goal_heading"`
	Speed   float64 `json:"speed"`

	Energy    float64 `json:"energy"`
	Water     float64 `json:"water"`
	TimeAlive float64 `json:"time_alive"`

	Brain json.RawMessage `json:"brain"`

	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// NewAgentState captures an agent. lifetime may be nil.
func NewAgentState(a *agent.Agent, lifetime *LifetimeStats) AgentState {
	s := AgentState{
		ID:         a.ID,
		Generation: a.Generation,
		X:          a.Pose.X,
		Y:          a.Pose.Y,
		Z:          a.Pose.Z,
		Heading:    a.Pose.Heading,
		Goal:       a.Pose.GoalHeading,
		Speed:      a.Speed,
		Energy:     a.Energy,
		Water:      a.WaterEnergy,
		TimeAlive:  a.TimeAlive,
	}
	if a.Brain != nil {
		s.Brain = json.RawMessage(a.Brain.Serialize())
	}
	if lifetime != nil {
		lt := *lifetime
		s.Lifetime = &lt
	}
	return s
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
