package telemetry

import (
	"encoding/json"
	"sort"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

// HallEntry represents a successful agent's controller weights and fitness.
type HallEntry struct {
	AgentID    uint64          `json:"agent_id"`
	Generation int             `json:"generation"`
	Fitness    float64         `json:"fitness"`
	Children   int             `json:"children"`
	Survival   float64         `json:"survival_sec"`
	CladeID    uint64          `json:"clade_id"`
	Structure  []int           `json:"structure"`
	Weights    json.RawMessage `json:"brain"`
}

// HallOfFame keeps the fittest agents that have died, best first.
type HallOfFame struct {
	entries []HallEntry
	cfg     config.HallOfFameConfig
}

// NewHallOfFame creates an empty hall of fame.
func NewHallOfFame(cfg config.HallOfFameConfig) *HallOfFame {
	return &HallOfFame{
		entries: make([]HallEntry, 0, cfg.Size),
		cfg:     cfg,
	}
}

// Consider evaluates a dead agent for hall of fame entry.
// Returns true if the agent was added to the hall.
func (hof *HallOfFame) Consider(a *agent.Agent, stats *LifetimeStats) bool {
	if hof.cfg.Size == 0 || a.Brain == nil {
		return false
	}
	children := 0
	var clade uint64
	if stats != nil {
		children = stats.Children
		clade = stats.CladeID
	}
	if !hof.meetsEntryCriteria(children, a.TimeAlive) {
		return false
	}

	entry := HallEntry{
		AgentID:    a.ID,
		Generation: a.Generation,
		Fitness:    hof.fitness(children, a.TimeAlive),
		Children:   children,
		Survival:   a.TimeAlive,
		CladeID:    clade,
		Structure:  a.Brain.Structure(),
		Weights:    json.RawMessage(a.Brain.Serialize()),
	}
	hof.entries = hof.insertEntry(hof.entries, entry)
	return hof.contains(entry.AgentID)
}

// meetsEntryCriteria admits agents that reproduced or survived long enough.
func (hof *HallOfFame) meetsEntryCriteria(children int, survival float64) bool {
	if children >= hof.cfg.Entry.MinChildren && children > 0 {
		return true
	}
	return survival >= hof.cfg.Entry.MinSurvivalSec
}

// fitness computes the weighted fitness score.
func (hof *HallOfFame) fitness(children int, survival float64) float64 {
	return float64(children)*hof.cfg.Fitness.ChildrenWeight +
		survival*hof.cfg.Fitness.SurvivalWeight
}

// insertEntry adds an entry, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	if len(hall) >= hof.cfg.Size && idx >= hof.cfg.Size {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.cfg.Size {
		hall = hall[:hof.cfg.Size]
	}
	return hall
}

func (hof *HallOfFame) contains(id uint64) bool {
	for _, e := range hof.entries {
		if e.AgentID == id {
			return true
		}
	}
	return false
}

// Entries returns the hall, best first. The slice must not be modified.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.entries
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the highest fitness in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// MarshalJSON serializes the hall of fame as a JSON array, best first.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.entries, "", "  ")
}
