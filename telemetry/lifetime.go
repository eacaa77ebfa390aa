package telemetry

// LifetimeStats tracks per-agent lineage statistics over its lifetime.
type LifetimeStats struct {
	ParentID   uint64 // 0 for fresh spawns
	CladeID    uint64 // ID of the fresh spawn the lineage started from
	Generation int
	Children   int
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint64]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint64]*LifetimeStats),
	}
}

// RegisterSpawn starts tracking a fresh agent as the root of a new clade.
func (lt *LifetimeTracker) RegisterSpawn(id uint64, generation int) {
	lt.stats[id] = &LifetimeStats{CladeID: id, Generation: generation}
}

// RegisterChild starts tracking an offspring, inheriting the parent's clade,
// and counts the child against the parent.
func (lt *LifetimeTracker) RegisterChild(id, parentID uint64, generation int) {
	clade := parentID
	if p := lt.stats[parentID]; p != nil {
		p.Children++
		clade = p.CladeID
	}
	lt.stats[id] = &LifetimeStats{ParentID: parentID, CladeID: clade, Generation: generation}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(id uint64) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an agent's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint64) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// ActiveCladeCount returns the number of unique clades among living agents.
func (lt *LifetimeTracker) ActiveCladeCount() int {
	seen := make(map[uint64]struct{})
	for _, stats := range lt.stats {
		seen[stats.CladeID] = struct{}{}
	}
	return len(seen)
}

// LineageRecord is one lineage.csv row, written when an agent dies.
type LineageRecord struct {
	Tick       int32   `csv:"tick"`
	AgentID    uint64  `csv:"agent_id"`
	ParentID   uint64  `csv:"parent_id"`
	CladeID    uint64  `csv:"clade_id"`
	Generation int     `csv:"generation"`
	Children   int     `csv:"children"`
	TimeAlive  float64 `csv:"time_alive"`
	Energy     float64 `csv:"energy"`
	Water      float64 `csv:"water"`
}
