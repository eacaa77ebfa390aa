// Package population owns the live set of agents. Agents are entities in an
// ark ECS world; structural changes requested while the world is being
// iterated are buffered and applied after the sweep.
package population

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
)

// Organism is the ECS component holding an agent.
type Organism struct {
	Agent *agent.Agent
}

// Observer receives population events. All methods are called synchronously
// on the simulation goroutine.
type Observer interface {
	OnBirth(child, parent *agent.Agent)
	OnDeath(a *agent.Agent)
	OnRefused(parent *agent.Agent)
	OnSpawn(a *agent.Agent)
}

// Terrain is what the manager needs to place agents.
type Terrain interface {
	HeightAt(x, z float64) float64
	Size() (width, depth float64)
}

// Manager keeps the population between its floor (target size) and its
// ceiling (max animals).
type Manager struct {
	cfg     *config.Config
	habitat agent.Habitat
	terrain Terrain
	rng     *rand.Rand
	obs     Observer

	world    *ecs.World
	mapper   *ecs.Map1[Organism]
	filter   *ecs.Filter1[Organism]
	entities map[*agent.Agent]ecs.Entity

	targetSize int
	maxAnimals int
	nextID     uint64

	sweeping        bool
	pendingBirths   []*agent.Agent
	pendingRemovals []*agent.Agent
	removing        map[*agent.Agent]bool

	births     int
	deaths     int
	refused    int
	spawned    int
	extinction int
}

// New creates an empty manager. obs may be nil.
func New(cfg *config.Config, habitat agent.Habitat, terrain Terrain, rng *rand.Rand, obs Observer) *Manager {
	world := ecs.NewWorld()
	return &Manager{
		cfg:        cfg,
		habitat:    habitat,
		terrain:    terrain,
		rng:        rng,
		obs:        obs,
		world:      world,
		mapper:     ecs.NewMap1[Organism](world),
		filter:     ecs.NewFilter1[Organism](world),
		entities:   make(map[*agent.Agent]ecs.Entity),
		removing:   make(map[*agent.Agent]bool),
		targetSize: cfg.Population.PopSize,
		maxAnimals: cfg.Population.MaxAnimals,
	}
}

// Initialize fills the population with targetSize fresh agents at random
// positions. A target above the ceiling is a configuration error.
func (m *Manager) Initialize(targetSize int) error {
	if targetSize < 0 {
		return fmt.Errorf("population: negative target size %d", targetSize)
	}
	if targetSize > m.maxAnimals {
		return fmt.Errorf("population: target size %d exceeds max animals %d", targetSize, m.maxAnimals)
	}
	m.targetSize = targetSize
	for m.Count() < targetSize {
		m.spawnRandom()
	}
	slog.Info("population_initialized", "size", m.Count(), "max_animals", m.maxAnimals)
	return nil
}

// Update ticks every live agent once, then applies the births and removals
// they requested. Agents born during the sweep are first ticked next call.
func (m *Manager) Update() {
	m.sweeping = true
	query := m.filter.Query()
	for query.Next() {
		org := query.Get()
		a := org.Agent
		if m.removing[a] {
			continue
		}
		a.Tick(m.habitat, m)
	}
	m.sweeping = false
	m.flush()
}

// Tick tops the population back up to its target size with fresh agents.
// It never consults the ceiling.
func (m *Manager) Tick() {
	if m.Count() >= m.targetSize {
		return
	}
	before := m.Count()
	if before == 0 {
		m.extinction++
		slog.Warn("population_extinct", "target", m.targetSize, "extinctions", m.extinction)
	}
	for m.Count() < m.targetSize {
		m.spawnRandom()
	}
	slog.Debug("population_refill", "from", before, "to", m.Count())
}

// RequestOffspring admits a child of parent unless the population is at its
// ceiling. Refusal leaves everything unchanged.
func (m *Manager) RequestOffspring(parent *agent.Agent) bool {
	if m.Count() >= m.maxAnimals {
		m.refused++
		if m.obs != nil {
			m.obs.OnRefused(parent)
		}
		return false
	}
	child := agent.NewOffspring(m.cfg, m.newID(), parent, m.rng)
	m.births++
	if m.obs != nil {
		m.obs.OnBirth(child, parent)
	}
	m.add(child)
	return true
}

// Remove takes a out of the live set. Removing an agent twice, or one that
// is not in the population, does nothing.
func (m *Manager) Remove(a *agent.Agent) {
	if _, ok := m.entities[a]; !ok {
		return
	}
	if m.removing[a] {
		return
	}
	m.deaths++
	if m.obs != nil {
		m.obs.OnDeath(a)
	}
	if m.sweeping {
		m.removing[a] = true
		m.pendingRemovals = append(m.pendingRemovals, a)
		return
	}
	m.destroy(a)
}

// Count is the number of agents, including births and removals that are
// still buffered.
func (m *Manager) Count() int {
	return len(m.entities) + len(m.pendingBirths) - len(m.pendingRemovals)
}

// TargetSize returns the floor Tick refills to.
func (m *Manager) TargetSize() int { return m.targetSize }

// MaxAnimals returns the offspring ceiling.
func (m *Manager) MaxAnimals() int { return m.maxAnimals }

// Each calls fn for every live agent, in ECS order. fn must not add or
// remove agents.
func (m *Manager) Each(fn func(a *agent.Agent)) {
	query := m.filter.Query()
	for query.Next() {
		a := query.Get().Agent
		if m.removing[a] {
			continue
		}
		fn(a)
	}
}

// Agents returns a snapshot of the live agents.
func (m *Manager) Agents() []*agent.Agent {
	out := make([]*agent.Agent, 0, len(m.entities))
	m.Each(func(a *agent.Agent) { out = append(out, a) })
	return out
}

// MaxGeneration returns the deepest generation alive, or 0 when empty.
func (m *Manager) MaxGeneration() int {
	g := 0
	m.Each(func(a *agent.Agent) {
		if a.Generation > g {
			g = a.Generation
		}
	})
	return g
}

// Oldest returns the living agent with the largest TimeAlive, or nil.
func (m *Manager) Oldest() *agent.Agent {
	var best *agent.Agent
	m.Each(func(a *agent.Agent) {
		if best == nil || a.TimeAlive > best.TimeAlive {
			best = a
		}
	})
	return best
}

// Counters returns cumulative event counts.
func (m *Manager) Counters() (births, deaths, refused, spawned int) {
	return m.births, m.deaths, m.refused, m.spawned
}

// Extinctions returns how many times Tick found the population empty.
func (m *Manager) Extinctions() int {
	return m.extinction
}

func (m *Manager) spawnRandom() {
	width, depth := m.terrain.Size()
	x := m.rng.Float64() * width
	z := m.rng.Float64() * depth
	heading := m.rng.Float64() * 2 * math.Pi
	pose := agent.Pose{
		X:           x,
		Y:           m.terrain.HeightAt(x, z),
		Z:           z,
		Heading:     heading,
		GoalHeading: heading,
	}
	a := agent.New(m.cfg, m.newID(), pose, m.rng)
	m.spawned++
	if m.obs != nil {
		m.obs.OnSpawn(a)
	}
	m.add(a)
}

func (m *Manager) add(a *agent.Agent) {
	if m.sweeping {
		m.pendingBirths = append(m.pendingBirths, a)
		return
	}
	m.entities[a] = m.mapper.NewEntity(&Organism{Agent: a})
}

func (m *Manager) destroy(a *agent.Agent) {
	e, ok := m.entities[a]
	if !ok {
		return
	}
	m.world.RemoveEntity(e)
	delete(m.entities, a)
}

// flush applies structural changes buffered during a sweep.
func (m *Manager) flush() {
	removals := m.pendingRemovals
	births := m.pendingBirths
	m.pendingRemovals = nil
	m.pendingBirths = nil

	for _, a := range removals {
		m.destroy(a)
		delete(m.removing, a)
	}
	for _, a := range births {
		m.add(a)
	}
}

func (m *Manager) newID() uint64 {
	m.nextID++
	return m.nextID
}
