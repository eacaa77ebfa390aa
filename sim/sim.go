// Package sim composes the world, the population and the telemetry into a
// single fixed-step simulation.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/forage/agent"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/motion"
	"github.com/pthm-cable/forage/population"
	"github.com/pthm-cable/forage/store"
	"github.com/pthm-cable/forage/stream"
	"github.com/pthm-cable/forage/telemetry"
	"github.com/pthm-cable/forage/world"
)

// Publisher receives presentation frames. Publish must not block.
type Publisher interface {
	Publish(f stream.Frame) bool
}

// Options holds optional settings for a simulation.
type Options struct {
	Seed        int64
	RunID       string // Generated when empty
	LogStats    bool
	OutputDir   string // CSV logs and config snapshot, empty disables
	SnapshotDir string // Snapshots on bookmarks, empty disables
	Store       store.Store
	Publisher   Publisher
	World       *world.World // Built from config when nil

	// StatsCallback is called with each flushed stats window.
	StatsCallback func(stats telemetry.WindowStats)
}

// Simulation owns all simulation state. It is not safe for concurrent use.
type Simulation struct {
	cfg   *config.Config
	opts  Options
	runID string
	rng   *rand.Rand
	tick  int32

	world    *world.World
	dayNight *world.DayNight
	pop      *population.Manager
	actuator *motion.Actuator

	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
}

// New builds a simulation from a validated config and seeds the initial
// population and vegetation.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	rng := rand.New(rand.NewSource(opts.Seed))

	w := opts.World
	if w == nil {
		w = world.New(cfg, opts.Seed)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	s := &Simulation{
		cfg:       cfg,
		opts:      opts,
		runID:     runID,
		rng:       rng,
		world:     w,
		dayNight:  world.NewDayNight(cfg.DayNight),
		actuator:  motion.NewActuator(cfg),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT, cfg.HallOfFame),
		bookmarks: telemetry.NewBookmarkDetector(10),
		perf:      telemetry.NewPerfCollector(120),
	}

	habitat := agent.Habitat{
		Env:      w,
		Clock:    world.FixedClock(cfg.Physics.DT),
		DayNight: s.dayNight,
	}
	s.pop = population.New(cfg, habitat, w.Terrain, rng, s.collector)

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	s.output = output
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	w.Resources.Seed(cfg.Resources.InitialCoverage, rng)
	if err := s.pop.Initialize(cfg.Population.PopSize); err != nil {
		output.Close()
		return nil, err
	}

	slog.Info("simulation_started",
		"run_id", runID,
		"seed", opts.Seed,
		"structure", cfg.Derived.Structure,
		"grass", w.Resources.Count(),
	)
	return s, nil
}

// Step advances the simulation by one tick.
func (s *Simulation) Step() {
	s.perf.StartTick()
	s.collector.SetTick(s.tick + 1)

	s.perf.StartPhase(telemetry.PhaseDayNight)
	if s.dayNight.Advance() {
		slog.Debug("day_night_switch", "tick", s.tick, "daytime", s.dayNight.IsDaytime())
	}

	s.perf.StartPhase(telemetry.PhaseResources)
	s.world.Resources.Grow(s.cfg.Physics.DT, s.dayNight.IsDaytime(), s.rng)

	s.perf.StartPhase(telemetry.PhaseAgents)
	s.pop.Update()

	s.perf.StartPhase(telemetry.PhaseMotion)
	s.pop.Each(func(a *agent.Agent) {
		s.actuator.Apply(a, s.world.Terrain)
	})

	s.perf.StartPhase(telemetry.PhaseRefill)
	s.pop.Tick()

	s.tick++

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.exportOnInterval()

	s.perf.StartPhase(telemetry.PhasePublish)
	s.publish()

	s.perf.EndTick(s.pop.Count())
}

// flushTelemetry writes a stats window when one has elapsed and reacts to
// any bookmarks it triggers.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.pop.Agents(), s.world.Resources.Count(), s.dayNight.IsDaytime())
	perfStats := s.perf.Stats()

	if s.opts.StatsCallback != nil {
		s.opts.StatsCallback(stats)
	}

	if s.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	if err := s.output.WriteLineage(s.collector.DrainLineage()); err != nil {
		slog.Error("failed to write lineage", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.opts.LogStats {
			bm.LogBookmark()
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if s.opts.SnapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

func (s *Simulation) exportOnInterval() {
	interval := s.cfg.Telemetry.ExportInterval
	if s.opts.Store == nil || interval <= 0 || s.tick%int32(interval) != 0 {
		return
	}
	if _, _, err := s.exportOldest(context.Background(), store.ReasonInterval); err != nil {
		slog.Error("interval export failed", "tick", s.tick, "error", err)
	}
}

func (s *Simulation) publish() {
	if s.opts.Publisher == nil || s.tick%int32(s.cfg.Stream.Interval) != 0 {
		return
	}
	s.opts.Publisher.Publish(s.Frame())
}

// Frame captures the current presentation state.
func (s *Simulation) Frame() stream.Frame {
	return stream.NewFrame(s.tick, s.dayNight.IsDaytime(), s.dayNight.CyclePhase(),
		s.world.Resources.Count(), s.pop.Agents())
}

// Snapshot captures the full population state.
func (s *Simulation) Snapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	width, depth := s.world.Size()
	agents := s.pop.Agents()
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RNGSeed:    s.opts.Seed,
		WorldWidth: width,
		WorldDepth: depth,
		Tick:       s.tick,
		Daytime:    s.dayNight.IsDaytime(),
		Grass:      s.world.Resources.Count(),
		Agents:     make([]telemetry.AgentState, len(agents)),
		Bookmark:   bookmark,
	}
	for i, a := range agents {
		snap.Agents[i] = telemetry.NewAgentState(a, s.collector.Lifetime().Get(a.ID))
	}
	return snap
}

func (s *Simulation) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(s.Snapshot(bookmark), s.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", s.tick)
}

// ExportOldest saves the controller of the longest-lived agent. ok is false
// when no store is configured or the population is empty.
func (s *Simulation) ExportOldest(ctx context.Context) (rec store.GenomeRecord, ok bool, err error) {
	return s.exportOldest(ctx, store.ReasonOldest)
}

func (s *Simulation) exportOldest(ctx context.Context, reason string) (store.GenomeRecord, bool, error) {
	if s.opts.Store == nil {
		return store.GenomeRecord{}, false, nil
	}
	oldest := s.pop.Oldest()
	if oldest == nil {
		return store.GenomeRecord{}, false, nil
	}
	rec, err := store.Export(ctx, s.opts.Store, s.runID, oldest, reason)
	if err != nil {
		return store.GenomeRecord{}, false, err
	}
	slog.Info("genome_exported",
		"reason", reason,
		"agent", oldest.ID,
		"generation", oldest.Generation,
		"time_alive", oldest.TimeAlive,
	)
	return rec, true, nil
}

// ExportHallOfFame saves every hall of fame entry and returns how many were
// written.
func (s *Simulation) ExportHallOfFame(ctx context.Context) (int, error) {
	if s.opts.Store == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	for i, e := range s.collector.HallOfFame().Entries() {
		rec := store.GenomeRecord{
			ID:         uuid.NewString(),
			RunID:      s.runID,
			AgentID:    e.AgentID,
			Generation: e.Generation,
			TimeAlive:  e.Survival,
			Reason:     store.ReasonHallOfFame,
			Structure:  e.Structure,
			Weights:    string(e.Weights),
			CreatedAt:  now,
		}
		if err := s.opts.Store.SaveGenome(ctx, rec); err != nil {
			return i, fmt.Errorf("export hall of fame: %w", err)
		}
	}
	return s.collector.HallOfFame().Size(), nil
}

// Close exports the oldest agent and the hall of fame, then flushes and
// closes the output files. The store itself is left open for the caller.
func (s *Simulation) Close(ctx context.Context) error {
	var errs []error
	if _, _, err := s.ExportOldest(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.ExportHallOfFame(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.output.WriteLineage(s.collector.DrainLineage()); err != nil {
		errs = append(errs, err)
	}
	if err := s.output.WriteHallOfFame(s.collector.HallOfFame()); err != nil {
		errs = append(errs, err)
	}
	if err := s.output.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Summary holds run totals for logging.
type Summary struct {
	Ticks         int32
	Alive         int
	Births        int
	Deaths        int
	Refused       int
	Spawned       int
	Extinctions   int
	MaxGeneration int
	Grass         int
}

// Summary returns the run totals so far.
func (s *Simulation) Summary() Summary {
	births, deaths, refused, spawned := s.pop.Counters()
	return Summary{
		Ticks:         s.tick,
		Alive:         s.pop.Count(),
		Births:        births,
		Deaths:        deaths,
		Refused:       refused,
		Spawned:       spawned,
		Extinctions:   s.pop.Extinctions(),
		MaxGeneration: s.pop.MaxGeneration(),
		Grass:         s.world.Resources.Count(),
	}
}

// RecordFrame marks a rendered frame for FPS tracking.
func (s *Simulation) RecordFrame() { s.perf.RecordFrame() }

func (s *Simulation) Tick() int32                     { return s.tick }
func (s *Simulation) RunID() string                   { return s.runID }
func (s *Simulation) Config() *config.Config          { return s.cfg }
func (s *Simulation) World() *world.World             { return s.world }
func (s *Simulation) DayNight() *world.DayNight       { return s.dayNight }
func (s *Simulation) Population() *population.Manager { return s.pop }
func (s *Simulation) Collector() *telemetry.Collector { return s.collector }
