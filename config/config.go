// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
// A Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	DayNight   DayNightConfig   `yaml:"day_night"`
	Resources  ResourcesConfig  `yaml:"resources"`
	Population PopulationConfig `yaml:"population"`
	Energy     EnergyConfig     `yaml:"energy"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Neural     NeuralConfig     `yaml:"neural"`
	Vision     VisionConfig     `yaml:"vision"`
	Foraging   ForagingConfig   `yaml:"foraging"`
	Action     ActionConfig     `yaml:"action"`
	Motion     MotionConfig     `yaml:"motion"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Store      StoreConfig      `yaml:"store"`
	HallOfFame HallOfFameConfig `yaml:"hall_of_fame"`
	Stream     StreamConfig     `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the windowed mode.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds terrain and resource grid dimensions.
type WorldConfig struct {
	Width               float64 `yaml:"width"`                // Terrain extent along x in world units
	Depth               float64 `yaml:"depth"`                // Terrain extent along z in world units
	MaxHeight           float64 `yaml:"max_height"`           // Heightmap scale
	HeightmapResolution int     `yaml:"heightmap_resolution"` // Samples per side
	DetailWidth         int     `yaml:"detail_width"`         // Resource grid cells along x
	DetailHeight        int     `yaml:"detail_height"`        // Resource grid cells along z
	NoiseScale          float64 `yaml:"noise_scale"`
	NoiseOctaves        int     `yaml:"noise_octaves"`
}

// PhysicsConfig holds the simulation clock.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// DayNightConfig holds day/night cycle timing.
type DayNightConfig struct {
	DayDuration   float64 `yaml:"day_duration"`
	NightDuration float64 `yaml:"night_duration"`
	TimeStep      float64 `yaml:"time_step"` // Cycle timer advance per tick
}

// ResourcesConfig holds the vegetation growth policy.
type ResourcesConfig struct {
	GrowthRate      float64 `yaml:"growth_rate"`      // Patches per second
	LowAltitude     float64 `yaml:"low_altitude"`     // Growth allowed at or above this height
	HighAltitude    float64 `yaml:"high_altitude"`    // Growth allowed at or below this height
	PatchRadius     int     `yaml:"patch_radius"`     // 0 = single cell, 1 = 3x3, ...
	DayOnly         bool    `yaml:"day_only"`         // Only grow while it is daytime
	InitialCoverage float64 `yaml:"initial_coverage"` // Fraction of cells seeded at start
	MaxAttempts     int     `yaml:"max_attempts"`     // Cell picks per patch before giving up
}

// PopulationConfig holds population bounds.
type PopulationConfig struct {
	PopSize    int `yaml:"pop_size"`    // Target floor kept by fresh spawns
	MaxAnimals int `yaml:"max_animals"` // Ceiling for offspring admission
}

// EnergyConfig holds the energy economy.
type EnergyConfig struct {
	MaxEnergy           float64 `yaml:"max_energy"`
	InitialEnergy       float64 `yaml:"initial_energy"` // Clamped to max_energy
	LossEnergy          float64 `yaml:"loss_energy"`    // Per tick
	GainEnergy          float64 `yaml:"gain_energy"`    // Per resource cell eaten
	MaxWaterEnergy      float64 `yaml:"max_water_energy"`
	LossWaterEnergy     float64 `yaml:"loss_water_energy"` // Per tick
	SubmersionHeight    float64 `yaml:"submersion_height"` // Water refills below this altitude
	SpawnEnergyRequired float64 `yaml:"spawn_energy_required"`
	SpawnChance         float64 `yaml:"spawn_chance"` // Scaled by (1 + time alive)
}

// MutationConfig holds offspring mutation parameters.
type MutationConfig struct {
	SwapRate float64 `yaml:"swap_rate"` // Probability a weight is resampled
	EpsRate  float64 `yaml:"eps_rate"`  // Probability a weight is perturbed
	Strength float64 `yaml:"strength"`  // Perturbation scale at generation 0
	Decay    float64 `yaml:"decay"`     // Strength multiplier per generation
}

// NeuralConfig holds controller topology and initialization.
type NeuralConfig struct {
	HiddenLayers []int   `yaml:"hidden_layers"`
	Activation   string  `yaml:"activation"` // sigmoid, relu or linear (interior layers)
	InitMean     float64 `yaml:"init_mean"`
	InitStd      float64 `yaml:"init_std"`
	Feedback     int     `yaml:"feedback"` // Outputs fed back as inputs on the next tick
}

// VisionConfig holds ray sensing parameters.
type VisionConfig struct {
	Eyes       int     `yaml:"eyes"`
	StepAngle  float64 `yaml:"step_angle"` // Degrees between rays
	MaxRange   float64 `yaml:"max_range"`  // World units
	SampleStep float64 `yaml:"sample_step"`
	Window     int     `yaml:"window"` // Odd neighbourhood size checked per sample
}

// ForagingConfig holds the eating neighbourhood.
type ForagingConfig struct {
	Window int `yaml:"window"` // Odd neighbourhood size around the agent cell
}

// ActionConfig maps controller outputs to actions.
type ActionConfig struct {
	MaxAngle     float64 `yaml:"max_angle"` // Degrees
	MinVariance  float64 `yaml:"min_variance"`
	MaxVariance  float64 `yaml:"max_variance"`
	MinSpeed     float64 `yaml:"min_speed"`
	MaxSpeed     float64 `yaml:"max_speed"`
	GoalInterval float64 `yaml:"goal_interval"` // Seconds between goal heading updates
}

// MotionConfig holds the motion actuator parameters.
type MotionConfig struct {
	TurnRate float64 `yaml:"turn_rate"` // Radians per second toward the goal heading
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow    float64 `yaml:"stats_window"`    // Seconds per stats window
	ExportInterval int     `yaml:"export_interval"` // Ticks between weight exports (0 = only on shutdown)
}

// StoreConfig selects the genome export backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory or sqlite
	Path    string `yaml:"path"`
}

// StreamConfig holds the websocket presentation endpoint.
type StreamConfig struct {
	Addr     string `yaml:"addr"`     // Listen address, empty disables streaming
	Interval int    `yaml:"interval"` // Ticks between published frames
}

// HallOfFameConfig holds hall of fame parameters.
type HallOfFameConfig struct {
	Size  int `yaml:"size"` // Entries kept, best first
	Entry struct {
		MinChildren    int     `yaml:"min_children"`
		MinSurvivalSec float64 `yaml:"min_survival_sec"`
	} `yaml:"entry"`
	Fitness struct {
		ChildrenWeight float64 `yaml:"children_weight"`
		SurvivalWeight float64 `yaml:"survival_weight"`
	} `yaml:"fitness"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32       float32 // Physics.DT as float32
	NumInputs  int     // eyes + 3 position + 2 day/night + feedback
	NumOutputs int     // 3 actions + feedback
	Structure  []int   // [NumInputs, hidden..., NumOutputs]
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults. Panics if they fail to load.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Clone returns a deep copy, used when a caller needs to tweak a config
// before handing it to a new simulation.
func (c *Config) Clone() *Config {
	out := *c
	out.Neural.HiddenLayers = append([]int(nil), c.Neural.HiddenLayers...)
	out.computeDerived()
	return &out
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.NumInputs = c.Vision.Eyes + 3 + 2 + c.Neural.Feedback
	c.Derived.NumOutputs = 3 + c.Neural.Feedback

	structure := make([]int, 0, len(c.Neural.HiddenLayers)+2)
	structure = append(structure, c.Derived.NumInputs)
	structure = append(structure, c.Neural.HiddenLayers...)
	structure = append(structure, c.Derived.NumOutputs)
	c.Derived.Structure = structure
}

// Validate reports configuration errors that must stop the simulation
// from starting. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Derived.Structure) < 2 {
		add("network structure needs at least 2 layers, got %d", len(c.Derived.Structure))
	}
	for i, n := range c.Derived.Structure {
		if n <= 0 {
			add("network layer %d has size %d", i, n)
		}
	}
	switch c.Neural.Activation {
	case "sigmoid", "relu", "linear":
	default:
		add("unknown activation %q", c.Neural.Activation)
	}
	if c.Neural.Feedback < 0 {
		add("neural.feedback must be >= 0, got %d", c.Neural.Feedback)
	}

	if c.Population.PopSize < 0 {
		add("population.pop_size must be >= 0, got %d", c.Population.PopSize)
	}
	if c.Population.PopSize > c.Population.MaxAnimals {
		add("population.pop_size (%d) exceeds population.max_animals (%d)",
			c.Population.PopSize, c.Population.MaxAnimals)
	}

	if c.Energy.MaxEnergy <= 0 {
		add("energy.max_energy must be positive")
	}
	if c.Energy.MaxWaterEnergy <= 0 {
		add("energy.max_water_energy must be positive")
	}

	if c.Vision.Eyes < 0 {
		add("vision.eyes must be >= 0, got %d", c.Vision.Eyes)
	}
	if c.Vision.SampleStep <= 0 {
		add("vision.sample_step must be positive")
	}
	if c.Vision.Window < 1 || c.Vision.Window%2 == 0 {
		add("vision.window must be a positive odd number, got %d", c.Vision.Window)
	}
	if c.Foraging.Window < 1 || c.Foraging.Window%2 == 0 {
		add("foraging.window must be a positive odd number, got %d", c.Foraging.Window)
	}

	if c.Action.MaxAngle < 0 {
		add("action.max_angle must be >= 0, got %v", c.Action.MaxAngle)
	}
	if c.Action.MinVariance < 0 {
		add("action.min_variance must be >= 0, got %v", c.Action.MinVariance)
	}
	if c.Action.MaxVariance < c.Action.MinVariance {
		add("action.max_variance (%v) is below action.min_variance (%v)",
			c.Action.MaxVariance, c.Action.MinVariance)
	}
	if c.Action.MaxSpeed < c.Action.MinSpeed {
		add("action.max_speed (%v) is below action.min_speed (%v)",
			c.Action.MaxSpeed, c.Action.MinSpeed)
	}
	if c.Action.GoalInterval < 0 {
		add("action.goal_interval must be >= 0, got %v", c.Action.GoalInterval)
	}

	if c.World.Width <= 0 || c.World.Depth <= 0 {
		add("world width and depth must be positive")
	}
	if c.World.HeightmapResolution < 2 {
		add("world.heightmap_resolution must be >= 2, got %d", c.World.HeightmapResolution)
	}
	if c.World.DetailWidth <= 0 || c.World.DetailHeight <= 0 {
		add("world detail grid must be non-empty")
	}
	if c.Physics.DT <= 0 {
		add("physics.dt must be positive")
	}
	if c.DayNight.DayDuration <= 0 || c.DayNight.NightDuration <= 0 {
		add("day_night durations must be positive")
	}

	if c.Stream.Interval < 1 {
		add("stream.interval must be >= 1, got %d", c.Stream.Interval)
	}
	if c.HallOfFame.Size < 0 {
		add("hall_of_fame.size must be >= 0, got %d", c.HallOfFame.Size)
	}

	switch c.Store.Backend {
	case "", "memory", "sqlite":
	default:
		add("unknown store backend %q", c.Store.Backend)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
