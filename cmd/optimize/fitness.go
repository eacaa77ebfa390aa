package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/sim"
	"github.com/pthm-cable/forage/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastQuality    float64 // quality from most recent Evaluate call
	lastSustain    float64 // self-sustaining fraction from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastScores returns the sustain and quality scores from the most recent
// evaluation.
func (fe *FitnessEvaluator) LastScores() (sustain, quality float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSustain, fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	summary     sim.Summary
	initialSize int
	maxEnergy   float64
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
	hallOfFame  *telemetry.HallOfFame
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness    float64
	sustain    float64
	quality    float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			if result == nil {
				results[idx] = seedResult{fitness: 0}
				return
			}
			sustain := computeSustain(result.summary, result.initialSize)
			quality := computeQuality(result.windowStats, result.maxEnergy)
			results[idx] = seedResult{
				fitness:    computeFitness(sustain, quality),
				sustain:    sustain,
				quality:    quality,
				hallOfFame: result.hallOfFame,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalSustain, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame

	for _, r := range results {
		totalFitness += r.fitness
		totalSustain += r.sustain
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastSustain = totalSustain / n
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run for maxTicks.
// Returns nil if the parameters produce an invalid config.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		return nil
	}

	result := &runResult{
		initialSize: cfg.Population.PopSize,
		maxEnergy:   cfg.Energy.MaxEnergy,
	}
	s, err := sim.New(cfg, sim.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return nil
	}

	for s.Tick() < fe.maxTicks {
		s.Step()
	}

	result.summary = s.Summary()
	result.hallOfFame = s.Collector().HallOfFame()
	return result
}

// computeSustain returns the fraction of agents after the initial cohort
// that were born rather than spawned to refill the population. 1 means the
// population sustained itself; 0 means every agent came from a refill.
func computeSustain(sum sim.Summary, initialSize int) float64 {
	refills := sum.Spawned - initialSize
	if refills < 0 {
		refills = 0
	}
	total := sum.Births + refills
	if total == 0 {
		return 0
	}
	return float64(sum.Births) / float64(total)
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(sustain × (1.0 + 0.2 × quality))
// Sustain dominates; quality adds up to 20% bonus to differentiate
// configs that sustain equally well.
func computeFitness(sustain, quality float64) float64 {
	return -(sustain * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightStability = 0.4
	qualityWeightEnergy    = 0.3
	qualityWeightDepth     = 0.3

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	generationScale      = 20.0
)

// computeQuality computes population quality in [0, 1] from window stats.
func computeQuality(windows []telemetry.WindowStats, maxEnergy float64) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	counts := make([]float64, len(valid))
	var energySum float64
	maxGen := 0
	for i, w := range valid {
		counts[i] = float64(w.Agents)

		// Median energy near half the maximum is healthy.
		rel := w.EnergyP50 / maxEnergy
		energySum += math.Exp(-math.Pow((rel-0.5)/0.25, 2))

		if w.MaxGeneration > maxGen {
			maxGen = w.MaxGeneration
		}
	}

	stabilityScore := 0.0
	if len(counts) >= 2 {
		c := cv(counts)
		stabilityScore = math.Exp(-c * c)
	}
	energyScore := energySum / float64(len(valid))
	depthScore := 1 - math.Exp(-float64(maxGen)/generationScale)

	quality := qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightDepth*depthScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
