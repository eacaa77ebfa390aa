package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Daytime         bool    `csv:"daytime"`

	// Population at window end
	Agents int `csv:"agents"`
	Grass  int `csv:"grass"`

	// Events during window
	Births  int `csv:"births"`
	Deaths  int `csv:"deaths"`
	Refused int `csv:"refused"`
	Spawned int `csv:"spawned"`

	// Lineage depth
	MaxGeneration  int     `csv:"max_generation"`
	MeanGeneration float64 `csv:"mean_generation"`
	ActiveClades   int     `csv:"active_clades"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`
	WaterMean  float64 `csv:"water_mean"`

	// Age
	AgeMean      float64 `csv:"age_mean"`
	AgeMax       float64 `csv:"age_max"`
	DeathAgeMean float64 `csv:"death_age_mean"` // Mean lifespan of agents that died this window
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean, population std and percentiles.
func ComputeEnergyStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// mean returns the arithmetic mean, or 0 for no values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Bool("daytime", s.Daytime),
		slog.Int("agents", s.Agents),
		slog.Int("grass", s.Grass),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("refused", s.Refused),
		slog.Int("spawned", s.Spawned),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Float64("mean_generation", s.MeanGeneration),
		slog.Int("active_clades", s.ActiveClades),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_std", s.EnergyStd),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("water_mean", s.WaterMean),
		slog.Float64("age_mean", s.AgeMean),
		slog.Float64("age_max", s.AgeMax),
		slog.Float64("death_age_mean", s.DeathAgeMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
