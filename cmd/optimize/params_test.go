package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/sim"
	"github.com/pthm-cable/forage/telemetry"
)

func TestParamVectorNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestParamVectorDefaultsInBounds(t *testing.T) {
	for _, spec := range NewParamVector().Specs {
		if spec.Default < spec.Min || spec.Default > spec.Max {
			t.Errorf("%s default %v outside [%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
}

func TestParamVectorApplyExtract(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	values := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		values[i] = (spec.Min + spec.Max) / 2
	}
	pv.ApplyToConfig(cfg, values)

	got := pv.ExtractFromConfig(cfg)
	if len(got) != pv.Dim() {
		t.Fatalf("extracted %d values, want %d", len(got), pv.Dim())
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, got[i], values[i])
		}
	}
}

func TestParamVectorApplyClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 1e6
	}
	pv.ApplyToConfig(cfg, values)

	for i, v := range pv.ExtractFromConfig(cfg) {
		if v != pv.Specs[i].Max {
			t.Errorf("%s: got %v, want clamp to %v", pv.Specs[i].Name, v, pv.Specs[i].Max)
		}
	}
}

func TestComputeSustain(t *testing.T) {
	tests := []struct {
		name    string
		sum     sim.Summary
		initial int
		want    float64
	}{
		{"nothing happened", sim.Summary{Spawned: 10}, 10, 0},
		{"only births", sim.Summary{Spawned: 10, Births: 30}, 10, 1},
		{"half refilled", sim.Summary{Spawned: 20, Births: 10}, 10, 0.5},
		{"fewer spawns than initial", sim.Summary{Spawned: 5, Births: 5}, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeSustain(tt.sum, tt.initial); got != tt.want {
				t.Errorf("computeSustain = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeFitnessPrefersSustain(t *testing.T) {
	if computeFitness(1, 0) >= computeFitness(0.5, 1) {
		t.Error("full sustain should beat half sustain with perfect quality")
	}
	if computeFitness(1, 1) >= computeFitness(1, 0) {
		t.Error("quality should break ties between equally sustaining runs")
	}
}

func TestComputeQuality(t *testing.T) {
	if got := computeQuality(nil, 100); got != 0 {
		t.Errorf("no windows: quality = %v, want 0", got)
	}

	steady := make([]telemetry.WindowStats, 10)
	for i := range steady {
		steady[i] = telemetry.WindowStats{Agents: 50, EnergyP50: 50, MaxGeneration: 1000}
	}
	got := computeQuality(steady, 100)
	if got < 0.99 || got > 1 {
		t.Errorf("steady population quality = %v, want ~1", got)
	}

	swinging := make([]telemetry.WindowStats, 10)
	for i := range swinging {
		swinging[i] = telemetry.WindowStats{Agents: 5 + 90*(i%2), EnergyP50: 5}
	}
	if q := computeQuality(swinging, 100); q >= got {
		t.Errorf("swinging population quality %v should be below steady %v", q, got)
	}
}

func TestCV(t *testing.T) {
	if cv(nil) != 0 || cv([]float64{0, 0}) != 0 {
		t.Error("degenerate input should give zero")
	}
	if got := cv([]float64{1, 3}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("cv = %v, want 0.5", got)
	}
}
