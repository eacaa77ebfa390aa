package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase identifies one stage of a simulation step, in step order.
type Phase int

const (
	PhaseDayNight Phase = iota
	PhaseResources
	PhaseAgents
	PhaseMotion
	PhaseRefill
	PhaseTelemetry
	PhasePublish

	numPhases
)

var phaseNames = [numPhases]string{
	"day_night", "resources", "agents", "motion", "refill", "telemetry", "publish",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickSample is the timing of one step.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
	agents int // population after the step
}

// PerfCollector times simulation steps over a rolling window of ticks.
type PerfCollector struct {
	now func() time.Time

	ring   []tickSample
	next   int
	filled int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	// Frame timing (windowed mode)
	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	return newPerfCollector(windowSize, time.Now)
}

func newPerfCollector(windowSize int, now func() time.Time) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		now:  now,
		ring: make([]tickSample, windowSize),
	}
}

// StartTick begins timing a new step.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.cur = tickSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := p.now()
	p.closePhase(now)
	p.phase = phase
	p.phaseStart = now
	p.inPhase = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick finishes the step and records it with the population size the
// step ended with.
func (p *PerfCollector) EndTick(agents int) {
	now := p.now()
	p.closePhase(now)
	p.inPhase = false
	p.cur.total = now.Sub(p.tickStart)
	p.cur.agents = agents

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// RecordFrame marks a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the timing window.
type PerfStats struct {
	Samples int

	AvgTick time.Duration
	P95Tick time.Duration
	MaxTick time.Duration

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // share of the average tick, 0-100

	TicksPerSecond float64
	MeanAgents     float64
	// AgentUpdateNS is the agents phase cost per living agent.
	AgentUpdateNS float64

	FPS float64
}

// Stats computes the window summary.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	s.Samples = p.filled
	if p.filled == 0 {
		return s
	}

	totals := make([]float64, p.filled)
	var sumTick time.Duration
	var sumPhases [numPhases]time.Duration
	agents := 0
	for i, smp := range p.ring[:p.filled] {
		totals[i] = float64(smp.total)
		sumTick += smp.total
		s.MaxTick = max(s.MaxTick, smp.total)
		for ph, d := range smp.phases {
			sumPhases[ph] += d
		}
		agents += smp.agents
	}

	n := time.Duration(p.filled)
	s.AvgTick = sumTick / n
	sort.Float64s(totals)
	s.P95Tick = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))
	s.MeanAgents = float64(agents) / float64(p.filled)

	for ph := range sumPhases {
		s.PhaseAvg[ph] = sumPhases[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTick) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	if s.MeanAgents > 0 {
		s.AgentUpdateNS = float64(s.PhaseAvg[PhaseAgents]) / s.MeanAgents
	}
	return s
}

// LogStats logs the summary at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "window", s)
}

// LogValue implements slog.LogValuer. Phases under 0.1% are omitted.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("p95_tick_us", s.P95Tick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("agent_update_ns", s.AgentUpdateNS),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfRecord is one perf.csv row.
type PerfRecord struct {
	WindowEnd     int32   `csv:"window_end"`
	Samples       int     `csv:"samples"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	P95TickUS     int64   `csv:"p95_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	MeanAgents    float64 `csv:"mean_agents"`
	AgentUpdateNS float64 `csv:"agent_update_ns"`
	FPS           float64 `csv:"fps"`
	DayNightPct   float64 `csv:"day_night_pct"`
	ResourcesPct  float64 `csv:"resources_pct"`
	AgentsPct     float64 `csv:"agents_pct"`
	MotionPct     float64 `csv:"motion_pct"`
	RefillPct     float64 `csv:"refill_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
	PublishPct    float64 `csv:"publish_pct"`
}

// Record flattens the summary into a CSV row.
func (s PerfStats) Record(windowEnd int32) PerfRecord {
	return PerfRecord{
		WindowEnd:     windowEnd,
		Samples:       s.Samples,
		AvgTickUS:     s.AvgTick.Microseconds(),
		P95TickUS:     s.P95Tick.Microseconds(),
		MaxTickUS:     s.MaxTick.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		MeanAgents:    s.MeanAgents,
		AgentUpdateNS: s.AgentUpdateNS,
		FPS:           s.FPS,
		DayNightPct:   s.PhasePct[PhaseDayNight],
		ResourcesPct:  s.PhasePct[PhaseResources],
		AgentsPct:     s.PhasePct[PhaseAgents],
		MotionPct:     s.PhasePct[PhaseMotion],
		RefillPct:     s.PhasePct[PhaseRefill],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
		PublishPct:    s.PhasePct[PhasePublish],
	}
}
