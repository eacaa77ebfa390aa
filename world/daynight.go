package world

import "github.com/pthm-cable/forage/config"

// DayNight alternates between a day phase and a night phase. The timer
// advances by a fixed step per tick and resets at each transition.
type DayNight struct {
	cfg   config.DayNightConfig
	day   bool
	timer float64
}

// NewDayNight starts the cycle at the beginning of a day.
func NewDayNight(cfg config.DayNightConfig) *DayNight {
	return &DayNight{cfg: cfg, day: true}
}

// Advance moves the cycle forward one tick and reports whether it switched
// between day and night.
func (d *DayNight) Advance() bool {
	d.timer += d.cfg.TimeStep
	limit := d.cfg.NightDuration
	if d.day {
		limit = d.cfg.DayDuration
	}
	if d.timer >= limit {
		d.day = !d.day
		d.timer = 0
		return true
	}
	return false
}

// IsDaytime reports whether it is currently day.
func (d *DayNight) IsDaytime() bool {
	return d.day
}

// CyclePhase returns progress through the current day or night in [0, 1).
func (d *DayNight) CyclePhase() float64 {
	if d.day {
		return d.timer / d.cfg.DayDuration
	}
	return d.timer / d.cfg.NightDuration
}
