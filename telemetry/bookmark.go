package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkBirthBoom           BookmarkType = "birth_boom"
	BookmarkPopulationCrash     BookmarkType = "population_crash"
	BookmarkCeilingReached      BookmarkType = "ceiling_reached"
	BookmarkGenerationMilestone BookmarkType = "generation_milestone"
	BookmarkStablePopulation    BookmarkType = "stable_population"
)

// generationStep is the spacing of generation milestones.
const generationStep = 10

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPeak         int  // peak agent count since the last crash
	ceilingSeen        bool // a refusal has already been bookmarked
	lastMilestone      int  // highest generation milestone reported
	stableWindowsCount int  // consecutive windows with a stable population
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if bd.historyFull || bd.historyIdx > 0 {
		add(bd.checkBirthBoom(stats))
		add(bd.checkPopulationCrash(stats))
		add(bd.checkStablePopulation(stats))
	}
	add(bd.checkCeiling(stats))
	add(bd.checkGenerationMilestone(stats))

	bd.addToHistory(stats)
	if stats.Agents > bd.recentPeak {
		bd.recentPeak = stats.Agents
	}
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkBirthBoom fires when births exceed twice the rolling average.
func (bd *BookmarkDetector) checkBirthBoom(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Births
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Births) > avg*2.0 && stats.Births >= 5 {
		return &Bookmark{
			Type:        BookmarkBirthBoom,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d births is %.1fx average (%.1f)", stats.Births, float64(stats.Births)/avg, avg),
		}
	}
	return nil
}

// checkPopulationCrash fires when the population falls more than 30% below
// its recent peak.
func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Agents)/float64(bd.recentPeak)
	if drop > 0.30 && stats.Agents < bd.recentPeak-5 {
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Agents

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Agents),
		}
	}
	return nil
}

// checkCeiling fires the first time an offspring is refused.
func (bd *BookmarkDetector) checkCeiling(stats WindowStats) *Bookmark {
	if bd.ceilingSeen || stats.Refused == 0 {
		return nil
	}
	bd.ceilingSeen = true
	return &Bookmark{
		Type:        BookmarkCeilingReached,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Population hit the ceiling at %d agents (%d refused)", stats.Agents, stats.Refused),
	}
}

// checkGenerationMilestone fires each time the deepest lineage passes a
// multiple of generationStep.
func (bd *BookmarkDetector) checkGenerationMilestone(stats WindowStats) *Bookmark {
	milestone := stats.MaxGeneration / generationStep * generationStep
	if milestone == 0 || milestone <= bd.lastMilestone {
		return nil
	}
	bd.lastMilestone = milestone
	return &Bookmark{
		Type:        BookmarkGenerationMilestone,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Lineage reached generation %d", stats.MaxGeneration),
	}
}

// checkStablePopulation fires once the agent count has had a coefficient of
// variation below 20% for five consecutive windows.
func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	if stats.Agents < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	counts := make([]float64, len(history))
	for i, h := range history {
		counts[i] = float64(h.Agents)
	}
	m, v := stat.PopMeanVariance(counts, nil)

	cv2 := 0.0
	if m > 0 {
		cv2 = v / (m * m)
	}
	if cv2 < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable population around %.0f agents over 5+ windows", m),
		}
	}
	return nil
}
