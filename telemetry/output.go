package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/forage/config"
)

// CSV files written into the output directory.
const (
	TelemetryFile = "telemetry.csv"
	PerfFile      = "perf.csv"
	BookmarksFile = "bookmarks.csv"
	LineageFile   = "lineage.csv"
)

var csvFiles = []string{TelemetryFile, PerfFile, BookmarksFile, LineageFile}

// csvSink appends gocsv rows to one file, writing the header with the
// first batch.
type csvSink struct {
	f      *os.File
	header bool
}

func (s *csvSink) write(rows any) error {
	if s.header {
		return gocsv.MarshalWithoutHeaders(rows, s.f)
	}
	if err := gocsv.Marshal(rows, s.f); err != nil {
		return err
	}
	s.header = true
	return nil
}

// OutputManager writes a run's CSV logs, config snapshot and hall of fame
// into one directory. A nil manager discards everything.
type OutputManager struct {
	dir   string
	sinks map[string]*csvSink
}

// NewOutputManager creates dir and opens every CSV file in it. It returns
// nil when dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, sinks: make(map[string]*csvSink, len(csvFiles))}
	for _, name := range csvFiles {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating %s: %w", name, err), om.Close())
		}
		om.sinks[name] = &csvSink{f: f}
	}
	return om, nil
}

func (om *OutputManager) write(name string, rows any) error {
	if om == nil {
		return nil
	}
	if err := om.sinks[name].write(rows); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteConfig saves the effective configuration as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	return om.write(TelemetryFile, []WindowStats{stats})
}

// WritePerf appends the timing summary for the window ending at windowEnd.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	return om.write(PerfFile, []PerfRecord{stats.Record(windowEnd)})
}

// WriteBookmark appends a bookmark to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	return om.write(BookmarksFile, []Bookmark{b})
}

// WriteLineage appends death records to lineage.csv. An empty batch
// writes nothing.
func (om *OutputManager) WriteLineage(records []LineageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return om.write(LineageFile, records)
}

// WriteHallOfFame saves the hall of fame as hall_of_fame.json.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}
	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every open file.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for name, s := range om.sinks {
		if err := s.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
