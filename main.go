package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/render"
	"github.com/pthm-cable/forage/sim"
	"github.com/pthm-cable/forage/store"
	"github.com/pthm-cable/forage/stream"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	storeKind := flag.String("store", "", "Genome store backend: memory or sqlite (empty = use config)")
	storePath := flag.String("store-path", "", "SQLite database path (empty = use config)")
	streamAddr := flag.String("stream-addr", "", "Websocket listen address (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *storeKind != "" {
		cfg.Store.Backend = *storeKind
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *streamAddr != "" {
		cfg.Stream.Addr = *streamAddr
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, runOptions{
		seed:        rngSeed,
		headless:    *headless,
		logStats:    *logStats,
		snapshotDir: *snapshotDir,
		outputDir:   *outputDir,
		maxTicks:    *maxTicks,
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	seed        int64
	headless    bool
	logStats    bool
	snapshotDir string
	outputDir   string
	maxTicks    int
}

func run(ctx context.Context, cfg *config.Config, ro runOptions) (err error) {
	st, err := store.NewStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	opts := sim.Options{
		Seed:        ro.seed,
		LogStats:    ro.logStats,
		OutputDir:   ro.outputDir,
		SnapshotDir: ro.snapshotDir,
		Store:       st,
	}

	if cfg.Stream.Addr != "" {
		hub := stream.NewHub(cfg.World.Width, cfg.World.Depth)
		go hub.Run(ctx)
		srv := &http.Server{Addr: cfg.Stream.Addr, Handler: hub}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("stream server failed", "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("stream listening", "addr", cfg.Stream.Addr)
		opts.Publisher = hub
	}

	if !ro.headless {
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Forage")
		defer rl.CloseWindow()
		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	}

	s, err := sim.New(cfg, opts)
	if err != nil {
		return err
	}
	started := time.Now()

	if ro.headless {
		slog.Info("starting headless simulation",
			"seed", ro.seed,
			"run_id", s.RunID(),
			"max_ticks", ro.maxTicks,
		)
		for ctx.Err() == nil {
			s.Step()
			if ro.maxTicks > 0 && int(s.Tick()) >= ro.maxTicks {
				slog.Info("max ticks reached", "tick", s.Tick())
				break
			}
		}
	} else {
		v := render.NewViewer(s, int32(cfg.Screen.Width), int32(cfg.Screen.Height))
		defer v.Unload()
		for !rl.WindowShouldClose() && ctx.Err() == nil {
			v.Update()
			v.Draw()
			if ro.maxTicks > 0 && int(s.Tick()) >= ro.maxTicks {
				break
			}
		}
	}

	// Exports must finish even after an interrupt.
	closeErr := s.Close(context.WithoutCancel(ctx))
	logSummary(s.Summary(), s.RunID(), time.Since(started))
	return closeErr
}

func logSummary(sum sim.Summary, runID string, elapsed time.Duration) {
	slog.Info("simulation_finished",
		"run_id", runID,
		"ticks", humanize.Comma(int64(sum.Ticks)),
		"alive", sum.Alive,
		"births", humanize.Comma(int64(sum.Births)),
		"deaths", humanize.Comma(int64(sum.Deaths)),
		"refused", humanize.Comma(int64(sum.Refused)),
		"spawned", humanize.Comma(int64(sum.Spawned)),
		"extinctions", sum.Extinctions,
		"max_generation", sum.MaxGeneration,
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"ticks_per_sec", humanize.FormatFloat("#,###.#", float64(sum.Ticks)/elapsed.Seconds()),
	)
}
