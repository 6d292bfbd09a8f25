// Command floorsim runs the placement frame loop against a simulated AR
// session. A scripted user taps, pinches and switches models while the
// simulated planes refine their height; placements are optionally journaled
// to sqlite, plotted, and exposed on the debug HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/config"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/journal"
	"github.com/banshee-data/floorobjects/internal/monitor"
	"github.com/banshee-data/floorobjects/internal/placement"
	"github.com/banshee-data/floorobjects/internal/spatial"
	"github.com/banshee-data/floorobjects/internal/tracking/synthetic"
	"github.com/banshee-data/floorobjects/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to tuning config JSON (defaults built in)")
	frames      = flag.Int("frames", 600, "Number of frames to simulate (0 = until interrupted)")
	seed        = flag.Int64("seed", 1, "Random seed for the simulated session and user")
	dbPath      = flag.String("db", "", "Journal placement events to this sqlite file")
	listen      = flag.String("listen", "", "Serve /debug/ on this address, e.g. :8081")
	plotDir     = flag.String("plot-dir", "", "Write height-convergence plots under this directory")
	realtime    = flag.Bool("realtime", false, "Pace frames at the configured frame_interval")
	dropout     = flag.Float64("dropout", 0.002, "Per-frame probability that an anchor or plane loses tracking")
	resetAt     = flag.Uint64("reset-at", 0, "Reset all placements at this frame (0 = never)")
	logEvery    = flag.Uint64("log-every", 60, "Log a render summary every N frames (0 = never)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

type options struct {
	tuning   *config.TuningConfig
	frames   int
	seed     int64
	dbPath   string
	listen   string
	plotDir  string
	realtime bool
	dropout  float64
	resetAt  uint64
	logEvery uint64
}

type summary struct {
	snapshot    *frameloop.FrameSnapshot
	draws       map[catalog.ModelID]int64
	liveAnchors int
	plots       int
	journaled   map[journal.Event]int
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("floorsim"))
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, options{
		tuning:   tuning,
		frames:   *frames,
		seed:     *seed,
		dbPath:   *dbPath,
		listen:   *listen,
		plotDir:  *plotDir,
		realtime: *realtime,
		dropout:  *dropout,
		resetAt:  *resetAt,
		logEvery: *logEvery,
	})
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
	printSummary(os.Stdout, sum)
}

func newSession(o options) *synthetic.Session {
	cfg := synthetic.DefaultConfig()
	cfg.Seed = o.seed
	cfg.DropoutProbability = o.dropout
	cfg.DropoutFrames = 20
	sess := synthetic.NewSession(cfg)
	sess.AddPlane(synthetic.PlaneSpec{
		ID:         "floor",
		TrueCenter: spatial.Vec3{Z: -2},
		InitialY:   0.04,
		HalfX:      2.5,
		HalfZ:      2.5,
	})
	sess.AddPlane(synthetic.PlaneSpec{
		ID:         "table",
		TrueCenter: spatial.Vec3{X: 0.8, Y: 0.72, Z: -1.2},
		InitialY:   0.65,
		HalfX:      0.4,
		HalfZ:      0.3,
	})
	return sess
}

func run(ctx context.Context, o options) (*summary, error) {
	tuning := o.tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	cat, err := tuning.GetCatalog()
	if err != nil {
		return nil, err
	}
	initial, err := tuning.GetSelectedModel(cat)
	if err != nil {
		return nil, err
	}

	sess := newSession(o)

	regCfg := placement.RegistryConfigFromTuning(tuning)
	var jrnl *journal.Journal
	if o.dbPath != "" {
		jrnl, err = journal.Open(o.dbPath)
		if err != nil {
			return nil, err
		}
		defer jrnl.Close()
		regCfg.Listener = jrnl
	}
	registry := placement.NewRegistry(regCfg, sess)

	renderer, err := newConsoleRenderer(cat, o.logEvery)
	if err != nil {
		return nil, err
	}

	var observers []frameloop.FrameObserver
	if jrnl != nil {
		observers = append(observers, jrnl)
	}
	var plotter *monitor.HeightPlotter
	if o.plotDir != "" {
		plotter = monitor.NewHeightPlotter()
		if err := plotter.Start(monitor.MakePlotOutputDir(o.plotDir, "floorsim", time.Now())); err != nil {
			return nil, err
		}
		observers = append(observers, plotter)
	}

	proc, err := frameloop.NewProcessor(frameloop.Config{
		Session:   sess,
		Registry:  registry,
		Selection: frameloop.NewSelection(cat, initial, tuning),
		Renderer:  renderer,
		Observers: observers,
		Tuning:    tuning,
	})
	if err != nil {
		return nil, err
	}
	// The scripted user is registered last so it sees a frame only after the
	// journal and plotter have.
	user := newScriptedUser(proc, cat, o.seed, o.resetAt)
	proc.AddObserver(user)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()
	if o.listen != "" {
		mux := http.NewServeMux()
		monitor.NewDebugRoutes(proc).AttachAdminRoutes(mux)
		if jrnl != nil {
			if err := jrnl.AttachAdminRoutes(mux); err != nil {
				return nil, err
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, o.listen, mux)
		}()
	}

	var interval time.Duration
	if o.realtime {
		interval = tuning.GetFrameInterval()
	}
	log.Printf("simulating %d frames with %d models, selected %s", o.frames, cat.Len(), initial.ID)
	if err := proc.Run(ctx, interval, o.frames); err != nil {
		return nil, err
	}

	sum := &summary{
		snapshot:    proc.Snapshot(),
		draws:       renderer.drawCounts(cat),
		liveAnchors: sess.LiveAnchors(),
	}
	if plotter != nil {
		plotter.Stop()
		n, err := plotter.GeneratePlots()
		if err != nil {
			return nil, fmt.Errorf("generate plots: %w", err)
		}
		sum.plots = n
	}
	if jrnl != nil {
		counts, err := jrnl.CountByEvent()
		if err != nil {
			return nil, err
		}
		sum.journaled = counts
	}
	return sum, nil
}

func serveDebug(ctx context.Context, addr string, mux *http.ServeMux) {
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server failed: %v", err)
		}
	}()
	log.Printf("debug server listening on %s", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("debug server force close error: %v", err)
		}
	}
}
