// Command sofa serves one force-volume measurement for interactive
// analysis: import or synthesis, the HTTP JSON API, session persistence
// and optional PNG snapshots.
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

	"github.com/2Puck/sofa/internal/api"
	"github.com/2Puck/sofa/internal/config"
	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/forcevolume/plot"
	"github.com/2Puck/sofa/internal/sessiondb"
	"github.com/2Puck/sofa/internal/version"
)

var (
	listen      = flag.String("listen", "", "Listen address (overrides the config file)")
	configPath  = flag.String("config", "", "Analysis config file (JSON)")
	dataPath    = flag.String("data", "", "Measurement JSON file; a synthetic grid is generated when empty")
	dbPath      = flag.String("db", "", "Session database path (overrides the config file)")
	plotDir     = flag.String("plots", "", "Render PNG snapshots under this directory after every change")
	rows        = flag.Int("rows", 4, "Synthetic grid rows")
	cols        = flag.Int("cols", 4, "Synthetic grid cols")
	noise       = flag.Float64("noise", 0, "Synthetic deflection noise sigma in metres")
	seed        = flag.Int64("seed", 1, "Synthetic noise seed")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadMeasurement reads the measurement file when -data is set and
// generates a synthetic grid otherwise.
func loadMeasurement() (forcevolume.Measurement, error) {
	if *dataPath != "" {
		f, err := os.Open(*dataPath)
		if err != nil {
			return forcevolume.Measurement{}, fmt.Errorf("failed to open measurement: %w", err)
		}
		defer f.Close()
		return forcevolume.ReadMeasurementJSON(f)
	}

	// The synthetic ramp starts 30 nm below contact so the baseline is
	// long enough for the correction fits.
	sweep := forcevolume.SweepParams{StartPosition: -30e-9, StepSize: 0.2e-9, MaxDeflection: 30e-9}
	return forcevolume.GenerateMeasurement(forcevolume.DefaultMaterialParams(), sweep, forcevolume.SyntheticParams{
		Rows:  *rows,
		Cols:  *cols,
		Noise: *noise,
		Seed:  *seed,
	})
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sofa %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.EmptyAnalysisConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAnalysisConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	addr := *listen
	if addr == "" {
		addr = cfg.GetListenAddr()
	}
	dbFile := *dbPath
	if dbFile == "" {
		dbFile = cfg.GetDatabasePath()
	}

	m, err := loadMeasurement()
	if err != nil {
		log.Fatalf("failed to load measurement: %v", err)
	}
	vol, skipped, err := forcevolume.Import(m)
	if err != nil {
		log.Fatalf("failed to import measurement: %v", err)
	}
	if skipped > 0 {
		log.Printf("imported %q with %d malformed curves left as artifacts", vol.Name(), skipped)
	}
	if err := vol.SetParams(forcevolume.Params{
		NumberOfDataPoints: cfg.GetNumberOfDataPoints(),
		NumberOfBins:       cfg.GetNumberOfBins(),
	}); err != nil {
		log.Fatalf("failed to apply analysis params: %v", err)
	}

	db, err := sessiondb.NewDB(dbFile)
	if err != nil {
		log.Fatalf("failed to open session database: %v", err)
	}
	defer db.Close()

	plotBase := *plotDir
	if plotBase == "" && cfg.PlotDir != nil {
		plotBase = cfg.GetPlotDir()
	}
	if plotBase != "" {
		renderer, err := plot.NewRenderer(plot.MakePlotOutputDir(plotBase, vol.Name()))
		if err != nil {
			log.Fatalf("failed to create plot dir: %v", err)
		}
		render := func() {
			if n, err := renderer.RenderAll(vol); err != nil {
				log.Printf("plot render failed: %v", err)
			} else {
				log.Printf("rendered %d plots to %s", n, renderer.OutputDir())
			}
		}
		render()
		// Subscribers run inside the mutating call, so renders stay
		// serialized with the API handlers.
		vol.OnChange(func(string) { render() })
	}

	log.Printf("sofa %s serving %q (%dx%d, %d active points) on %s",
		version.Version, vol.Name(), vol.Rows(), vol.Cols(), vol.Registry().ActiveCount(), addr)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(vol, db).ServeMux()
		if err := db.AttachAdminRoutes(mux); err != nil {
			log.Fatalf("failed to attach admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    addr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
