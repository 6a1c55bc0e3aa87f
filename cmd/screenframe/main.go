package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/koios/screenframe/internal/cache"
	"github.com/koios/screenframe/internal/compositor"
	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/internal/pipeline"
	"github.com/koios/screenframe/pkg/models"
)

// Exit codes: 0 success, 1 invalid arguments or inaccessible input,
// 2 raster capability unavailable, 3 processing failures.
const (
	exitOK         = 0
	exitUsage      = 1
	exitCapability = 2
	exitProcessing = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("screenframe", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		inputDir  = fs.String("input", "", "root directory containing one subdirectory per locale (required)")
		outputDir = fs.String("output", "", "root directory receiving the promoted output tree")
		catalog   = fs.String("catalog", "", "device catalog YAML (default: embedded catalog)")
		assetsDir = fs.String("assets", "", "root directory for frame bezel assets")
		mode      = fs.String("mode", "", "promotion mode: strict or best-effort")
		workers   = fs.Int("workers", 0, "composition worker count")
		useCache  = fs.Bool("cache", false, "use the Redis composition cache")
		dryRun    = fs.Bool("dry-run", false, "report intended work without writing files")
		verbose   = fs.Bool("verbose", false, "per-file progress logging")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return exitUsage
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return exitUsage
	}
	applyFlags(cfg, *inputDir, *outputDir, *catalog, *assetsDir, *mode, *workers, *useCache)

	if cfg.Pipeline.InputDir == "" {
		fmt.Fprintln(errOut, "screenframe: --input is required")
		fs.Usage()
		return exitUsage
	}
	if info, err := os.Stat(cfg.Pipeline.InputDir); err != nil || !info.IsDir() {
		fmt.Fprintf(errOut, "screenframe: input directory %s is not accessible\n", cfg.Pipeline.InputDir)
		return exitUsage
	}
	if cfg.Pipeline.Mode != config.ModeStrict && cfg.Pipeline.Mode != config.ModeBestEffort {
		fmt.Fprintf(errOut, "screenframe: unknown mode %q\n", cfg.Pipeline.Mode)
		return exitUsage
	}

	deviceCatalog, err := loadCatalog(cfg.Pipeline.CatalogPath)
	if err != nil {
		logger.Error("Failed to load device catalog", zap.Error(err))
		fmt.Fprintf(errOut, "screenframe: %v\n", err)
		return exitUsage
	}
	registry, err := models.NewRegistry(deviceCatalog)
	if err != nil {
		logger.Error("Invalid device catalog", zap.Error(err))
		fmt.Fprintf(errOut, "screenframe: %v\n", err)
		return exitUsage
	}

	engine, err := compositor.NewImagingEngine(&cfg.Render, cfg.Pipeline.AssetsDir, registry.Specs(), logger)
	if err != nil {
		fmt.Fprintf(errOut, "screenframe: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisCache *cache.RedisCache
	if cfg.Cache.Enabled {
		redisCache = cache.NewRedisCache(&cfg.Cache)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("Composition cache unreachable, continuing without it", zap.Error(err))
			redisCache.Close()
			redisCache = nil
		}
		cancel()
		if redisCache != nil {
			defer redisCache.Close()
		}
	}

	orchestrator := pipeline.New(cfg, registry, engine, redisCache, logger)
	summary, err := orchestrator.Run(ctx, *dryRun)
	if err != nil {
		if errors.Is(err, models.ErrCapabilityUnavailable) {
			logger.Error("Raster capability unavailable", zap.Error(err))
			fmt.Fprintf(errOut, "screenframe: %v\n", err)
			return exitCapability
		}
		logger.Error("Pipeline run failed", zap.Error(err))
		fmt.Fprintf(errOut, "screenframe: %v\n", err)
		if summary != nil {
			pipeline.WriteReport(out, summary)
		}
		return exitProcessing
	}

	pipeline.WriteReport(out, summary)
	if summary.Failed > 0 {
		return exitProcessing
	}
	return exitOK
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadCatalog(path string) (*models.Catalog, error) {
	if path == "" {
		return models.DefaultCatalog()
	}
	return models.LoadCatalog(path)
}

// applyFlags overlays CLI flags onto the env-derived configuration; flags win.
func applyFlags(cfg *config.Config, input, output, catalog, assets, mode string, workers int, useCache bool) {
	if input != "" {
		cfg.Pipeline.InputDir = input
	}
	if output != "" {
		cfg.Pipeline.OutputDir = output
	}
	if catalog != "" {
		cfg.Pipeline.CatalogPath = catalog
	}
	if assets != "" {
		cfg.Pipeline.AssetsDir = assets
	}
	if mode != "" {
		cfg.Pipeline.Mode = mode
	}
	if workers > 0 {
		cfg.Pipeline.Workers = workers
	}
	if useCache {
		cfg.Cache.Enabled = true
	}
}
