package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koios/screenframe/internal/cache"
	"github.com/koios/screenframe/internal/compositor"
	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/pkg/models"
)

// compositionCache is the slice of the Redis cache the orchestrator needs.
type compositionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Orchestrator drives one pipeline run: discover locales, composite each file
// into a run-scoped staging tree, validate every produced asset, then decide
// whether the staged tree becomes the canonical output.
type Orchestrator struct {
	cfg      *config.Config
	registry *models.Registry
	engine   compositor.Engine
	cache    compositionCache
	logger   *zap.Logger
}

// New creates an orchestrator. cache may be nil when the composition cache is
// disabled.
func New(cfg *config.Config, registry *models.Registry, engine compositor.Engine, redisCache *cache.RedisCache, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		engine:   engine,
		logger:   logger,
	}
	if redisCache != nil {
		o.cache = redisCache
	}
	return o
}

// Run executes the Discover -> Process -> Validate -> Decide -> Report state
// machine. A capability failure aborts before any file is touched; every
// other failure stays scoped to its file.
func (o *Orchestrator) Run(ctx context.Context, dryRun bool) (*models.RunSummary, error) {
	runID := uuid.NewString()[:8]
	summary := &models.RunSummary{
		RunID:  runID,
		Mode:   o.cfg.Pipeline.Mode,
		DryRun: dryRun,
	}

	// Fail fast: do not discover a dead capability after 90% of a batch.
	if err := o.engine.Preflight(ctx); err != nil {
		return nil, err
	}

	batches, err := Discover(o.cfg.Pipeline.InputDir, o.cfg.Pipeline.Extensions)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b.Files)
		if len(b.Files) == 0 {
			o.logger.Warn("Locale has no screenshots", zap.String("locale", b.Locale))
		}
	}
	o.logger.Info("Discovery complete",
		zap.Int("locales", len(batches)),
		zap.Int("files", total),
		zap.String("run_id", runID))
	if total == 0 {
		return summary, nil
	}

	if dryRun {
		o.planOnly(batches, summary)
		return summary, nil
	}

	// Staging lives beside the output directory so promotion is a rename on
	// the same filesystem.
	stagingRoot := o.cfg.Pipeline.OutputDir + ".staging-" + runID
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(stagingRoot)

	// The pool is per run; a fresh run gets fresh workers.
	timeout := time.Duration(o.cfg.Pipeline.TimeoutSec) * time.Second
	pool := compositor.NewWorkerPool(o.cfg.Pipeline.Workers, o.engine, timeout, o.logger)
	pool.Start()
	defer pool.Stop()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func(batch models.LocaleBatch) {
			defer wg.Done()
			// Each locale gets its own cancelable context; aborting one
			// locale never touches the others.
			localeCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			for _, file := range batch.Files {
				result := o.processFile(localeCtx, pool, batch, file, stagingRoot)
				mu.Lock()
				summary.Results = append(summary.Results, result)
				mu.Unlock()
			}
		}(batch)
	}
	wg.Wait()

	sort.Slice(summary.Results, func(i, j int) bool {
		a, b := summary.Results[i], summary.Results[j]
		if a.Locale != b.Locale {
			return a.Locale < b.Locale
		}
		return a.InputPath < b.InputPath
	})
	for _, r := range summary.Results {
		switch r.Status {
		case models.StatusSuccess:
			summary.Succeeded++
		case models.StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	if err := o.decide(stagingRoot, runID, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// decide applies the run's promotion policy to the staged tree.
func (o *Orchestrator) decide(stagingRoot, runID string, summary *models.RunSummary) error {
	switch o.cfg.Pipeline.Mode {
	case config.ModeBestEffort:
		if summary.Succeeded > 0 {
			if err := promoteFiles(stagingRoot, o.cfg.Pipeline.OutputDir, summary.Results); err != nil {
				return err
			}
			summary.Promoted = true
		}
		switch {
		case summary.Promoted && summary.Failed > 0:
			o.logger.Warn("Best-effort run promoted with failures",
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed))
		case summary.Failed > 0:
			o.logger.Warn("Best-effort run produced nothing to promote",
				zap.Int("failed", summary.Failed))
		}
	default: // strict
		if summary.Failed > 0 {
			o.logger.Error("Strict run failed, staged output discarded",
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed))
			return nil
		}
		if summary.Succeeded > 0 {
			if err := promoteTree(stagingRoot, o.cfg.Pipeline.OutputDir, runID); err != nil {
				return err
			}
			summary.Promoted = true
		}
	}
	return nil
}

// planOnly records intended work without composing or writing anything.
// Inputs are still decoded read-only so device resolution matches a real run,
// dimension fallback included.
func (o *Orchestrator) planOnly(batches []models.LocaleBatch, summary *models.RunSummary) {
	for _, batch := range batches {
		for _, file := range batch.Files {
			inputPath := filepath.Join(batch.Dir, file)
			result := models.ProcessingResult{
				Locale:      batch.Locale,
				InputPath:   inputPath,
				Status:      models.StatusSkipped,
				ProcessedAt: time.Now(),
			}
			width, height := 0, 0
			if info, err := compositor.ValidateInput(inputPath); err == nil {
				width, height = info.Width, info.Height
				result.InputWidth = info.Width
				result.InputHeight = info.Height
			}
			if spec, ok := o.resolveSpec(file, width, height); ok {
				result.OutputPath = filepath.Join(o.cfg.Pipeline.OutputDir, batch.Locale, outputName(file))
				result.OutputWidth = spec.CanvasWidth
				result.OutputHeight = spec.CanvasHeight
			}
			summary.Results = append(summary.Results, result)
			summary.Skipped++
		}
	}
}

// processFile runs the full per-file path: validate, resolve, composite (or
// cache hit), stage, re-validate. Any error is recorded on the result and
// never propagates to sibling files.
func (o *Orchestrator) processFile(ctx context.Context, pool *compositor.WorkerPool, batch models.LocaleBatch, file, stagingRoot string) models.ProcessingResult {
	inputPath := filepath.Join(batch.Dir, file)
	result := models.ProcessingResult{
		Locale:      batch.Locale,
		InputPath:   inputPath,
		ProcessedAt: time.Now(),
	}

	fail := func(err error) models.ProcessingResult {
		result.Status = models.StatusFailed
		result.ErrorKind = models.KindOf(err)
		result.ErrorDetail = err.Error()
		o.logger.Error("File processing failed",
			zap.String("locale", batch.Locale),
			zap.String("file", file),
			zap.String("kind", string(result.ErrorKind)),
			zap.Error(err))
		return result
	}

	info, err := compositor.ValidateInput(inputPath)
	if err != nil {
		return fail(err)
	}
	result.InputWidth = info.Width
	result.InputHeight = info.Height

	spec, ok := o.resolveSpec(file, info.Width, info.Height)
	if !ok {
		return fail(models.Errf(models.ErrorKindInputInvalid, inputPath,
			"no device spec matches filename or %dx%d capture", info.Width, info.Height))
	}

	stagedPath := filepath.Join(stagingRoot, batch.Locale, outputName(file))
	// The result names the canonical destination; the staged path is gone
	// once the run's staging tree is cleaned up.
	result.OutputPath = filepath.Join(o.cfg.Pipeline.OutputDir, batch.Locale, outputName(file))

	output, cacheKey := o.lookupCache(ctx, inputPath, spec)
	fresh := output == nil
	if fresh {
		output, err = pool.Submit(ctx, &compositor.Job{InputPath: inputPath, Spec: spec, Input: info})
		if err != nil {
			return fail(err)
		}
	}

	if err := writeFileAtomic(stagedPath, output); err != nil {
		return fail(models.WrapErr(models.ErrorKindIO, stagedPath, err))
	}
	if err := compositor.ValidateOutput(stagedPath, spec, o.cfg.Validate); err != nil {
		if fresh {
			return fail(err)
		}
		// A stale or corrupt cache entry is not the file's fault; recompose
		// once before giving up.
		o.logger.Warn("Cached output failed validation, recomposing",
			zap.String("input", inputPath),
			zap.Error(err))
		fresh = true
		output, err = pool.Submit(ctx, &compositor.Job{InputPath: inputPath, Spec: spec, Input: info})
		if err != nil {
			return fail(err)
		}
		if err := writeFileAtomic(stagedPath, output); err != nil {
			return fail(models.WrapErr(models.ErrorKindIO, stagedPath, err))
		}
		if err := compositor.ValidateOutput(stagedPath, spec, o.cfg.Validate); err != nil {
			return fail(err)
		}
	}

	if fresh && cacheKey != "" {
		if err := o.cache.Set(ctx, cacheKey, output); err != nil {
			o.logger.Debug("Cache store failed", zap.Error(err))
		}
	}

	result.Status = models.StatusSuccess
	result.OutputWidth = spec.CanvasWidth
	result.OutputHeight = spec.CanvasHeight
	o.logger.Info("File processed",
		zap.String("locale", batch.Locale),
		zap.String("file", file),
		zap.String("device", spec.Name),
		zap.Bool("cached", !fresh))
	return result
}

// resolveSpec prefers the filename convention, then falls back to raw
// capture dimensions. Dimensions of zero skip the fallback (undecodable
// input).
func (o *Orchestrator) resolveSpec(file string, width, height int) (*models.ResolvedSpec, bool) {
	if spec, ok := o.registry.ResolveByFilename(file); ok {
		return spec, true
	}
	if width > 0 && height > 0 {
		return o.registry.ResolveByDimensions(width, height)
	}
	return nil, false
}

// lookupCache returns cached composed bytes and the cache key, when the
// cache is enabled and holds the entry.
func (o *Orchestrator) lookupCache(ctx context.Context, inputPath string, spec *models.ResolvedSpec) ([]byte, string) {
	if o.cache == nil {
		return nil, ""
	}
	digest, err := cache.DigestFile(inputPath)
	if err != nil {
		return nil, ""
	}
	key := cache.Key(spec, digest)
	data, found, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Debug("Cache lookup failed", zap.Error(err))
		return nil, key
	}
	if !found {
		return nil, key
	}
	o.logger.Debug("Cache hit", zap.String("input", inputPath))
	return data, key
}

func outputName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".png"
}
