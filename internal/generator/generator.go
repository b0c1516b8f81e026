// Package generator orchestrates one certificate render: validate the
// request, allocate an isolated workspace, build the circular photo overlay,
// run the ffmpeg pipeline, and hand the finished file back. The workspace is
// destroyed on every exit path.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/bobarin/certvid/internal/models"
	"github.com/bobarin/certvid/internal/services"
	"github.com/bobarin/certvid/internal/workspace"
)

// Renderer runs the external video engine. *services.FFmpegService satisfies
// it; tests substitute a fake.
type Renderer interface {
	Render(ctx context.Context, templatePath, overlayPath string, plan *services.RenderPlan) error
}

// Config carries the static assets and resource limits for the orchestrator.
// Asset paths are explicit here rather than process globals so tests can
// inject temp roots and fake assets.
type Config struct {
	TemplateVideoPath string
	FontPath          string

	// MaxConcurrentRenders bounds simultaneous ffmpeg jobs; each render is
	// CPU and memory heavy.
	MaxConcurrentRenders int64

	// AdmissionWait is how long a request waits for a render slot before
	// being rejected as busy.
	AdmissionWait time.Duration

	// RenderTimeout bounds a single ffmpeg invocation so a hung engine
	// cannot hold a slot forever.
	RenderTimeout time.Duration
}

type Generator struct {
	cfg        Config
	workspaces *workspace.Manager
	renderer   Renderer
	sem        *semaphore.Weighted
	log        zerolog.Logger

	// buildOverlay is a seam for tests; defaults to services.BuildOverlay.
	buildOverlay func(photo []byte, outPath string) error
}

func New(cfg Config, workspaces *workspace.Manager, renderer Renderer, logger zerolog.Logger) *Generator {
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 2
	}
	if cfg.AdmissionWait <= 0 {
		cfg.AdmissionWait = 5 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 2 * time.Minute
	}

	return &Generator{
		cfg:          cfg,
		workspaces:   workspaces,
		renderer:     renderer,
		sem:          semaphore.NewWeighted(cfg.MaxConcurrentRenders),
		log:          logger,
		buildOverlay: services.BuildOverlay,
	}
}

// Generate runs the full pipeline for one request. On success the returned
// Result owns the output file; the caller must invoke Result.Cleanup after
// streaming. On any failure the workspace is already gone by the time the
// error is returned.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) (*models.Result, error) {
	if len(req.Photo) == 0 {
		return nil, models.NewInvalidInput("Photo is required")
	}
	name := services.SanitizeName(req.Name)
	if name == "" {
		return nil, models.NewInvalidInput("Name is required")
	}

	if _, err := os.Stat(g.cfg.TemplateVideoPath); err != nil {
		return nil, models.NewServerConfig("Certificate template is unavailable", fmt.Errorf("template video: %w", err))
	}
	if _, err := os.Stat(g.cfg.FontPath); err != nil {
		return nil, models.NewServerConfig("Certificate template is unavailable", fmt.Errorf("font asset: %w", err))
	}

	// Admission control: wait briefly for a render slot, then reject. Without
	// this, a burst of requests would each spawn an ffmpeg process at once.
	admitCtx, cancelAdmit := context.WithTimeout(ctx, g.cfg.AdmissionWait)
	defer cancelAdmit()
	if err := g.sem.Acquire(admitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled while waiting for render slot: %w", ctx.Err())
		}
		return nil, models.ErrBusy
	}
	defer g.sem.Release(1)

	requestID := uuid.New().String()
	logger := g.log.With().Str("request_id", requestID).Logger()

	dir, err := g.workspaces.Create(requestID)
	if err != nil {
		return nil, &models.Error{Kind: models.KindIO, Message: "Failed to prepare workspace", Err: err}
	}

	done := false
	defer func() {
		if !done {
			g.destroy(dir, logger)
		}
	}()

	start := time.Now()

	overlayPath := filepath.Join(dir, "overlay.png")
	if err := g.buildOverlay(req.Photo, overlayPath); err != nil {
		logger.Warn().Err(err).Msg("overlay build failed")
		return nil, err
	}

	plan := services.BuildPlan(name, g.cfg.FontPath, dir)

	renderCtx, cancelRender := context.WithTimeout(ctx, g.cfg.RenderTimeout)
	defer cancelRender()
	if err := g.renderer.Render(renderCtx, g.cfg.TemplateVideoPath, overlayPath, plan); err != nil {
		logger.Error().Err(err).Msg("render failed")
		return nil, err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Str("output", plan.OutputPath).Msg("certificate rendered")

	done = true
	var once sync.Once
	cleanup := func() {
		once.Do(func() { g.destroy(dir, logger) })
	}

	return &models.Result{
		Path:     plan.OutputPath,
		Filename: models.SuggestedFilename,
		Cleanup:  cleanup,
	}, nil
}

func (g *Generator) destroy(dir string, logger zerolog.Logger) {
	if err := g.workspaces.Destroy(dir); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("workspace cleanup failed")
	}
}
