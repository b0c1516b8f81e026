package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/certvid/internal/api"
	"github.com/bobarin/certvid/internal/config"
	"github.com/bobarin/certvid/internal/generator"
	"github.com/bobarin/certvid/internal/logging"
	"github.com/bobarin/certvid/internal/services"
	"github.com/bobarin/certvid/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("production")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.AppEnv)
	logger.Info().Str("env", cfg.AppEnv).Msg("starting certvid API")

	// Missing assets are an operator problem, not a boot failure: the health
	// probe stays useful and requests fail with a server-config error.
	for _, asset := range []string{cfg.TemplateVideoPath, cfg.FontPath} {
		if _, err := os.Stat(asset); err != nil {
			logger.Warn().Str("asset", asset).Err(err).Msg("static asset not readable")
		}
	}

	workspaces, err := workspace.NewManager(cfg.WorkDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare workspace root")
	}

	renderer := services.NewFFmpegService(logger)
	gen := generator.New(generator.Config{
		TemplateVideoPath:    cfg.TemplateVideoPath,
		FontPath:             cfg.FontPath,
		MaxConcurrentRenders: int64(cfg.MaxConcurrentRenders),
		AdmissionWait:        cfg.AdmissionWait,
		RenderTimeout:        cfg.RenderTimeout,
	}, workspaces, renderer, logger)

	handler := api.NewHandler(gen, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Logger:             logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
