package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	AppEnv             string
	APIPort            string
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Static assets consumed by the render pipeline
	TemplateVideoPath string
	FontPath          string

	// WorkDir is the volatile root under which per-request workspaces live.
	WorkDir string

	// Limits
	MaxConcurrentRenders int
	AdmissionWait        time.Duration
	RenderTimeout        time.Duration
	MaxUploadBytes       int64
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "production"),
		APIPort:              getEnv("API_PORT", "8080"),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		TemplateVideoPath:    getEnv("TEMPLATE_VIDEO_PATH", "assets/template/certificate.mp4"),
		FontPath:             getEnv("FONT_PATH", "assets/fonts/certificate.ttf"),
		WorkDir:              getEnv("WORK_DIR", "/tmp/certvid"),
		MaxConcurrentRenders: getEnvInt("MAX_CONCURRENT_RENDERS", 2),
		AdmissionWait:        getEnvDuration("ADMISSION_WAIT", 5*time.Second),
		RenderTimeout:        getEnvDuration("RENDER_TIMEOUT", 2*time.Minute),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
	}

	// Validate required fields
	if cfg.TemplateVideoPath == "" {
		return nil, fmt.Errorf("TEMPLATE_VIDEO_PATH is required")
	}
	if cfg.FontPath == "" {
		return nil, fmt.Errorf("FONT_PATH is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("WORK_DIR is required")
	}
	if cfg.MaxConcurrentRenders < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_RENDERS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
