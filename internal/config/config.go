package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the pipeline
type Config struct {
	Pipeline PipelineConfig
	Render   RenderConfig
	Validate ValidateConfig
	Cache    CacheConfig
	LogLevel string
}

// PipelineConfig holds batch-orchestration configuration
type PipelineConfig struct {
	InputDir    string
	OutputDir   string
	CatalogPath string // empty means the embedded catalog
	AssetsDir   string // root for frame bezel assets
	Mode        string // "strict" or "best-effort"
	Workers     int
	TimeoutSec  int // per-file composition timeout
	Extensions  []string
}

// RenderConfig holds composition parameters shared by both algorithms
type RenderConfig struct {
	GradientCenter string  // hex color at the gradient center
	GradientEdge   string  // hex color at the gradient edge
	ShadowBlur     float64 // gaussian sigma for the drop shadow
	ShadowOpacity  float64 // 0..1
	ShadowOffsetY  int     // vertical offset in pixels
	Matte          string  // hex color used when flattening alpha
	FrameVariant   string  // bezel finish; empty picks the first variant
}

// ValidateConfig holds output-validation limits
type ValidateConfig struct {
	MinOutputBytes int64
	MaxOutputBytes int64
}

// CacheConfig holds the optional Redis composition cache settings
type CacheConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTLSec   int
}

// ModeStrict promotes the whole staged tree only when zero files failed.
const ModeStrict = "strict"

// ModeBestEffort promotes successful files individually.
const ModeBestEffort = "best-effort"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Pipeline: PipelineConfig{
			InputDir:    getEnv("SCREENFRAME_INPUT", ""),
			OutputDir:   getEnv("SCREENFRAME_OUTPUT", "screenshots-framed"),
			CatalogPath: getEnv("SCREENFRAME_CATALOG", ""),
			AssetsDir:   getEnv("SCREENFRAME_ASSETS", "assets"),
			Mode:        getEnv("SCREENFRAME_MODE", ModeStrict),
			Workers:     getEnvAsInt("SCREENFRAME_WORKERS", 4),
			TimeoutSec:  getEnvAsInt("SCREENFRAME_TIMEOUT", 30),
			Extensions:  []string{".png", ".jpg", ".jpeg"},
		},
		Render: RenderConfig{
			GradientCenter: getEnv("SCREENFRAME_GRADIENT_CENTER", "#F5F7FA"),
			GradientEdge:   getEnv("SCREENFRAME_GRADIENT_EDGE", "#B8C4D0"),
			ShadowBlur:     getEnvAsFloat("SCREENFRAME_SHADOW_BLUR", 12.0),
			ShadowOpacity:  getEnvAsFloat("SCREENFRAME_SHADOW_OPACITY", 0.35),
			ShadowOffsetY:  getEnvAsInt("SCREENFRAME_SHADOW_OFFSET", 18),
			Matte:          getEnv("SCREENFRAME_MATTE", "#FFFFFF"),
			FrameVariant:   getEnv("SCREENFRAME_FRAME_VARIANT", ""),
		},
		Validate: ValidateConfig{
			MinOutputBytes: int64(getEnvAsInt("SCREENFRAME_MIN_BYTES", 1024)),
			MaxOutputBytes: int64(getEnvAsInt("SCREENFRAME_MAX_BYTES", 8*1024*1024)),
		},
		Cache: CacheConfig{
			Enabled:  getEnv("REDIS_ADDR", "") != "",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTLSec:   getEnvAsInt("SCREENFRAME_CACHE_TTL", 24*3600),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
