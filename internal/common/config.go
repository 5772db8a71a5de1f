package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Store  StoreConfig
	OCR    OCRConfig
	Raster RasterConfig
	LLM    LLMConfig
}

// StoreConfig selects and configures the receipt store backend.
type StoreConfig struct {
	Driver          string // "postgres" | "sqlite"
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OCRConfig holds text-recovery configuration.
type OCRConfig struct {
	Tesseract   string
	Lang        string
	TessdataDir string
	PSM         int
	OEM         int
	Workers     int
}

// RasterConfig holds PDF rasterization configuration.
type RasterConfig struct {
	ScratchRoot   string
	ViewportScale float64
}

// LLMConfig holds text-generation configuration.
type LLMConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			DSN:             getEnv("STORE_DSN", "receipts.db"),
			MaxConns:        getEnvAsInt32("STORE_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("STORE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("STORE_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("STORE_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("TESSERACT_PSM", 0),
			OEM:         getEnvAsInt("TESSERACT_OEM", 0),
			Workers:     getEnvAsInt("OCR_WORKERS", 2),
		},
		Raster: RasterConfig{
			ScratchRoot:   getEnv("SCRATCH_ROOT", os.TempDir()),
			ViewportScale: getEnvAsFloat64("VIEWPORT_SCALE", 2.0),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
		},
	}
}

// Validate checks the loaded configuration. The missing-credential case is
// fatal at process start, not per-call.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "STORE_DSN is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
