package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Resolver backend. When GeminiAPIKey is set the Gemini client is used,
	// otherwise the generic HTTP endpoint.
	ResolverURL    string
	ResolverAPIKey string
	GeminiAPIKey   string
	GeminiModel    string

	// Optional persistence; empty disables it.
	PostgresDSN string

	// Pipeline tuning. The source deployments disagreed on VAD numbers, so
	// every threshold is an environment knob rather than a constant.
	VADMargin       float64
	VADDecay        float64
	VADFloorRMS     float64
	VADWarmupFrames int
	SilenceTimeout  time.Duration
	MaxUtterance    time.Duration
	ResolverTimeout time.Duration
	MinConfidence   float64
	HistoryWindow   int
	LanguageCode    string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	resolverURL := os.Getenv("RESOLVER_URL")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if resolverURL == "" && geminiKey == "" {
		log.Println("Warning: neither RESOLVER_URL nor GEMINI_API_KEY set - intent resolution will not work")
	}
	geminiModel := os.Getenv("GEMINI_MODEL_ID")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash"
	}

	cfg := Config{
		HTTPAddress:     addr,
		ResolverURL:     resolverURL,
		ResolverAPIKey:  os.Getenv("RESOLVER_API_KEY"),
		GeminiAPIKey:    geminiKey,
		GeminiModel:     geminiModel,
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		VADMargin:       envFloat("VAD_ENERGY_MARGIN", 2.5),
		VADDecay:        envFloat("VAD_BASELINE_DECAY", 0.95),
		VADFloorRMS:     envFloat("VAD_FLOOR_RMS", 250),
		VADWarmupFrames: envInt("VAD_WARMUP_FRAMES", 10),
		SilenceTimeout:  envDuration("SILENCE_TIMEOUT", 700*time.Millisecond),
		MaxUtterance:    envDuration("MAX_UTTERANCE_DURATION", 10*time.Second),
		ResolverTimeout: envDuration("RESOLVER_TIMEOUT", 20*time.Second),
		MinConfidence:   envFloat("MIN_INTENT_CONFIDENCE", 0.25),
		HistoryWindow:   envInt("HISTORY_WINDOW", 16),
		LanguageCode:    os.Getenv("LANGUAGE_CODE"),
	}

	log.Printf("config: HTTP_ADDRESS=%s silence_timeout=%s min_confidence=%.2f", cfg.HTTPAddress, cfg.SilenceTimeout, cfg.MinConfidence)
	return cfg
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %v", key, raw, def)
		return def
	}
	return v
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %v", key, raw, def)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not a duration, using %v", key, raw, def)
		return def
	}
	return v
}
