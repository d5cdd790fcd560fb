package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration

	// Storage
	DataDir      string // one folder per project
	LegacyDir    string // where pre-project flashcards.json/transcripts live
	DatabasePath string // browser sessions
	SettingsPath string

	// Browser sessions
	SessionSecret string

	// LLM flashcard generation
	LLMURL    string // OpenAI-compatible endpoint, e.g. "http://localhost:11434"
	LLMModel  string
	LLMAPIKey string

	MaxUploadBytes    int64
	GenerationWorkers int

	CORSAllowedOrigins []string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()
	return &Config{
		ServerAddress:      getenvDefault("SERVER_ADDRESS", ":5000"),
		ShutdownTimeout:    getDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		DataDir:            getenvDefault("DATA_DIR", "projects"),
		LegacyDir:          getenvDefault("LEGACY_DIR", "."),
		DatabasePath:       getenvDefault("DATABASE_PATH", "flashcards.db"),
		SettingsPath:       getenvDefault("SETTINGS_PATH", "settings.yaml"),
		SessionSecret:      mustGetenv("SESSION_SECRET"),
		LLMURL:             getenvDefault("LLM_URL", "https://api.openai.com"),
		LLMModel:           getenvDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		MaxUploadBytes:     int64(getIntDefault("MAX_UPLOAD_MB", 50)) << 20,
		GenerationWorkers:  getIntDefault("GENERATION_WORKERS", 1),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func getDurationDefault(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getIntDefault(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Fatalf("config: %s=%q is not a positive integer", k, v)
	}
	return n
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
