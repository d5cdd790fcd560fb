package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("SESSION_SECRET", "s3cret")
	for _, k := range []string{"SERVER_ADDRESS", "SHUTDOWN_TIMEOUT", "DATA_DIR", "MAX_UPLOAD_MB", "GENERATION_WORKERS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.ServerAddress != ":5000" {
		t.Errorf("expected :5000, got %q", cfg.ServerAddress)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.DataDir != "projects" {
		t.Errorf("expected projects, got %q", cfg.DataDir)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("expected 50MB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.GenerationWorkers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.GenerationWorkers)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("expected no origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SERVER_ADDRESS", ":8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := config.Load()

	if cfg.ServerAddress != ":8080" || cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("unexpected server config %+v", cfg)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("expected 5MB, got %d", cfg.MaxUploadBytes)
	}
	if strings.Join(cfg.CORSAllowedOrigins, "|") != "http://a.test|http://b.test" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := config.LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Get() != config.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", s.Get())
	}
}

func TestLoadSettings_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("time_per_card: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := config.LoadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Get()
	if got.TimePerCard != 30 || got.CardsPerDocument != 10 {
		t.Errorf("unexpected settings %+v", got)
	}
}

func TestLoadSettings_InvalidFileDegradesToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("min_exam_questions: 8\nmax_exam_questions: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := config.LoadSettings(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if s.Get() != config.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", s.Get())
	}
}

func TestSettingsStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	s, _ := config.LoadSettings(path)

	next := config.DefaultSettings()
	next.MaxExamQuestions = 20
	if err := s.Update(next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded, err := config.LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Get().MaxExamQuestions != 20 {
		t.Errorf("expected 20, got %d", reloaded.Get().MaxExamQuestions)
	}
}

func TestSettingsStore_UpdateRejectsInvalid(t *testing.T) {
	s, _ := config.LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))

	bad := config.DefaultSettings()
	bad.CardsPerDocument = 0
	if err := s.Update(bad); err == nil {
		t.Fatal("expected error")
	}
	if s.Get() != config.DefaultSettings() {
		t.Errorf("settings changed despite error: %+v", s.Get())
	}
}
