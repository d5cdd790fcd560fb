package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dstainton/transcript-flash-cards/internal/api"
	"github.com/dstainton/transcript-flash-cards/internal/extract"
	"github.com/dstainton/transcript-flash-cards/internal/generator"
	"github.com/dstainton/transcript-flash-cards/internal/grader"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/service"
	"github.com/dstainton/transcript-flash-cards/internal/store"

	_ "github.com/dstainton/transcript-flash-cards/docs" // generated swagger docs
)

// @title           Transcript Flash Cards API
// @version         1.0
// @description     Turn study documents into quiz flashcards, then study them until mastered or sit a timed exam.

// @host      localhost:5000
// @BasePath  /

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		logger.Error("failed to load settings, using defaults", "path", cfg.SettingsPath, "error", err)
	}

	projects, err := store.NewProjectStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open project store", "error", err)
		os.Exit(1)
	}

	report, err := projects.MigrateLegacy(cfg.LegacyDir, settings.Get().DefaultProjectName)
	if err != nil {
		logger.Error("legacy migration failed", "error", err)
	} else if report != nil {
		logger.Info("migrated legacy data",
			"project_id", report.ProjectID,
			"documents", report.Documents,
			"files", report.Files,
		)
	}

	db, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	llm := generator.NewOpenAIGenerator(cfg.LLMURL, cfg.LLMModel, cfg.LLMAPIKey)
	extractor := extract.New(cfg.MaxUploadBytes)

	projectSvc := service.NewProjectService(projects, db, settings, logger)
	studySvc := service.NewStudyService(projects, db, grader.Equivalence{}, settings, logger)
	generationSvc := service.NewGenerationService(projects, llm, extractor, settings, cfg.GenerationWorkers, logger)

	handler := api.NewHandler(projectSvc, studySvc, generationSvc, settings, cfg.MaxUploadBytes, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Logging → CORS → SessionCookie → mux ──────
	var root http.Handler = mux
	root = api.SessionCookie([]byte(cfg.SessionSecret), logger)(root)
	root = api.CORS(cfg.CORSAllowedOrigins)(root)
	root = api.Logging(logger)(root)

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           root,
		ReadTimeout:       5 * time.Minute, // large document uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
		if err := generationSvc.Shutdown(ctx); err != nil {
			logger.Error("generation jobs interrupted", "error", err)
		}
	}()

	logger.Info("starting server",
		"address", cfg.ServerAddress,
		"data_dir", cfg.DataDir,
		"projects", projects.Count(),
		"llm_model", cfg.LLMModel,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
	<-idle
}
