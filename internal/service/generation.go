package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	"github.com/dstainton/transcript-flash-cards/internal/generator"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/store"
	"github.com/dstainton/transcript-flash-cards/internal/worker"
)

// ErrProgressNotFound is returned for an unknown progress id.
var ErrProgressNotFound = errors.New("progress not found")

// TextExtractor reads the text of an uploaded document.
type TextExtractor interface {
	Extract(path string) (string, error)
}

type ProgressStatus string

const (
	StatusQueued     ProgressStatus = "queued"
	StatusProcessing ProgressStatus = "processing"
	StatusComplete   ProgressStatus = "complete"
	StatusError      ProgressStatus = "error"
)

// FileProgress tracks one document within a generation job.
type FileProgress struct {
	Filename string         `json:"filename"`
	Topic    string         `json:"topic"`
	Status   ProgressStatus `json:"status"`
	Cards    int            `json:"cards"`
	Error    string         `json:"error,omitempty"`
}

// Progress is the observable state of a generation job.
type Progress struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"project_id"`
	Status         ProgressStatus `json:"status"`
	Current        string         `json:"current,omitempty"`
	CurrentTopic   string         `json:"current_topic,omitempty"`
	Total          int            `json:"total"`
	Processed      int            `json:"processed"`
	Percentage     float64        `json:"percentage"`
	CardsGenerated int            `json:"cards_generated"`
	Files          []FileProgress `json:"files"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// advance counts one more file as processed.
func (p *Progress) advance() {
	p.Processed++
	if p.Total > 0 {
		p.Percentage = float64(p.Processed) / float64(p.Total) * 100
	}
}

// GenerationService turns uploaded documents into flashcards in the
// background. It owns the progress registry; entries live until shutdown.
type GenerationService struct {
	projects  *store.ProjectStore
	generator generator.Generator
	extractor TextExtractor
	settings  *config.SettingsStore
	logger    *slog.Logger

	pool   *worker.Pool[ProgressStatus]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	progress map[string]*Progress
}

// NewGenerationService starts workers that process generation jobs one
// document at a time.
func NewGenerationService(projects *store.ProjectStore, gen generator.Generator, ex TextExtractor, settings *config.SettingsStore, workers int, logger *slog.Logger) *GenerationService {
	ctx, cancel := context.WithCancel(context.Background())
	gs := &GenerationService{
		projects:  projects,
		generator: gen,
		extractor: ex,
		settings:  settings,
		logger:    logger,
		pool:      worker.NewPool[ProgressStatus](workers, 64),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		progress:  make(map[string]*Progress),
	}
	go gs.collect()
	return gs
}

// Enqueue schedules generation for documents already saved in the
// project's documents folder and returns the progress id.
func (gs *GenerationService) Enqueue(projectID string, filenames []string) (string, error) {
	if _, err := gs.projects.GetProject(projectID); err != nil {
		return "", err
	}
	if len(filenames) == 0 {
		return "", errors.New("no documents to process")
	}

	progressID, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate progress id: %w", err)
	}

	p := &Progress{
		ID:        progressID,
		ProjectID: projectID,
		Status:    StatusQueued,
		Total:     len(filenames),
		Files:     make([]FileProgress, len(filenames)),
		StartedAt: time.Now(),
	}
	for i, name := range filenames {
		p.Files[i] = FileProgress{Filename: name, Topic: TopicFromFilename(name), Status: StatusQueued}
	}

	gs.mu.Lock()
	gs.progress[progressID] = p
	gs.mu.Unlock()

	files := append([]string(nil), filenames...)
	if err := gs.pool.Submit(progressID, func() ProgressStatus {
		return gs.run(progressID, projectID, files)
	}); err != nil {
		gs.finish(progressID, StatusError, err.Error())
		return "", err
	}

	gs.logger.Info("generation queued", "progress_id", progressID, "project_id", projectID, "files", len(files))
	return progressID, nil
}

// SaveDocument stores an uploaded document so a later Enqueue can process it.
func (gs *GenerationService) SaveDocument(projectID, filename string, r io.Reader) (string, error) {
	return gs.projects.SaveDocument(projectID, filename, r)
}

// Progress returns a snapshot of a job's progress.
func (gs *GenerationService) Progress(progressID string) (Progress, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	p, ok := gs.progress[progressID]
	if !ok {
		return Progress{}, ErrProgressNotFound
	}
	cp := *p
	cp.Files = append([]FileProgress(nil), p.Files...)
	return cp, nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If
// ctx expires first, in-flight LLM calls are cancelled.
func (gs *GenerationService) Shutdown(ctx context.Context) error {
	gs.pool.Close()
	select {
	case <-gs.done:
		gs.cancel()
		return nil
	case <-ctx.Done():
		gs.cancel()
		<-gs.done
		return ctx.Err()
	}
}

// collect drains worker results; a job that panicked is marked failed.
func (gs *GenerationService) collect() {
	defer close(gs.done)
	for res := range gs.pool.Results() {
		if res.Err != nil {
			gs.logger.Error("generation job crashed", "progress_id", res.JobID, "error", res.Err)
			gs.finish(res.JobID, StatusError, res.Err.Error())
			continue
		}
		gs.logger.Info("generation finished", "progress_id", res.JobID, "status", res.Output)
	}
}

// run processes every file of a job. Files that fail are recorded and
// skipped; cards from files that succeeded are kept.
func (gs *GenerationService) run(progressID, projectID string, filenames []string) ProgressStatus {
	gs.update(progressID, func(p *Progress) { p.Status = StatusProcessing })

	docs, err := gs.projects.DocumentsDir(projectID)
	if err != nil {
		gs.finish(progressID, StatusError, err.Error())
		return StatusError
	}

	count := gs.settings.Get().CardsPerDocument
	succeeded := 0
	var lastErr string

	for i, name := range filenames {
		gs.update(progressID, func(p *Progress) {
			p.Current = name
			p.CurrentTopic = p.Files[i].Topic
			p.Files[i].Status = StatusProcessing
		})

		cards, err := gs.processFile(projectID, filepath.Join(docs, name), name, count)
		if err != nil {
			gs.logger.Error("generation failed for document",
				"progress_id", progressID,
				"filename", name,
				"error", err,
			)
			lastErr = fmt.Sprintf("%s: %v", name, err)
			gs.update(progressID, func(p *Progress) {
				p.Files[i].Status = StatusError
				p.Files[i].Error = err.Error()
				p.advance()
			})
			continue
		}

		succeeded++
		gs.update(progressID, func(p *Progress) {
			p.Files[i].Status = StatusComplete
			p.Files[i].Cards = len(cards)
			p.CardsGenerated += len(cards)
			p.advance()
		})
	}

	if succeeded == 0 {
		gs.finish(progressID, StatusError, lastErr)
		return StatusError
	}
	gs.finish(progressID, StatusComplete, "")
	return StatusComplete
}

func (gs *GenerationService) processFile(projectID, path, filename string, count int) ([]flashcard.Flashcard, error) {
	text, err := gs.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	cards, err := gs.generator.Generate(gs.ctx, text, TopicFromFilename(filename), count)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Filename = filename
	}

	if err := gs.projects.AppendFlashcards(projectID, cards); err != nil {
		return nil, fmt.Errorf("save flashcards: %w", err)
	}
	return cards, nil
}

func (gs *GenerationService) update(progressID string, fn func(p *Progress)) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if p, ok := gs.progress[progressID]; ok {
		fn(p)
	}
}

func (gs *GenerationService) finish(progressID string, status ProgressStatus, msg string) {
	now := time.Now()
	gs.update(progressID, func(p *Progress) {
		p.Status = status
		p.Current = ""
		p.CurrentTopic = ""
		p.Percentage = 100
		p.Error = msg
		p.FinishedAt = &now
	})
}

// TopicFromFilename names a document's topic after its file, without the extension.
func TopicFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
