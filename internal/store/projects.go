package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	"github.com/dstainton/transcript-flash-cards/internal/domain/mastery"
	"github.com/dstainton/transcript-flash-cards/internal/domain/project"
)

const (
	flashcardsFile = "flashcards.json"
	masteryFile    = "mastery.json"
	excludedFile   = "excluded.json"
	historyFile    = "history.json"
	metadataFile   = "project.json"
	documentsDir   = "documents"
)

// Excluded maps card hashes to whatever was recorded when the card was excluded.
type Excluded map[string]json.RawMessage

// ProjectStore keeps one folder of JSON documents per project under root.
// The in-memory registry is guarded by mu; read-modify-write cycles on
// project files are serialized by fileMu.
type ProjectStore struct {
	root   string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	projects map[string]*project.Project

	fileMu sync.Mutex
}

// NewProjectStore opens (creating if needed) the store at root and loads
// every folder that carries a project.json.
func NewProjectStore(root string, logger *slog.Logger) (*ProjectStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &PersistenceError{Op: "create", Path: root, Wrapped: err}
	}

	s := &ProjectStore{
		root:     root,
		logger:   logger,
		now:      time.Now,
		projects: make(map[string]*project.Project),
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the directory holding all project folders.
func (s *ProjectStore) Root() string {
	return s.root
}

func (s *ProjectStore) loadAll() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return &PersistenceError{Op: "load", Path: s.root, Wrapped: err}
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(s.root, e.Name(), metadataFile)
		var meta storedMetadata
		found, err := readJSON(path, &meta)
		if err != nil {
			s.logger.Error("failed to load project", "path", path, "error", err)
			continue
		}
		if !found {
			continue
		}

		// the folder name is authoritative for the ID
		p := &project.Project{
			ID:           e.Name(),
			Name:         meta.Name,
			CreatedAt:    meta.CreatedAt.Time,
			LastAccessed: meta.LastAccessed.Time,
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		s.projects[p.ID] = p
	}
	return nil
}

// ============================================================================
// Projects
// ============================================================================

// CreateProject creates a project folder with an ID derived from name.
func (s *ProjectStore) CreateProject(name string) (*project.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projectID := project.UniqueID(name, func(candidate string) bool {
		if _, ok := s.projects[candidate]; ok {
			return true
		}
		_, err := os.Stat(filepath.Join(s.root, candidate))
		return err == nil
	})

	p := project.New(projectID, name, s.now())
	dir := filepath.Join(s.root, projectID)
	if err := os.MkdirAll(filepath.Join(dir, documentsDir), 0o755); err != nil {
		return nil, &PersistenceError{Op: "create", Path: dir, Wrapped: err}
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), p); err != nil {
		return nil, err
	}

	s.projects[projectID] = p
	cp := *p
	return &cp, nil
}

// GetProject returns a copy of the project's metadata.
func (s *ProjectStore) GetProject(projectID string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProjects returns a summary of every project, sorted by name.
func (s *ProjectStore) ListProjects() []project.Summary {
	s.mu.RLock()
	list := make([]project.Project, 0, len(s.projects))
	for _, p := range s.projects {
		list = append(list, *p)
	}
	s.mu.RUnlock()

	summaries := make([]project.Summary, 0, len(list))
	for _, p := range list {
		stats := s.computeStats(p.ID)
		summaries = append(summaries, project.Summary{
			ID:                p.ID,
			Name:              p.Name,
			TotalFlashcards:   stats.TotalFlashcards,
			MasteryPercentage: stats.MasteryPercentage,
			TotalSessions:     stats.TotalSessions,
			LastAccessed:      p.LastAccessed,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Name != summaries[j].Name {
			return summaries[i].Name < summaries[j].Name
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// DeleteProject removes a project and its folder. The last remaining
// project cannot be deleted.
func (s *ProjectStore) DeleteProject(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return ErrNotFound
	}
	if len(s.projects) == 1 {
		return ErrLastProject
	}

	dir := filepath.Join(s.root, projectID)
	if err := os.RemoveAll(dir); err != nil {
		return &PersistenceError{Op: "delete", Path: dir, Wrapped: err}
	}
	delete(s.projects, projectID)
	return nil
}

// EnsureDefault returns the most recently accessed project, creating one
// named name when the store is empty.
func (s *ProjectStore) EnsureDefault(name string) (*project.Project, error) {
	s.mu.RLock()
	var latest *project.Project
	for _, p := range s.projects {
		if latest == nil || p.LastAccessed.After(latest.LastAccessed) ||
			(p.LastAccessed.Equal(latest.LastAccessed) && p.ID < latest.ID) {
			latest = p
		}
	}
	var cp project.Project
	if latest != nil {
		cp = *latest
	}
	s.mu.RUnlock()

	if latest != nil {
		return &cp, nil
	}

	s.logger.Info("creating default project", "name", name)
	return s.CreateProject(name)
}

// Count returns the number of projects.
func (s *ProjectStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Touch records that the project was just opened.
func (s *ProjectStore) Touch(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	p.LastAccessed = s.now()
	return writeJSON(filepath.Join(s.root, projectID, metadataFile), p)
}

// DocumentsDir returns the folder holding the project's uploaded documents.
func (s *ProjectStore) DocumentsDir(projectID string) (string, error) {
	dir, err := s.dir(projectID)
	if err != nil {
		return "", err
	}
	docs := filepath.Join(dir, documentsDir)
	if err := os.MkdirAll(docs, 0o755); err != nil {
		return "", &PersistenceError{Op: "create", Path: docs, Wrapped: err}
	}
	return docs, nil
}

// SaveDocument writes an uploaded document into the project's documents
// folder and returns the stored file name. Directory components in name
// are dropped; an existing file with the same name is replaced.
func (s *ProjectStore) SaveDocument(projectID, name string, r io.Reader) (string, error) {
	docs, err := s.DocumentsDir(projectID)
	if err != nil {
		return "", err
	}
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	path := filepath.Join(docs, base)
	f, err := os.Create(path)
	if err != nil {
		return "", &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	if err := f.Close(); err != nil {
		return "", &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	return base, nil
}

// ListDocuments returns the names of the project's uploaded documents.
func (s *ProjectStore) ListDocuments(projectID string) ([]string, error) {
	docs, err := s.DocumentsDir(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(docs)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: docs, Wrapped: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *ProjectStore) dir(projectID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[projectID]; !ok {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, projectID), nil
}

// ============================================================================
// Flashcards
// ============================================================================

// LoadFlashcards returns the project's cards. Read failures are logged and
// yield an empty list.
func (s *ProjectStore) LoadFlashcards(projectID string) []flashcard.Flashcard {
	var cards []flashcard.Flashcard
	s.load(projectID, flashcardsFile, &cards)
	for i := range cards {
		cards[i].Normalize()
	}
	return cards
}

// SaveFlashcards replaces the project's cards.
func (s *ProjectStore) SaveFlashcards(projectID string, cards []flashcard.Flashcard) error {
	if cards == nil {
		cards = []flashcard.Flashcard{}
	}
	return s.save(projectID, flashcardsFile, cards)
}

// AppendFlashcards adds cards to the project's collection.
func (s *ProjectStore) AppendFlashcards(projectID string, cards []flashcard.Flashcard) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	existing := s.LoadFlashcards(projectID)
	return s.SaveFlashcards(projectID, append(existing, cards...))
}

// ============================================================================
// Mastery
// ============================================================================

// storedRecord accepts the timestamp formats written by older versions.
type storedRecord struct {
	Topic      string   `json:"topic"`
	Filename   string   `json:"filename,omitempty"`
	MasteredAt flexTime `json:"mastered_at"`
}

// LoadMastery returns the project's mastery table, empty on failure.
func (s *ProjectStore) LoadMastery(projectID string) mastery.Table {
	var stored map[string]storedRecord
	s.load(projectID, masteryFile, &stored)

	table := make(mastery.Table, len(stored))
	for hash, rec := range stored {
		table[hash] = mastery.Record{Topic: rec.Topic, Filename: rec.Filename, MasteredAt: rec.MasteredAt.Time}
	}
	return table
}

// SaveMastery replaces the project's mastery table.
func (s *ProjectStore) SaveMastery(projectID string, table mastery.Table) error {
	if table == nil {
		table = mastery.Table{}
	}
	return s.save(projectID, masteryFile, table)
}

// MarkMastered writes a single promotion through to disk.
func (s *ProjectStore) MarkMastered(projectID, hash string, rec mastery.Record) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	table := s.LoadMastery(projectID)
	table[hash] = rec
	return s.SaveMastery(projectID, table)
}

// ResetTopic deletes every mastery record of the topic and returns how many were removed.
func (s *ProjectStore) ResetTopic(projectID, topic string) (int, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	table := s.LoadMastery(projectID)
	removed := table.ResetTopic(topic)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.SaveMastery(projectID, table)
}

// Recorder adapts the store to mastery.Recorder for one project.
func (s *ProjectStore) Recorder(projectID string) mastery.Recorder {
	return projectRecorder{store: s, projectID: projectID}
}

type projectRecorder struct {
	store     *ProjectStore
	projectID string
}

func (r projectRecorder) MarkMastered(_ context.Context, hash string, rec mastery.Record) error {
	return r.store.MarkMastered(r.projectID, hash, rec)
}

func (r projectRecorder) ResetTopic(_ context.Context, topic string) (int, error) {
	return r.store.ResetTopic(r.projectID, topic)
}

// ============================================================================
// Excluded cards
// ============================================================================

func (s *ProjectStore) LoadExcluded(projectID string) Excluded {
	excluded := Excluded{}
	s.load(projectID, excludedFile, &excluded)
	if excluded == nil {
		excluded = Excluded{}
	}
	return excluded
}

func (s *ProjectStore) SaveExcluded(projectID string, excluded Excluded) error {
	if excluded == nil {
		excluded = Excluded{}
	}
	return s.save(projectID, excludedFile, excluded)
}

// ============================================================================
// History
// ============================================================================

// LoadHistory returns the project's exam and study logs.
func (s *ProjectStore) LoadHistory(projectID string) project.History {
	h := project.NewHistory()
	s.load(projectID, historyFile, &h)
	return h
}

// AppendHistory adds one session outcome and returns its timestamp key.
func (s *ProjectStore) AppendHistory(projectID string, kind project.HistoryKind, at time.Time, rec project.HistoryRecord) (string, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	h := s.LoadHistory(projectID)
	key := h.Append(kind, at, rec)
	return key, s.save(projectID, historyFile, h)
}

// ============================================================================
// Stats
// ============================================================================

// Stats summarises the project's collection and history.
func (s *ProjectStore) Stats(projectID string) (project.Stats, error) {
	if _, err := s.dir(projectID); err != nil {
		return project.Stats{}, err
	}
	return s.computeStats(projectID), nil
}

func (s *ProjectStore) computeStats(projectID string) project.Stats {
	cards := s.LoadFlashcards(projectID)
	table := s.LoadMastery(projectID)
	excluded := s.LoadExcluded(projectID)
	history := s.LoadHistory(projectID)

	topics := flashcard.Topics(cards)
	sort.Strings(topics)

	stats := project.Stats{
		TotalFlashcards: len(cards),
		MasteredCount:   len(table),
		ExcludedCount:   len(excluded),
		TotalTopics:     len(topics),
		TotalSessions:   history.Sessions(),
		ExamSessions:    len(history.ExamHistory),
		StudySessions:   len(history.StudyHistory),
		Topics:          topics,
	}
	if len(cards) > 0 {
		stats.MasteryPercentage = float64(len(table)) / float64(len(cards)) * 100
	}
	if stats.Topics == nil {
		stats.Topics = []string{}
	}
	return stats
}

// ============================================================================
// File helpers
// ============================================================================

// load decodes a project file into v. A missing file leaves v untouched;
// any other failure is logged and v is left at its zero value.
func (s *ProjectStore) load(projectID, name string, v any) {
	dir, err := s.dir(projectID)
	if err != nil {
		return
	}
	if _, err := readJSON(filepath.Join(dir, name), v); err != nil {
		s.logger.Error("failed to load project file",
			"project_id", projectID,
			"file", name,
			"error", err,
		)
	}
}

func (s *ProjectStore) save(projectID, name string, v any) error {
	dir, err := s.dir(projectID)
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, name), v); err != nil {
		s.logger.Error("failed to save project file",
			"project_id", projectID,
			"file", name,
			"error", err,
		)
		return err
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: "load", Path: path, Wrapped: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &PersistenceError{Op: "load", Path: path, Wrapped: err}
	}
	return true, nil
}

// writeJSON writes v to a temporary file and renames it over path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Path: path, Wrapped: err}
	}
	return nil
}

// storedMetadata is project.json as read from disk.
type storedMetadata struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CreatedAt    flexTime `json:"created_at"`
	LastAccessed flexTime `json:"last_accessed"`
}

// flexTime parses RFC 3339 as well as the zone-less ISO-8601 timestamps
// found in older files, which are read as local time.
type flexTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}
