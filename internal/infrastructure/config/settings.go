package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings are the user-editable study defaults.
type Settings struct {
	CardsPerDocument   int    `yaml:"cards_per_document" json:"cards_per_document"`
	TimePerCard        int    `yaml:"time_per_card" json:"time_per_card"`     // seconds
	TotalExamTime      int    `yaml:"total_exam_time" json:"total_exam_time"` // seconds
	MinExamQuestions   int    `yaml:"min_exam_questions" json:"min_exam_questions"`
	MaxExamQuestions   int    `yaml:"max_exam_questions" json:"max_exam_questions"`
	DefaultProjectName string `yaml:"default_project_name" json:"default_project_name"`
}

func DefaultSettings() Settings {
	return Settings{
		CardsPerDocument:   10,
		TimePerCard:        10,
		TotalExamTime:      600,
		MinExamQuestions:   5,
		MaxExamQuestions:   10,
		DefaultProjectName: "My Flashcards",
	}
}

func (s Settings) Validate() error {
	if s.CardsPerDocument < 1 || s.CardsPerDocument > 100 {
		return errors.New("cards_per_document must be between 1 and 100")
	}
	if s.TimePerCard < 1 {
		return errors.New("time_per_card must be at least 1 second")
	}
	if s.TotalExamTime < 1 {
		return errors.New("total_exam_time must be at least 1 second")
	}
	if s.MinExamQuestions < 1 {
		return errors.New("min_exam_questions must be at least 1")
	}
	if s.MaxExamQuestions < s.MinExamQuestions {
		return errors.New("max_exam_questions must not be less than min_exam_questions")
	}
	if strings.TrimSpace(s.DefaultProjectName) == "" {
		return errors.New("default_project_name cannot be empty")
	}
	return nil
}

// SettingsStore holds the current settings and writes changes back to a YAML file.
type SettingsStore struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// LoadSettings reads path. A missing file yields the defaults. A file that
// cannot be parsed or fails validation also yields the defaults, together
// with the error so the caller can log it.
func LoadSettings(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path, current: DefaultSettings()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	s.current = loaded
	return s, nil
}

func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and persists new settings.
func (s *SettingsStore) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.current = next
	return nil
}
