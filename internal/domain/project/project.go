package project

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Project is an isolated flashcard collection with its own documents,
// mastery table and history. It is persisted as a folder named by ID.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// New creates a Project with the given unique ID.
func New(id, name string, now time.Time) *Project {
	return &Project{
		ID:           id,
		Name:         name,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// Slugify turns a project name into a URL-friendly base ID:
// lower-cased, spaces to hyphens, everything but letters, digits and hyphens dropped.
func Slugify(name string) string {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

// UniqueID derives an ID from name, appending -1, -2, ... while taken reports a collision.
func UniqueID(name string, taken func(string) bool) string {
	base := Slugify(name)
	candidate := base
	for n := 1; taken(candidate); n++ {
		candidate = base + "-" + strconv.Itoa(n)
	}
	return candidate
}

// HistoryRecord is one finished session's outcome.
type HistoryRecord struct {
	Score         int      `json:"score"`
	Total         int      `json:"total"`
	Percentage    float64  `json:"percentage"`
	Topics        []string `json:"topics"`
	CardsMastered *int     `json:"cards_mastered,omitempty"`
}

// HistoryKind selects the exam or study log.
type HistoryKind string

const (
	HistoryExam  HistoryKind = "exam"
	HistoryStudy HistoryKind = "study"
)

// TimestampLayout is the ISO-8601 layout used for history keys.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// History holds the exam and study logs keyed by ISO-8601 timestamp.
type History struct {
	ExamHistory   map[string]HistoryRecord `json:"exam_history"`
	StudyHistory  map[string]HistoryRecord `json:"study_history"`
	AllTimeScores map[string]any           `json:"all_time_scores"`
}

// NewHistory returns an empty history with all maps allocated.
func NewHistory() History {
	return History{
		ExamHistory:   make(map[string]HistoryRecord),
		StudyHistory:  make(map[string]HistoryRecord),
		AllTimeScores: make(map[string]any),
	}
}

// Append adds a record under the timestamp key for at.
func (h *History) Append(kind HistoryKind, at time.Time, rec HistoryRecord) string {
	if h.ExamHistory == nil || h.StudyHistory == nil {
		*h = h.withMaps()
	}
	key := at.Format(TimestampLayout)
	log := h.StudyHistory
	if kind == HistoryExam {
		log = h.ExamHistory
	}
	for _, exists := log[key]; exists; _, exists = log[key] {
		at = at.Add(time.Microsecond)
		key = at.Format(TimestampLayout)
	}
	log[key] = rec
	return key
}

func (h History) withMaps() History {
	if h.ExamHistory == nil {
		h.ExamHistory = make(map[string]HistoryRecord)
	}
	if h.StudyHistory == nil {
		h.StudyHistory = make(map[string]HistoryRecord)
	}
	if h.AllTimeScores == nil {
		h.AllTimeScores = make(map[string]any)
	}
	return h
}

// Sessions returns the total number of recorded sessions.
func (h History) Sessions() int {
	return len(h.ExamHistory) + len(h.StudyHistory)
}

// Entry is a history record with its timestamp key.
type Entry struct {
	Timestamp string      `json:"timestamp"`
	Kind      HistoryKind `json:"kind"`
	HistoryRecord
}

// Entries flattens both logs, newest first.
func (h History) Entries() []Entry {
	out := make([]Entry, 0, h.Sessions())
	for ts, rec := range h.ExamHistory {
		out = append(out, Entry{Timestamp: ts, Kind: HistoryExam, HistoryRecord: rec})
	}
	for ts, rec := range h.StudyHistory {
		out = append(out, Entry{Timestamp: ts, Kind: HistoryStudy, HistoryRecord: rec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Stats summarises a project's collection.
type Stats struct {
	TotalFlashcards   int      `json:"total_flashcards"`
	MasteredCount     int      `json:"mastered_count"`
	ExcludedCount     int      `json:"excluded_count"`
	MasteryPercentage float64  `json:"mastery_percentage"`
	TotalTopics       int      `json:"total_topics"`
	TotalSessions     int      `json:"total_sessions"`
	ExamSessions      int      `json:"exam_sessions"`
	StudySessions     int      `json:"study_sessions"`
	Topics            []string `json:"topics"`
}

// Summary is the listing view of a project.
type Summary struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	TotalFlashcards   int       `json:"total_flashcards"`
	MasteryPercentage float64   `json:"mastery_percentage"`
	TotalSessions     int       `json:"total_sessions"`
	LastAccessed      time.Time `json:"last_accessed"`
}
