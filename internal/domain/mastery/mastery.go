package mastery

import (
	"context"
	"time"
)

// Threshold is the number of consecutive correct answers within one
// session that retires a card permanently.
const Threshold = 3

// Record is the permanent mastery entry for one card.
type Record struct {
	Topic      string    `json:"topic"`
	Filename   string    `json:"filename,omitempty"`
	MasteredAt time.Time `json:"mastered_at"`
}

// Table maps card hashes to their mastery records for one project.
type Table map[string]Record

// IsMastered reports whether the card hash has a mastery record.
func (t Table) IsMastered(hash string) bool {
	_, ok := t[hash]
	return ok
}

// ResetTopic removes every record for the topic and returns how many were removed.
func (t Table) ResetTopic(topic string) int {
	removed := 0
	for hash, rec := range t {
		if rec.Topic == topic {
			delete(t, hash)
			removed++
		}
	}
	return removed
}

// CountByTopic returns the number of mastered cards per topic.
func (t Table) CountByTopic() map[string]int {
	out := make(map[string]int)
	for _, rec := range t {
		out[rec.Topic]++
	}
	return out
}

// Streaks holds the session-scoped consecutive-correct counters keyed by card hash.
type Streaks map[string]int

// Record applies one attempt and reports the new streak and whether this
// attempt is the one that reached Threshold.
func (s Streaks) Record(hash string, correct bool) (streak int, justMastered bool) {
	if !correct {
		s[hash] = 0
		return 0, false
	}
	s[hash]++
	return s[hash], s[hash] == Threshold
}

// Recorder persists mastery changes for one project.
type Recorder interface {
	MarkMastered(ctx context.Context, hash string, rec Record) error
	ResetTopic(ctx context.Context, topic string) (int, error)
}
