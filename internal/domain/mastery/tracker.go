package mastery

import (
	"context"
	"fmt"
	"time"
)

// Tracker combines a session's streak counters with a project's mastery
// table. Promotions are written through to the Recorder immediately.
type Tracker struct {
	streaks  Streaks
	table    Table
	recorder Recorder
	now      func() time.Time
}

// NewTracker wraps the given streaks and table. Both maps are mutated in place.
func NewTracker(streaks Streaks, table Table, recorder Recorder) *Tracker {
	if table == nil {
		table = make(Table)
	}
	return &Tracker{
		streaks:  streaks,
		table:    table,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for mastery timestamps.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RecordAttempt updates the card's streak. When the streak reaches Threshold
// the card is promoted and justMastered is true for that attempt only.
// The streak is updated even if persisting the promotion fails.
func (t *Tracker) RecordAttempt(ctx context.Context, hash, topic, filename string, correct bool) (int, bool, error) {
	streak, justMastered := t.streaks.Record(hash, correct)
	if !justMastered {
		return streak, false, nil
	}

	rec := Record{Topic: topic, Filename: filename, MasteredAt: t.now()}
	t.table[hash] = rec
	if t.recorder != nil {
		if err := t.recorder.MarkMastered(ctx, hash, rec); err != nil {
			return streak, true, fmt.Errorf("persist mastery: %w", err)
		}
	}
	return streak, true, nil
}

// Streak returns the current in-session streak for a card.
func (t *Tracker) Streak(hash string) int {
	return t.streaks[hash]
}

// IsMastered reports whether the card is permanently mastered.
func (t *Tracker) IsMastered(hash string) bool {
	return t.table.IsMastered(hash)
}

// ResetTopic clears mastery for every card in the topic. In-session streaks are untouched.
func (t *Tracker) ResetTopic(ctx context.Context, topic string) (int, error) {
	removed := t.table.ResetTopic(topic)
	if t.recorder == nil {
		return removed, nil
	}
	n, err := t.recorder.ResetTopic(ctx, topic)
	if err != nil {
		return removed, fmt.Errorf("persist mastery reset: %w", err)
	}
	return n, nil
}
