package practicesession

import "time"

// Mode selects how a session is played.
type Mode string

const (
	ModeStudy Mode = "study"
	ModeExam  Mode = "exam"
)

// AllTopics is the topic filter sentinel that selects every card.
const AllTopics = "all"

// SessionConfig holds the start-action inputs for a session.
type SessionConfig struct {
	Mode         Mode
	Topics       []string      // empty or containing AllTopics = every topic
	TimePerCard  time.Duration // display hint in study mode, enforced per question in exam mode
	ExamDuration time.Duration // overall exam deadline
	MinQuestions int           // exam only
	MaxQuestions int           // exam only
}

// DefaultConfig returns the built-in study defaults.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		Mode:         ModeStudy,
		Topics:       []string{AllTopics},
		TimePerCard:  10 * time.Second,
		ExamDuration: 10 * time.Minute,
		MinQuestions: 5,
		MaxQuestions: 10,
	}
}

func (c SessionConfig) allTopics() bool {
	if len(c.Topics) == 0 {
		return true
	}
	for _, t := range c.Topics {
		if t == AllTopics {
			return true
		}
	}
	return false
}

// questionRange returns a usable [min, max] range capped at available.
func (c SessionConfig) questionRange(available int) (int, int) {
	lo, hi := c.MinQuestions, c.MaxQuestions
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	if hi > available {
		hi = available
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
