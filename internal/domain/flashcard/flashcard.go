package flashcard

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// AnswerKind describes the syntax of a card's canonical answer.
type AnswerKind string

const (
	KindTrueFalse      AnswerKind = "true_false"
	KindYesNo          AnswerKind = "yes_no"
	KindMultipleChoice AnswerKind = "multiple_choice"
	KindMultipleAnswer AnswerKind = "multiple_answer"
)

// Valid reports whether k is one of the supported answer kinds.
func (k AnswerKind) Valid() bool {
	switch k {
	case KindTrueFalse, KindYesNo, KindMultipleChoice, KindMultipleAnswer:
		return true
	}
	return false
}

// Flashcard is a single quiz card belonging to a project.
type Flashcard struct {
	Topic       string     `json:"topic"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	AnswerType  AnswerKind `json:"answer_type"`
	Options     []string   `json:"options,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	Attempts    int        `json:"attempts"`
}

// Hash returns the stable mastery key for the card: the hex MD5 of its question text.
// Two cards with identical wording share a key.
func (c Flashcard) Hash() string {
	return HashQuestion(c.Question)
}

// HashQuestion hashes raw question text the same way Flashcard.Hash does.
func HashQuestion(question string) string {
	sum := md5.Sum([]byte(question))
	return hex.EncodeToString(sum[:])
}

// DetectKind infers the answer kind from the canonical answer's syntax.
// Anything unrecognised is treated as multiple choice.
func DetectKind(answer string) AnswerKind {
	a := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case a == "true" || a == "false":
		return KindTrueFalse
	case a == "yes" || a == "no":
		return KindYesNo
	case isSingleLetter(a):
		return KindMultipleChoice
	case strings.Contains(a, ",") && isLetterList(a):
		return KindMultipleAnswer
	default:
		return KindMultipleChoice
	}
}

// Normalize fills in derived fields on cards loaded from older files.
func (c *Flashcard) Normalize() {
	if c.AnswerType == "" {
		c.AnswerType = DetectKind(c.Answer)
	}
}

var (
	ErrEmptyQuestion = errors.New("question cannot be empty")
	ErrEmptyAnswer   = errors.New("answer cannot be empty")
	ErrMissingOption = errors.New("choice questions require options")
)

// Validate checks that the canonical answer agrees with the declared kind.
func (c Flashcard) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return ErrEmptyQuestion
	}
	answer := strings.ToLower(strings.TrimSpace(c.Answer))
	if answer == "" {
		return ErrEmptyAnswer
	}

	switch c.AnswerType {
	case KindTrueFalse:
		if answer != "true" && answer != "false" {
			return fmt.Errorf("answer %q is not True/False", c.Answer)
		}
	case KindYesNo:
		if answer != "yes" && answer != "no" {
			return fmt.Errorf("answer %q is not Yes/No", c.Answer)
		}
	case KindMultipleChoice:
		if !isSingleLetter(answer) || answer[0] > 'd' {
			return fmt.Errorf("answer %q is not a single letter A-D", c.Answer)
		}
		if len(c.Options) == 0 {
			return ErrMissingOption
		}
	case KindMultipleAnswer:
		if !isLetterList(answer) {
			return fmt.Errorf("answer %q is not a comma-separated letter list", c.Answer)
		}
		if len(c.Options) == 0 {
			return ErrMissingOption
		}
	default:
		return fmt.Errorf("unknown answer type %q", c.AnswerType)
	}
	return nil
}

// Topics returns the distinct topics of cards in first-seen order.
func Topics(cards []Flashcard) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, c := range cards {
		if !seen[c.Topic] {
			seen[c.Topic] = true
			topics = append(topics, c.Topic)
		}
	}
	return topics
}

func isSingleLetter(s string) bool {
	r := []rune(s)
	return len(r) == 1 && unicode.IsLetter(r[0])
}

func isLetterList(s string) bool {
	for _, part := range strings.Split(s, ",") {
		if !isSingleLetter(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}
