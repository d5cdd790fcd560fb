package grader

// Grader decides whether a user's answer matches a card's canonical answer.
// Implementations may use heuristics or return canned results (for tests).
type Grader interface {
	// Grade reports whether userAnswer is equivalent to canonical.
	// The question is passed for graders that need context; it is never required.
	Grade(question, userAnswer, canonical string) bool
}

// GraderFunc adapts a plain function to the Grader interface.
type GraderFunc func(question, userAnswer, canonical string) bool

func (f GraderFunc) Grade(question, userAnswer, canonical string) bool {
	return f(question, userAnswer, canonical)
}
