package grader

import (
	"strings"
	"unicode"
)

// Equivalence grades answers by normalised comparison with alias tables for
// boolean answers and set comparison for multi-letter answers. There is no
// partial credit and no fuzzy matching.
type Equivalence struct{}

// Compile-time check: Equivalence satisfies the Grader interface.
var _ Grader = Equivalence{}

var (
	trueAliases  = set("true", "t", "yes", "y", "1")
	falseAliases = set("false", "f", "no", "n", "0")
	yesAliases   = set("yes", "y", "true", "t", "1")
	noAliases    = set("no", "n", "false", "f", "0")
)

// Grade implements Grader.
func (Equivalence) Grade(_ string, userAnswer, canonical string) bool {
	return Check(userAnswer, canonical)
}

// Check compares a user answer to the canonical answer.
// A missing (blank) user answer is never correct.
func Check(userAnswer, canonical string) bool {
	user := normalize(userAnswer)
	want := normalize(canonical)
	if user == "" || want == "" {
		return false
	}

	if user == want {
		return true
	}

	switch want {
	case "true":
		return trueAliases[user]
	case "false":
		return falseAliases[user]
	case "yes":
		return yesAliases[user]
	case "no":
		return noAliases[user]
	}

	if r := []rune(want); len(r) == 1 && unicode.IsLetter(r[0]) {
		// Exact single-letter match was handled above.
		return false
	}

	if strings.Contains(want, ",") {
		return equalSets(splitSet(user), splitSet(want))
	}

	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out[p] = true
		}
	}
	return out
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
