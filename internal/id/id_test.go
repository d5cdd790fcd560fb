package id_test

import (
	"strings"
	"testing"

	"github.com/dstainton/transcript-flash-cards/internal/id"
)

func TestGenerateID_LengthAndAlphabet(t *testing.T) {
	got := id.GenerateID()

	if len(got) != 16 {
		t.Fatalf("expected 16 characters, got %d (%q)", len(got), got)
	}
	for _, r := range got {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789", r) {
			t.Errorf("unexpected character %q in %q", r, got)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		v := id.GenerateID()
		if seen[v] {
			t.Fatalf("duplicate id %q after %d generations", v, i)
		}
		seen[v] = true
	}
}
