package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
)

func chatServer(t *testing.T, replies ...string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		n := atomic.AddInt32(&calls, 1)
		reply := replies[len(replies)-1]
		if int(n) <= len(replies) {
			reply = replies[n-1]
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const validReply = "Here you go:\n```json\n" + `[
 {"question": "Is Go statically typed?", "answer": "True", "answer_type": "true_false", "explanation": "It is."},
 {"question": "Which keyword starts a goroutine?", "answer": "B", "answer_type": "multiple_choice",
  "options": ["A) defer", "B) go", "C) chan", "D) select"]}
]` + "\n```"

func TestGenerate_ParsesAndTagsCards(t *testing.T) {
	srv, _ := chatServer(t, validReply)
	g := NewOpenAIGenerator(srv.URL, "test-model", "")

	cards, err := g.Generate(context.Background(), "Go is a language.", "golang", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.Topic != "golang" {
			t.Errorf("expected topic %q, got %q", "golang", c.Topic)
		}
	}
	if cards[1].AnswerType != flashcard.KindMultipleChoice {
		t.Errorf("expected multiple_choice, got %q", cards[1].AnswerType)
	}
}

func TestGenerate_AcceptsWrappedObject(t *testing.T) {
	srv, _ := chatServer(t, `{"flashcards": [{"question": "Q?", "answer": "No"}]}`)
	g := NewOpenAIGenerator(srv.URL, "m", "")

	cards, err := g.Generate(context.Background(), "text", "t", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].AnswerType != flashcard.KindYesNo {
		t.Errorf("expected one yes_no card, got %+v", cards)
	}
}

func TestGenerate_RetriesOnceThenSucceeds(t *testing.T) {
	srv, calls := chatServer(t, "sorry, I cannot", validReply)
	g := NewOpenAIGenerator(srv.URL, "m", "")

	if _, err := g.Generate(context.Background(), "text", "t", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestGenerate_MalformedCardIsGenerationError(t *testing.T) {
	// multiple choice without options is not repaired
	srv, calls := chatServer(t, `[{"question": "Q?", "answer": "A", "answer_type": "multiple_choice"}]`)
	g := NewOpenAIGenerator(srv.URL, "m", "")

	_, err := g.Generate(context.Background(), "text", "t", 1)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !errors.Is(err, flashcard.ErrMissingOption) {
		t.Errorf("expected wrapped ErrMissingOption, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != maxRetries {
		t.Errorf("expected %d calls, got %d", maxRetries, got)
	}
}

func TestGenerate_SendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `[{"question":"Q","answer":"True"}]`}}},
		})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.URL+"/", "m", "secret")
	if _, err := g.Generate(context.Background(), "text", "t", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer header, got %q", auth)
	}
}

func TestGenerate_ServerErrorIsGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator(srv.URL, "m", "").Generate(context.Background(), "text", "t", 1)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerate_EmptySource(t *testing.T) {
	_, err := NewOpenAIGenerator("http://unused", "m", "").Generate(context.Background(), "   ", "t", 1)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`noise [1, [2]] tail`, `[1, [2]]`},
		{`{"a": "}"} more`, `{"a": "}"}`},
		{`text {"a": [1, {"b": "x\"]"}]}`, `{"a": [1, {"b": "x\"]"}]}`},
		{`no json here`, ``},
		{`[unterminated`, ``},
	}

	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
