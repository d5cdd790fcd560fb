package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
)

// Generator turns source text into validated flashcards.
type Generator interface {
	Generate(ctx context.Context, sourceText, topic string, count int) ([]flashcard.Flashcard, error)
}

// OpenAIGenerator generates flashcards by calling an OpenAI-compatible
// chat-completions endpoint (OpenAI, Ollama, LM Studio, vLLM, etc.).
type OpenAIGenerator struct {
	url    string // e.g. "http://localhost:11434"
	model  string
	apiKey string // optional bearer token
	client *http.Client
}

// Compile-time check: *OpenAIGenerator satisfies the Generator interface.
var _ Generator = (*OpenAIGenerator)(nil)

// GenerationError is returned when the model is unreachable or its output
// cannot be turned into valid flashcards.
type GenerationError struct {
	Reason  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

// NewOpenAIGenerator creates a generator for the given endpoint.
func NewOpenAIGenerator(url, model, apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// ============================================================================
// Generator interface
// ============================================================================

const maxRetries = 2

// Generate asks the model for count flashcards about sourceText. Every card
// is tagged with topic. Output that does not parse or fails validation is
// retried once and then reported as a GenerationError; it is never repaired.
func (g *OpenAIGenerator) Generate(ctx context.Context, sourceText, topic string, count int) ([]flashcard.Flashcard, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, &GenerationError{Reason: "source text is empty"}
	}
	if count < 1 {
		count = 1
	}
	prompt := buildPrompt(sourceText, count)

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := g.callLLM(ctx, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		cards, err := parseCards(result)
		if err != nil {
			lastErr = err
			continue
		}

		for i := range cards {
			cards[i].Topic = topic
			cards[i].Attempts = 0
		}
		return cards, nil
	}

	return nil, &GenerationError{
		Reason:  fmt.Sprintf("failed after %d attempts", maxRetries),
		Wrapped: lastErr,
	}
}

// parseCards decodes the model reply and validates every card.
// Both a bare array and {"flashcards": [...]} are accepted.
func parseCards(reply string) ([]flashcard.Flashcard, error) {
	jsonStr := extractJSON(reply)
	if jsonStr == "" {
		return nil, &GenerationError{Reason: "no JSON found in LLM response"}
	}

	var cards []flashcard.Flashcard
	if strings.HasPrefix(jsonStr, "{") {
		var wrapped struct {
			Flashcards []flashcard.Flashcard `json:"flashcards"`
		}
		if err := json.Unmarshal([]byte(jsonStr), &wrapped); err != nil {
			return nil, &GenerationError{Reason: "invalid JSON from LLM", Wrapped: err}
		}
		cards = wrapped.Flashcards
	} else if err := json.Unmarshal([]byte(jsonStr), &cards); err != nil {
		return nil, &GenerationError{Reason: "invalid JSON from LLM", Wrapped: err}
	}

	if len(cards) == 0 {
		return nil, &GenerationError{Reason: "LLM returned no flashcards"}
	}
	for i := range cards {
		cards[i].Normalize()
		if err := cards[i].Validate(); err != nil {
			return nil, &GenerationError{Reason: fmt.Sprintf("flashcard %d is malformed", i+1), Wrapped: err}
		}
	}
	return cards, nil
}

// ============================================================================
// LLM communication
// ============================================================================

type llmRequest struct {
	Model       string       `json:"model"`
	Messages    []llmMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// callLLM sends a single request to the LLM and returns the raw text response.
func (g *OpenAIGenerator) callLLM(ctx context.Context, prompt string) (string, error) {
	reqBody := llmRequest{
		Model: g.model,
		Messages: []llmMessage{
			{Role: "system", Content: "You write study flashcards and reply with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.5,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM returned status %d", resp.StatusCode)
	}

	var llmResp llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}

	if len(llmResp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	content := llmResp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("LLM returned empty content")
	}

	return content, nil
}

// ============================================================================
// JSON extraction
// ============================================================================

// extractJSON returns the first complete top-level JSON array or object in s.
// Brackets inside quoted strings are ignored, so markdown fences and chatter
// around the payload are dropped.
func extractJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if start == -1 {
			if ch == '{' || ch == '[' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ============================================================================
// Prompt
// ============================================================================

// maxSourceRunes bounds the text sent to the model.
const maxSourceRunes = 24000

func buildPrompt(sourceText string, count int) string {
	runes := []rune(strings.TrimSpace(sourceText))
	if len(runes) > maxSourceRunes {
		runes = runes[:maxSourceRunes]
	}

	return fmt.Sprintf(`Generate %d flashcards from the document below.

Every flashcard must use exactly one of these answer types:
- "true_false": answer is "True" or "False"
- "yes_no": answer is "Yes" or "No"
- "multiple_choice": four options labelled A-D, answer is one letter
- "multiple_answer": four options labelled A-D, answer is a comma-separated list of letters, e.g. "A,C"

Include a short explanation of why the answer is correct.

DOCUMENT:
%s

Respond with ONLY a JSON array, no markdown:
[{"question": "...", "answer": "...", "answer_type": "...", "options": ["A) ...", "B) ...", "C) ...", "D) ..."], "explanation": "..."}]
Omit "options" for true_false and yes_no.`, count, string(runes))
}
