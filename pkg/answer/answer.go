// Package answer turns a question and a set of retrieved records into a
// natural-language answer grounded only in those records.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/chronicle/pkg/llm"
)

// ErrGeneration is returned when the generative backend fails. The
// synthesizer never substitutes fallback text itself.
var ErrGeneration = errors.New("answer generation failed")

// Result is the answer to one question.
type Result struct {
	Answer   string `json:"answer"`
	Question string `json:"question"`
}

// ContextItem is one retrieved record offered to the model as grounding.
type ContextItem struct {
	Title string
	Body  string
	Tags  []string
}

// Synthesizer wraps a single generative-model call.
type Synthesizer struct {
	call   llm.CallFunc
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer that sends prompts through call.
func NewSynthesizer(call llm.CallFunc, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		call:   call,
		logger: logger,
	}
}

// Generate builds a context-grounded prompt and invokes the model once.
func (s *Synthesizer) Generate(ctx context.Context, question string, items []ContextItem) (*Result, error) {
	prompt := BuildPrompt(question, items)

	s.logger.Debug("generating answer",
		"context_items", len(items),
		"prompt_chars", len(prompt),
	)

	text, err := s.call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrGeneration)
	}

	return &Result{
		Answer:   text,
		Question: question,
	}, nil
}

// BuildPrompt renders the question and context items into a single prompt.
func BuildPrompt(question string, items []ContextItem) string {
	blocks := make([]string, len(items))
	for i, item := range items {
		tags := "No tags"
		if len(item.Tags) > 0 {
			tags = strings.Join(item.Tags, ", ")
		}
		blocks[i] = fmt.Sprintf("Title: %s\nContent: %s\nTags: %s", item.Title, item.Body, tags)
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions using only the user's personal records provided below.\n")
	b.WriteString("Answer the question based ONLY on the context. ")
	b.WriteString("If the context does not contain enough information to answer, say so clearly instead of guessing.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(blocks, "\n\n---\n\n"))
	b.WriteString("\n\nAnswer:")

	return b.String()
}
