// Package mock provides an offline LLM that answers from the prompt itself.
// It is used by tests and by provider = "mock" so the whole pipeline runs
// without a model server.
package mock

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/llm"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// ModelName is reported by the mock service.
const ModelName = "mock"

const (
	contextEcho  = 500
	titleWords   = 5
	titleRunes   = 20
	defaultTitle = "New conversation"
)

// cannedReplies answer small talk when no context is available.
// Keys are matched against the lower-cased question.
var cannedReplies = []struct {
	keyword string
	reply   string
}{
	{"hello", "Hello! I am an AI assistant. Nice to meet you!"},
	{"who are you", "I am the assistant of a simple RAG system. I can help answer your questions."},
	{"your name", "I do not have a particular name. You can call me assistant."},
	{"weather", "I cannot look up live weather, but a weather app or website can."},
	{"joke", "Why do programmers prefer dark mode? Because light attracts bugs!"},
	{"introduce", "I am an assistant built on retrieval augmented generation. I answer from your documents and can also chat."},
}

// LLMService is a deterministic offline LLM.
type LLMService struct{}

// NewLLMService creates a mock LLM service.
func NewLLMService() *LLMService {
	return &LLMService{}
}

// Generate returns the full reply for a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Reply(prompt), nil
}

// GenerateStream emits the reply one rune at a time.
func (s *LLMService) GenerateStream(
	ctx context.Context, prompt string, _ driven.GenerateOptions,
) (<-chan driven.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := Reply(prompt)

	ch := make(chan driven.StreamChunk)
	go func() {
		defer close(ch)
		for _, r := range reply {
			if !llm.Emit(ctx, ch, driven.StreamChunk{Text: string(r)}) {
				return
			}
		}
	}()
	return ch, nil
}

// Reply computes the mock answer for a rendered prompt.
// Answer prompts echo the head of their context; title prompts return the
// first few words of the conversation; anything else gets a canned reply.
func Reply(prompt string) string {
	if content, ok := section(prompt, driven.PromptContentHeader, driven.PromptTitleHeader); ok {
		return title(content)
	}
	if ctxText, ok := section(prompt, driven.PromptContextHeader, driven.PromptQuestionHeader); ok {
		question, _ := section(prompt, driven.PromptQuestionHeader, driven.PromptAnswerHeader)
		if ctxText != "" && ctxText != domain.NoContextSentinel {
			return "Based on the provided documents:\n\n" + truncate(ctxText, contextEcho) +
				"...\n\nSummary: the answer above is drawn from the retrieved passages."
		}
		return smallTalk(question)
	}
	return smallTalk(prompt)
}

func smallTalk(question string) string {
	lower := strings.ToLower(question)
	for _, c := range cannedReplies {
		if strings.Contains(lower, c.keyword) {
			return c.reply
		}
	}
	return "I received your question: '" + truncate(question, 50) +
		"...'. Sorry, I cannot give a specific answer, but I am happy to help!"
}

func title(content string) string {
	words := strings.Fields(content)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	t := strings.Join(words, " ")
	if len([]rune(t)) > titleRunes {
		t = truncate(t, titleRunes) + "..."
	}
	if t == "" {
		return defaultTitle
	}
	return t
}

// section returns the trimmed text between start and end headers.
// A missing end header means the section runs to the end of the prompt.
func section(prompt, start, end string) (string, bool) {
	i := strings.Index(prompt, start)
	if i < 0 {
		return "", false
	}
	rest := prompt[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest), true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string { return ModelName }

// Ping always succeeds.
func (s *LLMService) Ping(_ context.Context) error { return nil }

// Close releases resources.
func (s *LLMService) Close() error { return nil }
