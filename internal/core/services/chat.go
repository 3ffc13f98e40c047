package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

const (
	// MaxTitleRunes caps generated session titles.
	MaxTitleRunes = 50

	// titleContentRunes bounds the exchange text given to the title prompt.
	titleContentRunes = 500
)

// ChatService answers questions from retrieved context and records each
// exchange in a session.
type ChatService struct {
	sessions driven.SessionStore
	search   driving.SearchService
	llm      driven.LLMService
	prompts  driven.PromptStore
	metrics  *metrics.Metrics

	locks *keyedMutex
	now   func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	sessions driven.SessionStore,
	search driving.SearchService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	m *metrics.Metrics,
) *ChatService {
	return &ChatService{
		sessions: sessions,
		search:   search,
		llm:      llm,
		prompts:  prompts,
		metrics:  m,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// turn is a resolved request.
type turn struct {
	owner    string
	id       string
	state    domain.SessionState
	title    string
	question string
}

// Ask answers in one piece and persists the exchange.
// When only persistence fails, the answer is returned together with an
// error wrapping domain.ErrPersistenceFailed.
func (s *ChatService) Ask(ctx context.Context, req driving.ChatRequest) (*domain.Answer, error) {
	return s.run(ctx, req, nil)
}

// AskStream emits fragments as the model produces them and persists the
// exchange after the last one. A failed, cancelled or abandoned stream
// leaves the session untouched.
func (s *ChatService) AskStream(
	ctx context.Context, req driving.ChatRequest, emit func(fragment string) error,
) (*domain.Answer, error) {
	if emit == nil {
		return nil, fmt.Errorf("emit callback is nil: %w", domain.ErrInvalidInput)
	}
	return s.run(ctx, req, emit)
}

func (s *ChatService) run(
	ctx context.Context, req driving.ChatRequest, emit func(string) error,
) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("question is empty: %w", domain.ErrInvalidInput)
	}
	owner := normaliseOwner(req.OwnerID)
	requested := strings.TrimSpace(req.SessionID)

	// Holding the lock across generation keeps turns of one session in order.
	if requested != "" {
		unlock := s.locks.Lock(owner + "/" + requested)
		defer unlock()
	}

	t, err := s.resolve(ctx, owner, requested)
	if err != nil {
		return nil, err
	}
	t.question = question
	logger.Section("Chat")
	logger.Debug("Session %s (%s), owner=%s", t.id, t.state, owner)

	opts := domain.RetrievalOptions{TopK: req.TopK, IncludePublic: req.IncludePublic}
	if req.Category != "" {
		opts.Filter = domain.Filter{domain.MetaCategory: req.Category}
	}
	outcome := s.search.Retrieve(ctx, owner, question, opts)
	if outcome.Status == domain.RetrievalDegraded {
		logger.Warn("answering without context: %v", outcome.Err)
	}

	prompt, err := s.render(driven.PromptRAGAnswer, outcome.Context, question)
	if err != nil {
		return nil, err
	}

	var answer string
	if emit == nil {
		answer, err = s.llm.Generate(ctx, prompt, driven.GenerateOptions{})
	} else {
		answer, err = s.stream(ctx, prompt, emit)
	}
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.Answer{
		SessionID: t.id,
		State:     t.state,
		Title:     t.title,
		Answer:    answer,
		Sources:   domain.SourcesFromHits(outcome.Hits),
	}

	err = s.persist(ctx, &t, answer)
	result.Title = t.title
	if err != nil {
		s.metrics.RecordPersistFailure()
		logger.Error(err, "persist session %s", t.id)
		return result, fmt.Errorf("session %s: %w: %w", t.id, domain.ErrPersistenceFailed, err)
	}
	s.metrics.RecordChatTurn(t.state.String())
	return result, nil
}

// resolve classifies the request against stored sessions.
func (s *ChatService) resolve(ctx context.Context, owner, requested string) (turn, error) {
	if requested == "" {
		return turn{owner: owner, id: uuid.NewString(), state: domain.SessionStateNew}, nil
	}

	session, err := s.sessions.GetSession(ctx, owner, requested)
	switch {
	case err == nil:
		return turn{owner: owner, id: session.ID, state: domain.SessionStateContinuing, title: session.Title}, nil
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("session %s not found for %s, starting a new one", requested, owner)
		return turn{owner: owner, id: uuid.NewString(), state: domain.SessionStateOrphaned}, nil
	default:
		return turn{}, fmt.Errorf("resolve session %s: %w", requested, err)
	}
}

// stream forwards fragments to emit and returns the full answer.
func (s *ChatService) stream(ctx context.Context, prompt string, emit func(string) error) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.llm.GenerateStream(ctx, prompt, driven.GenerateOptions{})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			cancel()
			drain(ch)
			return "", chunk.Err
		}
		if err := emit(chunk.Text); err != nil {
			cancel()
			drain(ch)
			return "", fmt.Errorf("emit fragment: %w", err)
		}
		sb.WriteString(chunk.Text)
	}
	// The producer closes the channel on cancellation without an error chunk.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func drain(ch <-chan driven.StreamChunk) {
	for range ch {
	}
}

// persist appends to a continuing session or creates a titled new one.
func (s *ChatService) persist(ctx context.Context, t *turn, answer string) error {
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: t.question},
		{Role: domain.RoleAssistant, Content: answer},
	}
	if !t.state.CreatesSession() {
		return s.sessions.AppendMessages(ctx, t.owner, t.id, messages)
	}

	t.title = s.title(ctx, t.question, answer)
	now := s.now()
	return s.sessions.CreateSession(ctx, &domain.Session{
		ID:        t.id,
		OwnerID:   t.owner,
		Title:     t.title,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// title asks the model for a short title, falling back to the question.
func (s *ChatService) title(ctx context.Context, question, answer string) string {
	fallback := truncateRunes(question, MaxTitleRunes)

	content := truncateRunes(question+"\n\n"+answer, titleContentRunes)
	prompt, err := s.render(driven.PromptSessionTitle, content)
	if err != nil {
		logger.Debug("title prompt unavailable: %v", err)
		return fallback
	}
	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 32})
	if err != nil {
		logger.Debug("title generation failed: %v", err)
		return fallback
	}
	if title := cleanTitle(raw); title != "" {
		return title
	}
	return fallback
}

func (s *ChatService) render(name string, args ...any) (string, error) {
	tmpl, err := s.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return fmt.Sprintf(tmpl, args...), nil
}

// cleanTitle keeps the first non-empty line without surrounding quotes.
func cleanTitle(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, driven.PromptTitleHeader)
		line = strings.Trim(strings.TrimSpace(line), "\"'`*#")
		line = strings.TrimSpace(line)
		if line != "" {
			return truncateRunes(line, MaxTitleRunes)
		}
	}
	return ""
}

// truncateRunes returns at most n runes of s, trimmed.
func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
