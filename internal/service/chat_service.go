package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/config"
	"github.com/liliang-cn/gmassist/internal/domain"
	"github.com/liliang-cn/gmassist/internal/llm"
)

// ErrIdleTimeout ends a stream whose provider stopped sending deltas
var ErrIdleTimeout = errors.New("llm stream idle timeout")

const noResponseText = "No response generated"

// Resolver finds script context for the last user message
type Resolver interface {
	Resolve(ctx context.Context, message string) (string, *domain.Scene)
}

// ChatService runs chat turns: context lookup, the LLM call, and narration
// splitting. Turns share no mutable state.
type ChatService struct {
	resolver    Resolver
	client      llm.Client
	logger      *zap.Logger
	model       string
	maxTokens   int
	idleTimeout time.Duration
	maxBlock    int
}

// NewChatService creates a new chat service
func NewChatService(cfg *config.Config, resolver Resolver, client llm.Client, logger *zap.Logger) *ChatService {
	return &ChatService{
		resolver:    resolver,
		client:      client,
		logger:      logger,
		model:       cfg.LLM.Model,
		maxTokens:   cfg.LLM.MaxTokens,
		idleTimeout: cfg.LLM.IdleTimeout,
		maxBlock:    cfg.Narration.MaxBlockBytes,
	}
}

type turn struct {
	request *llm.Request
	scene   *domain.Scene
}

func (t *turn) sceneName() string {
	if t.scene != nil {
		return t.scene.Name
	}
	return ""
}

func (s *ChatService) prepare(ctx context.Context, req *domain.ChatRequest) (*turn, error) {
	message, err := req.LastUserMessage()
	if err != nil {
		return nil, err
	}

	contextBlock, scene := s.resolver.Resolve(ctx, message)

	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	return &turn{
		request: &llm.Request{
			Model:     s.model,
			System:    buildSystemPrompt(req.Mode, contextBlock),
			Messages:  messages,
			MaxTokens: s.maxTokens,
		},
		scene: scene,
	}, nil
}

// Chat runs a non-streaming turn
func (s *ChatService) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Complete(ctx, t.request)
	if err != nil {
		return nil, err
	}

	result := ParseNarration(resp.Text, t.sceneName())
	out := &domain.ChatResponse{
		Response:   result.Response,
		Narrations: result.Narrations,
		Scene:      t.scene,
	}
	if out.Response == "" && len(result.Narrations) == 0 {
		out.Response = noResponseText
	}
	if len(result.Narrations) > 0 {
		out.Narration = strings.Join(result.Narrations, "\n\n")
	}
	return out, nil
}

// ChatStream starts a streaming turn. Validation errors are returned
// directly. Otherwise the channel carries the turn's events and always ends
// with a done event unless ctx is cancelled first.
func (s *ChatService) ChatStream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	t, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.StreamEvent, 16)
	go s.runStream(ctx, t, out)
	return out, nil
}

func (s *ChatService) runStream(ctx context.Context, t *turn, out chan<- domain.StreamEvent) {
	defer close(out)

	send := func(ev domain.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		s.logger.Warn("chat stream failed", zap.Error(err))
		if send(domain.ErrorEvent(err.Error())) {
			send(domain.DoneEvent())
		}
	}

	if t.scene != nil && !send(domain.SceneEvent(t.scene)) {
		return
	}

	upstreamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deltas, err := s.client.Stream(upstreamCtx, t.request)
	if err != nil {
		fail(err)
		return
	}

	var (
		timer *time.Timer
		idle  <-chan time.Time
	)
	if s.idleTimeout > 0 {
		timer = time.NewTimer(s.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	narrator := NewNarrator(t.sceneName(), s.maxBlock)
	for {
		select {
		case <-ctx.Done():
			return

		case <-idle:
			cancel()
			fail(ErrIdleTimeout)
			return

		case ev, ok := <-deltas:
			if !ok {
				for _, e := range narrator.Flush() {
					if !send(e) {
						return
					}
				}
				send(domain.DoneEvent())
				return
			}
			if ev.Err != nil {
				fail(ev.Err)
				return
			}
			if timer != nil {
				timer.Reset(s.idleTimeout)
			}
			for _, e := range narrator.Feed(ev.Text) {
				if !send(e) {
					return
				}
			}
		}
	}
}
