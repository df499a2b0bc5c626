package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/liliang-cn/gmassist/internal/domain"
)

const defaultModel = "gpt-4o"

// OpenAIClient implements Client for OpenAI-compatible chat completion APIs.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates a client. An empty baseURL uses the library default.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (o *OpenAIClient) params(req *Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = o.model
	}
	params := openai.ChatCompletionNewParams{
		Model: model,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.maxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}
	params.Messages = messages

	return params
}

// Complete sends the conversation and returns the full reply.
func (o *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	out := &Response{Model: resp.Model}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	return out, nil
}

// Stream sends the conversation and relays content deltas as they arrive.
// The request is made in the background, so a provider that never answers
// shows up as a channel with no events rather than a blocked call.
func (o *OpenAIClient) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	params := o.params(req)
	events := make(chan StreamEvent, 16)

	go func() {
		defer close(events)

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		send := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(StreamEvent{Text: chunk.Choices[0].Delta.Content}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(StreamEvent{Err: fmt.Errorf("%w: %w", domain.ErrUpstream, err)})
		}
	}()

	return events, nil
}

// Compile-time interface assertion.
var _ Client = (*OpenAIClient)(nil)
