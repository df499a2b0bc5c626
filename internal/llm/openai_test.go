package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/gmassist/internal/domain"
)

func chunk(content string) string {
	return `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":` +
		jsonString(content) + `},"finish_reason":null}]}` + "\n\n"
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNewOpenAIClientDefaultModel(t *testing.T) {
	client := NewOpenAIClient("test-key", "", "", 0)
	assert.Equal(t, defaultModel, client.model)
}

func TestOpenAIClient_Params(t *testing.T) {
	client := NewOpenAIClient("test-key", "", "gpt-4o-mini", 512)
	params := client.params(&Request{
		System: "You narrate scenes.",
		Messages: []Message{
			{Role: domain.RoleUser, Content: "Hi"},
			{Role: domain.RoleAssistant, Content: "Hello"},
			{Role: "tool", Content: "dropped"},
		},
	})

	assert.Equal(t, "gpt-4o-mini", params.Model)
	assert.Len(t, params.Messages, 3)
	assert.Equal(t, int64(512), params.MaxCompletionTokens.Value)
}

func TestOpenAIClient_Stream(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Sure! [NARR", "ATION]Roses.[/NARRATION]"} {
			io.WriteString(w, chunk(part))
			flusher.Flush()
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "gpt-4o", 0)
	events, err := client.Stream(context.Background(), &Request{
		System:   "system prompt",
		Messages: []Message{{Role: domain.RoleUser, Content: "Tell me about the garden scene"}},
	})
	require.NoError(t, err)

	var text strings.Builder
	for ev := range events {
		require.NoError(t, ev.Err)
		text.WriteString(ev.Text)
	}

	assert.Equal(t, "Sure! [NARRATION]Roses.[/NARRATION]", text.String())
	assert.Equal(t, true, body["stream"])
	msgs, _ := body["messages"].([]any)
	assert.Len(t, msgs, 2)
}

func TestOpenAIClient_StreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom"}}`)
	}))
	defer server.Close()

	client := &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(server.URL),
			option.WithMaxRetries(0),
		),
		model: "gpt-4o",
	}
	events, err := client.Stream(context.Background(), &Request{
		Messages: []Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var gotErr error
	for ev := range events {
		if ev.Err != nil {
			gotErr = ev.Err
		}
	}
	assert.ErrorIs(t, gotErr, domain.ErrUpstream)
}

func TestOpenAIClient_StreamReturnsBeforeHeaders(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewOpenAIClient("test-key", server.URL, "gpt-4o", 0)
	ctx, cancel := context.WithCancel(context.Background())

	returned := make(chan (<-chan StreamEvent), 1)
	go func() {
		events, err := client.Stream(ctx, &Request{
			Messages: []Message{{Role: domain.RoleUser, Content: "hi"}},
		})
		assert.NoError(t, err)
		returned <- events
	}()

	var events <-chan StreamEvent
	select {
	case events = <-returned:
	case <-time.After(time.Second):
		cancel()
		t.Fatal("Stream blocked on a provider that has not answered")
	}

	select {
	case ev, ok := <-events:
		t.Fatalf("unexpected event before the provider answered: %+v (open=%v)", ev, ok)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	for range events {
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Stay alert."}}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "gpt-4o", 0)
	resp, err := client.Complete(context.Background(), &Request{
		Messages: []Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay alert.", resp.Text)
	assert.Equal(t, "gpt-4o", resp.Model)
}
