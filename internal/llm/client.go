// Package llm wraps the chat-completion provider behind a small interface so
// the chat service can be driven by a fake in tests.
package llm

import "context"

// Client is the interface for LLM communication.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Stream returns ordered text deltas. It returns before the provider
	// answers. The channel is closed when the completion ends; a failure
	// arrives as a final event with Err set.
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
}

// Message is one conversation turn sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Request is the input for Complete and Stream.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// Response is the output of Complete.
type Response struct {
	Text  string
	Model string
}

// StreamEvent carries one text delta or the error that ended the stream.
type StreamEvent struct {
	Text string
	Err  error
}
