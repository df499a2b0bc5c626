package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indicates rate limit exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUpstream indicates the LLM provider failed
	ErrUpstream = errors.New("upstream llm failure")

	ErrUnknownEvent = errors.New("unknown stream event kind")
)

// Validation failures on a chat request; both match ErrInvalidRequest.
var (
	ErrEmptyConversation  = fmt.Errorf("%w: messages must be a non-empty array", ErrInvalidRequest)
	ErrLastMessageNotUser = fmt.Errorf("%w: last message must be from user", ErrInvalidRequest)
)
