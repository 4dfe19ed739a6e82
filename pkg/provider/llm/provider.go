// Package llm defines the Provider interface for the inference backends used
// by the term-mapping pipeline.
//
// An inference provider wraps a remote or local model API (e.g., OpenAI,
// Anthropic via any-llm, or a local Ollama instance) and exposes a uniform
// interface for the mapping adapter to request schema-constrained completions
// without coupling to any specific SDK.
//
// Providers must classify transport failures into the typed errors declared
// in this package (see [RateLimitError], [ErrPayloadTooLarge], [ServerError],
// [ClientError]) so the chunk executor can decide between retrying, shrinking
// the payload, and giving up.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the inference backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// Temperature controls output randomness in the range [0.0, 2.0]. The
	// mapping adapter uses low values for deterministic term extraction.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is a high-priority instruction injected before the
	// conversation history. The mapping adapter keeps this static across
	// requests so providers can reuse cached prompt prefixes.
	SystemPrompt string

	// ResponseSchema, when non-nil, is a JSON Schema the response must
	// conform to. Providers without native schema-constrained output may
	// ignore this field — the system prompt always restates the expected
	// shape, and the caller validates the response on parse.
	ResponseSchema map[string]any

	// SchemaName labels ResponseSchema for providers that require a name
	// alongside the schema (e.g., OpenAI structured outputs).
	SchemaName string
}

// CompletionResponse is returned by [Provider.Complete].
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any inference backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Transport and API failures must be returned as (or wrapped around) the
	// typed errors of this package where they can be classified; see
	// [IsRetryable].
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Message represents a single message in a model conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}
