// Package llm defines the Provider interface for the language-model backends
// used by the structured extractor.
//
// A provider wraps a remote or local model API (e.g., OpenAI, or an Ollama
// instance via any-llm-go) behind a uniform completion interface so the
// extractor stays decoupled from any specific SDK.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message represents a single message in a completion conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. 0.0 requests
	// greedy decoding, which is what structured extraction wants.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// JSONOnly requests that the model reply with a single JSON object.
	// Backends with a native response-format constraint enforce it there;
	// others rely on the prompt. Callers must still validate the payload.
	JSONOnly bool
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Capabilities describes static metadata about a provider's model. Assumed
// constant for the lifetime of the Provider instance.
type Capabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens one completion can generate.
	MaxOutputTokens int

	// SupportsJSONMode indicates a native JSON response-format constraint.
	SupportsJSONMode bool
}

// Provider is the abstraction over any completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing the underlying model.
	Capabilities() Capabilities
}
