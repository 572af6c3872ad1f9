package llm

import "context"

// Provider is the abstraction over the generative model backing the
// interview: question generation, answer rating, and final feedback are
// all single-turn text completions.
type Provider interface {
	// Generate sends a prompt and returns the model's text response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single-turn generation.
type Request struct {
	// System sets the model's role and constraints. Optional.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero means deterministic.
	Temperature float64
}

// Response holds the model's output.
type Response struct {
	// Text is the raw generated text.
	Text string

	// Model is the actual model that served the request.
	Model string
}
