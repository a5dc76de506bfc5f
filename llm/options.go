package llm

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the completion model name.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = openai.ChatModel(model) }
}

// WithAPIKey sets the credential sent to the completion service.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.requestOpts = append(p.requestOpts, option.WithAPIKey(apiKey))
	}
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.requestOpts = append(p.requestOpts, option.WithBaseURL(baseURL))
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(maxTokens int) Option {
	return func(p *Provider) { p.maxTokens = maxTokens }
}

// WithSystemPrompt overrides the default persona preamble.
func WithSystemPrompt(prompt string) Option {
	return func(p *Provider) { p.systemPrompt = prompt }
}

// WithRequestOptions appends raw request options (custom HTTP client,
// extra headers).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(p *Provider) {
		p.requestOpts = append(p.requestOpts, opts...)
	}
}
