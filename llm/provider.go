package llm

import (
	"context"
	"fmt"

	"github.com/cagkan/chatty"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	DefaultModel     = openai.ChatModelGPT4oMini
	DefaultMaxTokens = 4096
)

var _ Service = &Provider{}

// Provider implements Service on top of the OpenAI chat-completions
// API.
type Provider struct {
	client       openai.Client
	model        openai.ChatModel
	maxTokens    int
	systemPrompt string
	requestOpts  []option.RequestOption
}

func New(opts ...Option) *Provider {
	p := &Provider{
		model:        DefaultModel,
		maxTokens:    DefaultMaxTokens,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.requestOpts...)
	return p
}

func (p *Provider) ModelName() string {
	return string(p.model)
}

// Stream opens a completion request with stream enabled and returns
// an iterator over the reply's text deltas.
func (p *Provider) Stream(ctx context.Context, messages []chatty.Message) (StreamIterator, error) {
	params, err := p.buildParams(messages)
	if err != nil {
		return nil, err
	}
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("error opening completion stream: %w", err)
	}
	return &chunkIterator{stream: stream}, nil
}

// Generate returns the complete assistant reply text.
func (p *Provider) Generate(ctx context.Context, messages []chatty.Message) (string, error) {
	params, err := p.buildParams(messages)
	if err != nil {
		return "", err
	}
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("error requesting completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *Provider) buildParams(messages []chatty.Message) (openai.ChatCompletionNewParams, error) {
	converted, err := convertMessages(messages, p.systemPrompt)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	return openai.ChatCompletionNewParams{
		Model:     p.model,
		Messages:  converted,
		MaxTokens: openai.Int(int64(p.maxTokens)),
	}, nil
}

// convertMessages maps domain messages to API params, prepending the
// system prompt when the history does not open with one.
func convertMessages(messages []chatty.Message, systemPrompt string) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" && messages[0].Role != chatty.RoleSystem {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case chatty.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chatty.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case chatty.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("role %q cannot be sent upstream", msg.Role)
		}
	}
	return out, nil
}
