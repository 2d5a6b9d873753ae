package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "llama3"

// Ollama generates text with a local Ollama server through langchaingo.
type Ollama struct {
	llm   *ollama.LLM
	model string
}

// NewOllama connects to serverURL, or to the langchaingo default when empty.
func NewOllama(model, serverURL string) (*Ollama, error) {
	if model == "" {
		model = DefaultOllamaModel
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("NewOllama: %w", err)
	}

	return &Ollama{llm: client, model: model}, nil
}

// Model returns the configured model name.
func (o *Ollama) Model() string { return o.model }

// Generate sends a system and a human message.
func (o *Ollama) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, user))

	resp, err := o.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("Ollama.Generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Content, nil
}
