package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// Provider names
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Defaults
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOpenAIURL   = "https://api.openai.com"
	DefaultOllamaModel = "llama3"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultFilterModel = "mistral"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

// DefaultSystemPrompt instructs the model to answer only from retrieved context
const DefaultSystemPrompt = `You are a helpful assistant for developers.
Answer the question using only the provided context.
If the context does not contain the answer, say that you don't know.`

var (
	// ErrGeneration is returned when the generation service fails
	ErrGeneration = errors.New("generation failure")
	// ErrUnknownProvider is returned for an unrecognized provider name
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a grounded question for the generation service
type Prompt struct {
	System   string // Empty uses DefaultSystemPrompt
	Context  string // Assembled retrieval context
	Question string
	History  []Message // Earlier turns, oldest first
}

// Messages renders the prompt as chat messages
func (p Prompt) Messages() []Message {
	system := p.System
	if system == "" {
		system = DefaultSystemPrompt
	}

	msgs := make([]Message, 0, len(p.History)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	msgs = append(msgs, p.History...)

	var user strings.Builder
	if p.Context != "" {
		user.WriteString("Context:\n")
		user.WriteString(p.Context)
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(p.Question)
	msgs = append(msgs, Message{Role: "user", Content: user.String()})

	return msgs
}

// Fragment is one piece of a streamed answer. The last fragment of a
// stream has Done set, or Err when the stream failed.
type Fragment struct {
	Text string
	Done bool
	Err  error
}

// Generator streams completions for a prompt
type Generator interface {
	// Stream starts a completion. Fragments arrive in order and the channel
	// is closed after the terminal fragment. Cancelling ctx stops the stream.
	Stream(ctx context.Context, prompt Prompt) (<-chan Fragment, error)
}

// FilterInferrer derives a metadata filter from a natural language query
type FilterInferrer interface {
	// InferFilter returns false when no usable filter could be derived
	InferFilter(ctx context.Context, query string) (types.Filter, bool)
}

// Config configures a Generator
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration // HTTP client timeout, zero disables
}

// New creates a Generator for the configured provider
func New(cfg Config) (Generator, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, client), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// Collect drains a stream into the full answer text
func Collect(ctx context.Context, gen Generator, prompt Prompt) (string, error) {
	stream, err := gen.Stream(ctx, prompt)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for frag := range stream {
		if frag.Err != nil {
			return out.String(), frag.Err
		}
		out.WriteString(frag.Text)
		if frag.Done {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

// send delivers a fragment unless ctx is done
func send(ctx context.Context, out chan<- Fragment, frag Fragment) bool {
	select {
	case out <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}
