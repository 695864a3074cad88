package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// OpenAIGenerator streams chat completions from an OpenAI-compatible
// /v1/chat/completions endpoint (OpenAI, DeepSeek, vLLM, ...)
type OpenAIGenerator struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAIGenerator creates an OpenAI-compatible generator. An empty
// apiKey falls back to OPENAI_API_KEY.
func NewOpenAIGenerator(baseURL, model, apiKey string, client *http.Client) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Stream implements Generator
func (g *OpenAIGenerator) Stream(ctx context.Context, prompt Prompt) (<-chan Fragment, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:    g.model,
		Messages: prompt.Messages(),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: API error %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		g.parseSSEStream(ctx, resp.Body, out)
	}()

	return out, nil
}

// parseSSEStream forwards the data events of a chat completion stream
func (g *OpenAIGenerator) parseSSEStream(ctx context.Context, body io.Reader, out chan<- Fragment) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			send(ctx, out, Fragment{Done: true})
			return
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			send(ctx, out, Fragment{Err: fmt.Errorf("%w: malformed event: %v", ErrGeneration, err)})
			return
		}
		if chunk.Error != nil {
			send(ctx, out, Fragment{Err: fmt.Errorf("%w: %s", ErrGeneration, chunk.Error.Message)})
			return
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !send(ctx, out, Fragment{Text: choice.Delta.Content}) {
				return
			}
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	send(ctx, out, Fragment{Err: fmt.Errorf("%w: %v", ErrGeneration, err)})
}
