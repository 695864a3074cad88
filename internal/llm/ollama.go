package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaGenerator streams chat completions from Ollama's /api/chat endpoint
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaGenerator creates an Ollama generator; empty values use defaults
func NewOllamaGenerator(baseURL, model string, client *http.Client) *OllamaGenerator {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ollamaChatLine is one NDJSON line of a streamed chat response
type ollamaChatLine struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// Stream implements Generator
func (o *OllamaGenerator) Stream(ctx context.Context, prompt Prompt) (<-chan Fragment, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: prompt.Messages(),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: ollama status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatLine
			if err := json.Unmarshal(line, &chunk); err != nil {
				send(ctx, out, Fragment{Err: fmt.Errorf("%w: malformed stream line: %v", ErrGeneration, err)})
				return
			}
			if chunk.Error != "" {
				send(ctx, out, Fragment{Err: fmt.Errorf("%w: %s", ErrGeneration, chunk.Error)})
				return
			}
			if !send(ctx, out, Fragment{Text: chunk.Message.Content, Done: chunk.Done}) || chunk.Done {
				return
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
	}()

	return out, nil
}
