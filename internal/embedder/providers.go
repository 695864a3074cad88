package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderOllama = "ollama"
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultOllamaModel = "mxbai-embed-large"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Default endpoints
	DefaultOllamaURL = "http://localhost:11434"
	DefaultJinaURL   = "https://api.jina.ai"
	DefaultOpenAIURL = "https://api.openai.com"

	// Dimensions
	OllamaDimension = 1024
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry backoff
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	DefaultTimeout = 30 * time.Second

	// API key environment variables
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// ProviderOptions configures an HTTP embedding provider.
// Zero values select the provider defaults.
type ProviderOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
	Retry     RetryConfig
}

func (o ProviderOptions) withDefaults(baseURL, model string, dimension int) ProviderOptions {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Model == "" {
		o.Model = model
	}
	if o.Dimension <= 0 {
		o.Dimension = dimension
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = DefaultRetryConfig()
	}
	return o
}

// httpBase holds what every remote provider shares
type httpBase struct {
	name       string
	opts       ProviderOptions
	httpClient *http.Client
	cache      *Cache
}

func newHTTPBase(name string, opts ProviderOptions, cache *Cache) httpBase {
	return httpBase{
		name:       name,
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      cache,
	}
}

func (b *httpBase) Dimension() int   { return b.opts.Dimension }
func (b *httpBase) Provider() string { return b.name }
func (b *httpBase) Model() string    { return b.opts.Model }

func (b *httpBase) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

// postJSON sends payload to path and decodes the response into out
func (b *httpBase) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if b.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.opts.APIKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// cached returns the cached embeddings for texts and the indexes still missing
func (b *httpBase) cached(model string, texts []string) ([]*Embedding, []int) {
	out := make([]*Embedding, len(texts))
	var missing []int
	for i, text := range texts {
		if emb, ok := b.cache.Lookup(model, text); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, i)
	}
	return out, missing
}

func (b *httpBase) store(model, text string, emb *Embedding) {
	emb.Key = CacheKey(model, text)
	b.cache.Store(model, text, emb)
}

// generateOne routes a single request through the provider's batch path
func generateOne(ctx context.Context, e Embedder, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := e.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

// OllamaProvider implements Embedder using a local Ollama server
type OllamaProvider struct {
	httpBase
}

// NewOllamaProvider creates a new Ollama embedder. No API key is needed.
func NewOllamaProvider(opts ProviderOptions, cache *Cache) (*OllamaProvider, error) {
	opts = opts.withDefaults(DefaultOllamaURL, DefaultOllamaModel, OllamaDimension)
	return &OllamaProvider{httpBase: newHTTPBase(ProviderOllama, opts, cache)}, nil
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, o, req)
}

// GenerateBatch embeds each text with one /api/embeddings call
func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.opts.Model
	}

	embeddings, missing := o.cached(model, req.Texts)
	for _, i := range missing {
		vector, attempts, err := retryWithBackoff(ctx, o.opts.Retry, func() ([]float32, error) {
			var apiResp struct {
				Embedding []float32 `json:"embedding"`
			}
			err := o.postJSON(ctx, "/api/embeddings", map[string]any{
				"model":  model,
				"prompt": req.Texts[i],
			}, &apiResp)
			return apiResp.Embedding, err
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, attempts, err)
		}
		if len(vector) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for text %d", ErrProviderFailed, i)
		}

		emb := &Embedding{
			Vector:    vector,
			Dimension: len(vector),
			Provider:  ProviderOllama,
			Model:     model,
		}
		o.store(model, req.Texts[i], emb)
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      model,
	}, nil
}

// compatProvider speaks the /v1/embeddings API shared by OpenAI and Jina
type compatProvider struct {
	httpBase
}

func (c *compatProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	embeddings, missing := c.cached(model, req.Texts)
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = req.Texts[i]
		}

		fetched, attempts, err := retryWithBackoff(ctx, c.opts.Retry, func() ([]*Embedding, error) {
			return c.callAPI(ctx, texts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, attempts, err)
		}
		if len(fetched) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProviderFailed, len(texts), len(fetched))
		}

		for j, i := range missing {
			c.store(model, req.Texts[i], fetched[j])
			embeddings[i] = fetched[j]
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   c.name,
		Model:      model,
	}, nil
}

func (c *compatProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	err := c.postJSON(ctx, "/v1/embeddings", map[string]any{
		"input": texts,
		"model": model,
	}, &apiResp)
	if err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		idx := i
		if data.Index >= 0 && data.Index < len(embeddings) {
			idx = data.Index
		}
		embeddings[idx] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  c.name,
			Model:     model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}

	return embeddings, nil
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	compatProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(opts ProviderOptions, cache *Cache) (*JinaProvider, error) {
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(EnvJinaAPIKey)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}

	opts = opts.withDefaults(DefaultJinaURL, DefaultJinaModel, JinaDimension)
	return &JinaProvider{compatProvider{newHTTPBase(ProviderJina, opts, cache)}}, nil
}

func (j *JinaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, j, req)
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	compatProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(opts ProviderOptions, cache *Cache) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	opts = opts.withDefaults(DefaultOpenAIURL, DefaultOpenAIModel, OpenAIDimension)
	return &OpenAIProvider{compatProvider{newHTTPBase(ProviderOpenAI, opts, cache)}}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, o, req)
}

// LocalProvider produces deterministic hash-derived vectors. Identical
// texts map to identical unit vectors; it needs no network and is used
// offline and in tests.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     "local-hash",
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if emb, ok := l.cache.Lookup(l.model, req.Text); ok {
		return emb, nil
	}

	emb := &Embedding{
		Vector:    HashVector(req.Text, l.dimension),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Key:       CacheKey(l.model, req.Text),
	}
	l.cache.Store(l.model, req.Text, emb)

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// HashVector expands the SHA-256 of text into a unit vector of the given dimension
func HashVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)
	seed := sha256.Sum256([]byte(text))
	block := seed
	for i := 0; i < dimension; i++ {
		if i > 0 && i%8 == 0 {
			block = sha256.Sum256(append(seed[:], block[:]...))
		}
		word := binary.BigEndian.Uint32(block[(i%8)*4:])
		vector[i] = float32(word)/float32(math.MaxUint32)*2 - 1
	}
	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
