package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-large"
	DefaultDimension   = 1536
	DefaultTimeout     = 30 * time.Second

	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Empty means api.openai.com
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAIProvider implements Provider using the OpenAI embeddings API
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	dimensions int
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(o.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     o.dimensions,
	})
	if err != nil {
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimensions
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// parseAPIError extracts a readable message from an API error response
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %w", reqErr.HTTPStatusCode, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}

// extractDetail reads the "detail" field some compatible providers return instead of "error"
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// LocalProvider produces deterministic feature-hashed bag-of-words vectors.
// Texts sharing words get similar vectors, which is enough for development
// and tests without network access.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local embedder with the given dimension (0 means DefaultDimension)
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, l.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in text", ErrInvalidInput)
	}

	for _, tok := range tokens {
		h := sha256.Sum256([]byte(tok))
		idx := binary.LittleEndian.Uint32(h[:4]) % uint32(l.dimension)
		if h[4]&1 == 0 {
			vector[idx]++
		} else {
			vector[idx]--
		}
	}

	return NormalizeVector(vector), nil
}

func (l *LocalProvider) Name() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return "local-hashing"
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Close() error {
	return nil
}
