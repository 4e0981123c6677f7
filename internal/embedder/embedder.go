package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
)

// Provider is the capability interface over an external embedding model.
// Implementations make exactly one outbound call per Embed and do no caching,
// retrying or rate limiting of their own.
type Provider interface {
	// Embed returns the vector for text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name
	Name() string

	// Model returns the model name
	Model() string

	// Dimension returns the fixed vector length produced by the model
	Dimension() int

	// Close releases any resources held by the provider
	Close() error
}

// Embedder is what the indexer and searcher consume. Generate returns nil
// (and no error) for blank text; a non-nil vector always has Dimension() floats.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ProviderError is returned once every retry against the provider has failed.
type ProviderError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", ErrProviderFailed, e.Provider, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last cause to errors.Is/As.
func (e *ProviderError) Unwrap() []error {
	return []error{ErrProviderFailed, e.Err}
}

// NormalizeText is the cache key normalisation: surrounding whitespace removed, lowercased
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Truncate cuts text to at most maxChars runes; maxChars <= 0 disables truncation
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
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

func copyVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
