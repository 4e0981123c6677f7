package embedder

import (
	"errors"
	"math"
	"testing"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty string",
			text: "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "simple text",
			text: "hello world",
			want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeHash(tt.text); got != tt.want {
				t.Errorf("ComputeHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Gaming LAPTOP \n"); got != "gaming laptop" {
		t.Errorf("NormalizeText() = %q", got)
	}
	if ComputeHash(NormalizeText("Laptop")) != ComputeHash(NormalizeText(" laptop ")) {
		t.Error("normalized keys should match")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"shorter than limit", "abc", 5, "abc"},
		{"cut to limit", "abcdef", 3, "abc"},
		{"limit disabled", "abcdef", 0, "abcdef"},
		{"multibyte runes", "ноутбук", 4, "ноут"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("norm^2 = %v, want 1", sum)
	}

	zero := []float32{0, 0}
	if got := NormalizeVector(zero); got[0] != 0 || got[1] != 0 {
		t.Errorf("zero vector changed: %v", got)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := error(&ProviderError{Provider: "openai", Attempts: 3, Err: cause})

	if !errors.Is(err, ErrProviderFailed) {
		t.Error("ProviderError should match ErrProviderFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("ProviderError should unwrap to its cause")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Attempts != 3 {
		t.Errorf("errors.As() = %v, attempts %d", perr, perr.Attempts)
	}
}
