package embedder

import (
	"context"
	"errors"
	"testing"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		envKey string
		want   string
	}{
		{name: "explicit openai", cfg: Config{Provider: "OpenAI"}, want: ProviderOpenAI},
		{name: "explicit local", cfg: Config{Provider: "local"}, want: ProviderLocal},
		{name: "configured key", cfg: Config{APIKey: "k"}, want: ProviderOpenAI},
		{name: "env key", envKey: "k", want: ProviderOpenAI},
		{name: "no key", want: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOpenAIAPIKey, tt.envKey)
			if got := DetectProvider(tt.cfg); got != tt.want {
				t.Errorf("DetectProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("local generator", func(t *testing.T) {
		gen, err := New(Config{Provider: ProviderLocal, Dimension: 64, CacheSize: 5}, nil)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer gen.Close()

		if gen.Dimension() != 64 {
			t.Errorf("Dimension() = %d, want 64", gen.Dimension())
		}

		vec, err := gen.Generate(context.Background(), "wooden table")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(vec) != 64 {
			t.Errorf("len(vec) = %d, want 64", len(vec))
		}
		if gen.Cache().Stats().Size != 1 {
			t.Errorf("cache size = %d, want 1", gen.Cache().Stats().Size)
		}
	})

	t.Run("remote keys carry the provider namespace", func(t *testing.T) {
		remote := newFakeRemote()
		gen, err := New(Config{Provider: ProviderLocal, Dimension: 16, RemoteCache: remote}, nil)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer gen.Close()

		if _, err := gen.Generate(context.Background(), "Oak Desk"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		want := CacheNamespace(NewLocalProvider(16)) + ComputeHash("oak desk")
		if _, ok := remote.data[want]; !ok {
			t.Errorf("remote keys = %v, want %q", remote.data, want)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "jina"}, nil)
		if !errors.Is(err, ErrUnsupportedProvider) {
			t.Errorf("New() error = %v, want ErrUnsupportedProvider", err)
		}
	})
}
