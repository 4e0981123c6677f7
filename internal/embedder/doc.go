// Package embedder turns catalog text into vector embeddings.
//
// A Generator sits in front of a Provider (the external model) and adds
// everything callers should not have to think about: a content-addressed
// cache, input truncation, a request rate limit and retries with linear
// backoff.
//
// # Basic Usage
//
//	gen, err := embedder.New(embedder.Config{
//	    Provider:  "openai",
//	    APIKey:    os.Getenv("OPENAI_API_KEY"),
//	    Dimension: 1536,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gen.Close()
//
//	vec, err := gen.Generate(ctx, embedder.ItemText(item.Title, item.Description, item.Tags, "Electronics"))
//	if err != nil {
//	    var perr *embedder.ProviderError
//	    if errors.As(err, &perr) {
//	        // provider still failing after perr.Attempts attempts
//	    }
//	}
//	if vec == nil {
//	    // blank text, nothing to index
//	}
//
// # Caching
//
// Cache keys are the SHA-256 of the trimmed, lowercased text, so
// "Laptop " and "laptop" share an entry. Entries are evicted least recently
// used once MaxEntries is reached and expire after TTL (24h by default).
// A compute error is never cached. An optional RemoteStore adds a shared
// second tier consulted after a local miss.
//
//	stats := gen.Cache().Stats()
//	fmt.Printf("size=%d hit rate=%.2f\n", stats.Size, stats.HitRate)
//
// # Retry and Rate Limiting
//
// Each cache miss waits for a token from a limiter (50 req/s by default)
// before calling the provider. Failed calls are retried up to
// RetryConfig.MaxAttempts times, sleeping attempt*BaseDelay between tries.
// Dimension mismatches are not retried. When the attempts run out Generate
// returns a *ProviderError, which matches ErrProviderFailed with errors.Is.
//
// # Providers
//
//   - openai: any OpenAI-compatible /embeddings endpoint (BaseURL overrides the host)
//   - local: deterministic feature-hashed vectors for offline development
//
// With Provider empty, openai is used when an API key is available and local otherwise.
//
// # Canonical Text
//
// ItemText, ShopText and CategoryText build the text that is embedded for
// each entity. Titles are repeated to weigh them above descriptions.
package embedder
