package cachestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/rueidis"

	"github.com/dshills/smartsearch/internal/embedder"
)

// DefaultKeyPrefix namespaces embedding keys in a shared Redis/Valkey
const DefaultKeyPrefix = "smartsearch:emb:"

// Compile-time check: Store implements embedder.RemoteStore.
var _ embedder.RemoteStore = (*Store)(nil)

// ErrCorruptVector is returned for values that are not a whole number of float32s
var ErrCorruptVector = errors.New("corrupt cached vector")

// Config holds connection parameters for the shared cache
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a second-level embedding cache on Redis/Valkey.
// Vectors are stored as little-endian float32 bytes with SET EX.
type Store struct {
	client rueidis.Client
	prefix string
}

// New creates a store via rueidis
func New(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client; an empty prefix means DefaultKeyPrefix
func NewWithClient(client rueidis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Get returns the vector stored under key; ok is false when the key is absent
func (s *Store) Get(ctx context.Context, key string) ([]float32, bool, error) {
	cmd := s.client.B().Get().Key(s.prefix + key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return vec, true, nil
}

// Set stores vec under key with the given expiry
func (s *Store) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(s.prefix + key).Value(rueidis.BinaryString(encodeVector(vec))).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the store prefix using SCAN so Redis is never blocked
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(s.prefix + "*").Count(500).Build()
		entry, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		if len(entry.Elements) > 0 {
			del := s.client.B().Del().Key(entry.Elements...).Build()
			if err := s.client.Do(ctx, del).Error(); err != nil {
				return fmt.Errorf("del: %w", err)
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client
func (s *Store) Close() {
	s.client.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptVector, len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
