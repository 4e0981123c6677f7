package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/smartsearch/pkg/types"
)

// SQL scalar functions registered with the driver (see build_*.go)
const (
	sqlFuncDistance = "vec_distance_cosine"
	sqlFuncFold     = "casefold"
)

// serializeVector converts a float32 slice to little-endian bytes
func serializeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector converts little-endian bytes back to a float32 slice
func deserializeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// cosineSimilarity computes the cosine similarity of two equal-length vectors.
// A zero vector has similarity 0 to everything.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// cosineDistanceBlobs backs the vec_distance_cosine SQL function
func cosineDistanceBlobs(a, b []byte) (float64, error) {
	va, err := deserializeVector(a)
	if err != nil {
		return 0, err
	}
	vb, err := deserializeVector(b)
	if err != nil {
		return 0, err
	}
	if len(va) != len(vb) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(va), len(vb))
	}
	return 1 - cosineSimilarity(va, vb), nil
}

// casefold backs the casefold SQL function; SQLite's lower() only folds ASCII
func casefold(s string) string {
	return strings.ToLower(s)
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// vectorQueries hold one nearest-neighbour query per entity type. Only
// visible rows whose vector matches the store dimension are considered.
var vectorQueries = map[types.EntityType]string{
	types.EntityItem: `
		SELECT id, title, vec_distance_cosine(embedding, ?) AS distance
		FROM items
		WHERE embedding IS NOT NULL AND embedding_dim = ? AND is_active = 1
		ORDER BY distance ASC, id ASC
		LIMIT ?`,
	types.EntityShop: `
		SELECT id, name, vec_distance_cosine(embedding, ?) AS distance
		FROM shops
		WHERE embedding IS NOT NULL AND embedding_dim = ? AND is_approved = 1
		ORDER BY distance ASC, id ASC
		LIMIT ?`,
	types.EntityCategory: `
		SELECT id, name, vec_distance_cosine(embedding, ?) AS distance
		FROM categories
		WHERE embedding IS NOT NULL AND embedding_dim = ? AND is_active = 1
		ORDER BY distance ASC, id ASC
		LIMIT ?`,
}

// searchVectorWithQuerier ranks rows of one type by cosine distance to vector
func searchVectorWithQuerier(ctx context.Context, q querier, t types.EntityType, vector []float32, limit int) ([]VectorResult, error) {
	query, ok := vectorQueries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, t)
	}
	if limit <= 0 || len(vector) == 0 {
		return []VectorResult{}, nil
	}

	rows, err := q.QueryContext(ctx, query, serializeVector(vector), len(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search on %s: %w", t.Scope(), err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan vector result: %w", err)
		}
		r.Score = clampScore(1 - r.Distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search on %s: %w", t.Scope(), err)
	}

	return results, nil
}
