// Package storage persists the catalog (items, shops, categories) together
// with one embedding per row and answers both search paths over it.
//
// # Schema
//
// Each entity table carries its own nullable embedding columns:
//
//	embedding     BLOB     little-endian float32 vector
//	embedding_dim INTEGER  number of floats in embedding
//	embedded_at   INTEGER  unix nanoseconds of the last write
//
// Timestamps are stored as unix nanoseconds so both SQLite drivers read them
// back identically. Migrations are versioned with semantic versions and
// applied on open.
//
// # Vector search
//
// SearchVector ranks visible rows of one entity type by cosine distance to a
// query vector using the vec_distance_cosine SQL function, which is
// registered by the active driver. Rows whose embedding_dim differs from the
// query are never compared. Scores are 1 - distance clamped to [0, 1].
//
// # Lexical search
//
// SearchLexical performs a case-insensitive substring match. Folding is done
// by the casefold SQL function (Go's strings.ToLower) so non-ASCII titles
// match regardless of case. Results are ordered exact title match first,
// then title prefix, then newest first, and carry the fixed LexicalScore.
//
// # Visibility
//
// Only active items, approved shops and active categories are returned by
// either search path.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite and needs no C compiler:
//
//	CGO_ENABLED=0 go build ./...
//
// The cgo_sqlite tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./...
//
// # Usage
//
//	store, err := storage.NewSQLiteStorage("search.db", 1536)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.UpdateEmbedding(ctx, types.EntityItem, id, vec); err != nil {
//	    return err
//	}
//	hits, err := store.SearchVector(ctx, types.EntityItem, queryVec, 20)
package storage
