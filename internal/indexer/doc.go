// Package indexer keeps catalog embeddings in step with catalog content.
//
// For every entity the indexer builds a canonical text from the current row
// (items also pull in their shop's first category name), asks the embedder
// for a vector and writes it with storage.UpdateEmbedding. Entities with no
// indexable text are skipped and keep whatever vector they already had.
//
// # Single entities
//
//	idx := indexer.New(store, generator, indexer.Config{Logger: log})
//	if err := idx.IndexByID(ctx, types.EntityItem, 42); err != nil {
//	    // storage.ErrNotFound when the item does not exist
//	}
//
// Hooks wrap the same call for catalog write paths and only log failures:
//
//	hooks := indexer.NewHooks(idx, log)
//	hooks.OnEntityUpdated(ctx, item)
//
// # Bulk runs
//
// IndexAllOfType and IndexAll walk ids in ascending order through a bounded
// errgroup. A failing entity is counted in Statistics and the run carries
// on; only context cancellation stops it early.
//
// # Background jobs
//
// Jobs runs bulk reindexing on an ants worker pool and tracks each run by a
// UUID. At most one run per scope ("all", "item", "shop", "category") may be
// active; a second request for the same scope gets ErrReindexInProgress.
//
//	jobs, _ := indexer.NewJobs(idx, indexer.JobsConfig{PoolSize: 2})
//	defer jobs.Close()
//
//	status, err := jobs.ReindexAll(ctx)
//	...
//	status, err = jobs.Status(status.ID)
package indexer
