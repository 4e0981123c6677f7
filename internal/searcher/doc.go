// Package searcher answers catalog queries across items, shops and categories.
//
// Search embeds the query once and runs one vector query per requested
// entity type in parallel. Hits below the relevance threshold are dropped,
// the rest are loaded in full, merged and sorted by score (ties by entity
// type, then id) and cut to the limit.
//
// When the query cannot be embedded, or every per-type vector query fails,
// the same fan-out runs against the keyword index instead and the response is
// flagged with IsFallback and FallbackMessage. Keyword hits carry the fixed
// storage.LexicalScore and are ordered exact title match, prefix match, then
// newest first. If the keyword path fails as well the response is empty,
// flagged, and carries UnavailableMessage.
//
// A single failing entity type never fails a query; it is logged and
// contributes no results.
//
//	s := searcher.NewSearcher(store, generator, searcher.Config{MaxLimit: 100})
//	resp := s.Search(ctx, searcher.Request{Query: "gaming laptop", Limit: 20})
//	if resp.IsFallback {
//	    log.Println(resp.Message)
//	}
package searcher
