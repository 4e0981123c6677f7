// Package types provides shared type definitions for the smartsearch service.
//
// This package defines the catalog records that can be embedded and searched,
// and the response shapes returned by the search orchestrator.
//
// # Entities
//
// Three record kinds are indexed, each implementing Entity:
//
//	item := &types.Item{ID: 7, ShopID: 2, Title: "Gaming laptop", IsActive: true}
//	shop := &types.Shop{ID: 2, Name: "Tech Corner", IsApproved: true}
//	cat  := &types.Category{ID: 3, Name: "Electronics", Slug: "electronics", IsActive: true}
//
// The Embedding field is nil until the indexer stores a vector; it is never
// serialized to JSON.
//
// # Search Results
//
// SearchResultItem is a tagged variant. Type names the record kind and Data
// holds the matching concrete pointer, so callers switch on the payload:
//
//	for _, r := range resp.Results {
//	    switch v := r.Data.(type) {
//	    case *types.Item:
//	        fmt.Println("item", v.Title, r.Score)
//	    case *types.Shop:
//	        fmt.Println("shop", v.Name, r.Score)
//	    }
//	}
//
// SearchResponse.IsFallback is true when keyword matching produced the results
// because semantic search was unavailable; Message then carries an advisory.
package types
