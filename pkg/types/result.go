package types

// MatchType records which path produced a search result
type MatchType string

const (
	MatchSemantic  MatchType = "semantic"
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSubstring MatchType = "substring"
)

// Rank orders lexical match types (exact first)
func (m MatchType) Rank() int {
	switch m {
	case MatchExact:
		return 0
	case MatchPrefix:
		return 1
	case MatchSubstring:
		return 2
	}
	return 3
}

// SearchResultItem is one ranked hit. Data holds the full projection and is
// always the concrete type named by Type (*Item, *Shop or *Category).
type SearchResultItem struct {
	Type      EntityType `json:"type"`
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Score     float64    `json:"score"`
	MatchType MatchType  `json:"matchType,omitempty"`
	Data      Entity     `json:"data,omitempty"`
}

// Item returns the payload when the result is a listing
func (r *SearchResultItem) Item() (*Item, bool) {
	it, ok := r.Data.(*Item)
	return it, ok
}

// Shop returns the payload when the result is a storefront
func (r *SearchResultItem) Shop() (*Shop, bool) {
	s, ok := r.Data.(*Shop)
	return s, ok
}

// Category returns the payload when the result is a taxonomy node
func (r *SearchResultItem) Category() (*Category, bool) {
	c, ok := r.Data.(*Category)
	return c, ok
}

// Validate checks if the search result is valid
func (r *SearchResultItem) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidEntityType
	}

	if r.ID <= 0 {
		return ErrInvalidEntityID
	}

	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidRelevanceScore
	}

	if r.Data != nil && (r.Data.EntityType() != r.Type || r.Data.EntityID() != r.ID) {
		return ErrPayloadMismatch
	}

	return nil
}

// SearchResponse is the result of one query. TotalResults always equals len(Results).
type SearchResponse struct {
	Query        string             `json:"query"`
	TotalResults int                `json:"totalResults"`
	Results      []SearchResultItem `json:"results"`
	IsFallback   bool               `json:"isFallback"`
	Message      string             `json:"message,omitempty"`
}
