package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidEntityType     = errors.New("invalid entity type")
	ErrInvalidEntityID       = errors.New("entity ID must be positive")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrPayloadMismatch       = errors.New("result payload does not match result type")

	// ErrEmptyQuery is returned by request boundaries for blank search text
	ErrEmptyQuery = errors.New("query cannot be empty")
)
