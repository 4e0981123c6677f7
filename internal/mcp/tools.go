package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/internal/searcher"
	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Entity or job does not exist
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, types.ErrEmptyQuery.Error(), map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	entityType, err := optionalEntityType(args)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp := s.searcher.Search(ctx, searcher.Request{
		Query: query,
		Type:  entityType,
		Limit: limit,
	})

	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	entityType, err := optionalEntityType(args)
	if err != nil {
		return nil, err
	}

	var job indexer.JobStatus
	if entityType == nil {
		job, err = s.jobs.ReindexAll(ctx)
	} else {
		job, err = s.jobs.ReindexType(ctx, *entityType)
	}
	if errors.Is(err, indexer.ErrReindexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "a reindex of this scope is already running", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start reindex", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"accepted": true,
		"job":      job,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindexOne handles the reindex_one tool invocation
func (s *Server) handleReindexOne(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entityType, err := optionalEntityType(args)
	if err != nil {
		return nil, err
	}
	if entityType == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "type parameter is required", map[string]interface{}{
			"param":  "type",
			"reason": "missing or empty",
		})
	}

	id := int64(getIntDefault(args, "id", 0))
	if id <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter must be a positive integer", map[string]interface{}{
			"param": "id",
			"value": id,
		})
	}

	err = s.jobs.ReindexOne(ctx, *entityType, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "entity not found", map[string]interface{}{
			"type": *entityType,
			"id":   id,
		})
	}
	if err != nil {
		s.logger.Warn("reindex_one failed", zap.String("type", string(*entityType)), zap.Int64("id", id), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "reindex failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"type":    *entityType,
		"id":      id,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleJobStatus handles the job_status tool invocation
func (s *Server) handleJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	id := getStringDefault(args, "id", "")
	if id == "" {
		response := map[string]interface{}{
			"jobs": s.jobs.List(),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	job, err := s.jobs.Status(id)
	if errors.Is(err, indexer.ErrJobNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "job not found", map[string]interface{}{
			"param": "id",
			"value": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read job", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(job)), nil
}

// handleCacheStats handles the cache_stats tool invocation
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"cache": s.cache.Stats(),
		"index": status,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.cache.Clear(ctx)
	s.logger.Info("embedding cache cleared")

	response := map[string]interface{}{
		"cleared": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// optionalEntityType parses the "type" argument; absent or empty means all types
func optionalEntityType(args map[string]interface{}) (*types.EntityType, error) {
	raw := getStringDefault(args, "type", "")
	if raw == "" {
		return nil, nil
	}
	t, err := types.ParseEntityType(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid type", map[string]interface{}{
			"param":   "type",
			"value":   raw,
			"allowed": entityTypeEnum,
		})
	}
	return &t, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
