package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/internal/app/apptest"
	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *apptest.Catalog) {
	t.Helper()
	a, catalog := apptest.New(t)
	return NewServer(a), catalog
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func requireMCPCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestSearchTool(t *testing.T) {
	s, catalog := newTestServer(t)
	ctx := context.Background()

	t.Run("returns semantic results", func(t *testing.T) {
		result, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{
			"query": "Gaming laptop",
			"type":  "item",
			"limit": float64(5),
		}))
		require.NoError(t, err)

		var resp types.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
		assert.False(t, resp.IsFallback)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, catalog.Laptop.ID, resp.Results[0].ID)
		assert.Equal(t, types.EntityItem, resp.Results[0].Type)
		assert.Equal(t, len(resp.Results), resp.TotalResults)
	})

	t.Run("rejects blank query", func(t *testing.T) {
		_, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{"query": "   "}))
		requireMCPCode(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("rejects missing query", func(t *testing.T) {
		_, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{}))
		requireMCPCode(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{"query": "laptop", "type": "user"}))
		requireMCPCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("clamps oversized limit", func(t *testing.T) {
		result, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{"query": "laptop", "limit": float64(500)}))
		require.NoError(t, err)
		var resp types.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
		assert.LessOrEqual(t, resp.TotalResults, 100)
	})

	t.Run("rejects non-object arguments", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = "laptop"
		_, err := s.handleSearch(ctx, req)
		requireMCPCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestReindexTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleReindex(ctx, callRequest("reindex", map[string]interface{}{"type": "shop"}))
	require.NoError(t, err)

	var accepted struct {
		Accepted bool              `json:"accepted"`
		Job      indexer.JobStatus `json:"job"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &accepted))
	assert.True(t, accepted.Accepted)
	assert.Equal(t, "shop", accepted.Job.Scope)
	require.NotEmpty(t, accepted.Job.ID)

	require.Eventually(t, func() bool {
		job, err := s.jobs.Status(accepted.Job.ID)
		return err == nil && job.State == indexer.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)

	result, err = s.handleJobStatus(ctx, callRequest("job_status", map[string]interface{}{"id": accepted.Job.ID}))
	require.NoError(t, err)
	var job indexer.JobStatus
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &job))
	assert.Equal(t, indexer.JobCompleted, job.State)
	assert.Equal(t, 1, job.Indexed)

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := s.handleReindex(ctx, callRequest("reindex", map[string]interface{}{"type": "order"}))
		requireMCPCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestReindexAllWithoutArguments(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	result, err := s.handleReindex(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"scope": "all"`)

	result, err = s.handleJobStatus(ctx, callRequest("job_status", nil))
	require.NoError(t, err)
	var listed struct {
		Jobs []indexer.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &listed))
	require.Len(t, listed.Jobs, 1)
	assert.Equal(t, indexer.ScopeAll, listed.Jobs[0].Scope)
}

func TestReindexOneTool(t *testing.T) {
	s, catalog := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleReindexOne(ctx, callRequest("reindex_one", map[string]interface{}{
		"type": "item",
		"id":   float64(catalog.Hose.ID),
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"indexed": true`)

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.handleReindexOne(ctx, callRequest("reindex_one", map[string]interface{}{"type": "item", "id": float64(9999)}))
		requireMCPCode(t, err, ErrorCodeNotFound)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := s.handleReindexOne(ctx, callRequest("reindex_one", map[string]interface{}{"id": float64(1)}))
		requireMCPCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := s.handleReindexOne(ctx, callRequest("reindex_one", map[string]interface{}{"type": "shop", "id": float64(0)}))
		requireMCPCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestJobStatusUnknownID(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleJobStatus(context.Background(), callRequest("job_status", map[string]interface{}{"id": "missing"}))
	requireMCPCode(t, err, ErrorCodeNotFound)
}

func TestCacheTools(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	// warm the cache with a query
	_, err := s.handleSearch(ctx, callRequest("search", map[string]interface{}{"query": "Garden hose"}))
	require.NoError(t, err)

	result, err := s.handleCacheStats(ctx, callRequest("cache_stats", nil))
	require.NoError(t, err)

	var stats struct {
		Cache struct {
			Size int `json:"size"`
		} `json:"cache"`
		Index struct {
			Dimension int `json:"dimension"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stats))
	assert.Positive(t, stats.Cache.Size)
	assert.Equal(t, apptest.Dimension, stats.Index.Dimension)

	_, err = s.handleClearCache(ctx, callRequest("clear_cache", nil))
	require.NoError(t, err)
	assert.Zero(t, s.cache.Stats().Size)
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{searchTool(), reindexTool(), reindexOneTool(), jobStatusTool(), cacheStatsTool(), clearCacheTool()}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.Equal(t, []string{"search", "reindex", "reindex_one", "job_status", "cache_stats", "clear_cache"}, names)
	assert.Equal(t, []string{"query"}, searchTool().InputSchema.Required)
	assert.ElementsMatch(t, []string{"type", "id"}, reindexOneTool().InputSchema.Required)
}
