package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var entityTypeEnum = []string{"item", "shop", "category"}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the marketplace catalog with a natural language query. Falls back to keyword matching when semantic search is unavailable.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one entity type",
					"enum":        entityTypeEnum,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (values above 100 are clamped)",
					"default":     20,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// reindexTool returns the tool definition for reindex
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex",
		Description: "Start a background reindex of every entity, or of one entity type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Entity type to reindex; omit to reindex everything",
					"enum":        entityTypeEnum,
				},
			},
		},
	}
}

// reindexOneTool returns the tool definition for reindex_one
func reindexOneTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex_one",
		Description: "Reindex a single entity and wait for the result",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Entity type",
					"enum":        entityTypeEnum,
				},
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Entity id",
					"minimum":     1,
				},
			},
			Required: []string{"type", "id"},
		},
	}
}

// jobStatusTool returns the tool definition for job_status
func jobStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "job_status",
		Description: "Report the state of a background reindex job, or list recent jobs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Job id returned by reindex; omit to list recent jobs",
				},
			},
		},
	}
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cache_stats",
		Description: "Report embedding cache statistics and index coverage",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop every cached embedding",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
