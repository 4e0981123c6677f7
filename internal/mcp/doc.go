// Package mcp implements the Model Context Protocol (MCP) server for smartsearch.
//
// The server exposes the search subsystem to MCP clients over stdio:
//   - search: semantic catalog search with keyword fallback
//   - reindex: start a background reindex of everything or one entity type
//   - reindex_one: synchronously reindex a single entity
//   - job_status: inspect one background job or list recent ones
//   - cache_stats: embedding cache counters and index coverage
//   - clear_cache: drop every cached embedding
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {"query": "handmade ceramic mug", "type": "item", "limit": 10}
//	}
//
//	Response:
//	{
//	  "query": "handmade ceramic mug",
//	  "totalResults": 1,
//	  "results": [
//	    {"type": "item", "id": 42, "title": "Stoneware Mug", "score": 0.83, "matchType": "semantic", "data": {...}}
//	  ],
//	  "isFallback": false
//	}
//
// When the embedding provider is down the response carries isFallback=true and a
// message, and results come from keyword matching instead.
//
// # Error Handling
//
// Errors are returned as MCPError values:
//   - -32602: Invalid params (unknown type, bad id)
//   - -32603: Internal error
//   - -32001: Entity or job not found
//   - -32002: Reindex of the same scope already running
//   - -32004: Empty query
//
// # Logging
//
// stdout is reserved for the protocol, so the CLI routes zap output to stderr
// before starting the server.
package mcp
