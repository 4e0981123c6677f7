package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/app"
	"github.com/dshills/smartsearch/internal/embedder"
	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/internal/searcher"
	"github.com/dshills/smartsearch/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "smartsearch"
)

// ServerVersion is the reported server version, overridden by the CLI at build time
var ServerVersion = "1.0.0"

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	jobs     *indexer.Jobs
	searcher *searcher.Searcher
	cache    *embedder.Cache
	logger   *zap.Logger
}

// NewServer creates a new MCP server over the components of a
func NewServer(a *app.App) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  a.Storage,
		jobs:     a.Jobs,
		searcher: a.Searcher,
		cache:    a.Generator.Cache(),
		logger:   a.Logger.Named("mcp"),
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// The caller owns the app and closes it afterwards.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", zap.String("version", ServerVersion))
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(reindexOneTool(), s.handleReindexOne)
	s.mcp.AddTool(jobStatusTool(), s.handleJobStatus)
	s.mcp.AddTool(cacheStatsTool(), s.handleCacheStats)
	s.mcp.AddTool(clearCacheTool(), s.handleClearCache)
}
