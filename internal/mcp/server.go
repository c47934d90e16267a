package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/filesearch"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	Files   *filesearch.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{
		Instructions: "Search the names of files and directories on this machine. " +
			"Use suggest_files for name completion, search_files for substring and glob queries, " +
			"and walk_progress to see whether the index is complete.",
	})

	if cfg.Files != nil {
		filesearch.RegisterTools(s, cfg.Files)
	}

	return s
}
