package filesearch

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/domain"
)

// FileHit is one indexed entry as returned to MCP clients.
type FileHit struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDir     bool   `json:"is_dir"`
	Extension string `json:"extension,omitempty"`
}

// NoArgument is the input of tools that take no parameters.
type NoArgument struct{}

func toHits(docs []domain.Document) []FileHit {
	hits := make([]FileHit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, FileHit{
			Name:      doc.Name,
			Path:      doc.Path,
			IsDir:     doc.IsDir,
			Extension: doc.Extension,
		})
	}
	return hits
}

func kindOf(hit FileHit) string {
	if hit.IsDir {
		return "dir"
	}
	return "file"
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}

// RegisterTools registers every file search tool with an MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	RegisterSearchTool(server, service)
	RegisterSuggestTool(server, service)
	RegisterProgressTool(server, service)
	RegisterReindexTool(server, service)
	RegisterExclusionTools(server, service)
}
