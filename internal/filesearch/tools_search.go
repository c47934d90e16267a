package filesearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/index"
)

// Entry kinds accepted by the search tool.
const (
	KindAny  = ""
	KindFile = "file"
	KindDir  = "dir"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query     string `json:"query,omitempty" jsonschema:"File name query: a case-insensitive substring, or a glob with * and ?. Empty matches everything"`
	Kind      string `json:"kind,omitempty" jsonschema:"Restrict results to 'file' or 'dir'"`
	Extension string `json:"extension,omitempty" jsonschema:"Filter by file extension without the dot (e.g. pdf, go)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 100)"`
}

// SearchOutput is the structured result of the search tool.
type SearchOutput struct {
	Query   string    `json:"query"`
	Total   uint64    `json:"total"`
	HasMore bool      `json:"has_more"`
	Results []FileHit `json:"results"`
}

// SearchHandler handles the search MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, SearchOutput, error) {
	out := SearchOutput{Query: index.NormalizeQuery(args.Query), Results: []FileHit{}}

	searchReq, err := h.buildRequest(args)
	if err != nil {
		return errorResult(err.Error()), out, nil
	}

	result, err := h.service.Search(searchReq)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), out, nil
	}

	out.Total = result.Total
	out.HasMore = result.HasMore
	out.Results = toHits(result.Documents)
	return h.formatResults(out), out, nil
}

func (h *SearchHandler) buildRequest(args SearchArgument) (domain.SearchRequest, error) {
	if args.Limit < 0 {
		return domain.SearchRequest{}, fmt.Errorf("limit cannot be negative")
	}
	req := domain.SearchRequest{Text: args.Query, Limit: args.Limit}

	switch strings.ToLower(strings.TrimSpace(args.Kind)) {
	case KindAny:
	case KindFile:
		isDir := false
		req.IsDir = &isDir
	case KindDir:
		isDir := true
		req.IsDir = &isDir
	default:
		return domain.SearchRequest{}, fmt.Errorf("kind must be 'file' or 'dir', got: %s", args.Kind)
	}

	if ext := strings.TrimSpace(args.Extension); ext != "" {
		req.Extension = &ext
	}
	return req, nil
}

// formatResults renders search results as text for the MCP response.
func (h *SearchHandler) formatResults(out SearchOutput) *mcp.CallToolResult {
	if out.Total == 0 {
		return textResult(fmt.Sprintf("No files found for query: %s", out.Query))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", out.Total, out.Query)
	for i, hit := range out.Results {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, kindOf(hit), hit.Path)
	}
	if out.HasMore {
		fmt.Fprintf(&sb, "\n... and %d more results\n", out.Total-uint64(len(out.Results)))
	}
	return textResult(sb.String())
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_files",
		Description: "Search the local file name index. Results are ranked with prefix matches first, then shorter names",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
