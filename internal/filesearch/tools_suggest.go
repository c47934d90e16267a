package filesearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SuggestArgument defines suggest parameters.
type SuggestArgument struct {
	Prefix string `json:"prefix" jsonschema:"Beginning of a file or directory name, matched case-insensitively and verbatim; an empty prefix returns no suggestions"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of suggestions (default 20)"`
}

// SuggestOutput is the structured result of the suggest tool.
type SuggestOutput struct {
	Prefix      string    `json:"prefix"`
	Suggestions []FileHit `json:"suggestions"`
}

// SuggestHandler handles the suggest MCP tool.
type SuggestHandler struct {
	service *Service
}

// NewSuggestHandler creates a new suggest handler.
func NewSuggestHandler(service *Service) *SuggestHandler {
	return &SuggestHandler{service: service}
}

// Handle returns names that start with the given prefix, shortest first.
func (h *SuggestHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SuggestArgument) (*mcp.CallToolResult, SuggestOutput, error) {
	out := SuggestOutput{Prefix: args.Prefix, Suggestions: []FileHit{}}

	if args.Limit < 0 {
		return errorResult("limit cannot be negative"), out, nil
	}

	docs, err := h.service.Suggest(args.Prefix, args.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Suggest failed: %s", err)), out, nil
	}
	out.Suggestions = toHits(docs)

	if len(out.Suggestions) == 0 {
		return textResult(fmt.Sprintf("No suggestions for prefix: %s", args.Prefix)), out, nil
	}
	var sb strings.Builder
	for _, hit := range out.Suggestions {
		fmt.Fprintf(&sb, "%s\t%s\n", hit.Name, hit.Path)
	}
	return textResult(sb.String()), out, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SuggestHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "suggest_files",
		Description: "Autocomplete file and directory names from the local index by name prefix. An empty prefix returns nothing; use search_files to list everything",
	}
}

// RegisterSuggestTool registers the suggest tool with an MCP server.
func RegisterSuggestTool(server *mcp.Server, service *Service) {
	handler := NewSuggestHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
