package filesearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/exclusion"
)

// ExclusionArgument names one excluded path prefix.
type ExclusionArgument struct {
	Path string `json:"path" jsonschema:"Absolute path prefix; every entry under it is skipped by the walk"`
}

// ExclusionsOutput is the structured result of the exclusion tools.
type ExclusionsOutput struct {
	Changed    bool     `json:"changed"`
	Exclusions []string `json:"exclusions"`
}

// ExclusionsHandler handles the exclusion management MCP tools.
type ExclusionsHandler struct {
	service *Service
}

// NewExclusionsHandler creates a new exclusions handler.
func NewExclusionsHandler(service *Service) *ExclusionsHandler {
	return &ExclusionsHandler{service: service}
}

func (h *ExclusionsHandler) output(changed bool) ExclusionsOutput {
	return ExclusionsOutput{Changed: changed, Exclusions: h.service.Exclusions()}
}

// HandleList returns the configured exclusions.
func (h *ExclusionsHandler) HandleList(ctx context.Context, req *mcp.CallToolRequest, _ NoArgument) (*mcp.CallToolResult, ExclusionsOutput, error) {
	out := h.output(false)
	if len(out.Exclusions) == 0 {
		return textResult("No exclusions configured"), out, nil
	}
	return textResult(strings.Join(out.Exclusions, "\n")), out, nil
}

// HandleAdd adds an exclusion. The filesystem root, relative paths and
// duplicates are rejected.
func (h *ExclusionsHandler) HandleAdd(ctx context.Context, req *mcp.CallToolRequest, args ExclusionArgument) (*mcp.CallToolResult, ExclusionsOutput, error) {
	clean, err := h.service.AddExclusion(args.Path)
	if err != nil {
		switch {
		case errors.Is(err, exclusion.ErrRootExcluded),
			errors.Is(err, exclusion.ErrDuplicate),
			errors.Is(err, exclusion.ErrNotAbsolute),
			errors.Is(err, exclusion.ErrEmpty):
			return errorResult(err.Error()), h.output(false), nil
		default:
			return errorResult(fmt.Sprintf("Failed to add exclusion: %s", err)), h.output(false), nil
		}
	}
	return textResult(fmt.Sprintf("Excluded %s", clean)), h.output(true), nil
}

// HandleRemove removes an exclusion. Removing an unknown path is not an error.
func (h *ExclusionsHandler) HandleRemove(ctx context.Context, req *mcp.CallToolRequest, args ExclusionArgument) (*mcp.CallToolResult, ExclusionsOutput, error) {
	removed, err := h.service.RemoveExclusion(args.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to remove exclusion: %s", err)), h.output(false), nil
	}
	if !removed {
		return textResult(fmt.Sprintf("%s was not excluded", args.Path)), h.output(false), nil
	}
	return textResult(fmt.Sprintf("Removed exclusion %s. Run reindex to index entries under it", args.Path)), h.output(true), nil
}

// RegisterExclusionTools registers the exclusion management tools with an MCP server.
func RegisterExclusionTools(server *mcp.Server, service *Service) {
	handler := NewExclusionsHandler(service)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_exclusions",
		Description: "List the path prefixes excluded from the file index",
	}, handler.HandleList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_exclusion",
		Description: "Exclude a path prefix from the file index. Takes effect on the running walk",
	}, handler.HandleAdd)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_exclusion",
		Description: "Stop excluding a path prefix from the file index",
	}, handler.HandleRemove)
}
