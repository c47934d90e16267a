package filesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/progress"
	"github.com/sha1n/mcp-orange-server/internal/walk"
)

// ProgressOutput is the structured result of the walk progress tool.
type ProgressOutput struct {
	Phase          string `json:"phase"`
	Percent        int    `json:"percent"`
	DocCount       uint64 `json:"doc_count"`
	CompletedRoots int    `json:"completed_roots"`
	TotalRoots     int    `json:"total_roots"`
	Running        bool     `json:"running"`
	WalkedRoots    []string `json:"walked_roots"`
	StartedAt      string   `json:"started_at,omitempty"`
	FinishedAt     string   `json:"finished_at,omitempty"`
}

func newProgressOutput(view progress.WalkMatrixView, running bool, walked []string) ProgressOutput {
	out := ProgressOutput{
		Phase:          string(view.Phase),
		Percent:        view.Percent,
		DocCount:       view.DocCount,
		CompletedRoots: view.CompletedRoots,
		TotalRoots:     view.TotalRoots,
		Running:        running,
		WalkedRoots:    walked,
	}
	if view.StartedAt != nil {
		out.StartedAt = view.StartedAt.Format(time.RFC3339)
	}
	if view.FinishedAt != nil {
		out.FinishedAt = view.FinishedAt.Format(time.RFC3339)
	}
	return out
}

// ProgressHandler handles the walk progress MCP tool.
type ProgressHandler struct {
	service *Service
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(service *Service) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Handle returns the current walk phase, percentage, document count and the
// roots already checkpointed.
func (h *ProgressHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, _ NoArgument) (*mcp.CallToolResult, ProgressOutput, error) {
	walked, err := h.service.WalkedRoots()
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to read walk checkpoints: %s", err)), ProgressOutput{}, nil
	}
	out := newProgressOutput(h.service.ProgressView(), h.service.Walking(), walked)
	text := fmt.Sprintf("phase=%s percent=%d documents=%d roots=%d/%d running=%t walked=%d",
		out.Phase, out.Percent, out.DocCount, out.CompletedRoots, out.TotalRoots, out.Running, len(out.WalkedRoots))
	return textResult(text), out, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ProgressHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "walk_progress",
		Description: "Report the progress of the filesystem walk that feeds the file index",
	}
}

// RegisterProgressTool registers the progress tool with an MCP server.
func RegisterProgressTool(server *mcp.Server, service *Service) {
	handler := NewProgressHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// ReindexOutput is the structured result of the reindex tool.
type ReindexOutput struct {
	Started bool `json:"started"`
}

// ReindexHandler handles the reindex MCP tool.
type ReindexHandler struct {
	service *Service
}

// NewReindexHandler creates a new reindex handler.
func NewReindexHandler(service *Service) *ReindexHandler {
	return &ReindexHandler{service: service}
}

// Handle clears the walk checkpoints and starts a full walk in the background.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, _ NoArgument) (*mcp.CallToolResult, ReindexOutput, error) {
	if err := h.service.TriggerFullReindex(); err != nil {
		if errors.Is(err, walk.ErrWalkInProgress) {
			return errorResult("A walk is already in progress. Check walk_progress and try again when it is idle."), ReindexOutput{}, nil
		}
		return errorResult(fmt.Sprintf("Failed to start reindex: %s", err)), ReindexOutput{}, nil
	}
	return textResult("Full reindex started"), ReindexOutput{Started: true}, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReindexHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reindex",
		Description: "Forget which roots were already walked and walk the whole filesystem again in the background",
	}
}

// RegisterReindexTool registers the reindex tool with an MCP server.
func RegisterReindexTool(server *mcp.Server, service *Service) {
	handler := NewReindexHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
