package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-orange-server/internal/config"
	"github.com/sha1n/mcp-orange-server/internal/filesearch"
	mcputil "github.com/sha1n/mcp-orange-server/internal/mcp"
	"github.com/spf13/pflag"
)

// ServerName is the MCP implementation name announced to clients.
const ServerName = "orange-mcp"

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *mcp.Server, *config.Settings) error
	CreateServer      func(context.Context, *config.Settings, string) (*mcp.Server, func(), error)
	OpenService       func(context.Context, *config.Settings) (*filesearch.Service, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		OpenService:    OpenFileSearch,
	}
}

// loadSettings loads, validates and logs the settings and configures the default logger.
func loadSettings(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := config.ParseLogLevel(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	// and to keep stdout free for the stdio transport
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return settings, nil
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := loadSettings(params, flags)
	if err != nil {
		return err
	}

	slog.Info("Starting orange MCP server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(ctx, settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, mcpServer, settings)
}

// OpenFileSearch opens the file search service on the host filesystem.
func OpenFileSearch(ctx context.Context, settings *config.Settings) (*filesearch.Service, error) {
	svc, err := filesearch.NewService(ctx, &settings.Index, filesearch.Options{Logger: slog.Default()})
	if err != nil {
		return nil, fmt.Errorf("failed to open file index: %w", err)
	}
	return svc, nil
}

// CreateMCPServer creates the MCP server with registered tools and starts
// the background walk. The returned cleanup stops the walk and closes the index.
func CreateMCPServer(ctx context.Context, settings *config.Settings, version string) (*mcp.Server, func(), error) {
	return createMCPServer(ctx, settings, version, OpenFileSearch)
}

func createMCPServer(ctx context.Context, settings *config.Settings, version string, open func(context.Context, *config.Settings) (*filesearch.Service, error)) (*mcp.Server, func(), error) {
	svc, err := open(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close file search service", "error", err)
		}
	}

	if err := svc.Start(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to start file search service: %w", err)
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		Files:   svc,
	})

	return server, cleanup, nil
}
