package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/mcp-orange-server/internal/app"
	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "orange-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(ctx context.Context, version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Orange MCP Server",
		Long:    "Local file name search engine served over the Model Context Protocol",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(ctx, cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(
		newWalkCommand(ctx),
		newSearchCommand(ctx),
		newSuggestCommand(ctx),
	)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

func runWithFlags(ctx context.Context, flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(ctx, app.DefaultRunParams(), flags, version)
}

func newWalkCommand(ctx context.Context) *cobra.Command {
	var reindex bool
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Walk the filesystem and update the index, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunWalk(ctx, app.DefaultRunParams(), cmd.Flags(), reindex, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Forget walked roots and walk everything again")
	return cmd
}

func newSearchCommand(ctx context.Context) *cobra.Command {
	var (
		dirsOnly  bool
		filesOnly bool
		ext       string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed file names (substring, or glob with * and ?)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.SearchRequest{Limit: limit}
			if len(args) == 1 {
				req.Text = args[0]
			}
			if dirsOnly || filesOnly {
				isDir := dirsOnly
				req.IsDir = &isDir
			}
			if cmd.Flags().Changed("ext") {
				req.Extension = &ext
			}
			return app.RunSearch(ctx, app.DefaultRunParams(), cmd.Flags(), req, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&dirsOnly, "dir", false, "Only directories")
	cmd.Flags().BoolVar(&filesOnly, "file", false, "Only files")
	cmd.Flags().StringVar(&ext, "ext", "", "Only files with this extension")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.MarkFlagsMutuallyExclusive("dir", "file")
	return cmd
}

func newSuggestCommand(ctx context.Context) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Complete a file or directory name from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSuggest(ctx, app.DefaultRunParams(), cmd.Flags(), args[0], limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of suggestions")
	return cmd
}
