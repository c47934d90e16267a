package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/filesearch"
	"github.com/spf13/pflag"
)

// withService loads settings, opens the file search service, runs fn and
// closes the service.
func withService(ctx context.Context, params RunParams, flags *pflag.FlagSet, fn func(*filesearch.Service) error) (err error) {
	settings, err := loadSettings(params, flags)
	if err != nil {
		return err
	}

	svc, err := params.OpenService(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file index: %w", closeErr)
		}
	}()

	return fn(svc)
}

// RunWalk walks the filesystem in the foreground. With reindex, the walk
// checkpoints are cleared first so every root is walked again.
func RunWalk(ctx context.Context, params RunParams, flags *pflag.FlagSet, reindex bool, out io.Writer) error {
	return withService(ctx, params, flags, func(svc *filesearch.Service) error {
		walk := svc.RunWalk
		if reindex {
			walk = svc.RunReindex
		}
		walkErr := walk(ctx)

		view := svc.ProgressView()
		_, _ = fmt.Fprintf(out, "phase=%s percent=%d documents=%d\n", view.Phase, view.Percent, view.DocCount)
		return walkErr
	})
}

// RunSearch prints the paths matching req, one per line.
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, req domain.SearchRequest, out io.Writer) error {
	return withService(ctx, params, flags, func(svc *filesearch.Service) error {
		res, err := svc.Search(req)
		if err != nil {
			return err
		}
		for _, doc := range res.Documents {
			_, _ = fmt.Fprintln(out, doc.Path)
		}
		slog.Debug("Search complete", "query", req.Text, "total", res.Total, "has_more", res.HasMore)
		return nil
	})
}

// RunSuggest prints the names starting with prefix and their paths.
func RunSuggest(ctx context.Context, params RunParams, flags *pflag.FlagSet, prefix string, limit int, out io.Writer) error {
	return withService(ctx, params, flags, func(svc *filesearch.Service) error {
		docs, err := svc.Suggest(prefix, limit)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", doc.Name, doc.Path)
		}
		return nil
	})
}
