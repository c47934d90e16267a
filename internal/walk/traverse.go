package walk

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/pathutil"
)

// PathFilter decides per entry whether a path is walked. It is consulted while
// the walk runs, so rule changes apply to directories not yet visited.
type PathFilter interface {
	Allow(path string) bool
}

// PathFilterFunc adapts a function to PathFilter.
type PathFilterFunc func(path string) bool

// Allow calls f(path).
func (f PathFilterFunc) Allow(path string) bool {
	return f(path)
}

// Stats counts what happened while walking one root.
type Stats struct {
	Entries int // indexed entries, directories included
	Dirs    int
	Errors  int // unreadable entries that were skipped
	Pruned  int // entries rejected by the filter
}

// NewDocument builds the index document for a walked entry.
func NewDocument(path string, isDir bool) domain.Document {
	path = pathutil.Normalize(path)
	name := filepath.Base(path)
	doc := domain.Document{Name: name, Path: path, IsDir: isDir}
	if !isDir {
		doc.Extension = pathutil.Ext(name)
	}
	return doc
}

// traverse adds every allowed entry under root, root included, to the index.
// Disallowed directories are never read. Per-entry errors are counted and
// skipped; an index error or cancellation aborts the traversal.
func (o *Orchestrator) traverse(ctx context.Context, root string, filter PathFilter) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Either the entry itself or the listing of a directory failed.
			// The directory was already indexed on its first visit.
			stats.Errors++
			o.logger.Debug("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		if !filter.Allow(path) {
			stats.Pruned++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := o.index.Add(NewDocument(path, d.IsDir())); err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		stats.Entries++
		if d.IsDir() {
			stats.Dirs++
		}
		return nil
	})

	return stats, err
}
