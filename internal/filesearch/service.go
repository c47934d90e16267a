// Package filesearch wires the search index, the checkpoint store, the
// exclusion policy and the walk orchestrator into one service, and exposes it
// to MCP clients as tools.
package filesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sha1n/mcp-orange-server/internal/checkpoint"
	"github.com/sha1n/mcp-orange-server/internal/config"
	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/exclusion"
	"github.com/sha1n/mcp-orange-server/internal/filelock"
	"github.com/sha1n/mcp-orange-server/internal/index"
	"github.com/sha1n/mcp-orange-server/internal/pathutil"
	"github.com/sha1n/mcp-orange-server/internal/progress"
	"github.com/sha1n/mcp-orange-server/internal/walk"
)

// ErrClosed is returned by operations on a closed service.
var ErrClosed = errors.New("file search service is closed")

// Options carries optional collaborators of a Service.
type Options struct {
	// Platform enumerates the roots to walk. Defaults to the host platform.
	Platform walk.Platform
	Logger   *slog.Logger
}

// Service owns every component of the file search engine for the lifetime
// of the process.
type Service struct {
	settings    config.IndexSettings
	home        string
	lock        *filelock.FileLock
	index       *index.Index
	checkpoints *checkpoint.Store
	file        *exclusion.File
	policy      *exclusion.Policy
	patterns    *exclusion.Patterns
	telemetry   *progress.Telemetry
	walker      *walk.Orchestrator
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewService opens the data directory described by settings. It fails with an
// error wrapping filelock.ErrLocked if another process is using the directory.
func NewService(ctx context.Context, settings *config.IndexSettings, opts Options) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if settings.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	home := settings.HomeDir
	if home == "" {
		var err error
		if home, err = pathutil.HomeDir(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(settings.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Service{
		settings:  *settings,
		home:      pathutil.Normalize(home),
		telemetry: progress.New(),
		logger:    logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.open(ctx, opts.Platform); err != nil {
		s.cancel()
		if closeErr := s.release(); closeErr != nil {
			logger.Error("Failed to release partially opened service", "error", closeErr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Service) open(ctx context.Context, platform walk.Platform) error {
	lock, err := filelock.AcquireDir(ctx, s.settings.DataDir, s.settings.LockTimeout)
	if err != nil {
		return err
	}
	s.lock = lock

	if s.checkpoints, err = checkpoint.Open(filepath.Join(s.settings.DataDir, checkpoint.Filename)); err != nil {
		return err
	}
	if s.index, err = index.Open(filepath.Join(s.settings.DataDir, index.DirName)); err != nil {
		return err
	}

	s.file = exclusion.NewFile(filepath.Join(s.settings.DataDir, exclusion.SettingsFilename))
	saved, err := s.file.Load()
	if err != nil {
		return err
	}
	if s.policy, err = exclusion.NewPolicy(s.file, saved...); err != nil {
		return fmt.Errorf("invalid exclusions in %s: %w", s.file.Path(), err)
	}
	for _, path := range s.settings.ExcludePaths {
		if _, err := s.policy.Add(path); err != nil && !errors.Is(err, exclusion.ErrDuplicate) {
			return fmt.Errorf("failed to seed exclusion %q: %w", path, err)
		}
	}

	if s.patterns, err = exclusion.NewPatterns(s.settings.IgnorePatterns); err != nil {
		return err
	}
	s.logger.Info("Exclusions loaded", "prefixes", len(s.policy.List()), "ignore_patterns", s.patterns.Len())

	s.walker, err = walk.New(walk.Options{
		Home:        s.home,
		Index:       s.index,
		Checkpoints: s.checkpoints,
		Exclusions:  exclusion.Any(s.policy, s.patterns),
		Progress:    s.telemetry,
		Platform:    platform,
		Logger:      s.logger,
	})
	return err
}

// Start begins background work: the exclusion file watcher and, if
// configured, a walk. Background work stops when ctx is done or on Close.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	context.AfterFunc(ctx, s.cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := exclusion.Watch(s.ctx, s.policy, s.file, s.logger); err != nil {
			s.logger.Warn("Exclusion file watcher stopped", "error", err)
		}
	}()
	s.mu.Unlock()

	if !s.settings.WalkOnStart {
		s.logger.Info("Walk on start disabled")
		return nil
	}
	return s.startWalk(false)
}

// RunWalk walks every root that is not yet checkpointed and blocks until done.
func (s *Service) RunWalk(ctx context.Context) error {
	return s.walker.Run(ctx)
}

// RunReindex clears the walk checkpoints and walks everything again,
// blocking until done.
func (s *Service) RunReindex(ctx context.Context) error {
	return s.walker.Reindex(ctx)
}

// TriggerFullReindex starts a background walk with cleared checkpoints.
// Returns walk.ErrWalkInProgress if a walk is already running.
func (s *Service) TriggerFullReindex() error {
	return s.startWalk(true)
}

// Walking reports whether a walk is in flight.
func (s *Service) Walking() bool {
	return s.walker.Running()
}

// WalkedRoots returns the roots checkpointed as fully walked, in lexical order.
func (s *Service) WalkedRoots() ([]string, error) {
	keys, err := s.checkpoints.Keys(checkpoint.WalkKeyPrefix)
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(keys))
	for _, key := range keys {
		roots = append(roots, strings.TrimPrefix(key, checkpoint.WalkKeyPrefix))
	}
	return roots, nil
}

func (s *Service) startWalk(reindex bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	done, err := s.walker.Start(s.ctx, reindex)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := <-done; err != nil {
			s.logger.Error("Walk finished with errors", "reindex", reindex, "error", err)
			return
		}
		s.logger.Info("Walk finished", "reindex", reindex, "documents", s.index.DocCount())
	}()
	return nil
}

// Suggest returns up to limit entries whose name starts with prefix.
// An empty prefix returns no entries.
// A non-positive limit uses the configured suggest limit.
func (s *Service) Suggest(prefix string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = s.settings.SuggestLimit
	}
	return s.index.Suggest(prefix, limit)
}

// Search runs a name query. A non-positive limit uses the configured search limit.
func (s *Service) Search(req domain.SearchRequest) (domain.SearchResult, error) {
	if req.Limit <= 0 {
		req.Limit = s.settings.SearchLimit
	}
	return s.index.Search(req)
}

// ProgressView returns the current walk progress and document count.
func (s *Service) ProgressView() progress.WalkMatrixView {
	return s.telemetry.View(s.index.DocCount)
}

// Exclusions returns the configured exclusion prefixes.
func (s *Service) Exclusions() []string {
	return s.policy.List()
}

// AddExclusion adds and persists an exclusion prefix. A running walk stops
// descending into it from the next entry on.
func (s *Service) AddExclusion(path string) (string, error) {
	clean, err := s.policy.Add(path)
	if err != nil {
		return "", err
	}
	s.logger.Info("Exclusion added", "path", clean)
	return clean, nil
}

// RemoveExclusion removes and persists an exclusion prefix. Returns false if
// it was not configured.
func (s *Service) RemoveExclusion(path string) (bool, error) {
	removed, err := s.policy.Remove(path)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("Exclusion removed", "path", path)
	}
	return removed, nil
}

// Close stops background work and releases every resource.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return s.release()
}

func (s *Service) release() error {
	var errs []error
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index: %w", err))
		}
	}
	if s.checkpoints != nil {
		if err := s.checkpoints.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close checkpoint store: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release data directory lock: %w", err))
		}
	}
	return errors.Join(errs...)
}
