// Package walk drives the resumable crawl of the local filesystem: the home
// directory first, then every platform root, each committed to the search
// index and checkpointed once complete.
package walk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sha1n/mcp-orange-server/internal/checkpoint"
	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/exclusion"
	"github.com/sha1n/mcp-orange-server/internal/pathutil"
	"github.com/sha1n/mcp-orange-server/internal/progress"
)

var (
	// ErrWalkInProgress is returned when a walk is requested while another runs.
	ErrWalkInProgress = errors.New("a walk is already in progress")

	// ErrStorage marks failures of the index or checkpoint store. The affected
	// root is not checkpointed and is walked again on the next run.
	ErrStorage = errors.New("storage failure")
)

// Index is the write side of the search index.
type Index interface {
	Add(doc domain.Document) error
	Commit() error
	Discard() int
}

// Checkpoints records which roots have been walked.
type Checkpoints interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	DeletePrefix(prefix string) (int, error)
}

// Options configures an Orchestrator.
type Options struct {
	Home        string
	Index       Index
	Checkpoints Checkpoints
	Exclusions  exclusion.Matcher
	Progress    *progress.Telemetry
	Platform    Platform
	Logger      *slog.Logger
}

// Orchestrator runs walks. At most one walk runs at a time.
type Orchestrator struct {
	home        string
	index       Index
	checkpoints Checkpoints
	exclusions  exclusion.Matcher
	progress    *progress.Telemetry
	platform    Platform
	logger      *slog.Logger

	running atomic.Bool
}

// New creates an orchestrator. Home, Index and Checkpoints are required.
func New(opts Options) (*Orchestrator, error) {
	if opts.Home == "" {
		return nil, errors.New("home directory is required")
	}
	if opts.Index == nil || opts.Checkpoints == nil {
		return nil, errors.New("index and checkpoint store are required")
	}

	o := &Orchestrator{
		home:        pathutil.Normalize(opts.Home),
		index:       opts.Index,
		checkpoints: opts.Checkpoints,
		exclusions:  opts.Exclusions,
		progress:    opts.Progress,
		platform:    opts.Platform,
		logger:      opts.Logger,
	}
	if o.exclusions == nil {
		o.exclusions = exclusion.MatcherFunc(func(string) bool { return false })
	}
	if o.progress == nil {
		o.progress = progress.New()
	}
	if o.platform == nil {
		o.platform = HostPlatform(opts.Logger)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

// Running reports whether a walk is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run walks home and every platform root that is not yet checkpointed.
// Returns ErrWalkInProgress if another walk is running.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrWalkInProgress
	}
	defer o.running.Store(false)
	return o.run(ctx)
}

// Reindex clears every walk checkpoint and runs a full walk.
func (o *Orchestrator) Reindex(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrWalkInProgress
	}
	defer o.running.Store(false)

	if err := o.clearCheckpoints(); err != nil {
		return err
	}
	return o.run(ctx)
}

// Start runs a walk (or a reindex) in the background. The returned channel
// receives the walk result and is then closed.
func (o *Orchestrator) Start(ctx context.Context, reindex bool) (<-chan error, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrWalkInProgress
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer o.running.Store(false)

		if reindex {
			if err := o.clearCheckpoints(); err != nil {
				done <- err
				return
			}
		}
		done <- o.run(ctx)
	}()
	return done, nil
}

func (o *Orchestrator) clearCheckpoints() error {
	n, err := o.checkpoints.DeletePrefix(checkpoint.WalkKeyPrefix)
	if err != nil {
		return fmt.Errorf("%w: failed to clear checkpoints: %w", ErrStorage, err)
	}
	o.logger.Info("Walk checkpoints cleared", "count", n)
	return nil
}

func (o *Orchestrator) run(ctx context.Context) error {
	start := time.Now()
	var failures []error

	o.progress.StartHome()
	if o.exclusions.Matches(o.home) {
		o.logger.Info("Home directory is excluded, skipping", "home", o.home)
	} else {
		homeSkips := o.platform.HomeSkips(o.home)
		filter := PathFilterFunc(func(path string) bool {
			return !o.exclusions.Matches(path) && !pathutil.IsWithinAny(path, homeSkips)
		})
		if err := o.walkRoot(ctx, o.home, filter); err != nil {
			failures = append(failures, err)
		}
	}
	o.progress.EndHome()

	if ctx.Err() != nil {
		return o.finish(ctx, start, failures)
	}

	plan, err := o.platform.Roots(o.home)
	if err != nil {
		failures = append(failures, fmt.Errorf("failed to enumerate roots: %w", err))
		plan = RootPlan{}
	}

	filter := PathFilterFunc(func(path string) bool {
		return !o.exclusions.Matches(path) && !pathutil.IsWithinAny(path, plan.Skip)
	})

	total := len(plan.Roots)
	for i, root := range plan.Roots {
		if ctx.Err() != nil {
			break
		}
		o.progress.RootIncPercent(i+1, total)

		root = pathutil.Normalize(root)
		// Skipped roots are not checkpointed so removing the rule makes them eligible again.
		if !filter.Allow(root) {
			o.logger.Debug("Skipping root", "root", root)
			continue
		}
		if err := o.walkRoot(ctx, root, filter); err != nil {
			failures = append(failures, err)
		}
	}

	return o.finish(ctx, start, failures)
}

func (o *Orchestrator) finish(ctx context.Context, start time.Time, failures []error) error {
	if err := ctx.Err(); err != nil {
		o.logger.Info("Walk cancelled", "duration", time.Since(start))
		return errors.Join(append(failures, fmt.Errorf("walk cancelled: %w", err))...)
	}

	o.progress.Finish()
	if len(failures) > 0 {
		o.logger.Error("Walk finished with failures", "failures", len(failures), "duration", time.Since(start))
		return errors.Join(failures...)
	}
	o.logger.Info("Walk finished", "duration", time.Since(start))
	return nil
}

// walkRoot walks one root unless it is already checkpointed. The checkpoint is
// written only after the root's documents are committed.
func (o *Orchestrator) walkRoot(ctx context.Context, root string, filter PathFilter) error {
	key := checkpoint.WalkKey(root)

	value, found, err := o.checkpoints.Get(key)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStorage, root, err)
	}
	if found && value == checkpoint.WalkedValue {
		o.logger.Debug("Root already walked", "root", root)
		return nil
	}

	o.logger.Info("Walking root", "root", root)
	start := time.Now()

	stats, err := o.traverse(ctx, root, filter)
	if err != nil {
		dropped := o.index.Discard()
		o.logger.Warn("Root walk aborted", "root", root, "dropped", dropped, "error", err)
		return fmt.Errorf("%s: %w", root, err)
	}

	if err := o.index.Commit(); err != nil {
		o.logger.Error("Failed to commit root", "root", root, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrStorage, root, err)
	}

	if err := o.checkpoints.Put(key, checkpoint.WalkedValue); err != nil {
		o.logger.Error("Failed to checkpoint root", "root", root, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrStorage, root, err)
	}

	o.logger.Info("Root walked",
		"root", root,
		"entries", stats.Entries,
		"dirs", stats.Dirs,
		"errors", stats.Errors,
		"pruned", stats.Pruned,
		"duration", time.Since(start))
	return nil
}
