package exclusion

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sha1n/mcp-orange-server/internal/pathutil"
)

var (
	// ErrRootExcluded indicates an attempt to exclude the filesystem root.
	ErrRootExcluded = errors.New("the filesystem root cannot be excluded")

	// ErrNotAbsolute indicates an exclusion path that is not absolute.
	ErrNotAbsolute = errors.New("exclusion path must be absolute")

	// ErrDuplicate indicates the exclusion path is already configured.
	ErrDuplicate = errors.New("exclusion path already exists")

	// ErrEmpty indicates an empty exclusion path.
	ErrEmpty = errors.New("exclusion path cannot be empty")
)

// Matcher reports whether a path is excluded from indexing.
type Matcher interface {
	Matches(path string) bool
}

// Policy holds the live, user-editable set of excluded path prefixes.
// Reads are safe while another goroutine mutates the set: a reader sees either
// the previous or the next slice, never a partially written one.
// Mutations are serialized by writeMu and persisted before the new slice is
// swapped in under mu.
type Policy struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	prefixes []string
	save     func(prefixes []string) error
}

// NewPolicy creates a policy from the given prefixes. Every prefix is validated.
// If file is non-nil, mutations are persisted to it.
func NewPolicy(file *File, prefixes ...string) (*Policy, error) {
	p := &Policy{}
	if file != nil {
		p.save = file.Save
	}
	next, err := validateAll(prefixes)
	if err != nil {
		return nil, err
	}
	p.prefixes = next
	return p, nil
}

// ValidatePrefix normalizes an exclusion path and rejects empty, relative and
// filesystem-root entries.
func ValidatePrefix(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmpty
	}
	clean := pathutil.Normalize(strings.TrimSpace(path))
	if !filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, path)
	}
	if pathutil.IsRoot(clean) {
		return "", ErrRootExcluded
	}
	return clean, nil
}

// Matches returns true if path starts with any configured prefix.
func (p *Policy) Matches(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return pathutil.HasAnyPrefix(path, p.prefixes)
}

// List returns a copy of the configured prefixes in insertion order.
func (p *Policy) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.prefixes)
}

// Add validates and appends a prefix, persisting the new set.
func (p *Policy) Add(path string) (string, error) {
	clean, err := ValidatePrefix(path)
	if err != nil {
		return "", err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	current := p.List()
	if slices.Contains(current, clean) {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, clean)
	}

	next := append(current, clean)
	if err := p.persist(next); err != nil {
		return "", err
	}
	p.swap(next)
	return clean, nil
}

// Remove deletes a prefix. Returns false if it was not configured.
func (p *Policy) Remove(path string) (bool, error) {
	clean := pathutil.Normalize(strings.TrimSpace(path))

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	current := p.List()
	idx := slices.Index(current, clean)
	if idx < 0 {
		return false, nil
	}

	next := slices.Delete(current, idx, idx+1)
	if err := p.persist(next); err != nil {
		return false, err
	}
	p.swap(next)
	return true, nil
}

// Reload replaces the set with the contents of file without persisting it.
// It runs between mutations, so the file it reads is never older than the
// in-memory set. Returns false when the file matches the current set.
func (p *Policy) Reload(file *File) (bool, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	paths, err := file.Load()
	if err != nil {
		return false, err
	}
	next, err := validateAll(paths)
	if err != nil {
		return false, err
	}
	if slices.Equal(next, p.List()) {
		return false, nil
	}
	p.swap(next)
	return true, nil
}

func (p *Policy) swap(next []string) {
	p.mu.Lock()
	p.prefixes = next
	p.mu.Unlock()
}

func validateAll(prefixes []string) ([]string, error) {
	next := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		clean, err := ValidatePrefix(prefix)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(next, clean) {
			next = append(next, clean)
		}
	}
	return next, nil
}

// persist writes the set to the settings file. Callers hold writeMu.
func (p *Policy) persist(prefixes []string) error {
	if p.save == nil {
		return nil
	}
	if err := p.save(prefixes); err != nil {
		return fmt.Errorf("failed to persist exclusions: %w", err)
	}
	return nil
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(path string) bool

// Matches calls f(path).
func (f MatcherFunc) Matches(path string) bool {
	return f(path)
}

// Any returns a Matcher that matches when any of the given matchers does.
// Nil matchers are ignored.
func Any(matchers ...Matcher) Matcher {
	return MatcherFunc(func(path string) bool {
		for _, m := range matchers {
			if m != nil && m.Matches(path) {
				return true
			}
		}
		return false
	})
}
