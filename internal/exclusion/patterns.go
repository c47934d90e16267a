package exclusion

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Patterns excludes paths by doublestar glob, e.g. "**/node_modules" or "**/*.tmp".
// Patterns are matched against the slash-separated absolute path.
type Patterns struct {
	patterns []string
}

// NewPatterns validates and returns a pattern matcher.
func NewPatterns(patterns []string) (*Patterns, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", pattern)
		}
	}
	return &Patterns{patterns: patterns}, nil
}

// Matches returns true if path matches any pattern. A nil receiver matches nothing.
func (p *Patterns) Matches(path string) bool {
	if p == nil {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range p.patterns {
		if matched, err := doublestar.Match(pattern, slashed); err == nil && matched {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (p *Patterns) Len() int {
	if p == nil {
		return 0
	}
	return len(p.patterns)
}
