package walk

import (
	"path/filepath"
	"slices"
)

// RootPlan is the ordered list of roots to walk after the home directory,
// plus paths that must never be walked from those roots.
type RootPlan struct {
	Roots []string
	Skip  []string
}

// Platform supplies the host-specific parts of a walk.
type Platform interface {
	// HomeSkips returns noisy subpaths of home that are never indexed.
	HomeSkips(home string) []string

	// Roots returns the roots to walk after home, in walk order.
	Roots(home string) (RootPlan, error)
}

// defaultHomeSkips are calendar and contact caches that churn constantly and
// carry no useful file names.
func defaultHomeSkips(home string) []string {
	return []string{
		filepath.Join(home, "Library", "Calendars"),
		filepath.Join(home, "Library", "Reminders"),
		filepath.Join(home, "Library", "Application Support", "AddressBook"),
	}
}

// StaticPlatform is a fixed Platform, used by tests and by callers that walk
// a known set of roots.
type StaticPlatform struct {
	Skips []string
	Plan  RootPlan
	Err   error
}

// HomeSkips returns s.Skips.
func (s StaticPlatform) HomeSkips(string) []string {
	return slices.Clone(s.Skips)
}

// Roots returns s.Plan, or s.Err if set.
func (s StaticPlatform) Roots(string) (RootPlan, error) {
	if s.Err != nil {
		return RootPlan{}, s.Err
	}
	return RootPlan{Roots: slices.Clone(s.Plan.Roots), Skip: slices.Clone(s.Plan.Skip)}, nil
}
