// Package progress tracks the phase and completion of the current walk.
// One writer (the walk) publishes immutable snapshots; readers load the latest
// snapshot without locking.
package progress

import (
	"sync/atomic"
	"time"
)

// Phase is the coarse state of a walk.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseHomeScan   Phase = "home_scan"
	PhaseRootScan   Phase = "root_scan"
	PhaseIdle       Phase = "idle"
)

// WalkMatrixView is a point-in-time view of walk progress.
type WalkMatrixView struct {
	Phase          Phase      `json:"phase"`
	Percent        int        `json:"percent"`
	DocCount       uint64     `json:"doc_count"`
	CompletedRoots int        `json:"completed_roots"`
	TotalRoots     int        `json:"total_roots"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type state struct {
	phase      Phase
	percent    int
	completed  int
	total      int
	startedAt  time.Time
	finishedAt time.Time
}

// Telemetry holds the latest walk state.
type Telemetry struct {
	current atomic.Pointer[state]
	now     func() time.Time
}

// New creates telemetry in the not_started phase.
func New() *Telemetry {
	t := &Telemetry{now: time.Now}
	t.current.Store(&state{phase: PhaseNotStarted})
	return t
}

// StartHome begins a new run with the home directory scan.
func (t *Telemetry) StartHome() {
	t.current.Store(&state{phase: PhaseHomeScan, startedAt: t.now()})
}

// EndHome marks the end of the home scan. The run moves to root_scan at 0%.
func (t *Telemetry) EndHome() {
	prev := t.current.Load()
	next := *prev
	next.phase = PhaseRootScan
	next.percent = 0
	next.completed = 0
	next.total = 0
	t.current.Store(&next)
}

// RootIncPercent records that completed of total roots have been reached.
// Percent never decreases within a run; a lower value is ignored.
func (t *Telemetry) RootIncPercent(completed, total int) {
	if total <= 0 {
		return
	}
	completed = min(max(completed, 0), total)
	percent := completed * 100 / total

	prev := t.current.Load()
	if prev.phase == PhaseRootScan && percent < prev.percent {
		return
	}
	next := *prev
	next.phase = PhaseRootScan
	next.percent = percent
	next.completed = completed
	next.total = total
	t.current.Store(&next)
}

// Finish marks the run as complete.
func (t *Telemetry) Finish() {
	prev := t.current.Load()
	next := *prev
	next.phase = PhaseIdle
	next.percent = 100
	next.completed = next.total
	next.finishedAt = t.now()
	t.current.Store(&next)
}

// Phase returns the current phase.
func (t *Telemetry) Phase() Phase {
	return t.current.Load().phase
}

// View returns a snapshot of the current state. docCount is called once,
// at snapshot time; a nil docCount reports zero documents.
func (t *Telemetry) View(docCount func() uint64) WalkMatrixView {
	s := t.current.Load()
	view := WalkMatrixView{
		Phase:          s.phase,
		Percent:        s.percent,
		CompletedRoots: s.completed,
		TotalRoots:     s.total,
	}
	if docCount != nil {
		view.DocCount = docCount()
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		view.StartedAt = &started
	}
	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		view.FinishedAt = &finished
	}
	return view
}
