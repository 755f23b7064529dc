package models

import (
	"fmt"
	"time"
)

// RunKind identifies the pipeline stage a [Run] executed.
type RunKind string

const (
	RunKindIngest    RunKind = "ingest"
	RunKindTransform RunKind = "transform"
)

// RunStatus is the lifecycle state of a [Run].
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ObjectAction is what a [Run] did to an object in storage.
type ObjectAction string

const (
	ObjectRead    ObjectAction = "read"
	ObjectWrite   ObjectAction = "write"
	ObjectArchive ObjectAction = "archive"
)

// RunCounts aggregates what a run read and produced.
type RunCounts struct {
	ObjectsRead    int
	ObjectsWritten int
	AlbumRows      int
	ArtistRows     int
	SongRows       int
}

// Run is one invocation of ingestion or transformation recorded in the ledger.
type Run struct {
	id           string
	sequence     int
	kind         RunKind
	status       RunStatus
	counts       RunCounts
	errorMessage string
	startedAt    time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewRun creates a running [Run] of the given kind starting now.
func NewRun(kind RunKind) *Run {
	now := time.Now().UTC()
	return &Run{
		kind:      kind,
		status:    RunStatusRunning,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

// HydrateRun rebuilds a [Run] from persisted columns.
func HydrateRun(
	id string, sequence int, kind RunKind, status RunStatus, counts RunCounts, errorMessage string,
	startedAt time.Time, completedAt *time.Time, createdAt, updatedAt time.Time, deletedAt *time.Time,
) *Run {
	return &Run{
		id:           id,
		sequence:     sequence,
		kind:         kind,
		status:       status,
		counts:       counts,
		errorMessage: errorMessage,
		startedAt:    startedAt,
		completedAt:  completedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (r *Run) ID() string              { return r.id }
func (r *Run) Sequence() int           { return r.sequence }
func (r *Run) Kind() RunKind           { return r.kind }
func (r *Run) Status() RunStatus       { return r.status }
func (r *Run) Counts() RunCounts       { return r.counts }
func (r *Run) ErrorMessage() string    { return r.errorMessage }
func (r *Run) StartedAt() time.Time    { return r.startedAt }
func (r *Run) CompletedAt() *time.Time { return r.completedAt }
func (r *Run) CreatedAt() time.Time    { return r.createdAt }
func (r *Run) UpdatedAt() time.Time    { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time   { return r.deletedAt }

func (r *Run) SetID(id string)            { r.id = id }
func (r *Run) SetSequence(seq int)        { r.sequence = seq }
func (r *Run) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *Run) SetCounts(counts RunCounts) { r.counts = counts }

// Duration is the elapsed time between start and completion (or now while running).
func (r *Run) Duration() time.Duration {
	if r.completedAt == nil {
		return time.Since(r.startedAt)
	}
	return r.completedAt.Sub(r.startedAt)
}

// Succeed marks the run as succeeded with the given counts.
func (r *Run) Succeed(counts RunCounts) {
	now := time.Now().UTC()
	r.status = RunStatusSucceeded
	r.counts = counts
	r.completedAt = &now
	r.updatedAt = now
}

// Fail marks the run as failed, recording err.
func (r *Run) Fail(counts RunCounts, err error) {
	now := time.Now().UTC()
	r.status = RunStatusFailed
	r.counts = counts
	if err != nil {
		r.errorMessage = err.Error()
	}
	r.completedAt = &now
	r.updatedAt = now
}

// Validate checks the run's kind, status and completion invariants.
func (r *Run) Validate() error {
	switch r.kind {
	case RunKindIngest, RunKindTransform:
	default:
		return fmt.Errorf("invalid run kind %q", r.kind)
	}

	switch r.status {
	case RunStatusRunning:
		if r.completedAt != nil {
			return fmt.Errorf("running run cannot have completed_at")
		}
	case RunStatusSucceeded, RunStatusFailed:
		if r.completedAt == nil {
			return fmt.Errorf("%s run requires completed_at", r.status)
		}
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}

	if r.startedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	return nil
}

// RunObject is an object key a [Run] touched.
type RunObject struct {
	RunID     string
	Action    ObjectAction
	Key       string
	CreatedAt time.Time
}
