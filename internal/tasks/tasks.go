// package tasks implements the two pipeline stages: ingestion and transformation.
//
// Both stages are single-pass and sequential. They report progress through optional channels and
// record their outcome in an optional run ledger and metrics recorder.
package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/shared"
)

// MergeStrategy controls how rows from multiple staged documents are combined.
type MergeStrategy string

const (
	// MergeAccumulate keeps rows from every staged document, in listing order.
	MergeAccumulate MergeStrategy = "accumulate"
	// MergeLast keeps only the rows of the last staged document.
	MergeLast MergeStrategy = "last"
)

// ParseMergeStrategy converts a configured strategy name, defaulting to [MergeAccumulate] when empty.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case "", MergeAccumulate:
		return MergeAccumulate, nil
	case MergeLast:
		return MergeLast, nil
	default:
		return "", fmt.Errorf("%w: unknown merge strategy %q", shared.ErrInvalidConfig, s)
	}
}

// Dataset holds the three output collections of a transformation.
type Dataset struct {
	Albums  []models.Album
	Artists []models.Artist
	Songs   []models.Song
}

// RunStore persists run ledger entries. [repositories.RunRepository] implements it.
type RunStore interface {
	Create(run *models.Run) error
	Update(run *models.Run) error
	RecordObject(runID string, action models.ObjectAction, key string) error
}

// Recorder receives pipeline measurements. [metrics.Recorder] implements it.
type Recorder interface {
	ObserveRun(stage models.RunKind, d time.Duration, ok bool)
	AddObjects(stage models.RunKind, action models.ObjectAction, n int)
	AddRows(dataset string, n int)
}

// Clock returns the current time. Object names are stamped with it.
type Clock func() time.Time

// ledger wraps an optional [RunStore] so the stages never branch on nil.
type ledger struct {
	store RunStore
	run   *models.Run
}

func (l *ledger) start(kind models.RunKind) error {
	l.run = models.NewRun(kind)
	if l.store == nil {
		return nil
	}
	if err := l.store.Create(l.run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (l *ledger) runID() string {
	if l.run == nil {
		return ""
	}
	return l.run.ID()
}

func (l *ledger) object(action models.ObjectAction, key string) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.RecordObject(l.run.ID(), action, key); err != nil {
		return fmt.Errorf("failed to record %s of %s: %w", action, key, err)
	}
	return nil
}

// finish completes the run and persists its outcome. A ledger failure never masks runErr.
func (l *ledger) finish(counts models.RunCounts, runErr error) error {
	if runErr != nil {
		l.run.Fail(counts, runErr)
	} else {
		l.run.Succeed(counts)
	}

	if l.store == nil {
		return runErr
	}

	if err := l.store.Update(l.run); err != nil && runErr == nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}
	return runErr
}

type noopRecorder struct{}

func (noopRecorder) ObserveRun(models.RunKind, time.Duration, bool)        {}
func (noopRecorder) AddObjects(models.RunKind, models.ObjectAction, int) {}
func (noopRecorder) AddRows(string, int)                                 {}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
