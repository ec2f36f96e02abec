// Package jobs tracks ingestion batches as asynchronous units of work.
//
// The store is process-wide state scoped to the service lifetime. It is not
// persisted: a restart loses in-flight and recently completed jobs, which
// callers must treat the same as not found.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/finch-money/finch/internal/model"
	"github.com/google/uuid"
)

// Store errors.
var (
	ErrNotFound = errors.New("job not found")
	ErrTerminal = errors.New("job already in a terminal state")
)

// Store is an in-memory job store, safe for concurrent use. It is built
// once at process start and passed by reference into whatever needs it;
// all read/modify operations on a job are serialized by the store lock so
// concurrently advancing workers cannot lose progress updates.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	now  func() time.Time
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

// Create allocates a new job in the Processing state with progress 0 and
// returns its id.
func (s *Store) Create(ownerID string, total int) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = &model.Job{
		ID:        id,
		OwnerID:   ownerID,
		Status:    model.JobProcessing,
		Total:     total,
		CreatedAt: s.now(),
	}
	return id
}

// Advance updates a job's progress and message. Progress is monotonically
// non-decreasing: a lower value than the current one is ignored. Advancing
// a terminal job returns ErrTerminal.
func (s *Store) Advance(id string, progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, id)
	}

	if progress > job.Progress {
		job.Progress = progress
	}
	if message != "" {
		job.Message = message
	}
	return nil
}

// Complete transitions a job to Complete, freezing its result and counts.
func (s *Store) Complete(id string, result []model.CategorizationResult, duplicateCount, skippedCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, id)
	}

	job.Status = model.JobComplete
	job.Progress = job.Total
	job.Result = result
	job.DuplicateCount = duplicateCount
	job.SkippedCount = skippedCount
	job.FinishedAt = s.now()
	return nil
}

// Fail transitions a job to Failed. Reserved for unrecoverable batch-level
// failures; individual-candidate problems never escalate here.
func (s *Store) Fail(id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, id)
	}

	job.Status = model.JobFailed
	if cause != nil {
		job.Error = cause.Error()
	}
	job.FinishedAt = s.now()
	return nil
}

// Query returns a read-only snapshot of a job. The result slice is
// included only once the job is Complete, keeping in-flight responses
// small.
func (s *Store) Query(id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	snapshot := *job
	if snapshot.Status != model.JobComplete {
		snapshot.Result = nil
	} else {
		snapshot.Result = make([]model.CategorizationResult, len(job.Result))
		copy(snapshot.Result, job.Result)
	}
	return &snapshot, nil
}

// Cleanup removes the owner's terminal jobs that finished more than maxAge
// ago. Processing jobs are never removed. Returns how many were deleted.
func (s *Store) Cleanup(ownerID string, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if !job.Status.Terminal() {
			continue
		}
		if job.FinishedAt.After(cutoff) {
			continue
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}

// sweep removes terminal jobs for all owners past the retention window.
func (s *Store) sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if job.FinishedAt.After(cutoff) {
			continue
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}
