package repository

import (
	"fmt"
	"sync"

	"github.com/okian/dupscan/internal/domain/model"
)

const defaultJobRetention = 256

// JobStore keeps scan jobs in memory. Once more than retention jobs are held,
// the oldest finished jobs are evicted; queued and running jobs are never dropped.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*model.ScanJob
	order     []string
	retention int
}

// NewJobStore creates a job store keeping roughly retention jobs.
func NewJobStore(retention int) *JobStore {
	if retention <= 0 {
		retention = defaultJobRetention
	}
	return &JobStore{
		jobs:      make(map[string]*model.ScanJob),
		retention: retention,
	}
}

// Create stores a new job. An existing job with the same id is replaced.
func (s *JobStore) Create(job model.ScanJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		s.order = append(s.order, job.ID)
	}
	j := job
	s.jobs[job.ID] = &j
	s.evictLocked()
}

// Update applies fn to the stored job under the store lock.
func (s *JobStore) Update(id string, fn func(*model.ScanJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	fn(j)
	s.evictLocked()
	return nil
}

// Get returns a copy of the job.
func (s *JobStore) Get(id string) (model.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return model.ScanJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *j, nil
}

// Len returns the number of jobs held.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Counts returns the number of held jobs per status.
func (s *JobStore) Counts() map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.JobStatus]int, 4)
	for _, j := range s.jobs {
		out[j.Status]++
	}
	return out
}

func (s *JobStore) evictLocked() {
	excess := len(s.jobs) - s.retention
	if excess <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.jobs[id].Status.Finished() {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
