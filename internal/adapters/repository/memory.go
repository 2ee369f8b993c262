package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/metrics"
)

const driverMemory = "memory"

// MemorySource is an in-memory Source keyed by tenant and donor id.
type MemorySource struct {
	mu      sync.RWMutex
	tenants map[string]map[string]model.DonorRecord
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{tenants: make(map[string]map[string]model.DonorRecord)}
}

// Driver implements Source.
func (s *MemorySource) Driver() string { return driverMemory }

// Put inserts or replaces a persisted record.
func (s *MemorySource) Put(_ context.Context, tenantID string, r model.DonorRecord) error {
	if tenantID == "" {
		return ErrMissingTenant
	}
	if !r.Persisted() {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, ok := s.tenants[tenantID]
	if !ok {
		recs = make(map[string]model.DonorRecord)
		s.tenants[tenantID] = recs
	}
	recs[*r.ID] = r
	return nil
}

// Get implements Source.
func (s *MemorySource) Get(_ context.Context, tenantID, id string) (model.DonorRecord, error) {
	start := time.Now()
	s.mu.RLock()
	r, ok := s.tenants[tenantID][id]
	s.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	observe(driverMemory, queryGet, start, nil)
	return r, err
}

// All implements Source. The returned slice is a copy.
func (s *MemorySource) All(_ context.Context, tenantID string) ([]model.DonorRecord, error) {
	start := time.Now()
	s.mu.RLock()
	recs := s.tenants[tenantID]
	out := make([]model.DonorRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	observe(driverMemory, queryAll, start, nil)
	metrics.RecordSnapshotSize(driverMemory, len(out))
	return out, nil
}

// Count returns the number of records held for tenantID.
func (s *MemorySource) Count(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID])
}
