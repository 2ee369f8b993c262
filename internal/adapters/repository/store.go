// Package repository provides tenant-scoped, read-only donor sources and the
// in-memory scan job store.
package repository

import (
	"context"
	"time"

	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/metrics"
)

// Query labels used for metrics.
const (
	queryGet    = "get"
	queryAll    = "all"
	queryPut    = "put"
	queryPutAll = "put_all"
)

// Source reads donor snapshots for one tenant at a time.
type Source interface {
	// Get returns a single record. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, tenantID, id string) (model.DonorRecord, error)

	// All returns every record of the tenant ordered by id ascending.
	All(ctx context.Context, tenantID string) ([]model.DonorRecord, error)

	// Driver names the backing store for logs and metrics.
	Driver() string
}

// Writer stores donor records. Only the memory and sqlite sources implement it;
// the engine itself never writes.
type Writer interface {
	Put(ctx context.Context, tenantID string, r model.DonorRecord) error
}

// observe records latency and failures of a store query.
func observe(driver, query string, start time.Time, err error) {
	metrics.RecordRepositoryQueryLatency(driver, query, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordRepositoryError(driver, query)
	}
}
