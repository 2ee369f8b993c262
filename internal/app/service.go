// Package service wires the duplicate detection engine, its donor source and
// the asynchronous scan pipeline behind the operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	scanqueue "github.com/okian/dupscan/internal/adapters/mq/queue"
	workerpool "github.com/okian/dupscan/internal/adapters/mq/worker"
	"github.com/okian/dupscan/internal/adapters/repository"
	"github.com/okian/dupscan/internal/domain/detect"
	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/internal/domain/scoring"
	"github.com/okian/dupscan/pkg/logger"
	"github.com/okian/dupscan/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for duplicate detection.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     repository.Source
	engine     *detect.Engine
	scanQueue  *scanqueue.InMemoryQueue
	jobs       *repository.JobStore
	workerPool *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	jobRetention    int
	weights         map[string]float64
	defaultMinScore int
	targetLimit     int
	scanLimit       int
	batchLimit      int
	maxBatchSize    int

	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     max(1, runtime.NumCPU()/2),
		queueSize:       64,
		jobRetention:    256,
		defaultMinScore: detect.DefaultMinScore,
		targetLimit:     detect.DefaultTargetLimit,
		scanLimit:       detect.DefaultScanLimit,
		batchLimit:      detect.DefaultBatchLimit,
		maxBatchSize:    detect.DefaultMaxBatch,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the engine and starts the scan workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.source == nil {
		s.source = repository.NewMemorySource()
		s.logger.Warn(ctx, "no donor source configured, using an empty in-memory source")
	}

	s.logger.Info(ctx, "starting duplicate detection service...")

	scorer := scoring.NewWeightedScorer(scoring.WithWeightsFromConfig(s.weights))
	s.engine = detect.New(s.source,
		detect.WithScorer(scorer),
		detect.WithDefaultMinScore(s.defaultMinScore),
		detect.WithLimits(s.targetLimit, s.scanLimit, s.batchLimit),
		detect.WithMaxBatchSize(s.maxBatchSize),
		detect.WithLogger(s.logger),
	)
	s.jobs = repository.NewJobStore(s.jobRetention)
	s.scanQueue = scanqueue.NewInMemoryQueue(scanqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.scanQueue, s.engine, s.jobs,
		workerpool.WithLogger(s.logger))
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "duplicate detection service started",
		logger.String("driver", s.source.Driver()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("totalWeight", scorer.TotalWeight()),
	)
	return nil
}

// Stop drains the scan workers and closes the donor source.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping duplicate detection service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if closer, ok := s.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "closing donor source", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "duplicate detection service stopped")
}

// FindDuplicatesFor ranks the stored records resembling recordID.
func (s *Service) FindDuplicatesFor(ctx context.Context, tenantID, recordID string, minScore *int) (model.TargetResult, error) {
	const op = "service.FindDuplicatesFor"
	e, err := s.running(op)
	if err != nil {
		return model.TargetResult{}, err
	}
	res, err := e.FindDuplicatesFor(ctx, tenantID, recordID, minScore)
	return res, s.surface(ctx, op, err, logger.String("tenant_id", tenantID), logger.String("record_id", recordID))
}

// ScanAllDuplicates runs a synchronous full scan of the tenant.
func (s *Service) ScanAllDuplicates(ctx context.Context, tenantID string, minScore *int) (model.ScanResult, error) {
	const op = "service.ScanAllDuplicates"
	e, err := s.running(op)
	if err != nil {
		return model.ScanResult{}, err
	}
	res, err := e.ScanAll(ctx, tenantID, minScore)
	return res, s.surface(ctx, op, err, logger.String("tenant_id", tenantID))
}

// CheckBatchDuplicates pre-checks import candidates against stored records.
func (s *Service) CheckBatchDuplicates(ctx context.Context, tenantID string, candidates []model.DonorRecord, minScore *int) (model.BatchResult, error) {
	const op = "service.CheckBatchDuplicates"
	e, err := s.running(op)
	if err != nil {
		return model.BatchResult{}, err
	}
	res, err := e.CheckBatch(ctx, tenantID, candidates, minScore)
	return res, s.surface(ctx, op, err, logger.String("tenant_id", tenantID), logger.Int("candidates", len(candidates)))
}

// SubmitScan queues a full scan and returns the queued job.
// A full queue yields an ErrBackpressure error.
func (s *Service) SubmitScan(ctx context.Context, tenantID string, minScore *int) (model.ScanJob, error) {
	const op = "service.SubmitScan"
	e, err := s.running(op)
	if err != nil {
		return model.ScanJob{}, err
	}
	if tenantID == "" {
		return model.ScanJob{}, errkind.Errorf(op, errkind.ErrInvalidInput, "tenant id is required")
	}
	threshold, err := e.ResolveMinScore(minScore)
	if err != nil {
		return model.ScanJob{}, err
	}

	job := model.ScanJob{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		MinScore:    threshold,
		Status:      model.JobQueued,
		SubmittedAt: time.Now().UTC(),
	}
	s.jobs.Create(job)
	metrics.RecordScanJob(string(model.JobQueued))

	if err := s.scanQueue.Enqueue(ctx, job); err != nil {
		now := time.Now().UTC()
		_ = s.jobs.Update(job.ID, func(j *model.ScanJob) {
			j.Status = model.JobFailed
			j.FinishedAt = &now
			j.Error = "not queued"
		})
		metrics.RecordScanJob(string(model.JobFailed))
		if errors.Is(err, errkind.ErrBackpressure) {
			s.logger.Warn(ctx, "scan queue full", logger.String("tenant_id", tenantID))
			return model.ScanJob{}, errkind.Errorf(op, errkind.ErrBackpressure, "scan queue is full, retry later")
		}
		return model.ScanJob{}, s.surface(ctx, op, err, logger.String("tenant_id", tenantID))
	}

	s.logger.Info(ctx, "scan queued",
		logger.String("job_id", job.ID),
		logger.String("tenant_id", tenantID),
		logger.Int("min_score", threshold))
	return job, nil
}

// ScanJob returns the current state of a submitted scan.
func (s *Service) ScanJob(_ context.Context, jobID string) (model.ScanJob, error) {
	const op = "service.ScanJob"
	if _, err := s.running(op); err != nil {
		return model.ScanJob{}, err
	}
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return model.ScanJob{}, errkind.WrapKind(op, errkind.ErrNotFound, err)
	}
	return job, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"jobRetention": s.jobRetention,
	}

	if s.started {
		queueLen := s.scanQueue.Len(context.Background())
		stats["driver"] = s.source.Driver()
		stats["queueLength"] = queueLen
		stats["totalWeight"] = s.engine.Scorer().TotalWeight()

		jobs := make(map[string]int)
		for status, n := range s.jobs.Counts() {
			jobs[string(status)] = n
		}
		stats["jobs"] = jobs

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

func (s *Service) running(op string) (*detect.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, errkind.WrapKind(op, errkind.ErrInternal, ErrNotStarted)
	}
	return s.engine, nil
}

// surface logs internal failures with their cause and replaces them with a
// generic error. Caller-facing kinds pass through unchanged.
func (s *Service) surface(ctx context.Context, op string, err error, fields ...logger.Field) error {
	if err == nil {
		return nil
	}
	kind := errkind.KindOf(err)
	if kind != errkind.ErrInternal {
		return err
	}

	fields = append(fields, logger.String("op", op), logger.Error(err))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn(ctx, "operation aborted", fields...)
	} else {
		s.logger.Error(ctx, "operation failed", fields...)
	}
	metrics.RecordErrorByComponent("service", "internal")
	return errkind.NewKind(op, errkind.ErrInternal)
}
