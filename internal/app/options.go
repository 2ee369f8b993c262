package service

import (
	"github.com/okian/dupscan/internal/adapters/repository"
	"github.com/okian/dupscan/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the donor source. Without one the service uses an empty
// in-memory source.
func WithSource(src repository.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithWorkerCount sets the number of scan workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting scan jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobRetention sets how many scan jobs are kept for polling.
func WithJobRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobRetention = n
		}
	}
}

// WithWeights overrides field weights by field name.
func WithWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.weights = weights
	}
}

// WithDefaultMinScore sets the threshold used when callers pass none.
func WithDefaultMinScore(v int) Option {
	return func(s *Service) {
		s.defaultMinScore = v
	}
}

// WithLimits sets the result caps of the target, scan and batch modes.
func WithLimits(target, scan, batch int) Option {
	return func(s *Service) {
		s.targetLimit, s.scanLimit, s.batchLimit = target, scan, batch
	}
}

// WithMaxBatchSize bounds import pre-check requests.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		s.maxBatchSize = n
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
