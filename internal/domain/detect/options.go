package detect

import (
	"github.com/okian/dupscan/internal/domain/scoring"
	"github.com/okian/dupscan/pkg/logger"
)

// Default limits.
const (
	DefaultMinScore    = 50
	DefaultTargetLimit = 20
	DefaultScanLimit   = 100
	DefaultBatchLimit  = 5
	DefaultMaxBatch    = 5000
)

// Option configures an Engine.
type Option func(*Engine)

// WithScorer sets the pair scorer.
func WithScorer(s *scoring.WeightedScorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithDefaultMinScore sets the threshold used when the caller passes none.
func WithDefaultMinScore(v int) Option {
	return func(e *Engine) {
		if v >= minScoreFloor && v <= minScoreCeil {
			e.defaultMinScore = v
		}
	}
}

// WithLimits sets the result caps of the target, scan and batch modes.
// Non-positive values keep the defaults.
func WithLimits(target, scan, batch int) Option {
	return func(e *Engine) {
		if target > 0 {
			e.targetLimit = target
		}
		if scan > 0 {
			e.scanLimit = scan
		}
		if batch > 0 {
			e.batchLimit = batch
		}
	}
}

// WithMaxBatchSize bounds the number of candidates accepted by CheckBatch.
func WithMaxBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBatch = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
