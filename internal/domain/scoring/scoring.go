// Package scoring combines field matches into a 0-100 duplicate-confidence score.
package scoring

import (
	"math"
	"strings"

	"github.com/okian/dupscan/internal/domain/compare"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/internal/domain/normalize"
)

// Default scoring configuration constants.
const (
	defaultEmailWeight      = 50
	defaultPhoneWeight      = 30
	defaultLastNameWeight   = 20
	defaultFirstNameWeight  = 15
	defaultAddressWeight    = 10
	defaultPostalCodeWeight = 5
	maxScoreValue           = 100
)

// DefaultWeights returns the standard field weights (sum 130).
func DefaultWeights() map[model.Field]float64 {
	return map[model.Field]float64{
		model.FieldEmail:      defaultEmailWeight,
		model.FieldPhone:      defaultPhoneWeight,
		model.FieldLastName:   defaultLastNameWeight,
		model.FieldFirstName:  defaultFirstNameWeight,
		model.FieldAddress:    defaultAddressWeight,
		model.FieldPostalCode: defaultPostalCodeWeight,
	}
}

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithWeightsFromConfig overrides field weights from a configuration map keyed
// by field name, matched case-insensitively. Unknown fields and non-positive
// weights are ignored.
func WithWeightsFromConfig(weights map[string]float64) Option {
	return func(s *WeightedScorer) {
		for name, w := range weights {
			if w <= 0 {
				continue
			}
			for _, f := range model.Fields {
				if strings.EqualFold(name, string(f)) {
					s.weights[f] = w
				}
			}
		}
	}
}

// WithComparator sets the field comparator used by ScorePair.
func WithComparator(c *compare.Comparator) Option {
	return func(s *WeightedScorer) {
		if c != nil {
			s.comparator = c
		}
	}
}

// WeightedScorer is the pair-scoring core shared by every candidate generator.
// It holds no mutable state after construction and is safe for concurrent use.
type WeightedScorer struct {
	weights    map[model.Field]float64
	total      float64
	comparator *compare.Comparator
}

// NewWeightedScorer creates a scorer with the default weights and rules.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		weights:    DefaultWeights(),
		comparator: compare.New(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	for _, w := range s.weights {
		s.total += w
	}
	return s
}

// Weights returns a copy of the effective weights.
func (s *WeightedScorer) Weights() map[model.Field]float64 {
	out := make(map[model.Field]float64, len(s.weights))
	for f, w := range s.weights {
		out[f] = w
	}
	return out
}

// TotalWeight returns the sum of all field weights, the score denominator.
func (s *WeightedScorer) TotalWeight() float64 {
	return s.total
}

// Aggregate converts reported field matches into a rounded score in [0, 100].
func (s *WeightedScorer) Aggregate(matches []model.FieldMatch) int {
	if s.total <= 0 {
		return 0
	}
	var raw float64
	for _, m := range matches {
		raw += m.Similarity * s.weights[m.Field]
	}
	score := math.Round(maxScoreValue * raw / s.total)
	return int(math.Max(0, math.Min(maxScoreValue, score)))
}

// ScorePair compares two normalized records and scores the result.
func (s *WeightedScorer) ScorePair(a, b normalize.Record) (int, []model.FieldMatch) {
	matches := s.comparator.Compare(a, b)
	return s.Aggregate(matches), matches
}

// Score normalizes and scores two donor records.
func (s *WeightedScorer) Score(a, b model.DonorRecord) model.PairScore {
	score, matches := s.ScorePair(normalize.Normalize(a), normalize.Normalize(b))
	return model.PairScore{RecordA: a, RecordB: b, Score: score, Matches: matches}
}
