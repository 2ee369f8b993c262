// Package compare applies the per-field matching rules to a record pair.
package compare

import (
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/internal/domain/normalize"
	"github.com/okian/dupscan/internal/domain/similarity"
)

// Default reporting thresholds for fuzzy fields. A field is reported only when
// its similarity is strictly greater than the threshold.
const (
	defaultNameThreshold    = 0.8
	defaultAddressThreshold = 0.7
)

// Rule describes how one field is compared.
type Rule struct {
	Field model.Field
	// Fuzzy selects edit-distance similarity; otherwise values must be equal.
	Fuzzy bool
	// Threshold is the exclusive lower bound for reporting a fuzzy match.
	Threshold float64
}

// DefaultRules returns the standard donor matching rules in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{Field: model.FieldEmail},
		{Field: model.FieldFirstName, Fuzzy: true, Threshold: defaultNameThreshold},
		{Field: model.FieldLastName, Fuzzy: true, Threshold: defaultNameThreshold},
		{Field: model.FieldPhone},
		{Field: model.FieldAddress, Fuzzy: true, Threshold: defaultAddressThreshold},
		{Field: model.FieldPostalCode},
	}
}

// Option applies a configuration option to the Comparator.
type Option func(*Comparator)

// WithRules replaces the rule set. An empty slice is ignored.
func WithRules(rules []Rule) Option {
	return func(c *Comparator) {
		if len(rules) > 0 {
			c.rules = append([]Rule(nil), rules...)
		}
	}
}

// Comparator produces field matches for pairs of normalized records.
type Comparator struct {
	rules []Rule
}

// New creates a Comparator with the default rules.
func New(opts ...Option) *Comparator {
	c := &Comparator{rules: DefaultRules()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare returns the fields that match between a and b. Fields that are empty
// on either side are skipped: they carry no evidence for or against.
func (c *Comparator) Compare(a, b normalize.Record) []model.FieldMatch {
	var matches []model.FieldMatch
	for _, rule := range c.rules {
		va, vb := a.Value(rule.Field), b.Value(rule.Field)
		if va == "" || vb == "" {
			continue
		}
		var sim float64
		if rule.Fuzzy {
			sim = similarity.Ratio(va, vb)
			if sim <= rule.Threshold {
				continue
			}
		} else {
			if va != vb {
				continue
			}
			sim = 1
		}
		matches = append(matches, model.FieldMatch{
			Field:      rule.Field,
			Similarity: sim,
			Value1:     a.Raw[rule.Field],
			Value2:     b.Raw[rule.Field],
		})
	}
	return matches
}
