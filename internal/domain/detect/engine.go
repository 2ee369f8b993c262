// Package detect generates and ranks duplicate candidates for a tenant's donors.
package detect

import (
	"context"
	"sort"
	"time"

	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/internal/domain/normalize"
	"github.com/okian/dupscan/internal/domain/scoring"
	"github.com/okian/dupscan/pkg/logger"
	"github.com/okian/dupscan/pkg/metrics"
)

// Operation modes, also used as metric labels.
const (
	ModeTarget = "target"
	ModeScan   = "scan"
	ModeBatch  = "batch"
)

const (
	minScoreFloor = 0
	minScoreCeil  = 100
)

// Source is the read-only donor snapshot the engine consumes.
type Source interface {
	Get(ctx context.Context, tenantID, id string) (model.DonorRecord, error)
	// All must return records ordered by id ascending.
	All(ctx context.Context, tenantID string) ([]model.DonorRecord, error)
}

// Engine runs the three candidate generators over a Source.
// It is safe for concurrent use.
type Engine struct {
	source          Source
	scorer          *scoring.WeightedScorer
	log             logger.Logger
	defaultMinScore int
	targetLimit     int
	scanLimit       int
	batchLimit      int
	maxBatch        int
}

// New creates an engine reading from source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:          source,
		scorer:          scoring.NewWeightedScorer(),
		defaultMinScore: DefaultMinScore,
		targetLimit:     DefaultTargetLimit,
		scanLimit:       DefaultScanLimit,
		batchLimit:      DefaultBatchLimit,
		maxBatch:        DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get()
	}
	e.log = e.log.Named("detect")
	return e
}

// Scorer returns the scorer shared by all modes.
func (e *Engine) Scorer() *scoring.WeightedScorer { return e.scorer }

// FindDuplicatesFor compares one stored record with every other record of the tenant.
func (e *Engine) FindDuplicatesFor(ctx context.Context, tenantID, recordID string, minScore *int) (res model.TargetResult, err error) {
	const op = "detect.FindDuplicatesFor"
	start := time.Now()
	defer func() { e.observe(ModeTarget, start, err) }()

	threshold, err := e.threshold(op, minScore)
	if err != nil {
		return res, err
	}
	if tenantID == "" || recordID == "" {
		return res, errkind.Errorf(op, errkind.ErrInvalidInput, "tenant id and record id are required")
	}

	target, err := e.source.Get(ctx, tenantID, recordID)
	if err != nil {
		return res, errkind.Wrap(op, err)
	}
	records, err := e.source.All(ctx, tenantID)
	if err != nil {
		return res, errkind.Wrap(op, err)
	}

	nt := normalize.Normalize(target)
	found := make([]model.Duplicate, 0)
	compared := 0
	for _, r := range records {
		if r.SameRecord(target) {
			continue
		}
		compared++
		score, matches := e.scorer.ScorePair(nt, normalize.Normalize(r))
		if score >= threshold {
			found = append(found, model.Duplicate{Record: r, Score: score, Matches: matches})
		}
	}
	metrics.RecordPairComparisons(ModeTarget, compared)

	res = model.TargetResult{
		SourceRecord: target,
		Duplicates:   rankDuplicates(found, e.targetLimit),
		TotalFound:   len(found),
	}
	metrics.RecordCandidatesReturned(ModeTarget, len(res.Duplicates))
	e.log.Debug(ctx, "target lookup finished",
		logger.String("tenant_id", tenantID),
		logger.String("record_id", recordID),
		logger.Int("compared", compared),
		logger.Int("found", res.TotalFound))
	return res, nil
}

// ScanAll reports every unordered pair of distinct records scoring at or above
// the threshold. Records are visited in id order and each pair (i, j) with i < j
// is scored exactly once. The context is checked between outer rows.
func (e *Engine) ScanAll(ctx context.Context, tenantID string, minScore *int) (res model.ScanResult, err error) {
	const op = "detect.ScanAll"
	start := time.Now()
	defer func() { e.observe(ModeScan, start, err) }()

	threshold, err := e.threshold(op, minScore)
	if err != nil {
		return res, err
	}
	if tenantID == "" {
		return res, errkind.Errorf(op, errkind.ErrInvalidInput, "tenant id is required")
	}

	records, err := e.source.All(ctx, tenantID)
	if err != nil {
		return res, errkind.Wrap(op, err)
	}
	metrics.UpdateRecordsScanned(len(records))

	normalized := make([]normalize.Record, len(records))
	for i, r := range records {
		normalized[i] = normalize.Normalize(r)
	}

	groups := make([]model.DuplicateGroup, 0)
	compared := 0
	for i := 0; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			metrics.RecordPairComparisons(ModeScan, compared)
			return model.ScanResult{}, errkind.WrapKind(op, errkind.ErrInternal, err)
		}
		for j := i + 1; j < len(records); j++ {
			if records[i].SameRecord(records[j]) {
				continue
			}
			compared++
			score, matches := e.scorer.ScorePair(normalized[i], normalized[j])
			if score >= threshold {
				groups = append(groups, model.DuplicateGroup{
					RecordA: records[i],
					RecordB: records[j],
					Score:   score,
					Matches: matches,
				})
			}
		}
	}
	metrics.RecordPairComparisons(ModeScan, compared)

	res = model.ScanResult{
		DuplicateGroups:     rankGroups(groups, e.scanLimit),
		TotalFound:          len(groups),
		TotalRecordsScanned: len(records),
	}
	metrics.RecordCandidatesReturned(ModeScan, len(res.DuplicateGroups))
	e.log.Info(ctx, "full scan finished",
		logger.String("tenant_id", tenantID),
		logger.Int("records", len(records)),
		logger.Int("pairs", compared),
		logger.Int("found", res.TotalFound),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

// CheckBatch compares each import candidate with every stored record of the
// tenant. Only candidates with at least one match are reported, each with its
// best matches.
func (e *Engine) CheckBatch(ctx context.Context, tenantID string, candidates []model.DonorRecord, minScore *int) (res model.BatchResult, err error) {
	const op = "detect.CheckBatch"
	start := time.Now()
	defer func() { e.observe(ModeBatch, start, err) }()

	threshold, err := e.threshold(op, minScore)
	if err != nil {
		return res, err
	}
	switch {
	case tenantID == "":
		return res, errkind.Errorf(op, errkind.ErrInvalidInput, "tenant id is required")
	case candidates == nil:
		return res, errkind.Errorf(op, errkind.ErrInvalidInput, "candidates are required")
	case len(candidates) > e.maxBatch:
		return res, errkind.Errorf(op, errkind.ErrInvalidInput,
			"batch of %d candidates exceeds the limit of %d", len(candidates), e.maxBatch)
	}

	res = model.BatchResult{TotalChecked: len(candidates), Results: make([]model.BatchEntry, 0)}
	if len(candidates) == 0 {
		return res, nil
	}

	records, err := e.source.All(ctx, tenantID)
	if err != nil {
		return model.BatchResult{}, errkind.Wrap(op, err)
	}
	normalized := make([]normalize.Record, len(records))
	for i, r := range records {
		normalized[i] = normalize.Normalize(r)
	}

	compared, returned := 0, 0
	for idx, c := range candidates {
		nc := normalize.Normalize(c)
		found := make([]model.Duplicate, 0)
		for i, r := range records {
			if c.SameRecord(r) {
				continue
			}
			compared++
			score, matches := e.scorer.ScorePair(nc, normalized[i])
			if score >= threshold {
				found = append(found, model.Duplicate{Record: r, Score: score, Matches: matches})
			}
		}
		if len(found) == 0 {
			continue
		}
		top := rankDuplicates(found, e.batchLimit)
		returned += len(top)
		res.Results = append(res.Results, model.BatchEntry{Index: idx, Candidate: c, Duplicates: top})
	}
	res.DuplicatesFound = len(res.Results)
	metrics.RecordPairComparisons(ModeBatch, compared)
	metrics.RecordCandidatesReturned(ModeBatch, returned)

	e.log.Debug(ctx, "batch pre-check finished",
		logger.String("tenant_id", tenantID),
		logger.Int("candidates", len(candidates)),
		logger.Int("with_duplicates", res.DuplicatesFound))
	return res, nil
}

// ResolveMinScore returns the effective threshold for minScore, or an
// InvalidInput error when it lies outside [0, 100].
func (e *Engine) ResolveMinScore(minScore *int) (int, error) {
	return e.threshold("detect.ResolveMinScore", minScore)
}

func (e *Engine) threshold(op string, minScore *int) (int, error) {
	if minScore == nil {
		return e.defaultMinScore, nil
	}
	if *minScore < minScoreFloor || *minScore > minScoreCeil {
		return 0, errkind.Errorf(op, errkind.ErrInvalidInput,
			"minScore %d outside [%d, %d]", *minScore, minScoreFloor, minScoreCeil)
	}
	return *minScore, nil
}

func (e *Engine) observe(mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = kindLabel(err)
	}
	metrics.RecordOperation(mode, outcome)
	metrics.RecordOperationDuration(mode, float64(time.Since(start).Microseconds())/1000)
}

func kindLabel(err error) string {
	switch errkind.KindOf(err) {
	case errkind.ErrNotFound:
		return "not_found"
	case errkind.ErrInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// rankDuplicates sorts by descending score, keeping discovery order for ties,
// and truncates to limit.
func rankDuplicates(in []model.Duplicate, limit int) []model.Duplicate {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Score > in[j].Score })
	if len(in) > limit {
		return in[:limit:limit]
	}
	return in
}

func rankGroups(in []model.DuplicateGroup, limit int) []model.DuplicateGroup {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Score > in[j].Score })
	if len(in) > limit {
		return in[:limit:limit]
	}
	return in
}
