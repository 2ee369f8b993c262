package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/dupscan/internal/adapters/repository"
	"github.com/okian/dupscan/internal/domain/detect"
	"github.com/okian/dupscan/pkg/logger"
)

// Run generates donors into the configured SQLite database and optionally
// verifies that the planted duplicates are recovered by a full scan.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	var stats Stats
	if err := cfg.validate(); err != nil {
		return stats, err
	}
	log := logger.Get().Named("seed")
	start := time.Now()

	db, err := repository.OpenSQLite(cfg.Path)
	if err != nil {
		return stats, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}
	defer db.Close()

	records, pairs := NewGenerator(cfg.Seed).Generate(cfg.Donors, cfg.DuplicateRate)
	if err := db.PutAll(ctx, cfg.TenantID, records); err != nil {
		return stats, fmt.Errorf("writing donors: %w", err)
	}
	stats.Donors = cfg.Donors
	stats.Planted = len(pairs)
	log.Info(ctx, "donors written",
		logger.String("path", cfg.Path),
		logger.String("tenant_id", cfg.TenantID),
		logger.Int("donors", stats.Donors),
		logger.Int("planted", stats.Planted),
		logger.Duration("elapsed", time.Since(start)))

	if !cfg.Verify {
		return stats, nil
	}
	if err := verify(ctx, db, cfg, pairs, &stats, log); err != nil {
		return stats, err
	}
	return stats, nil
}

// verify scans the tenant and counts how many planted pairs were reported.
func verify(ctx context.Context, src detect.Source, cfg *Config, pairs []Pair, stats *Stats, log logger.Logger) error {
	engine := detect.New(src, detect.WithLimits(0, math.MaxInt32, 0), detect.WithLogger(log))
	minScore := cfg.MinScore
	res, err := engine.ScanAll(ctx, cfg.TenantID, &minScore)
	if err != nil {
		return fmt.Errorf("verification scan: %w", err)
	}

	reported := make(map[[2]string]bool, len(res.DuplicateGroups))
	for _, g := range res.DuplicateGroups {
		reported[[2]string{g.RecordA.Key(), g.RecordB.Key()}] = true
	}
	for _, p := range pairs {
		if reported[[2]string{p.OriginalID, p.DuplicateID}] || reported[[2]string{p.DuplicateID, p.OriginalID}] {
			stats.Recovered++
		}
	}
	stats.Found = res.TotalFound

	log.Info(ctx, "verification scan finished",
		logger.Int("records", res.TotalRecordsScanned),
		logger.Int("found", stats.Found),
		logger.Int("planted", stats.Planted),
		logger.Int("recovered", stats.Recovered))
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.Path == "":
		return errors.New("database path is required")
	case c.TenantID == "":
		return errors.New("tenant id is required")
	case c.Donors < 1:
		return errors.New("donor count must be positive")
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return errors.New("duplicate rate must be within [0,1]")
	case c.MinScore < 0 || c.MinScore > 100:
		return errors.New("min score must be within [0,100]")
	}
	return nil
}
