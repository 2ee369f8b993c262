package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/dupscan/internal/seed"
	"github.com/okian/dupscan/pkg/logger"
)

const (
	defaultDonors   = 1000
	defaultDupRate  = 0.1
	defaultMinScore = 50
	defaultTimeout  = 10 * time.Minute
)

func main() {
	var (
		path     = flag.String("db", "dupscan.db", "SQLite database file to write")
		tenant   = flag.String("tenant", "demo", "Tenant id of the generated donors")
		donors   = flag.Int("donors", defaultDonors, "Number of distinct donors to generate")
		dupRate  = flag.Float64("dup-rate", defaultDupRate, "Fraction of donors that get a planted near-duplicate")
		seedVal  = flag.Uint64("seed", uint64(time.Now().UnixNano()), "RNG seed")
		verify   = flag.Bool("verify", false, "Run a full scan afterwards and report recovered pairs")
		minScore = flag.Int("min-score", defaultMinScore, "Threshold for the verification scan")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "seed-donors writes synthetic donors with planted near-duplicates into a SQLite database.")
		flag.PrintDefaults()
		return
	}

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cfg := &seed.Config{
		Path:          *path,
		TenantID:      *tenant,
		Donors:        *donors,
		DuplicateRate: *dupRate,
		Seed:          *seedVal,
		Verify:        *verify,
		MinScore:      *minScore,
	}
	stats, err := seed.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "seeding failed:", err)
		os.Exit(1)
	}
	if cfg.Verify && stats.Recovered < stats.Planted {
		fmt.Fprintf(os.Stderr, "recovered %d of %d planted pairs\n", stats.Recovered, stats.Planted)
		os.Exit(2)
	}
}
