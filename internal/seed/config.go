// Package seed generates synthetic donor snapshots with planted near-duplicates
// for local runs of the detection service.
package seed

// Config holds configuration for a seeding run.
type Config struct {
	Path          string  // SQLite database file
	TenantID      string  // Tenant the donors belong to
	Donors        int     // Number of distinct donors
	DuplicateRate float64 // Fraction of donors that get a planted near-duplicate
	Seed          uint64  // RNG seed; equal seeds generate equal snapshots
	Verify        bool    // Run a full scan afterwards and count recovered pairs
	MinScore      int     // Threshold used by the verification scan
}

// Stats summarises a seeding run.
type Stats struct {
	Donors    int // Distinct donors written
	Planted   int // Near-duplicates written
	Recovered int // Planted pairs reported by the verification scan
	Found     int // All pairs reported by the verification scan
}
