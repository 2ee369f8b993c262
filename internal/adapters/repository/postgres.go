package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/metrics"
)

const driverPostgres = "postgres"

// PgQuerier is the subset of pgxpool.Pool used by PostgresSource.
type PgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads donors from the product database. The donors table is
// owned by the CRM; this source never writes to it.
type PostgresSource struct {
	db PgQuerier
}

// NewPostgresSource wraps an existing pool or connection.
func NewPostgresSource(db PgQuerier) *PostgresSource {
	return &PostgresSource{db: db}
}

// OpenPostgres creates a connection pool and verifies connectivity.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

const pgDonorColumns = "id::text, email, first_name, last_name, phone, mobile, address, city, postal_code"

// Driver implements Source.
func (s *PostgresSource) Driver() string { return driverPostgres }

// Get implements Source.
func (s *PostgresSource) Get(ctx context.Context, tenantID, id string) (model.DonorRecord, error) {
	start := time.Now()
	row := s.db.QueryRow(ctx,
		"SELECT "+pgDonorColumns+" FROM donors WHERE tenant_id::text = $1 AND id::text = $2", tenantID, id)
	r, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		observe(driverPostgres, queryGet, start, nil)
		return model.DonorRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	observe(driverPostgres, queryGet, start, err)
	if err != nil {
		return model.DonorRecord{}, fmt.Errorf("reading donor %s: %w", id, err)
	}
	return r, nil
}

// All implements Source.
func (s *PostgresSource) All(ctx context.Context, tenantID string) (out []model.DonorRecord, err error) {
	defer func(start time.Time) { observe(driverPostgres, queryAll, start, err) }(time.Now())

	rows, err := s.db.Query(ctx,
		"SELECT "+pgDonorColumns+` FROM donors WHERE tenant_id::text = $1 ORDER BY id::text COLLATE "C"`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DonorRecord, error) {
		return scanPostgres(row)
	})
	if err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	metrics.RecordSnapshotSize(driverPostgres, len(out))
	return out, nil
}

func scanPostgres(row pgx.Row) (model.DonorRecord, error) {
	var (
		id                                                      string
		email, first, last, phone, mobile, address, city, postal pgtype.Text
	)
	if err := row.Scan(&id, &email, &first, &last, &phone, &mobile, &address, &city, &postal); err != nil {
		return model.DonorRecord{}, err
	}
	return model.DonorRecord{
		ID:         model.Str(id),
		Email:      fromText(email),
		FirstName:  first.String,
		LastName:   last.String,
		Phone:      fromText(phone),
		Mobile:     fromText(mobile),
		Address:    fromText(address),
		City:       fromText(city),
		PostalCode: fromText(postal),
	}, nil
}

func fromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return model.Str(t.String)
}
