package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/dupscan/internal/domain/model"
	"github.com/okian/dupscan/pkg/metrics"

	_ "modernc.org/sqlite"
)

const driverSQLite = "sqlite"

const createSchema = `
CREATE TABLE IF NOT EXISTS donors (
	tenant_id   TEXT NOT NULL,
	id          TEXT NOT NULL,
	email       TEXT,
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	phone       TEXT,
	mobile      TEXT,
	address     TEXT,
	city        TEXT,
	postal_code TEXT,
	PRIMARY KEY (tenant_id, id)
);
`

const donorColumns = "id, email, first_name, last_name, phone, mobile, address, city, postal_code"

// SQLiteSource is a Source backed by an embedded SQLite database.
type SQLiteSource struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the donor database at path.
func OpenSQLite(path string) (*SQLiteSource, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(createSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteSource{conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.conn.Close()
}

// Driver implements Source.
func (s *SQLiteSource) Driver() string { return driverSQLite }

const upsertDonor = `INSERT INTO donors (tenant_id, ` + donorColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tenant_id, id) DO UPDATE SET
		email = excluded.email,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		phone = excluded.phone,
		mobile = excluded.mobile,
		address = excluded.address,
		city = excluded.city,
		postal_code = excluded.postal_code`

// Put upserts a persisted record.
func (s *SQLiteSource) Put(ctx context.Context, tenantID string, r model.DonorRecord) (err error) {
	if tenantID == "" {
		return ErrMissingTenant
	}
	if !r.Persisted() {
		return ErrMissingID
	}
	defer func(start time.Time) { observe(driverSQLite, queryPut, start, err) }(time.Now())

	if _, err = s.conn.ExecContext(ctx, upsertDonor, upsertArgs(tenantID, r)...); err != nil {
		return fmt.Errorf("upserting donor %s: %w", *r.ID, err)
	}
	return nil
}

// PutAll upserts records in a single transaction. Nothing is written when
// any record is rejected.
func (s *SQLiteSource) PutAll(ctx context.Context, tenantID string, records []model.DonorRecord) (err error) {
	if tenantID == "" {
		return ErrMissingTenant
	}
	for _, r := range records {
		if !r.Persisted() {
			return ErrMissingID
		}
	}
	defer func(start time.Time) { observe(driverSQLite, queryPutAll, start, err) }(time.Now())

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertDonor)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, upsertArgs(tenantID, r)...); err != nil {
			return fmt.Errorf("upserting donor %s: %w", *r.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing donors: %w", err)
	}
	return nil
}

func upsertArgs(tenantID string, r model.DonorRecord) []any {
	return []any{
		tenantID, *r.ID, nullable(r.Email), r.FirstName, r.LastName,
		nullable(r.Phone), nullable(r.Mobile), nullable(r.Address), nullable(r.City), nullable(r.PostalCode),
	}
}

// Get implements Source.
func (s *SQLiteSource) Get(ctx context.Context, tenantID, id string) (model.DonorRecord, error) {
	start := time.Now()
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+donorColumns+" FROM donors WHERE tenant_id = ? AND id = ?", tenantID, id)
	r, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		observe(driverSQLite, queryGet, start, nil)
		return model.DonorRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	observe(driverSQLite, queryGet, start, err)
	if err != nil {
		return model.DonorRecord{}, fmt.Errorf("reading donor %s: %w", id, err)
	}
	return r, nil
}

// All implements Source.
func (s *SQLiteSource) All(ctx context.Context, tenantID string) (out []model.DonorRecord, err error) {
	defer func(start time.Time) { observe(driverSQLite, queryAll, start, err) }(time.Now())

	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+donorColumns+" FROM donors WHERE tenant_id = ? ORDER BY id", tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning donor: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	metrics.RecordSnapshotSize(driverSQLite, len(out))
	return out, nil
}

// Count returns the number of records stored for tenantID.
func (s *SQLiteSource) Count(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM donors WHERE tenant_id = ?", tenantID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (model.DonorRecord, error) {
	var (
		id                                               string
		first, last                                      string
		email, phone, mobile, address, city, postalCode sql.NullString
	)
	if err := row.Scan(&id, &email, &first, &last, &phone, &mobile, &address, &city, &postalCode); err != nil {
		return model.DonorRecord{}, err
	}
	return model.DonorRecord{
		ID:         model.Str(id),
		Email:      fromNull(email),
		FirstName:  first,
		LastName:   last,
		Phone:      fromNull(phone),
		Mobile:     fromNull(mobile),
		Address:    fromNull(address),
		City:       fromNull(city),
		PostalCode: fromNull(postalCode),
	}, nil
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return model.Str(ns.String)
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
