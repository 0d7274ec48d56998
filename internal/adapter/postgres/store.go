// Package postgres persists vehicles and telemetry samples and serves the
// read queries over them.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// Open creates a pgx/stdlib backed *sql.DB pool and validates the connection.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)
	db.SetConnMaxIdleTime(defaultConnIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
	id  BIGSERIAL PRIMARY KEY,
	vin TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS telemetry_samples (
	id                 BIGSERIAL PRIMARY KEY,
	vehicle_id         BIGINT NOT NULL REFERENCES vehicles (id),
	company            TEXT NOT NULL DEFAULT '',
	recorded_at        TIMESTAMP NOT NULL,
	charging_power_kw  DOUBLE PRECISION,
	remaining_range_km DOUBLE PRECISION,
	engine_status      TEXT NOT NULL CHECK (engine_status IN ('ON', 'OFF')),
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION,
	mileage_km         BIGINT,
	speed_kmh          DOUBLE PRECISION,
	geo_state          TEXT,
	geo_city           TEXT,
	geo_street         TEXT,
	CONSTRAINT telemetry_samples_vehicle_recorded_key UNIQUE (vehicle_id, recorded_at)
);

CREATE INDEX IF NOT EXISTS telemetry_samples_recorded_at_idx
	ON telemetry_samples (recorded_at);
`

// Store persists cleaned telemetry into Postgres. It implements
// pipeline.Loader. Loads against one Store are serialized (single-writer
// discipline), and vehicle creation uses an atomic insert-if-absent, so
// concurrent loads cannot mint duplicate vehicles.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	loadMu sync.Mutex
}

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping reports whether the target store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the two relations if absent. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadBatch persists one cleaned table. Schema is ensured first; a schema
// failure aborts before any row. Vehicles are created eagerly (committed per
// new vehicle), then all samples go in as one transaction with a final
// commit. Duplicate (vehicle, recorded_at) pairs are skipped rather than
// inserted twice, which makes re-running a failed load safe.
func (s *Store) LoadBatch(ctx context.Context, records []domain.CleanRecord) (domain.LoadResult, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	var result domain.LoadResult

	if err := s.EnsureSchema(ctx); err != nil {
		return result, err
	}
	if len(records) == 0 {
		return result, nil
	}

	vehicleIDs := make(map[string]int64)
	for i, rec := range records {
		if _, err := s.vehicleID(ctx, rec.VIN, vehicleIDs, &result); err != nil {
			return result, fmt.Errorf("upsert vehicle %q (row %d): %w", rec.VIN, i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insertSample = `
		INSERT INTO telemetry_samples (
			vehicle_id, company, recorded_at,
			charging_power_kw, remaining_range_km, engine_status,
			latitude, longitude, mileage_km, speed_kmh,
			geo_state, geo_city, geo_street
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT ON CONSTRAINT telemetry_samples_vehicle_recorded_key DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, insertSample)
	if err != nil {
		return result, fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var state, city, street sql.NullString
		if rec.Address != nil {
			state = nullString(rec.Address.State)
			city = nullString(rec.Address.City)
			street = nullString(rec.Address.Street)
		}

		res, err := stmt.ExecContext(ctx,
			vehicleIDs[rec.VIN],
			rec.Company,
			rec.RecordedAt,
			nullFloat(rec.ChargingPowerKW),
			nullFloat(rec.RemainingRangeKM),
			rec.EngineStatus,
			nullFloat(rec.Latitude),
			nullFloat(rec.Longitude),
			nullMileage(rec.MileageKM),
			nullFloat(rec.SpeedKMH),
			state,
			city,
			street,
		)
		if err != nil {
			// Samples roll back; eagerly committed vehicles remain, which a
			// re-run resolves through the insert-if-absent path.
			result.SamplesInserted = 0
			result.SamplesSkipped = 0
			result.RowsAccepted = 0
			return result, fmt.Errorf("insert sample for vin %q (row %d): %w", rec.VIN, i, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.SamplesInserted++
		} else {
			result.SamplesSkipped++
		}
	}

	if err := tx.Commit(); err != nil {
		result.SamplesInserted = 0
		result.SamplesSkipped = 0
		result.RowsAccepted = 0
		return result, fmt.Errorf("commit batch: %w", err)
	}

	result.RowsAccepted = result.SamplesInserted + result.SamplesSkipped
	return result, nil
}

// vehicleID resolves a VIN to its surrogate key, creating the vehicle on
// first encounter. The INSERT ... ON CONFLICT DO NOTHING RETURNING id form is
// atomic: under concurrent loads exactly one writer creates the row and the
// others fall through to the select.
func (s *Store) vehicleID(ctx context.Context, vin string, cache map[string]int64, result *domain.LoadResult) (int64, error) {
	if id, ok := cache[vin]; ok {
		return id, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO vehicles (vin) VALUES ($1) ON CONFLICT (vin) DO NOTHING RETURNING id`,
		vin,
	).Scan(&id)
	switch {
	case err == nil:
		result.VehiclesCreated++
	case errors.Is(err, sql.ErrNoRows):
		// Conflict: the vehicle already exists, here or in a concurrent load.
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE vin = $1`, vin).Scan(&id); err != nil {
			return 0, fmt.Errorf("select existing vehicle: %w", err)
		}
	default:
		return 0, err
	}

	cache[vin] = id
	return id, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// nullMileage rounds interpolated fractional mileage to the store's integer
// odometer column.
func nullMileage(v *float64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(math.Round(*v)), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
