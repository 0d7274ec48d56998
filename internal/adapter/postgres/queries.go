package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
)

// ErrNotFound is returned when a query names a vehicle the store has never seen.
var ErrNotFound = domain.ErrNotFound

// VINs returns every known vehicle identifier, ordered.
func (s *Store) VINs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vin FROM vehicles ORDER BY vin`)
	if err != nil {
		return nil, fmt.Errorf("query vins: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// Companies returns the distinct companies across all samples, or the
// companies seen for one vehicle when vin is non-empty.
func (s *Store) Companies(ctx context.Context, vin string) ([]string, error) {
	const all = `
		SELECT DISTINCT company FROM telemetry_samples
		WHERE company <> '' ORDER BY company
	`
	const byVIN = `
		SELECT DISTINCT ts.company
		FROM telemetry_samples ts
		JOIN vehicles v ON v.id = ts.vehicle_id
		WHERE v.vin = $1 AND ts.company <> ''
		ORDER BY ts.company
	`

	var (
		rows *sql.Rows
		err  error
	)
	if vin == "" {
		rows, err = s.db.QueryContext(ctx, all)
	} else {
		rows, err = s.db.QueryContext(ctx, byVIN, vin)
	}
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	if vin != "" && len(companies) == 0 {
		if exists, err := s.vinExists(ctx, vin); err != nil {
			return nil, err
		} else if !exists {
			return nil, ErrNotFound
		}
	}
	return companies, nil
}

// SamplesInRange returns samples with recorded_at in [start, end], oldest
// first, optionally restricted to one vehicle.
func (s *Store) SamplesInRange(ctx context.Context, vin string, start, end time.Time) ([]domain.TelemetrySample, error) {
	query := `
		SELECT ts.id, ts.vehicle_id, v.vin, ts.company, ts.recorded_at,
		       ts.charging_power_kw, ts.remaining_range_km, ts.engine_status,
		       ts.latitude, ts.longitude, ts.mileage_km, ts.speed_kmh,
		       ts.geo_state, ts.geo_city, ts.geo_street
		FROM telemetry_samples ts
		JOIN vehicles v ON v.id = ts.vehicle_id
		WHERE ts.recorded_at >= $1 AND ts.recorded_at <= $2
	`
	args := []any{start, end}
	if vin != "" {
		query += ` AND v.vin = $3`
		args = append(args, vin)
	}
	query += ` ORDER BY ts.recorded_at, ts.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.TelemetrySample
	for rows.Next() {
		var (
			sm                           domain.TelemetrySample
			power, rng, lat, lon, speed  sql.NullFloat64
			mileage                      sql.NullInt64
			geoState, geoCity, geoStreet sql.NullString
		)
		if err := rows.Scan(
			&sm.ID, &sm.VehicleID, &sm.VIN, &sm.Company, &sm.RecordedAt,
			&power, &rng, &sm.EngineStatus,
			&lat, &lon, &mileage, &speed,
			&geoState, &geoCity, &geoStreet,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sm.ChargingPowerKW = floatPtr(power)
		sm.RemainingRangeKM = floatPtr(rng)
		sm.Latitude = floatPtr(lat)
		sm.Longitude = floatPtr(lon)
		sm.MileageKM = intPtr(mileage)
		sm.SpeedKMH = floatPtr(speed)
		sm.GeoState = stringPtr(geoState)
		sm.GeoCity = stringPtr(geoCity)
		sm.GeoStreet = stringPtr(geoStreet)
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// VehicleStats aggregates one vehicle's samples.
func (s *Store) VehicleStats(ctx context.Context, vin string) (domain.VehicleStats, error) {
	const query = `
		SELECT COUNT(ts.id), AVG(ts.speed_kmh), MAX(ts.speed_kmh),
		       MAX(ts.mileage_km), MIN(ts.recorded_at), MAX(ts.recorded_at)
		FROM vehicles v
		LEFT JOIN telemetry_samples ts ON ts.vehicle_id = v.id
		WHERE v.vin = $1
		GROUP BY v.id
	`
	stats := domain.VehicleStats{VIN: vin}
	var (
		avgSpeed, maxSpeed  sql.NullFloat64
		maxMileage          sql.NullInt64
		firstSeen, lastSeen sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, vin).Scan(
		&stats.SampleCount, &avgSpeed, &maxSpeed, &maxMileage, &firstSeen, &lastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, ErrNotFound
	}
	if err != nil {
		return stats, fmt.Errorf("query vehicle stats: %w", err)
	}

	stats.AvgSpeedKMH = floatPtr(avgSpeed)
	stats.MaxSpeedKMH = floatPtr(maxSpeed)
	stats.MaxMileageKM = intPtr(maxMileage)
	stats.FirstSeen = timePtr(firstSeen)
	stats.LastSeen = timePtr(lastSeen)
	return stats, nil
}

func (s *Store) vinExists(ctx context.Context, vin string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM vehicles WHERE vin = $1)`, vin).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vin: %w", err)
	}
	return exists, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
