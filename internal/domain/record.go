package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a query names an unknown vehicle.
var ErrNotFound = errors.New("not found")

// Column names expected in the source CSV. The extractor maps them by header,
// so column order in the file does not matter.
const (
	ColVIN            = "vin"
	ColCompany        = "company"
	ColDateHour       = "datehour"
	ColGeolocation    = "geolocation"
	ColMileage        = "mileage"
	ColChargingPower  = "chargingpower"
	ColRemainingRange = "remainingelectricalrange"
	ColEngineStatus   = "enginestatus"
	ColSpeed          = "speed"
)

// RawRecord is one CSV row as read from the source file: raw string fields,
// no validation applied. Line is the 1-indexed position in the source file,
// kept for error context in load reports.
type RawRecord struct {
	Line           int
	VIN            string
	Company        string
	DateHour       string
	Geolocation    string
	Mileage        string
	ChargingPower  string
	RemainingRange string
	EngineStatus   string
	Speed          string
}

// Engine status is a two-token categorical; anything the mapping cannot
// recognize collapses to EngineOff.
const (
	EngineOn  = "ON"
	EngineOff = "OFF"
)

// CleanRecord is a typed record after cleaning. Numeric fields use nil as the
// missing-value marker; a CleanRecord always has a non-empty VIN and a valid
// RecordedAt (rows failing either are dropped before this type exists).
type CleanRecord struct {
	VIN              string
	Company          string
	RecordedAt       time.Time
	ChargingPowerKW  *float64
	RemainingRangeKM *float64
	EngineStatus     string
	Latitude         *float64
	Longitude        *float64
	MileageKM        *float64
	SpeedKMH         *float64

	// Address is the optional reverse-geocoding enrichment; nil when
	// geocoding is disabled, failed, or coordinates are missing.
	Address *Address

	ProcessedAt time.Time
}

// TransformStats accounts for rows through the cleaning stage, so a load
// report can explain why the output table is smaller than the input file.
type TransformStats struct {
	RowsIn              int `json:"rows_in"`
	RowsOut             int `json:"rows_out"`
	DroppedMissingVIN   int `json:"dropped_missing_vin"`
	DroppedBadTimestamp int `json:"dropped_bad_timestamp"`
	CoercionFailures    int `json:"coercion_failures"`
	MalformedGeo        int `json:"malformed_geolocation"`
}

// Vehicle is the identity entity: one row per distinct VIN, created lazily on
// first encounter during a load, never updated or deleted.
type Vehicle struct {
	ID  int64  `json:"id"`
	VIN string `json:"vin"`
}

// TelemetrySample is one persisted CleanRecord, foreign-keyed to a Vehicle.
// Append-only. Pointer fields surface as JSON null when missing.
type TelemetrySample struct {
	ID               int64     `json:"id"`
	VehicleID        int64     `json:"vehicle_id"`
	VIN              string    `json:"vin"`
	Company          string    `json:"company"`
	RecordedAt       time.Time `json:"recorded_at"`
	ChargingPowerKW  *float64  `json:"charging_power_kw"`
	RemainingRangeKM *float64  `json:"remaining_range_km"`
	EngineStatus     string    `json:"engine_status"`
	Latitude         *float64  `json:"latitude"`
	Longitude        *float64  `json:"longitude"`
	MileageKM        *int64    `json:"mileage_km"`
	SpeedKMH         *float64  `json:"speed_kmh"`
	GeoState         *string   `json:"geo_state,omitempty"`
	GeoCity          *string   `json:"geo_city,omitempty"`
	GeoStreet        *string   `json:"geo_street,omitempty"`
}

// VehicleStats aggregates a vehicle's samples for the stats endpoint.
type VehicleStats struct {
	VIN          string     `json:"vin"`
	SampleCount  int64      `json:"sample_count"`
	AvgSpeedKMH  *float64   `json:"avg_speed_kmh"`
	MaxSpeedKMH  *float64   `json:"max_speed_kmh"`
	MaxMileageKM *int64     `json:"max_mileage_km"`
	FirstSeen    *time.Time `json:"first_seen"`
	LastSeen     *time.Time `json:"last_seen"`
}

// LoadResult reports what a single file load persisted. On a failed load the
// counts cover everything committed before the failure, which is what a
// caller needs to decide about a re-run.
type LoadResult struct {
	RowsAccepted    int `json:"rows_accepted"`
	VehiclesCreated int `json:"vehicles_created"`
	SamplesInserted int `json:"samples_inserted"`
	SamplesSkipped  int `json:"samples_skipped"` // duplicate (vehicle, timestamp) on re-run
}
