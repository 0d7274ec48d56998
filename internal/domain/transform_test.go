package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(vin string) RawRecord {
	return RawRecord{
		VIN:            vin,
		Company:        "Acme Fleet",
		DateHour:       "25/12/2023 14:30:00",
		Geolocation:    "40.7,-74.0",
		Mileage:        "1000",
		ChargingPower:  "7.4",
		RemainingRange: "250",
		EngineStatus:   "ON",
		Speed:          "50",
	}
}

func TestCleanTable(t *testing.T) {
	t.Run("well-formed row", func(t *testing.T) {
		out, stats := CleanTable([]RawRecord{validRow("VIN001")})

		require.Len(t, out, 1)
		rec := out[0]
		assert.Equal(t, "VIN001", rec.VIN)
		assert.Equal(t, "Acme Fleet", rec.Company)
		assert.Equal(t, time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC), rec.RecordedAt)
		assert.Equal(t, EngineOn, rec.EngineStatus)
		require.NotNil(t, rec.Latitude)
		require.NotNil(t, rec.Longitude)
		assert.Equal(t, 40.7, *rec.Latitude)
		assert.Equal(t, -74.0, *rec.Longitude)
		require.NotNil(t, rec.MileageKM)
		assert.Equal(t, 1000.0, *rec.MileageKM)
		assert.Equal(t, 1, stats.RowsIn)
		assert.Equal(t, 1, stats.RowsOut)
	})

	t.Run("blank vin drops row", func(t *testing.T) {
		rows := []RawRecord{validRow(""), validRow("   "), validRow("VIN001")}
		out, stats := CleanTable(rows)

		require.Len(t, out, 1)
		assert.Equal(t, "VIN001", out[0].VIN)
		assert.Equal(t, 2, stats.DroppedMissingVIN)
		assert.Equal(t, 1, stats.RowsOut)
	})

	t.Run("unparsable datehour drops row", func(t *testing.T) {
		bad := validRow("VIN001")
		bad.DateHour = "2023-12-25T14:30:00Z" // ISO, not the export layout
		out, stats := CleanTable([]RawRecord{bad, validRow("VIN002")})

		require.Len(t, out, 1)
		assert.Equal(t, "VIN002", out[0].VIN)
		assert.Equal(t, 1, stats.DroppedBadTimestamp)
	})

	t.Run("negative speed and charging power clamp to zero", func(t *testing.T) {
		row := validRow("VIN001")
		row.Speed = "-5"
		row.ChargingPower = "-7.4"
		out, _ := CleanTable([]RawRecord{row})

		require.Len(t, out, 1)
		require.NotNil(t, out[0].SpeedKMH)
		require.NotNil(t, out[0].ChargingPowerKW)
		assert.Equal(t, 0.0, *out[0].SpeedKMH)
		assert.Equal(t, 0.0, *out[0].ChargingPowerKW)
	})

	t.Run("Null sentinel and garbage become missing", func(t *testing.T) {
		row := validRow("VIN001")
		row.RemainingRange = "Null"
		row.Speed = "not-a-number"
		row.Mileage = ""
		out, stats := CleanTable([]RawRecord{row})

		require.Len(t, out, 1)
		assert.Nil(t, out[0].RemainingRangeKM)
		assert.Nil(t, out[0].SpeedKMH)
		assert.Nil(t, out[0].MileageKM)
		assert.Equal(t, 1, stats.CoercionFailures, "only the garbage value is a coercion failure")
	})

	t.Run("malformed geolocation keeps row with missing coords", func(t *testing.T) {
		row := validRow("VIN001")
		row.Geolocation = "garbage"
		out, stats := CleanTable([]RawRecord{row})

		require.Len(t, out, 1)
		assert.Nil(t, out[0].Latitude)
		assert.Nil(t, out[0].Longitude)
		assert.Equal(t, 1, stats.MalformedGeo)
	})

	t.Run("processed timestamp comes from the clock", func(t *testing.T) {
		frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(frozen))
		defer SetClock(nil)

		out, _ := CleanTable([]RawRecord{validRow("VIN001")})
		require.Len(t, out, 1)
		assert.Equal(t, frozen, out[0].ProcessedAt)
	})
}

func TestNormalizeEngineStatus(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact ON", "ON", EngineOn},
		{"mixed case", "On", EngineOn},
		{"numeric one", "1", EngineOn},
		{"one inside token", "state=1x", EngineOn},
		{"substring ON inside word", "IGNITION", EngineOn},
		{"exact OFF", "OFF", EngineOff},
		{"empty", "", EngineOff},
		{"garbage", "xyz", EngineOff},
		{"zero", "0", EngineOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEngineStatus(tt.in))
		})
	}
}

func TestParseDateHour(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"valid", "25/12/2023 14:30:00", time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC), true},
		{"leading whitespace", " 01/01/2024 00:00:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"month day swapped out of range", "13/25/2023 14:30:00", time.Time{}, false},
		{"missing time part", "25/12/2023", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"iso format", "2023-12-25 14:30:00", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDateHour(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSplitGeolocation(t *testing.T) {
	t.Run("valid pair", func(t *testing.T) {
		lat, lon, ok := splitGeolocation("40.7,-74.0")
		require.True(t, ok)
		assert.Equal(t, 40.7, *lat)
		assert.Equal(t, -74.0, *lon)
	})

	t.Run("whitespace around halves", func(t *testing.T) {
		lat, lon, ok := splitGeolocation(" 48.8566 , 2.3522 ")
		require.True(t, ok)
		assert.Equal(t, 48.8566, *lat)
		assert.Equal(t, 2.3522, *lon)
	})

	t.Run("splits on first comma only", func(t *testing.T) {
		// Second comma lands in the longitude half and fails coercion.
		lat, lon, ok := splitGeolocation("40.7,-74.0,extra")
		assert.False(t, ok)
		assert.Nil(t, lat)
		assert.Nil(t, lon)
	})

	t.Run("no comma", func(t *testing.T) {
		lat, lon, ok := splitGeolocation("garbage")
		assert.False(t, ok)
		assert.Nil(t, lat)
		assert.Nil(t, lon)
	})

	t.Run("non-numeric half", func(t *testing.T) {
		lat, lon, ok := splitGeolocation("40.7,east")
		assert.False(t, ok)
		assert.Nil(t, lat)
		assert.Nil(t, lon)
	})
}

func TestInterpolateMileage(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	toRecords := func(vals []*float64) []CleanRecord {
		recs := make([]CleanRecord, len(vals))
		for i, v := range vals {
			recs[i].MileageKM = v
		}
		return recs
	}

	tests := []struct {
		name string
		in   []*float64
		want []*float64
	}{
		{"midpoint fill", []*float64{f(10), nil, f(30)}, []*float64{f(10), f(20), f(30)}},
		{"leading gap stays missing", []*float64{nil, f(10), f(20)}, []*float64{nil, f(10), f(20)}},
		{"trailing gap stays missing", []*float64{f(10), f(20), nil}, []*float64{f(10), f(20), nil}},
		{"multi-step gap", []*float64{f(0), nil, nil, f(30)}, []*float64{f(0), f(10), f(20), f(30)}},
		{"all missing", []*float64{nil, nil}, []*float64{nil, nil}},
		{"no gaps", []*float64{f(1), f(2)}, []*float64{f(1), f(2)}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := toRecords(tt.in)
			interpolateMileage(recs)
			for i, want := range tt.want {
				if want == nil {
					assert.Nil(t, recs[i].MileageKM, "index %d", i)
					continue
				}
				require.NotNil(t, recs[i].MileageKM, "index %d", i)
				assert.InDelta(t, *want, *recs[i].MileageKM, 1e-9, "index %d", i)
			}
		})
	}
}

func TestInterpolationUsesSurvivingRowOrder(t *testing.T) {
	// The second row carries a known mileage but is dropped for a bad
	// timestamp, so interpolation must bound the gap with rows 0 and 3.
	rows := []RawRecord{validRow("VIN001"), validRow("VIN001"), validRow("VIN001"), validRow("VIN001")}
	rows[0].Mileage = "100"
	rows[1].Mileage = "250"
	rows[1].DateHour = "not a date"
	rows[2].Mileage = "Null"
	rows[3].Mileage = "300"

	out, stats := CleanTable(rows)
	require.Len(t, out, 3)
	assert.Equal(t, 1, stats.DroppedBadTimestamp)
	require.NotNil(t, out[1].MileageKM)
	assert.InDelta(t, 200.0, *out[1].MileageKM, 1e-9)
}
