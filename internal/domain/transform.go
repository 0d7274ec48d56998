package domain

import (
	"strconv"
	"strings"
	"time"
)

// dateHourLayout is the fixed day/month/year pattern of the source export,
// e.g. "25/12/2023 14:30:00". Timezone-naive; parsed as UTC.
const dateHourLayout = "02/01/2006 15:04:05"

// nullSentinel is the literal token the exporter writes for missing numerics.
const nullSentinel = "Null"

// CleanTable applies the full cleaning rule set to a raw table and returns
// the surviving rows with drop accounting.
//
// Two hard filters drop rows entirely: a blank vin (a sample that cannot be
// tied to a vehicle is useless) and an unparsable datehour. Everything else
// recovers locally: numeric fields that fail coercion become nil, negative
// speed and charging power clamp to zero, engine status collapses to ON/OFF,
// and a malformed geolocation yields nil coordinates rather than failing the
// batch. Mileage gaps are then filled by linear interpolation over the
// surviving row order; the filters themselves do not interact, so their
// relative order is not observable in the output.
func CleanTable(rows []RawRecord) ([]CleanRecord, TransformStats) {
	stats := TransformStats{RowsIn: len(rows)}
	out := make([]CleanRecord, 0, len(rows))

	for _, row := range rows {
		vin := strings.TrimSpace(row.VIN)
		if vin == "" {
			stats.DroppedMissingVIN++
			continue
		}

		recordedAt, ok := parseDateHour(row.DateHour)
		if !ok {
			stats.DroppedBadTimestamp++
			continue
		}

		rec := CleanRecord{
			VIN:          vin,
			Company:      strings.TrimSpace(row.Company),
			RecordedAt:   recordedAt,
			EngineStatus: normalizeEngineStatus(row.EngineStatus),
			ProcessedAt:  clock.Now(),
		}

		rec.MileageKM = parseNumeric(row.Mileage, &stats)
		rec.ChargingPowerKW = clampNonNegative(parseNumeric(row.ChargingPower, &stats))
		rec.RemainingRangeKM = parseNumeric(row.RemainingRange, &stats)
		rec.SpeedKMH = clampNonNegative(parseNumeric(row.Speed, &stats))

		lat, lon, geoOK := splitGeolocation(row.Geolocation)
		if !geoOK {
			stats.MalformedGeo++
		}
		rec.Latitude = lat
		rec.Longitude = lon

		out = append(out, rec)
	}

	interpolateMileage(out)
	stats.RowsOut = len(out)
	return out, stats
}

// parseNumeric coerces a raw field to a float, returning nil for the "Null"
// sentinel, blank values, and anything unparsable. Only genuine parse
// failures count toward CoercionFailures.
func parseNumeric(s string, stats *TransformStats) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == nullSentinel {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		stats.CoercionFailures++
		return nil
	}
	return &v
}

// clampNonNegative resets meaningless negatives to zero. Missing stays missing.
func clampNonNegative(v *float64) *float64 {
	if v != nil && *v < 0 {
		zero := 0.0
		return &zero
	}
	return v
}

// normalizeEngineStatus maps any raw token to ON or OFF: uppercase, then ON
// wins if the result contains the substring "ON" or the character "1".
// The substring match is deliberate: "state=1x" and "On" both map to ON,
// everything else (including blank) maps to OFF.
func normalizeEngineStatus(raw string) string {
	u := strings.ToUpper(raw)
	if strings.Contains(u, "ON") || strings.Contains(u, "1") {
		return EngineOn
	}
	return EngineOff
}

// parseDateHour parses the fixed datehour layout. The bool reports success;
// callers drop the row on failure.
func parseDateHour(s string) (time.Time, bool) {
	t, err := time.Parse(dateHourLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// splitGeolocation splits a combined "lat,lon" field on the first comma and
// coerces both halves. A field that does not yield exactly two numbers
// produces nil coordinates and ok=false; the row itself survives.
func splitGeolocation(s string) (lat, lon *float64, ok bool) {
	rawLat, rawLon, found := strings.Cut(s, ",")
	if !found {
		return nil, nil, false
	}
	latV, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lonV, errLon := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if errLat != nil || errLon != nil {
		return nil, nil, false
	}
	return &latV, &lonV, true
}

// interpolateMileage linearly fills nil mileage entries bounded by two known
// neighbors, in current row order. Leading and trailing gaps have no bounding
// pair and stay nil. Mileage is the only interpolated field.
func interpolateMileage(records []CleanRecord) {
	prev := -1
	for i := range records {
		if records[i].MileageKM == nil {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			left := *records[prev].MileageKM
			right := *records[i].MileageKM
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				v := left + (right-left)*float64(j-prev)/span
				records[j].MileageKM = &v
			}
		}
		prev = i
	}
}
