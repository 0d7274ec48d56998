// Package domain models vehicle-telemetry CSV exports and the cleaning rules
// that turn them into persistable records.
//
// # Data Source
//
// Source files are comma-separated UTF-8 exports from fleet telematics units,
// one row per sample, with at minimum the columns: vin, company, datehour,
// geolocation, mileage, chargingpower, remainingelectricalrange, enginestatus,
// speed. Exports are messy by nature: firmware writes the literal string
// "Null" for missing numerics, some units report negative speeds while
// rolling backwards on a transporter, and engine status encoding varies by
// unit generation.
//
// # Field Conventions
//
// datehour:
//
//	"DD/MM/YYYY HH:MM:SS", e.g. "25/12/2023 14:30:00". Timezone-naive,
//	parsed as UTC. Rows with an unparsable datehour are dropped; a sample
//	without a time cannot serve range queries.
//
// geolocation:
//
//	"lat,lon" in one field, e.g. "40.7128,-74.0060". Split on the first
//	comma; anything that does not yield two numbers produces missing
//	coordinates without dropping the row.
//
// enginestatus:
//
//	Many-to-one mapping to ON/OFF. After uppercasing, a value containing
//	the substring "ON" or the character "1" is ON ("On", "1", "state=1x");
//	everything else, including blank, is OFF. The substring match is a
//	quirk of the original exporter contract and is preserved exactly.
//
// mileage:
//
//	Odometer km. Gaps are filled by linear interpolation over row order;
//	leading and trailing gaps without a bounding pair stay missing. This is
//	the only interpolated field.
//
// speed / chargingpower:
//
//	Negative values are physically meaningless and clamp to zero before
//	persistence.
//
// # Missing Values
//
// The missing-value marker is a nil pointer. Coercion failures never abort a
// row; they produce nil and are counted in [TransformStats] for observability.
// Missing values other than mileage stay missing all the way to the store,
// which persists them as SQL NULL.
package domain
