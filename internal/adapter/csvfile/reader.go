// Package csvfile reads comma-separated vehicle-telemetry exports into raw
// in-memory tables. One file, in full; streaming ingestion is out of scope.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
)

// requiredColumns is the minimum header set a source export must carry.
var requiredColumns = []string{
	domain.ColVIN,
	domain.ColCompany,
	domain.ColDateHour,
	domain.ColGeolocation,
	domain.ColMileage,
	domain.ColChargingPower,
	domain.ColRemainingRange,
	domain.ColEngineStatus,
	domain.ColSpeed,
}

// Reader extracts RawRecords from a CSV file. Columns are resolved by header
// name, so column order in the export does not matter. It implements
// pipeline.Extractor.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a CSV extractor.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ExtractFile reads the whole file into memory. Ragged rows are tolerated;
// fields missing from a short row come back blank and fall to the cleaning
// rules downstream.
func (r *Reader) ExtractFile(ctx context.Context, path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // ragged exports are common; cleaning handles blanks

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header missing columns: %s", strings.Join(missing, ", "))
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, domain.RawRecord{
			Line:           i + 2, // header is line 1
			VIN:            field(row, index, domain.ColVIN),
			Company:        field(row, index, domain.ColCompany),
			DateHour:       field(row, index, domain.ColDateHour),
			Geolocation:    field(row, index, domain.ColGeolocation),
			Mileage:        field(row, index, domain.ColMileage),
			ChargingPower:  field(row, index, domain.ColChargingPower),
			RemainingRange: field(row, index, domain.ColRemainingRange),
			EngineStatus:   field(row, index, domain.ColEngineStatus),
			Speed:          field(row, index, domain.ColSpeed),
		})
	}

	r.logger.Debug("csv extracted", "file", path, "rows", len(records))
	return records, nil
}

func field(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
