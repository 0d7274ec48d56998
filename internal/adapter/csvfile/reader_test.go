package csvfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicle_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testReader() *Reader {
	return NewReader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractFile(t *testing.T) {
	path := writeCSV(t, `vin,company,datehour,geolocation,mileage,chargingpower,remainingelectricalrange,enginestatus,speed
VIN001,Acme,25/12/2023 14:30:00,"40.7,-74.0",1000,7.4,250,ON,50
VIN002,Acme,25/12/2023 14:31:00,"48.85,2.35",Null,-3,Null,0,-5
`)

	records, err := testReader().ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "VIN001", records[0].VIN)
	assert.Equal(t, "Acme", records[0].Company)
	assert.Equal(t, "25/12/2023 14:30:00", records[0].DateHour)
	assert.Equal(t, "40.7,-74.0", records[0].Geolocation)
	assert.Equal(t, "1000", records[0].Mileage)
	assert.Equal(t, "7.4", records[0].ChargingPower)
	assert.Equal(t, "250", records[0].RemainingRange)
	assert.Equal(t, "ON", records[0].EngineStatus)
	assert.Equal(t, "50", records[0].Speed)

	assert.Equal(t, "Null", records[1].Mileage)
	assert.Equal(t, "-5", records[1].Speed)
}

func TestExtractFile_ColumnOrderDoesNotMatter(t *testing.T) {
	path := writeCSV(t, `speed,vin,enginestatus,company,datehour,geolocation,mileage,chargingpower,remainingelectricalrange
50,VIN001,ON,Acme,25/12/2023 14:30:00,"40.7,-74.0",1000,7.4,250
`)

	records, err := testReader().ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "VIN001", records[0].VIN)
	assert.Equal(t, "50", records[0].Speed)
}

func TestExtractFile_HeaderCaseAndWhitespace(t *testing.T) {
	path := writeCSV(t, `VIN, Company ,DateHour,Geolocation,Mileage,ChargingPower,RemainingElectricalRange,EngineStatus,Speed
VIN001,Acme,25/12/2023 14:30:00,"40.7,-74.0",1000,7.4,250,ON,50
`)

	records, err := testReader().ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Company)
}

func TestExtractFile_ShortRowYieldsBlankFields(t *testing.T) {
	path := writeCSV(t, `vin,company,datehour,geolocation,mileage,chargingpower,remainingelectricalrange,enginestatus,speed
VIN001,Acme,25/12/2023 14:30:00
`)

	records, err := testReader().ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "VIN001", records[0].VIN)
	assert.Empty(t, records[0].Speed)
	assert.Empty(t, records[0].EngineStatus)
}

func TestExtractFile_MissingRequiredColumn(t *testing.T) {
	path := writeCSV(t, `company,datehour,geolocation,mileage,chargingpower,remainingelectricalrange,enginestatus,speed
Acme,25/12/2023 14:30:00,"40.7,-74.0",1000,7.4,250,ON,50
`)

	_, err := testReader().ExtractFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "vin")
}

func TestExtractFile_MissingFile(t *testing.T) {
	_, err := testReader().ExtractFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

func TestExtractFile_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := testReader().ExtractFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}
