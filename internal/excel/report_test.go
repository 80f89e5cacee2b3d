package excel

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/models"
	"tracto-cpk/internal/pipeline"
)

func f(v float64) *float64 { return models.Float(v) }

func sampleReport(t *testing.T, sel filter.Selection) *pipeline.Report {
	t.Helper()
	records := []models.RouteRecord{
		{
			Row: 2, OriginState: "Jalisco", OriginCity: "Guadalajara", DestinationCity: "Monterrey",
			VehicleID: "T-01", RouteLabel: "JAL-NL",
			OriginLat: f(20.67), OriginLon: f(-103.35), DestinationLat: f(25.68), DestinationLon: f(-100.31),
			DistanceKm: f(100), CargoCost: f(250), TollCost: f(100), MaintenanceCost: f(50),
		},
		{
			Row: 3, OriginState: "Jalisco", OriginCity: "Guadalajara", DestinationCity: "Boston",
			VehicleID: "T-02", RouteLabel: "JAL-MA",
			OriginLat: f(20.67), OriginLon: f(-103.35), DestinationLat: f(42.36), DestinationLon: f(-71.06),
			DistanceKm: f(4000), CargoCost: f(9000), TollCost: f(500), MaintenanceCost: f(500),
		},
		{
			Row: 4, OriginState: "Jalisco", OriginCity: "Guadalajara", DestinationCity: "Monterrey",
			VehicleID: "T-03", RouteLabel: "JAL-NL",
			DistanceKm: f(0), CargoCost: f(1), TollCost: f(1), MaintenanceCost: f(1),
		},
	}
	report, err := pipeline.New(pipeline.DefaultOptions(), zap.NewNop()).Run(records, sel)
	require.NoError(t, err)
	return report
}

func TestWriteReport(t *testing.T) {
	report := sampleReport(t, filter.Selection{})
	path := filepath.Join(t.TempDir(), "cpk.xlsx")

	var written []string
	err := WriteReport(context.Background(), path, report, func(sheet string, rows int) {
		written = append(written, sheet)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rutas", "Resumen", "Ranking", "Descartes", "Exclusiones"}, written)
	assert.Len(t, written, ReportSheets)

	wb, err := OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, written, wb.GetSheetList())

	header, rows, err := ReadTable(wb, "Rutas")
	require.NoError(t, err)
	assert.Equal(t, "Ruta Estados", header[0])
	require.Len(t, rows, 2)
	assert.Equal(t, "JAL-NL", rows[0][0])
	assert.Equal(t, "4", rows[0][7])

	_, discards, err := ReadTable(wb, "Descartes")
	require.NoError(t, err)
	require.Len(t, discards, 1)
	assert.Equal(t, "3", discards[0][0])
	assert.Equal(t, "out of geographic bounds", discards[0][4])

	_, exclusions, err := ReadTable(wb, "Exclusiones")
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "T-03", exclusions[0][1])
}

func TestWriteReportRejectsNonOK(t *testing.T) {
	report := sampleReport(t, filter.Selection{Vehicle: filter.Only("T-99")})
	require.Equal(t, filter.StatusNoMatch, report.Status)

	err := WriteReport(context.Background(), filepath.Join(t.TempDir(), "cpk.xlsx"), report, nil)
	assert.Error(t, err)
}

func TestReadTableFirstSheet(t *testing.T) {
	report := sampleReport(t, filter.Selection{})
	path := filepath.Join(t.TempDir(), "cpk.xlsx")
	require.NoError(t, WriteReport(context.Background(), path, report, nil))

	wb, err := OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	header, _, err := ReadTable(wb, "")
	require.NoError(t, err)
	assert.Equal(t, "Ruta Estados", header[0])

	_, _, err = ReadTable(wb, "Nope")
	assert.Error(t, err)
}

func TestWriteReportCancelled(t *testing.T) {
	report := sampleReport(t, filter.Selection{})
	path := filepath.Join(t.TempDir(), "cpk.xlsx")

	ctx, cancel := context.WithCancel(context.Background())
	sheets := 0
	err := WriteReport(ctx, path, report, func(string, int) {
		sheets++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sheets)
	assert.NoFileExists(t, path)
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	header, rows, err := ReadTable(wb, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequiredColumns, header)
	assert.Empty(t, rows)
}
