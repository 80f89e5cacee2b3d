package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tracto-cpk/internal/models"
)

const header = "Estado Origen,Ciudad Origen,Ciudad Destino,Tracto,Ruta Estados,lat_origen,lon_origen,lat_destino,lon_destino,kmstotales,Costo por carga,Costo Peajes,Costo Mantenimiento"

func TestReadCSV(t *testing.T) {
	src := header + "\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,100,250,100,50\n" +
		"Jalisco,Guadalajara,CDMX,T-02,JAL-CDMX,20.67,-103.35,19.43,-99.13,540,NA,,-\n"

	records, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "Jalisco", first.OriginState)
	assert.Equal(t, "T-01", first.VehicleID)
	assert.Equal(t, "JAL-NL", first.RouteLabel)
	require.NotNil(t, first.DistanceKm)
	assert.Equal(t, 100.0, *first.DistanceKm)
	assert.Equal(t, 250.0, *first.CargoCost)
	assert.InDelta(t, -103.35, *first.OriginLon, 1e-9)

	second := records[1]
	assert.Equal(t, 3, second.Row)
	assert.Nil(t, second.CargoCost)
	assert.Nil(t, second.TollCost)
	assert.Nil(t, second.MaintenanceCost)
}

func TestReadCSVSemicolonAndBOM(t *testing.T) {
	src := "\xEF\xBB\xBF" + strings.ReplaceAll(header, ",", ";") + "\n" +
		"Sonora;Hermosillo;Tijuana;T-09;SON-BC;29,07;-110,95;32,51;-117,03;860,5;1250,00;300;$120\n"

	records, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Sonora", rec.OriginState)
	assert.InDelta(t, 29.07, *rec.OriginLat, 1e-9)
	assert.InDelta(t, 860.5, *rec.DistanceKm, 1e-9)
	assert.Equal(t, 1250.0, *rec.CargoCost)
	assert.Equal(t, 120.0, *rec.MaintenanceCost)
}

func TestReadCSVSkipsBlankRows(t *testing.T) {
	src := header + "\n" +
		",,,,,,,,,,,,\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,100,250,100,50\n"

	records, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Row)
}

func TestReadCSVRowsFollowSourceLines(t *testing.T) {
	src := header + "\n" +
		"\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,\"JAL\nNL\",20.67,-103.35,25.68,-100.31,100,250,100,50\n" +
		"Jalisco,Guadalajara,Monterrey,T-02,JAL-NL,20.67,-103.35,25.68,-100.31,100,250,100,50\n"

	records, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Row)
	assert.Equal(t, "JAL\nNL", records[0].RouteLabel)
	assert.Equal(t, 5, records[1].Row)
}

func TestReadCSVBadValueAfterEmptyLine(t *testing.T) {
	src := header + "\n\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,cien,250,100,50\n"

	_, err := ReadCSV("routes.csv", strings.NewReader(src))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Row)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	records, err := ReadCSV("routes.csv", strings.NewReader(header+"\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSVMissingColumn(t *testing.T) {
	src := strings.Replace(header, ",Costo Peajes", "", 1) + "\n"

	_, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, models.ColTollCost, le.Column)
	assert.Equal(t, "routes.csv", le.Source)
}

func TestReadCSVBadValue(t *testing.T) {
	src := header + "\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,cien,250,100,50\n"

	_, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadValue))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Row)
	assert.Equal(t, models.ColDistance, le.Column)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"", nil},
		{"  ", nil},
		{"N/A", nil},
		{"#N/A", nil},
		{"nan", nil},
		{"NaN", nil},
		{"null", nil},
		{"-", nil},
		{"42", models.Float(42)},
		{" 3.5 ", models.Float(3.5)},
		{"3,5", models.Float(3.5)},
		{"1,234.5", models.Float(1234.5)},
		{"$ 1 000", models.Float(1000)},
		{"-0.25", models.Float(-0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNumber(tt.in)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}

	for _, bad := range []string{"12abc", "inf", "-Inf", "+Infinity", "1e999"} {
		got, err := parseNumber(bad)
		assert.ErrorIs(t, err, ErrBadValue, bad)
		assert.Nil(t, got, bad)
	}
}

func TestReadCSVRejectsInfiniteDistance(t *testing.T) {
	src := header + "\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,inf,300,50,50\n"

	_, err := ReadCSV("routes.csv", strings.NewReader(src))
	require.ErrorIs(t, err, ErrBadValue)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, models.ColDistance, le.Column)
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "routes.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func workbookHeader() []interface{} {
	out := make([]interface{}, len(models.RequiredColumns))
	for i, c := range models.RequiredColumns {
		out[i] = c
	}
	return out
}

func TestReadWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		workbookHeader(),
		{"Jalisco", "Guadalajara", "Monterrey", "T-01", "JAL-NL", 20.67, -103.35, 25.68, -100.31, 100, 250, 100, 50},
		{},
		{"Sonora", "Hermosillo", "Tijuana", "T-09", "SON-BC", 29.07, -110.95, 32.51, -117.03, 860.5, 1250, 300, ""},
	})

	records, err := ReadFile(path, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Row)
	assert.Equal(t, "T-01", records[0].VehicleID)
	assert.Equal(t, 100.0, *records[0].DistanceKm)
	assert.InDelta(t, 25.68, *records[0].DestinationLat, 1e-9)

	assert.Equal(t, 4, records[1].Row)
	assert.InDelta(t, 860.5, *records[1].DistanceKm, 1e-9)
	assert.Nil(t, records[1].MaintenanceCost)
}

func TestReadWorkbookMissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Estado Origen", "Ciudad Origen"},
		{"Jalisco", "Guadalajara"},
	})

	_, err := ReadFile(path, "")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("routes.json", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoaderReturnsIndependentCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.csv")
	src := header + "\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,100,250,100,50\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	l := New("", zap.NewNop())

	first, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].VehicleID = "changed"

	// Removing the file proves the second call is served from memory.
	require.NoError(t, os.Remove(path))

	second, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "T-01", second[0].VehicleID)
}

func TestLoaderConcurrentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.csv")
	src := header + "\n" +
		"Jalisco,Guadalajara,Monterrey,T-01,JAL-NL,20.67,-103.35,25.68,-100.31,100,250,100,50\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	l := New("", zap.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records, err := l.Load(path)
			if err == nil && len(records) != 1 {
				err = errors.New("unexpected record count")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestLoaderPropagatesErrors(t *testing.T) {
	l := New("", zap.NewNop())
	_, err := l.Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	var le *LoadError
	assert.True(t, errors.As(err, &le))
}
