package excel

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/models"
	"tracto-cpk/internal/pipeline"
)

// ReportSheets is the number of sheets WriteReport produces.
const ReportSheets = 5

// SheetCallback is told about each sheet once it has been written.
type SheetCallback func(sheet string, rows int)

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// WriteReport saves the outputs of an ok report as a workbook at path.
// ctx is checked before each sheet; nothing is saved once it is done.
func WriteReport(ctx context.Context, path string, report *pipeline.Report, onSheet SheetCallback) error {
	if report.Status != filter.StatusOK {
		return fmt.Errorf("write report: nothing to export for status %s", report.Status)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := reportSheets(report)
	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.NewSheet(s.name); err != nil {
			return err
		}

		// Use Stream Writer for performance
		sw, err := f.NewStreamWriter(s.name)
		if err != nil {
			return err
		}
		if err := sw.SetRow("A1", s.header); err != nil {
			return err
		}
		for i, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := sw.SetRow(cell, row); err != nil {
				return err
			}
		}
		if err := sw.Flush(); err != nil {
			return err
		}

		if onSheet != nil {
			onSheet(s.name, len(s.rows))
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(sheets[0].name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return f.SaveAs(path)
}

// WriteTemplate writes an empty route table carrying every required header.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Rutas"); err != nil {
		return err
	}
	header := make([]interface{}, len(models.RequiredColumns))
	for i, col := range models.RequiredColumns {
		header[i] = col
	}
	if err := f.SetSheetRow("Rutas", "A1", &header); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle("Rutas", "A1", last, style); err != nil {
		return err
	}
	return f.Write(w)
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return ""
}

func reportSheets(report *pipeline.Report) []sheet {
	routes := sheet{
		name: "Rutas",
		header: []interface{}{
			"Ruta Estados", "Tracto", "kmstotales", "Costo por carga", "Costo Peajes",
			"Costo Mantenimiento", "Costo Total", "CPK", "CPK alto",
		},
	}
	for _, r := range report.Routes {
		routes.rows = append(routes.rows, []interface{}{
			r.RouteLabel, r.VehicleID, r.Km, r.Cargo, r.Tolls,
			r.Maintenance, r.TotalCost, r.CPK, yesNo(r.HighCost),
		})
	}

	groups := sheet{
		name:   "Resumen",
		header: []interface{}{"Tracto", "Ruta Estados", "Viajes", "CPK promedio", "kmstotales", "CPK alto"},
	}
	for _, g := range report.Groups {
		groups.rows = append(groups.rows, []interface{}{
			g.VehicleID, g.RouteLabel, g.Trips, g.MeanCPK, g.TotalKm, yesNo(g.HighCost),
		})
	}

	ranking := sheet{
		name: "Ranking",
		header: []interface{}{
			"Posicion", "Tracto", "Fila", "Ruta Estados", "Ciudad Origen", "Ciudad Destino",
			"kmstotales", "Costo Total", "CPK", "CPK alto",
		},
	}
	for _, e := range report.Ranking {
		ranking.rows = append(ranking.rows, []interface{}{
			e.Rank, e.VehicleID, e.Row, e.RouteLabel, e.OriginCity, e.DestinationCity,
			e.Km, e.TotalCost, e.CPK, yesNo(e.HighCost),
		})
	}

	discards := sheet{
		name:   "Descartes",
		header: []interface{}{"Fila", "Tracto", "Ruta Estados", "CPK", "Motivo"},
	}
	for _, d := range report.Geo.Report.Discards {
		discards.rows = append(discards.rows, []interface{}{
			d.Record.Record.Row, d.Record.Record.VehicleID, d.Record.Record.RouteLabel, d.Record.CPK, string(d.Reason),
		})
	}

	exclusions := sheet{
		name:   "Exclusiones",
		header: []interface{}{"Fila", "Tracto", "Ruta Estados", "Motivo"},
	}
	for _, e := range report.Exclusions {
		exclusions.rows = append(exclusions.rows, []interface{}{
			e.Record.Row, e.Record.VehicleID, e.Record.RouteLabel, string(e.Reason),
		})
	}

	return []sheet{routes, groups, ranking, discards, exclusions}
}
