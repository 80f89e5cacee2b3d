package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tracto-cpk/internal/models"
)

// rawRecord holds one row as text, keyed by the source headers.
type rawRecord struct {
	OriginState     string `csv:"Estado Origen"`
	OriginCity      string `csv:"Ciudad Origen"`
	DestinationCity string `csv:"Ciudad Destino"`
	VehicleID       string `csv:"Tracto"`
	RouteLabel      string `csv:"Ruta Estados"`
	OriginLat       string `csv:"lat_origen"`
	OriginLon       string `csv:"lon_origen"`
	DestinationLat  string `csv:"lat_destino"`
	DestinationLon  string `csv:"lon_destino"`
	DistanceKm      string `csv:"kmstotales"`
	CargoCost       string `csv:"Costo por carga"`
	TollCost        string `csv:"Costo Peajes"`
	MaintenanceCost string `csv:"Costo Mantenimiento"`
}

func (r *rawRecord) fields() map[string]*string {
	return map[string]*string{
		models.ColOriginState:     &r.OriginState,
		models.ColOriginCity:      &r.OriginCity,
		models.ColDestinationCity: &r.DestinationCity,
		models.ColVehicle:         &r.VehicleID,
		models.ColRouteLabel:      &r.RouteLabel,
		models.ColOriginLat:       &r.OriginLat,
		models.ColOriginLon:       &r.OriginLon,
		models.ColDestinationLat:  &r.DestinationLat,
		models.ColDestinationLon:  &r.DestinationLon,
		models.ColDistance:        &r.DistanceKm,
		models.ColCargoCost:       &r.CargoCost,
		models.ColTollCost:        &r.TollCost,
		models.ColMaintenanceCost: &r.MaintenanceCost,
	}
}

func (r *rawRecord) blank() bool {
	for _, v := range r.fields() {
		if strings.TrimSpace(*v) != "" {
			return false
		}
	}
	return true
}

// toRecord coerces a raw row. row is the 1-based line in the source, header included.
func (r *rawRecord) toRecord(source string, row int) (models.RouteRecord, error) {
	rec := models.RouteRecord{
		Row:             row,
		OriginState:     strings.TrimSpace(r.OriginState),
		OriginCity:      strings.TrimSpace(r.OriginCity),
		DestinationCity: strings.TrimSpace(r.DestinationCity),
		VehicleID:       strings.TrimSpace(r.VehicleID),
		RouteLabel:      strings.TrimSpace(r.RouteLabel),
	}

	numeric := []struct {
		column string
		raw    string
		dst    **float64
	}{
		{models.ColOriginLat, r.OriginLat, &rec.OriginLat},
		{models.ColOriginLon, r.OriginLon, &rec.OriginLon},
		{models.ColDestinationLat, r.DestinationLat, &rec.DestinationLat},
		{models.ColDestinationLon, r.DestinationLon, &rec.DestinationLon},
		{models.ColDistance, r.DistanceKm, &rec.DistanceKm},
		{models.ColCargoCost, r.CargoCost, &rec.CargoCost},
		{models.ColTollCost, r.TollCost, &rec.TollCost},
		{models.ColMaintenanceCost, r.MaintenanceCost, &rec.MaintenanceCost},
	}
	for _, n := range numeric {
		v, err := parseNumber(n.raw)
		if err != nil {
			return models.RouteRecord{}, &LoadError{Source: source, Row: row, Column: n.column, Err: err}
		}
		*n.dst = v
	}
	return rec, nil
}

var missingTokens = map[string]bool{
	"":     true,
	"-":    true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"nan":  true,
	"null": true,
	"none": true,
}

// parseNumber reads a numeric cell. Missing tokens give nil; infinities
// are rejected with ErrBadValue. Both "1234.5" and "1234,5" are accepted; with both separators present
// the comma is taken as a thousands separator.
func parseNumber(val string) (*float64, error) {
	val = strings.TrimSpace(val)
	if missingTokens[strings.ToLower(val)] {
		return nil, nil
	}

	clean := strings.TrimPrefix(strings.ReplaceAll(val, " ", ""), "$")
	if strings.Contains(clean, ",") {
		if strings.Contains(clean, ".") {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.ReplaceAll(clean, ",", ".")
		}
	}

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadValue, val)
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q", ErrBadValue, val)
	}
	return &f, nil
}
