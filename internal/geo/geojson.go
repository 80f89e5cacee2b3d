package geo

import (
	"math"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection encodes valid segments as origin->destination LineStrings.
// Each feature carries the CPK and its intensity, the CPK scaled to [0,1]
// over the whole collection.
func FeatureCollection(segments []Segment) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	if len(segments) == 0 {
		return fc, nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range segments {
		lo = math.Min(lo, s.CPK)
		hi = math.Max(hi, s.CPK)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	for _, s := range segments {
		line, err := geom.NewLineString(geom.XY).SetCoords([]geom.Coord{
			{s.Origin.Lon, s.Origin.Lat},
			{s.Destination.Lon, s.Destination.Lat},
		})
		if err != nil {
			return nil, err
		}

		intensity := math.Max(0, math.Min(1, (s.CPK-lo)/span))
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(s.Record.Row),
			Geometry: line,
			Properties: map[string]interface{}{
				"vehicle_id":       s.Record.VehicleID,
				"route_label":      s.Record.RouteLabel,
				"origin_city":      s.Record.OriginCity,
				"destination_city": s.Record.DestinationCity,
				"km":               s.Km,
				"straight_line_km": s.StraightLineKm,
				"total_cost":       s.TotalCost,
				"cpk":              s.CPK,
				"high_cost":        s.HighCost(),
				"intensity":        intensity,
			},
		})
	}
	return fc, nil
}
