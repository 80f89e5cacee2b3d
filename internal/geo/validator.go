package geo

import (
	"math"

	"github.com/twpayne/go-geom"

	"tracto-cpk/internal/calculator"
	"tracto-cpk/internal/models"
)

// Box is an inclusive latitude/longitude rectangle in degrees.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

var (
	// Mexico is the validity box for route coordinates.
	Mexico = Box{MinLat: 14, MaxLat: 33, MinLon: -120, MaxLon: -86}
	// Viewport is the map clip used by renderers. It is not a validity rule.
	Viewport = Box{MinLat: 14, MaxLat: 33, MinLon: -118, MaxLon: -86}
)

func (b Box) bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Contains reports whether c lies inside the box, edges included.
func (b Box) Contains(c models.Coordinate) bool {
	return overlaps(b.bounds(), c)
}

type DiscardReason string

const (
	ReasonMissingCoordinates DiscardReason = "missing coordinates"
	ReasonOutOfBounds        DiscardReason = "out of geographic bounds"
)

type Discard struct {
	Record models.CostedRecord `json:"record"`
	Reason DiscardReason       `json:"reason"`
}

// DiscardReport lists records left out of the geo-valid set, in input order.
type DiscardReport struct {
	Discards []Discard `json:"discards"`
}

func (r DiscardReport) Total() int {
	return len(r.Discards)
}

func (r DiscardReport) Count(reason DiscardReason) int {
	return len(r.Records(reason))
}

// Records returns the discarded records attributed to reason.
func (r DiscardReport) Records(reason DiscardReason) []models.CostedRecord {
	out := []models.CostedRecord{}
	for _, d := range r.Discards {
		if d.Reason == reason {
			out = append(out, d.Record)
		}
	}
	return out
}

// Segment is a geo-valid trip with its resolved endpoints.
type Segment struct {
	models.CostedRecord
	Origin         models.Coordinate `json:"origin"`
	Destination    models.Coordinate `json:"destination"`
	StraightLineKm float64           `json:"straight_line_km"`
}

type Result struct {
	Valid  []Segment
	Report DiscardReport
}

type Validator struct {
	bounds *geom.Bounds
}

func NewValidator(box Box) *Validator {
	return &Validator{bounds: box.bounds()}
}

// Validate partitions records into geo-valid segments and discards.
// Missing coordinates are checked first, so a record with a missing
// coordinate is never reported as out of bounds.
func (v *Validator) Validate(records []models.CostedRecord) Result {
	res := Result{Valid: []Segment{}, Report: DiscardReport{Discards: []Discard{}}}

	for _, rec := range records {
		origin, okOrigin := rec.Record.Origin()
		dest, okDest := rec.Record.Destination()
		if !okOrigin || !okDest {
			res.Report.Discards = append(res.Report.Discards, Discard{Record: rec, Reason: ReasonMissingCoordinates})
			continue
		}

		if !v.inside(origin) || !v.inside(dest) {
			res.Report.Discards = append(res.Report.Discards, Discard{Record: rec, Reason: ReasonOutOfBounds})
			continue
		}

		res.Valid = append(res.Valid, Segment{
			CostedRecord:   rec,
			Origin:         origin,
			Destination:    dest,
			StraightLineKm: calculator.StraightLineKm(origin, dest),
		})
	}
	return res
}

func (v *Validator) inside(c models.Coordinate) bool {
	return overlaps(v.bounds, c)
}

func overlaps(b *geom.Bounds, c models.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return b.OverlapsPoint(geom.XY, geom.Coord{c.Lon, c.Lat})
}
