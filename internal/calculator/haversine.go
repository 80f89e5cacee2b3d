package calculator

import (
	"math"

	"tracto-cpk/internal/models"
)

const earthRadiusKm = 6371.0

// StraightLineKm is the great-circle distance between a trip's origin and
// destination. It is reported next to the billed kmstotales of every
// drawable route so detours stand out; it never feeds the CPK.
func StraightLineKm(from, to models.Coordinate) float64 {
	rad := math.Pi / 180
	dLat := (to.Lat - from.Lat) * rad
	dLon := (to.Lon - from.Lon) * rad

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(from.Lat*rad)*math.Cos(to.Lat*rad)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
