package models

// HighCostCPK is the cost per kilometer above which a trip is flagged for review.
const HighCostCPK = 1000.0

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteRecord is one trip row as read from the source table.
// Numeric cells that were empty in the source are nil.
type RouteRecord struct {
	Row             int    `json:"row"`
	OriginState     string `json:"origin_state"`
	OriginCity      string `json:"origin_city"`
	DestinationCity string `json:"destination_city"`
	VehicleID       string `json:"vehicle_id"`
	RouteLabel      string `json:"route_label"`

	OriginLat      *float64 `json:"origin_lat"`
	OriginLon      *float64 `json:"origin_lon"`
	DestinationLat *float64 `json:"destination_lat"`
	DestinationLon *float64 `json:"destination_lon"`

	DistanceKm      *float64 `json:"distance_km"`
	CargoCost       *float64 `json:"cargo_cost"`
	TollCost        *float64 `json:"toll_cost"`
	MaintenanceCost *float64 `json:"maintenance_cost"`
}

// Origin returns the origin coordinate and whether both parts are present.
func (r RouteRecord) Origin() (Coordinate, bool) {
	if r.OriginLat == nil || r.OriginLon == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *r.OriginLat, Lon: *r.OriginLon}, true
}

// Destination returns the destination coordinate and whether both parts are present.
func (r RouteRecord) Destination() (Coordinate, bool) {
	if r.DestinationLat == nil || r.DestinationLon == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *r.DestinationLat, Lon: *r.DestinationLon}, true
}

// CostedRecord is a RouteRecord that passed the distance and cost checks,
// with its derived total cost and cost per kilometer.
type CostedRecord struct {
	Record      RouteRecord `json:"record"`
	Km          float64     `json:"km"`
	Cargo       float64     `json:"cargo"`
	Tolls       float64     `json:"tolls"`
	Maintenance float64     `json:"maintenance"`
	TotalCost   float64     `json:"total_cost"`
	CPK         float64     `json:"cpk"`
}

func (c CostedRecord) HighCost() bool {
	return c.CPK > HighCostCPK
}

// Float returns a pointer to v, for building records by hand.
func Float(v float64) *float64 {
	return &v
}
