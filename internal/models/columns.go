package models

// Source column headers. Names are matched exactly.
const (
	ColOriginState     = "Estado Origen"
	ColOriginCity      = "Ciudad Origen"
	ColDestinationCity = "Ciudad Destino"
	ColVehicle         = "Tracto"
	ColRouteLabel      = "Ruta Estados"
	ColOriginLat       = "lat_origen"
	ColOriginLon       = "lon_origen"
	ColDestinationLat  = "lat_destino"
	ColDestinationLon  = "lon_destino"
	ColDistance        = "kmstotales"
	ColCargoCost       = "Costo por carga"
	ColTollCost        = "Costo Peajes"
	ColMaintenanceCost = "Costo Mantenimiento"
)

// RequiredColumns lists every header a source table must carry.
var RequiredColumns = []string{
	ColOriginState,
	ColOriginCity,
	ColDestinationCity,
	ColVehicle,
	ColRouteLabel,
	ColOriginLat,
	ColOriginLon,
	ColDestinationLat,
	ColDestinationLon,
	ColDistance,
	ColCargoCost,
	ColTollCost,
	ColMaintenanceCost,
}
