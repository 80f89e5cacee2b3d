package aggregate

import (
	"math"
	"sort"

	"tracto-cpk/internal/models"
)

// DefaultTopN is the number of vehicles returned by the anomaly ranking.
const DefaultTopN = 5

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GroupSummary is the mean CPK and summed distance of one vehicle on one route.
type GroupSummary struct {
	VehicleID  string  `json:"vehicle_id"`
	RouteLabel string  `json:"route_label"`
	Trips      int     `json:"trips"`
	MeanCPK    float64 `json:"mean_cpk"`
	TotalKm    float64 `json:"total_km"`
	HighCost   bool    `json:"high_cost"`
}

type groupKey struct {
	vehicle string
	route   string
}

// Summarize groups records by (vehicle, route label). Output is sorted by
// vehicle then route label.
func Summarize(records []models.CostedRecord) []GroupSummary {
	type acc struct {
		trips int
		cpk   float64
		km    float64
	}
	groups := make(map[groupKey]*acc)
	for _, r := range records {
		k := groupKey{vehicle: r.Record.VehicleID, route: r.Record.RouteLabel}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.trips++
		a.cpk += r.CPK
		a.km += r.Km
	}

	out := make([]GroupSummary, 0, len(groups))
	for k, a := range groups {
		mean := Round2(a.cpk / float64(a.trips))
		out = append(out, GroupSummary{
			VehicleID:  k.vehicle,
			RouteLabel: k.route,
			Trips:      a.trips,
			MeanCPK:    mean,
			TotalKm:    Round2(a.km),
			HighCost:   mean > models.HighCostCPK,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VehicleID != out[j].VehicleID {
			return out[i].VehicleID < out[j].VehicleID
		}
		return out[i].RouteLabel < out[j].RouteLabel
	})
	return out
}

// Scope narrows the ranking to one origin/destination pair.
type Scope struct {
	OriginCity      string
	DestinationCity string
}

func (s *Scope) applies() bool {
	return s != nil && s.OriginCity != "" && s.DestinationCity != ""
}

// RankEntry is the costliest trip of one vehicle.
type RankEntry struct {
	Rank            int     `json:"rank"`
	VehicleID       string  `json:"vehicle_id"`
	Row             int     `json:"row"`
	RouteLabel      string  `json:"route_label"`
	OriginCity      string  `json:"origin_city"`
	DestinationCity string  `json:"destination_city"`
	Km              float64 `json:"km"`
	TotalCost       float64 `json:"total_cost"`
	CPK             float64 `json:"cpk"`
	HighCost        bool    `json:"high_cost"`
}

// TopVehicles keeps the highest-CPK record of each vehicle and returns the
// n vehicles with the largest such value, CPK descending then vehicle
// ascending. Within a vehicle the earliest record wins a CPK tie. The scope
// is ignored unless both cities are set.
func TopVehicles(records []models.CostedRecord, scope *Scope, n int) []RankEntry {
	best := make(map[string]models.CostedRecord)
	for _, r := range records {
		if scope.applies() && (r.Record.OriginCity != scope.OriginCity || r.Record.DestinationCity != scope.DestinationCity) {
			continue
		}
		if cur, ok := best[r.Record.VehicleID]; !ok || r.CPK > cur.CPK {
			best[r.Record.VehicleID] = r
		}
	}

	ranked := make([]models.CostedRecord, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CPK != ranked[j].CPK {
			return ranked[i].CPK > ranked[j].CPK
		}
		return ranked[i].Record.VehicleID < ranked[j].Record.VehicleID
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]RankEntry, len(ranked))
	for i, r := range ranked {
		out[i] = RankEntry{
			Rank:            i + 1,
			VehicleID:       r.Record.VehicleID,
			Row:             r.Record.Row,
			RouteLabel:      r.Record.RouteLabel,
			OriginCity:      r.Record.OriginCity,
			DestinationCity: r.Record.DestinationCity,
			Km:              r.Km,
			TotalCost:       r.TotalCost,
			CPK:             r.CPK,
			HighCost:        r.HighCost(),
		}
	}
	return out
}

// RouteRow is one line of the route table shown next to the map.
type RouteRow struct {
	RouteLabel  string  `json:"route_label"`
	VehicleID   string  `json:"vehicle_id"`
	Km          float64 `json:"km"`
	Cargo       float64 `json:"cargo"`
	Tolls       float64 `json:"tolls"`
	Maintenance float64 `json:"maintenance"`
	TotalCost   float64 `json:"total_cost"`
	CPK         float64 `json:"cpk"`
	HighCost    bool    `json:"high_cost"`
}

// RouteTable returns the distinct route rows of records, sorted by CPK
// descending. Duplicates are detected on unrounded values and numbers are
// rounded to 2 decimals afterwards; the high-cost flag uses the raw CPK.
func RouteTable(records []models.CostedRecord) []RouteRow {
	type key struct {
		route, vehicle                      string
		km, cargo, tolls, maint, total, cpk float64
	}
	seen := make(map[key]struct{})
	var rows []models.CostedRecord
	for _, r := range records {
		k := key{r.Record.RouteLabel, r.Record.VehicleID, r.Km, r.Cargo, r.Tolls, r.Maintenance, r.TotalCost, r.CPK}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CPK > rows[j].CPK
	})

	out := make([]RouteRow, len(rows))
	for i, r := range rows {
		out[i] = RouteRow{
			RouteLabel:  r.Record.RouteLabel,
			VehicleID:   r.Record.VehicleID,
			Km:          Round2(r.Km),
			Cargo:       Round2(r.Cargo),
			Tolls:       Round2(r.Tolls),
			Maintenance: Round2(r.Maintenance),
			TotalCost:   Round2(r.TotalCost),
			CPK:         Round2(r.CPK),
			HighCost:    r.HighCost(),
		}
	}
	return out
}
