package filter

import (
	"sort"

	"tracto-cpk/internal/models"
)

// DefaultMaxRows bounds the filtered set handed to geo validation and aggregation.
const DefaultMaxRows = 2000

type Field string

const (
	FieldOriginState     Field = "origin_state"
	FieldOriginCity      Field = "origin_city"
	FieldDestinationCity Field = "destination_city"
	FieldVehicle         Field = "vehicle_id"
)

// Cascade is the order in which selections narrow the record set.
var Cascade = []Field{FieldOriginState, FieldOriginCity, FieldDestinationCity, FieldVehicle}

func (f Field) value(r models.RouteRecord) string {
	switch f {
	case FieldOriginState:
		return r.OriginState
	case FieldOriginCity:
		return r.OriginCity
	case FieldDestinationCity:
		return r.DestinationCity
	case FieldVehicle:
		return r.VehicleID
	default:
		return ""
	}
}

// Selection holds the chosen value per field. A nil field shows all records.
type Selection struct {
	OriginState     *string
	OriginCity      *string
	DestinationCity *string
	Vehicle         *string
}

// Only returns a selection value for v.
func Only(v string) *string {
	return &v
}

func (s Selection) get(f Field) *string {
	switch f {
	case FieldOriginState:
		return s.OriginState
	case FieldOriginCity:
		return s.OriginCity
	case FieldDestinationCity:
		return s.DestinationCity
	case FieldVehicle:
		return s.Vehicle
	default:
		return nil
	}
}

// Empty reports whether no field is selected.
func (s Selection) Empty() bool {
	for _, f := range Cascade {
		if s.get(f) != nil {
			return false
		}
	}
	return true
}

type predicate struct {
	field Field
	value string
}

func (p predicate) match(r models.RouteRecord) bool {
	return p.field.value(r) == p.value
}

// predicates returns the selected fields in cascade order.
func (s Selection) predicates() []predicate {
	var preds []predicate
	for _, f := range Cascade {
		if v := s.get(f); v != nil {
			preds = append(preds, predicate{field: f, value: *v})
		}
	}
	return preds
}

type Status string

const (
	StatusOK        Status = "ok"
	StatusNoMatch   Status = "no_match"
	StatusOversized Status = "oversized"
)

type Result struct {
	Records []models.CostedRecord
	Status  Status
	// EmptiedAt is the first field whose selection left no records (no_match only).
	EmptiedAt Field
	MaxRows   int
}

type Engine struct {
	MaxRows int
}

// NewEngine returns an engine with the given row ceiling; maxRows <= 0 disables it.
func NewEngine(maxRows int) *Engine {
	return &Engine{MaxRows: maxRows}
}

// Apply narrows records by sel. The input slice is never modified.
func (e *Engine) Apply(records []models.CostedRecord, sel Selection) Result {
	res := Result{Status: StatusOK, MaxRows: e.MaxRows}

	current := records
	for _, p := range sel.predicates() {
		current = keep(current, p)
		if len(current) == 0 && len(records) > 0 && res.EmptiedAt == "" {
			res.EmptiedAt = p.field
		}
	}
	res.Records = append([]models.CostedRecord{}, current...)

	switch {
	case res.EmptiedAt != "":
		res.Status = StatusNoMatch
	case e.MaxRows > 0 && len(res.Records) > e.MaxRows:
		res.Status = StatusOversized
	}
	return res
}

func keep(records []models.CostedRecord, p predicate) []models.CostedRecord {
	out := make([]models.CostedRecord, 0, len(records))
	for _, r := range records {
		if p.match(r.Record) {
			out = append(out, r)
		}
	}
	return out
}

// Choices lists the selectable values of each field. Each list is scoped
// by the selections of the fields before it in the cascade.
type Choices struct {
	OriginStates      []string `json:"origin_states"`
	OriginCities      []string `json:"origin_cities"`
	DestinationCities []string `json:"destination_cities"`
	Vehicles          []string `json:"vehicles"`
}

func Options(records []models.CostedRecord, sel Selection) Choices {
	lists := make(map[Field][]string, len(Cascade))
	current := records
	for _, f := range Cascade {
		lists[f] = distinct(current, f)
		if v := sel.get(f); v != nil {
			current = keep(current, predicate{field: f, value: *v})
		}
	}
	return Choices{
		OriginStates:      lists[FieldOriginState],
		OriginCities:      lists[FieldOriginCity],
		DestinationCities: lists[FieldDestinationCity],
		Vehicles:          lists[FieldVehicle],
	}
}

func distinct(records []models.CostedRecord, f Field) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, r := range records {
		v := f.value(r.Record)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
