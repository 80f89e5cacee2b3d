package calculator

import (
	"fmt"
	"math"
	"strings"

	"tracto-cpk/internal/models"
)

type Reason string

const (
	ReasonDistance    Reason = "missing or non-positive distance"
	ReasonMissingCost Reason = "missing cost component"
	ReasonNonFinite   Reason = "non-finite cpk"
)

// Exclusion is a record dropped before it could carry a CPK.
type Exclusion struct {
	Record models.RouteRecord `json:"record"`
	Reason Reason             `json:"reason"`
	Err    error              `json:"-"`
}

// MetricError reports a record whose distance is valid but which lacks
// one or more cost components.
type MetricError struct {
	Row       int
	VehicleID string
	Missing   []string
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("row %d (tracto %q): missing cost component %s",
		e.Row, e.VehicleID, strings.Join(e.Missing, ", "))
}

// CostPolicy decides what a MetricError does to the run.
type CostPolicy string

const (
	// PolicyReject drops the record and records it as an exclusion.
	PolicyReject CostPolicy = "reject"
	// PolicyFail aborts the computation with the MetricError.
	PolicyFail CostPolicy = "fail"
)

func ParseCostPolicy(s string) (CostPolicy, error) {
	switch p := CostPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyReject, PolicyFail:
		return p, nil
	case "":
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("invalid cost policy: %s", s)
	}
}

type Result struct {
	Records  []models.CostedRecord
	Excluded []Exclusion
}

// Count returns how many records were excluded for reason.
func (r Result) Count(reason Reason) int {
	n := 0
	for _, e := range r.Excluded {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

// Compute derives total cost and CPK for every usable record.
// Records with a missing, NaN, infinite or non-positive distance are excluded
// before any division; a non-finite total or CPK is excluded afterwards.
// The input is not modified.
func Compute(records []models.RouteRecord, policy CostPolicy) (Result, error) {
	res := Result{Records: make([]models.CostedRecord, 0, len(records))}

	for _, rec := range records {
		if rec.DistanceKm == nil || !(*rec.DistanceKm > 0) || math.IsInf(*rec.DistanceKm, 1) {
			res.Excluded = append(res.Excluded, Exclusion{Record: rec, Reason: ReasonDistance})
			continue
		}

		if missing := missingCosts(rec); len(missing) > 0 {
			err := &MetricError{Row: rec.Row, VehicleID: rec.VehicleID, Missing: missing}
			if policy == PolicyFail {
				return Result{}, err
			}
			res.Excluded = append(res.Excluded, Exclusion{Record: rec, Reason: ReasonMissingCost, Err: err})
			continue
		}

		km := *rec.DistanceKm
		total := *rec.CargoCost + *rec.TollCost + *rec.MaintenanceCost
		cpk := total / km
		if !finite(total) || !finite(cpk) {
			res.Excluded = append(res.Excluded, Exclusion{Record: rec, Reason: ReasonNonFinite})
			continue
		}

		res.Records = append(res.Records, models.CostedRecord{
			Record:      rec,
			Km:          km,
			Cargo:       *rec.CargoCost,
			Tolls:       *rec.TollCost,
			Maintenance: *rec.MaintenanceCost,
			TotalCost:   total,
			CPK:         cpk,
		})
	}
	return res, nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func missingCosts(rec models.RouteRecord) []string {
	var missing []string
	if rec.CargoCost == nil {
		missing = append(missing, models.ColCargoCost)
	}
	if rec.TollCost == nil {
		missing = append(missing, models.ColTollCost)
	}
	if rec.MaintenanceCost == nil {
		missing = append(missing, models.ColMaintenanceCost)
	}
	return missing
}
