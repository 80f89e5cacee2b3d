package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"tracto-cpk/internal/aggregate"
	"tracto-cpk/internal/calculator"
	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/geo"
	"tracto-cpk/internal/models"
)

type Options struct {
	MaxRows    int
	TopN       int
	CostPolicy calculator.CostPolicy
	Bounds     geo.Box
}

func DefaultOptions() Options {
	return Options{
		MaxRows:    filter.DefaultMaxRows,
		TopN:       aggregate.DefaultTopN,
		CostPolicy: calculator.PolicyReject,
		Bounds:     geo.Mexico,
	}
}

// Dataset is a loaded table after metric computation. It is read-only.
type Dataset struct {
	Loaded     int
	Records    []models.CostedRecord
	Exclusions []calculator.Exclusion
}

// Report carries every output of one query. When Status is not ok only the
// counts are set and no stage after the filter has run.
type Report struct {
	Status    filter.Status
	EmptiedAt filter.Field
	MaxRows   int

	Loaded     int
	Costed     int
	Exclusions []calculator.Exclusion
	Matched    int

	Filtered []models.CostedRecord
	Routes   []aggregate.RouteRow
	Geo      geo.Result
	Groups   []aggregate.GroupSummary
	Ranking  []aggregate.RankEntry
}

type Pipeline struct {
	opts      Options
	engine    *filter.Engine
	validator *geo.Validator
	log       *zap.Logger
}

func New(opts Options, log *zap.Logger) *Pipeline {
	return &Pipeline{
		opts:      opts,
		engine:    filter.NewEngine(opts.MaxRows),
		validator: geo.NewValidator(opts.Bounds),
		log:       log,
	}
}

func (p *Pipeline) Options() Options {
	return p.opts
}

// Prepare computes metrics once for a loaded table.
func (p *Pipeline) Prepare(records []models.RouteRecord) (*Dataset, error) {
	res, err := calculator.Compute(records, p.opts.CostPolicy)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}

	p.log.Info("metrics computed",
		zap.Int("loaded", len(records)),
		zap.Int("costed", len(res.Records)),
		zap.Int("excluded_distance", res.Count(calculator.ReasonDistance)),
		zap.Int("excluded_missing_cost", res.Count(calculator.ReasonMissingCost)),
		zap.Int("excluded_non_finite", res.Count(calculator.ReasonNonFinite)),
	)

	return &Dataset{
		Loaded:     len(records),
		Records:    res.Records,
		Exclusions: res.Excluded,
	}, nil
}

// Query runs filter, geo validation and aggregation over a prepared dataset.
func (p *Pipeline) Query(ds *Dataset, sel filter.Selection) *Report {
	filtered := p.engine.Apply(ds.Records, sel)

	report := &Report{
		Status:     filtered.Status,
		EmptiedAt:  filtered.EmptiedAt,
		MaxRows:    filtered.MaxRows,
		Loaded:     ds.Loaded,
		Costed:     len(ds.Records),
		Exclusions: ds.Exclusions,
		Matched:    len(filtered.Records),
	}

	switch filtered.Status {
	case filter.StatusNoMatch:
		p.log.Info("filters matched no records", zap.String("emptied_at", string(filtered.EmptiedAt)))
		return report
	case filter.StatusOversized:
		p.log.Warn("filtered set exceeds row ceiling",
			zap.Int("matched", report.Matched),
			zap.Int("max_rows", filtered.MaxRows),
		)
		return report
	}

	report.Filtered = filtered.Records
	report.Routes = aggregate.RouteTable(filtered.Records)
	report.Geo = p.validator.Validate(filtered.Records)
	report.Groups = aggregate.Summarize(filtered.Records)
	report.Ranking = aggregate.TopVehicles(ds.Records, scopeOf(sel), p.opts.TopN)

	p.log.Debug("query complete",
		zap.Int("matched", report.Matched),
		zap.Int("geo_valid", len(report.Geo.Valid)),
		zap.Int("discarded_missing_coordinates", report.Geo.Report.Count(geo.ReasonMissingCoordinates)),
		zap.Int("discarded_out_of_bounds", report.Geo.Report.Count(geo.ReasonOutOfBounds)),
		zap.Int("groups", len(report.Groups)),
	)
	return report
}

// Run prepares records and answers a single query.
func (p *Pipeline) Run(records []models.RouteRecord, sel filter.Selection) (*Report, error) {
	ds, err := p.Prepare(records)
	if err != nil {
		return nil, err
	}
	return p.Query(ds, sel), nil
}

// Rank answers the anomaly ranking alone, for any n.
func (p *Pipeline) Rank(ds *Dataset, sel filter.Selection, n int) []aggregate.RankEntry {
	return aggregate.TopVehicles(ds.Records, scopeOf(sel), n)
}

// ExclusionCounts groups the dataset's exclusions by reason.
func (ds *Dataset) ExclusionCounts() map[calculator.Reason]int {
	counts := map[calculator.Reason]int{}
	for _, e := range ds.Exclusions {
		counts[e.Reason]++
	}
	return counts
}

func scopeOf(sel filter.Selection) *aggregate.Scope {
	if sel.OriginCity == nil || sel.DestinationCity == nil {
		return nil
	}
	return &aggregate.Scope{OriginCity: *sel.OriginCity, DestinationCity: *sel.DestinationCity}
}
