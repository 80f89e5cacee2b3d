// Command cpkreport runs the CPK pipeline once over a route table and
// prints the route table, geo discards, group summary and ranking.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"tracto-cpk/internal/aggregate"
	"tracto-cpk/internal/calculator"
	"tracto-cpk/internal/excel"
	"tracto-cpk/internal/filter"
	"tracto-cpk/internal/geo"
	"tracto-cpk/internal/loader"
	"tracto-cpk/internal/logger"
	"tracto-cpk/internal/pipeline"
)

const (
	exitError    = 1
	exitNoOutput = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cpkreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "Base_final.xlsx", "route table (.xlsx, .xlsm or .csv)")
	sheet := fs.String("sheet", "", "workbook sheet (default: first sheet)")
	originState := fs.String("origin-state", "", "filter by Estado Origen")
	originCity := fs.String("origin-city", "", "filter by Ciudad Origen")
	destCity := fs.String("destination-city", "", "filter by Ciudad Destino")
	vehicle := fs.String("vehicle", "", "filter by Tracto")
	topN := fs.Int("top", aggregate.DefaultTopN, "vehicles in the CPK ranking")
	maxRows := fs.Int("max-rows", filter.DefaultMaxRows, "largest filtered set to process (0 disables)")
	policy := fs.String("cost-policy", string(calculator.PolicyReject), "missing cost component: reject or fail")
	xlsxOut := fs.String("xlsx", "", "also write the report workbook to this path")
	verbose := fs.Bool("v", false, "log pipeline stages to stderr")

	if err := fs.Parse(args); err != nil {
		return exitError
	}

	costPolicy, err := calculator.ParseCostPolicy(*policy)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	log := zap.NewNop()
	if *verbose {
		if log, err = logger.New("development", ""); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	}
	defer func() { _ = log.Sync() }()

	records, err := loader.ReadFile(*input, *sheet)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	p := pipeline.New(pipeline.Options{
		MaxRows:    *maxRows,
		TopN:       *topN,
		CostPolicy: costPolicy,
		Bounds:     geo.Mexico,
	}, log)

	sel := filter.Selection{}
	for _, f := range []struct {
		dst **string
		val string
	}{
		{&sel.OriginState, *originState},
		{&sel.OriginCity, *originCity},
		{&sel.DestinationCity, *destCity},
		{&sel.Vehicle, *vehicle},
	} {
		if f.val != "" {
			*f.dst = filter.Only(f.val)
		}
	}

	report, err := p.Run(records, sel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	switch report.Status {
	case filter.StatusNoMatch:
		fmt.Fprintf(stderr, "no route in the data matches the selected filters (nothing left after %s)\n", report.EmptiedAt)
		return exitNoOutput
	case filter.StatusOversized:
		fmt.Fprintf(stderr, "%d routes selected, more than the limit of %d: narrow the filters\n", report.Matched, report.MaxRows)
		return exitNoOutput
	}

	printReport(stdout, report)

	if *xlsxOut != "" {
		if err := excel.WriteReport(context.Background(), *xlsxOut, report, nil); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		fmt.Fprintf(stdout, "\nreport written to %s\n", *xlsxOut)
	}
	return 0
}

func mark(high bool) string {
	if high {
		return "!"
	}
	return ""
}

func printReport(out io.Writer, report *pipeline.Report) {
	fmt.Fprintf(out, "%d rows loaded, %d with CPK, %d excluded, %d matched\n",
		report.Loaded, report.Costed, len(report.Exclusions), report.Matched)

	fmt.Fprintln(out, "\nRoutes")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tTRACTO\tKM\tCARGO\tTOLLS\tMAINT\tTOTAL\tCPK\t")
	for _, r := range report.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			r.RouteLabel, r.VehicleID, r.Km, r.Cargo, r.Tolls, r.Maintenance, r.TotalCost, r.CPK, mark(r.HighCost))
	}
	tw.Flush()

	fmt.Fprintf(out, "\nMap: %d routes drawable, %d discarded (%d missing coordinates, %d out of geographic bounds)\n",
		len(report.Geo.Valid),
		report.Geo.Report.Total(),
		report.Geo.Report.Count(geo.ReasonMissingCoordinates),
		report.Geo.Report.Count(geo.ReasonOutOfBounds),
	)

	fmt.Fprintln(out, "\nSummary by tracto and route")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACTO\tROUTE\tTRIPS\tMEAN CPK\tKM\t")
	for _, g := range report.Groups {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%s\n", g.VehicleID, g.RouteLabel, g.Trips, g.MeanCPK, g.TotalKm, mark(g.HighCost))
	}
	tw.Flush()

	fmt.Fprintln(out, "\nHighest CPK by tracto")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTRACTO\tROUTE\tCPK\t")
	for _, e := range report.Ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", e.Rank, e.VehicleID, e.RouteLabel, e.CPK, mark(e.HighCost))
	}
	tw.Flush()
}
