// Command validate checks a gold feature table written by the file store.
// It verifies the table invariants, recomputes every derived column from the
// row itself, and optionally re-runs the transform over a raw directory and
// compares the result.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -gold-json data/out/gold_health_environment_features.json \
//	  -raw-dir data/mock \
//	  -region ny
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/adapter/file"
	"github.com/couchcryptid/health-environment-etl/internal/domain"
	"github.com/couchcryptid/health-environment-etl/internal/observability"
	"github.com/couchcryptid/health-environment-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	goldJSON := flag.String("gold-json", "", "path to the gold feature table JSON")
	rawDir := flag.String("raw-dir", "", "directory of raw_*.json files to recompute the table from (optional)")
	startDate := flag.String("start-date", domain.PipelineStartDate.Format(time.DateOnly), "earliest week the table may contain")
	lagMode := flag.String("lag-mode", string(domain.LagBySequence), "lag mode the table was built with: sequence or calendar")
	region := flag.String("region", "", "flu region the table was built for (FLU_REGION); empty uses every state row")
	flag.Parse()

	if *goldJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	start, err := time.Parse(time.DateOnly, *startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -start-date: %v\n", err)
		os.Exit(1)
	}
	mode, err := domain.ParseLagMode(*lagMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -lag-mode: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(*goldJSON, *rawDir, pipeline.Options{StartDate: start, LagMode: mode, Region: *region}))
}

func run(goldPath, rawDir string, opts pipeline.Options) int {
	fmt.Println("=== Gold Feature Table Validation ===")
	fmt.Println()

	rows, err := file.ReadFeatures(goldPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateInvariants(rows, opts.StartDate),
		validateDerivedColumns(rows),
	}
	if rawDir != "" {
		phases = append(phases, validateRecompute(rows, rawDir, opts))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	summary := domain.SummarizeFeatures(rows)
	if summary.Rows > 0 {
		fmt.Printf("Rows: %d, weeks %s to %s\n", summary.Rows,
			summary.FirstWeek.Format(time.DateOnly), summary.LastWeek.Format(time.DateOnly))
	} else {
		fmt.Println("Rows: 0")
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateInvariants runs the table-level checks: Monday keys, the date
// floor, strictly ascending unique weeks, and retained completeness only.
func validateInvariants(rows []domain.WeeklyFeatureRow, start time.Time) *phase {
	p := &phase{name: "Table invariants"}
	err := domain.ValidateFeatures(rows, start)
	if err == nil {
		return p
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			p.errorf("%v", e)
		}
		return p
	}
	p.errorf("%v", err)
	return p
}

// validateDerivedColumns recomputes the per-row derived columns.
func validateDerivedColumns(rows []domain.WeeklyFeatureRow) *phase {
	p := &phase{name: "Derived columns"}
	for i := range rows {
		r := &rows[i]
		wk := r.WeekStartDate.Format(time.DateOnly)

		if r.Year != r.WeekStartDate.Year() || r.Month != int(r.WeekStartDate.Month()) {
			p.errorf("%s: year/month %d-%02d do not match the week", wk, r.Year, r.Month)
		}
		if want := domain.QuarterOf(r.WeekStartDate.Month()); r.Quarter != want {
			p.errorf("%s: quarter %d, want %d", wk, r.Quarter, want)
		}
		if want := domain.SeasonOf(r.WeekStartDate.Month()); r.Season != want {
			p.errorf("%s: season %q, want %q", wk, r.Season, want)
		}
		if want := domain.CategorizePM25(r.PM25Avg); r.AirQualityCategory != want {
			p.errorf("%s: air_quality_category %q for pm25_avg %.2f, want %q", wk, r.AirQualityCategory, r.PM25Avg, want)
		}
		if r.PM25Min > r.PM25Avg || r.PM25Avg > r.PM25Max {
			p.errorf("%s: pm25 avg %.2f outside [%.2f, %.2f]", wk, r.PM25Avg, r.PM25Min, r.PM25Max)
		}
		if want := domain.IllnessRateStderr(r.IllnessRate, r.IllnessSampleSize); !ptrFloatEq(r.IllnessRateStderr, want) {
			p.errorf("%s: illness_rate_stderr %s, want %s", wk, ptrFloat(r.IllnessRateStderr), ptrFloat(want))
		}
		if r.TempMaxCelsius != nil && r.TempMinCelsius != nil {
			want := *r.TempMaxCelsius - *r.TempMinCelsius
			if r.TempRangeCelsius == nil || !floatEq(*r.TempRangeCelsius, want) {
				p.errorf("%s: temp_range_celsius %s, want %.4f", wk, ptrFloat(r.TempRangeCelsius), want)
			}
		}
		if r.DataCompleteness == domain.CompletenessComplete && r.WeatherDayCount < 5 {
			p.errorf("%s: COMPLETE with only %d weather days", wk, r.WeatherDayCount)
		}
	}
	return p
}

// validateRecompute re-runs the transform over rawDir into a scratch
// directory with the table's build options and diffs the result against the
// table under test.
func validateRecompute(rows []domain.WeeklyFeatureRow, rawDir string, opts pipeline.Options) *phase {
	p := &phase{name: "Recompute from raw"}

	out, err := os.MkdirTemp("", "validate-gold-*")
	if err != nil {
		p.errorf("create scratch dir: %v", err)
		return p
	}
	defer os.RemoveAll(out)

	logger := slog.New(slog.DiscardHandler)
	store := file.NewStore(rawDir, out, logger)
	opts.Clock = clockwork.NewFakeClock()
	pl := pipeline.New(store, opts, logger, observability.NewMetricsForTesting())

	if _, err := pl.Run(context.Background()); err != nil {
		p.errorf("transform: %v", err)
		return p
	}
	recomputed, err := file.ReadFeatures(file.GoldPath(out))
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	cmpOpts := cmp.Options{
		cmpopts.IgnoreFields(domain.WeeklyFeatureRow{}, "ProcessedAt"),
		cmpopts.EquateApprox(0, 1e-9),
	}
	if diff := cmp.Diff(recomputed, rows, cmpOpts); diff != "" {
		p.errorf("table differs from a fresh run (-recomputed +file):\n%s", diff)
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func ptrFloatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return floatEq(*a, *b)
}

func ptrFloat(f *float64) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%.4f", *f)
}
