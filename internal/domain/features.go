package domain

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
)

// minWeatherDays is the number of distinct weather days a week needs to be COMPLETE.
const minWeatherDays = 5

// rollingWindow is the number of weeks, current included, in each rolling mean.
const rollingWindow = 4

// LagMode selects how lag and rolling features treat weeks that are missing
// from the filtered, week-ordered feature table.
type LagMode string

const (
	// LagBySequence looks back N rows in the filtered table. A week dropped
	// from the middle of the series is skipped, so the "1-week lag" of the
	// row after a gap is the value from two calendar weeks earlier.
	LagBySequence LagMode = "sequence"

	// LagByCalendar looks back N calendar weeks and yields null when that
	// week is not in the table. Rolling windows cover the trailing four
	// calendar weeks and average whichever of them are present.
	LagByCalendar LagMode = "calendar"
)

// ParseLagMode validates a lag mode name. An empty string selects LagBySequence.
func ParseLagMode(s string) (LagMode, error) {
	switch LagMode(s) {
	case "", LagBySequence:
		return LagBySequence, nil
	case LagByCalendar:
		return LagByCalendar, nil
	default:
		return "", fmt.Errorf("unknown lag mode %q", s)
	}
}

// FeatureOptions configures BuildFeatures. Zero values select the defaults.
type FeatureOptions struct {
	StartDate   time.Time // weeks before this are dropped; defaults to PipelineStartDate
	LagMode     LagMode   // defaults to LagBySequence
	Region      string    // restricts the anchor to one flu region when set
	ProcessedAt time.Time // defaults to the package clock
}

// FeatureResult is the gold table plus bookkeeping about what was dropped.
type FeatureResult struct {
	Rows []WeeklyFeatureRow

	// Completeness tallies every anchor week before filtering.
	Completeness map[Completeness]int

	// BeforeStart counts otherwise retained weeks dropped by the start-date floor.
	BeforeStart int
}

// BuildFeatures joins the silver tables onto the state-level flu weeks and
// derives the calendar, lag, and rolling features. Rows are returned in
// ascending week order.
func BuildFeatures(flu []FluRecord, aq []AirQualityRecord, weather []WeatherRecord, opts FeatureOptions) (FeatureResult, error) {
	opts = withFeatureDefaults(opts)

	anchors, err := anchorWeeks(flu, opts.Region)
	if err != nil {
		return FeatureResult{}, err
	}

	aqWeeks := AggregateAirQuality(aq)
	wxWeeks := AggregateWeather(weather)

	res := FeatureResult{
		Rows:         make([]WeeklyFeatureRow, 0, len(anchors)),
		Completeness: make(map[Completeness]int),
	}

	for _, a := range anchors {
		wk := WeekStart(a.WeekStart)
		aqWeek, hasAQ := aqWeeks[wk]
		wxWeek, hasWX := wxWeeks[wk]

		completeness := classifyCompleteness(hasAQ, hasWX, wxWeek.DayCount)
		res.Completeness[completeness]++
		if !completeness.Retained() {
			continue
		}
		if wk.Before(opts.StartDate) {
			res.BeforeStart++
			continue
		}

		res.Rows = append(res.Rows, newFeatureRow(wk, a, aqWeek, wxWeek, completeness, opts.ProcessedAt))
	}

	applyTemporalFeatures(res.Rows, opts.LagMode)
	return res, nil
}

func withFeatureDefaults(opts FeatureOptions) FeatureOptions {
	if opts.StartDate.IsZero() {
		opts.StartDate = PipelineStartDate
	}
	opts.StartDate = dateOf(opts.StartDate)
	if opts.LagMode == "" {
		opts.LagMode = LagBySequence
	}
	if opts.ProcessedAt.IsZero() {
		opts.ProcessedAt = Now()
	}
	return opts
}

// anchorWeeks selects the state-level flu rows that define the output weeks,
// ordered by week. Two rows in the same week make the key ambiguous and are rejected.
func anchorWeeks(flu []FluRecord, region string) ([]FluRecord, error) {
	anchors := make([]FluRecord, 0, len(flu))
	for _, r := range flu {
		if r.GeoType != GeoTypeState {
			continue
		}
		if region != "" && r.Region != region {
			continue
		}
		anchors = append(anchors, r)
	}

	slices.SortStableFunc(anchors, func(a, b FluRecord) int {
		return cmp.Or(
			WeekStart(a.WeekStart).Compare(WeekStart(b.WeekStart)),
			cmp.Compare(a.Region, b.Region),
		)
	})

	for i := 1; i < len(anchors); i++ {
		prev, cur := anchors[i-1], anchors[i]
		if WeekStart(prev.WeekStart).Equal(WeekStart(cur.WeekStart)) {
			return nil, fmt.Errorf("%w: %s has rows for regions %q and %q",
				ErrDuplicateAnchorWeek, WeekStart(cur.WeekStart).Format(time.DateOnly), prev.Region, cur.Region)
		}
	}
	return anchors, nil
}

func classifyCompleteness(hasAQ, hasWeather bool, weatherDays int) Completeness {
	switch {
	case !hasAQ:
		return CompletenessMissingAirQuality
	case !hasWeather:
		return CompletenessMissingWeather
	case weatherDays < minWeatherDays:
		return CompletenessIncompleteWeek
	default:
		return CompletenessComplete
	}
}

func newFeatureRow(wk time.Time, flu FluRecord, aq AirQualityWeek, wx WeatherWeek, completeness Completeness, processedAt time.Time) WeeklyFeatureRow {
	row := WeeklyFeatureRow{
		WeekStartDate: wk,
		Epiweek:       flu.Epiweek,

		IllnessRate:        flu.IllnessRate,
		IllnessRateStderr:  flu.IllnessRateStderr,
		IllnessSampleSize:  flu.NumPatients,
		IllnessQualityFlag: flu.DataQualityFlag,

		PM25Avg:              aq.PM25Avg,
		PM25Stddev:           aq.PM25Stddev,
		PM25Min:              aq.PM25Min,
		PM25Max:              aq.PM25Max,
		PM25SensorCount:      aq.SensorCount,
		PM25MeasurementCount: aq.MeasurementCount,
		AirQualityCategory:   aq.Category,

		TempAvgCelsius:   wx.TempAvg,
		TempMaxCelsius:   wx.TempMax,
		TempMinCelsius:   wx.TempMin,
		TempStddev:       wx.TempStddev,
		WeatherCityCount: wx.CityCount,
		WeatherDayCount:  wx.DayCount,

		Year:    wk.Year(),
		Month:   int(wk.Month()),
		Quarter: QuarterOf(wk.Month()),
		Season:  SeasonOf(wk.Month()),

		DataCompleteness: completeness,
		ProcessedAt:      processedAt,
	}
	if wx.TempMax != nil && wx.TempMin != nil {
		row.TempRangeCelsius = ptr(*wx.TempMax - *wx.TempMin)
	}
	return row
}

// applyTemporalFeatures fills lag and rolling columns in place. rows must be
// in ascending week order.
func applyTemporalFeatures(rows []WeeklyFeatureRow, mode LagMode) {
	back := sequenceOffset
	if mode == LagByCalendar {
		back = calendarOffset(rows)
	}

	lag := func(i, k int, value func(WeeklyFeatureRow) float64) *float64 {
		j, ok := back(i, k)
		if !ok {
			return nil
		}
		return ptr(value(rows[j]))
	}

	rolling := func(i int, value func(WeeklyFeatureRow) float64) *float64 {
		var vs []float64
		for k := range rollingWindow {
			if j, ok := back(i, k); ok {
				vs = append(vs, value(rows[j]))
			}
		}
		return meanOrNil(vs)
	}

	illness := func(r WeeklyFeatureRow) float64 { return r.IllnessRate }
	pm25 := func(r WeeklyFeatureRow) float64 { return r.PM25Avg }
	temp := func(r WeeklyFeatureRow) float64 { return r.TempAvgCelsius }

	for i := range rows {
		rows[i].IllnessRateLag1W = lag(i, 1, illness)
		rows[i].IllnessRateLag2W = lag(i, 2, illness)
		rows[i].IllnessRateLag4W = lag(i, 4, illness)
		rows[i].PM25Lag1W = lag(i, 1, pm25)
		rows[i].TempLag1W = lag(i, 1, temp)

		rows[i].PM25Rolling4W = rolling(i, pm25)
		rows[i].TempRolling4W = rolling(i, temp)
		rows[i].IllnessRateRolling4W = rolling(i, illness)
	}
}

func sequenceOffset(i, k int) (int, bool) {
	j := i - k
	return j, j >= 0
}

func calendarOffset(rows []WeeklyFeatureRow) func(i, k int) (int, bool) {
	index := make(map[time.Time]int, len(rows))
	for i, r := range rows {
		index[r.WeekStartDate] = i
	}
	return func(i, k int) (int, bool) {
		j, ok := index[rows[i].WeekStartDate.AddDate(0, 0, -7*k)]
		return j, ok
	}
}

// ValidateFeatures checks the invariants of a finished gold table: unique
// Monday weeks in ascending order, none before start, and only retained
// completeness classes. All violations are reported together.
func ValidateFeatures(rows []WeeklyFeatureRow, start time.Time) error {
	if start.IsZero() {
		start = PipelineStartDate
	}
	start = dateOf(start)

	var errs []error
	for i, r := range rows {
		wk := r.WeekStartDate
		if wk.Weekday() != time.Monday {
			errs = append(errs, fmt.Errorf("row %d: week_start_date %s is a %s", i, wk.Format(time.DateOnly), wk.Weekday()))
		}
		if wk.Before(start) {
			errs = append(errs, fmt.Errorf("row %d: week_start_date %s precedes %s", i, wk.Format(time.DateOnly), start.Format(time.DateOnly)))
		}
		if !r.DataCompleteness.Retained() {
			errs = append(errs, fmt.Errorf("row %d: data_completeness %q should have been dropped", i, r.DataCompleteness))
		}
		if i > 0 && !rows[i-1].WeekStartDate.Before(wk) {
			errs = append(errs, fmt.Errorf("row %d: week_start_date %s is not after %s", i, wk.Format(time.DateOnly), rows[i-1].WeekStartDate.Format(time.DateOnly)))
		}
	}
	return errors.Join(errs...)
}
