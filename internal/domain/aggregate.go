package domain

import (
	"math"
	"time"
)

// AirQualityWeek summarises the silver air-quality rows of one Monday week.
type AirQualityWeek struct {
	WeekStart        time.Time
	PM25Avg          float64
	PM25Stddev       *float64
	PM25Min          float64
	PM25Max          float64
	SensorCount      int
	MeasurementCount int
	Category         AirQualityCategory
}

// WeatherWeek summarises the silver weather rows of one Monday week.
// TempMax and TempMin average the daily extremes and are nil when no row
// in the week reported them.
type WeatherWeek struct {
	WeekStart  time.Time
	TempAvg    float64
	TempMax    *float64
	TempMin    *float64
	TempStddev *float64
	CityCount  int
	DayCount   int
}

// AggregateAirQuality groups rows by the Monday week of their measurement date.
func AggregateAirQuality(rows []AirQualityRecord) map[time.Time]AirQualityWeek {
	values := make(map[time.Time][]float64)
	sensors := make(map[time.Time]map[int64]struct{})

	for _, r := range rows {
		wk := WeekStart(r.MeasurementDate)
		values[wk] = append(values[wk], r.PM25Value)
		if sensors[wk] == nil {
			sensors[wk] = make(map[int64]struct{})
		}
		sensors[wk][r.SensorID] = struct{}{}
	}

	out := make(map[time.Time]AirQualityWeek, len(values))
	for wk, vs := range values {
		avg := mean(vs)
		lo, hi := minMax(vs)
		out[wk] = AirQualityWeek{
			WeekStart:        wk,
			PM25Avg:          avg,
			PM25Stddev:       sampleStddev(vs),
			PM25Min:          lo,
			PM25Max:          hi,
			SensorCount:      len(sensors[wk]),
			MeasurementCount: len(vs),
			Category:         CategorizePM25(avg),
		}
	}
	return out
}

// AggregateWeather groups rows by the Monday week of their date. DayCount
// counts distinct calendar days, not rows.
func AggregateWeather(rows []WeatherRecord) map[time.Time]WeatherWeek {
	type acc struct {
		means  []float64
		maxes  []float64
		mins   []float64
		cities map[string]struct{}
		days   map[time.Time]struct{}
	}
	weeks := make(map[time.Time]*acc)

	for _, r := range rows {
		wk := WeekStart(r.Date)
		a := weeks[wk]
		if a == nil {
			a = &acc{cities: make(map[string]struct{}), days: make(map[time.Time]struct{})}
			weeks[wk] = a
		}
		a.means = append(a.means, r.TempMeanCelsius)
		if r.TempMaxCelsius != nil {
			a.maxes = append(a.maxes, *r.TempMaxCelsius)
		}
		if r.TempMinCelsius != nil {
			a.mins = append(a.mins, *r.TempMinCelsius)
		}
		a.cities[r.City] = struct{}{}
		a.days[dateOf(r.Date)] = struct{}{}
	}

	out := make(map[time.Time]WeatherWeek, len(weeks))
	for wk, a := range weeks {
		out[wk] = WeatherWeek{
			WeekStart:  wk,
			TempAvg:    mean(a.means),
			TempMax:    meanOrNil(a.maxes),
			TempMin:    meanOrNil(a.mins),
			TempStddev: sampleStddev(a.means),
			CityCount:  len(a.cities),
			DayCount:   len(a.days),
		}
	}
	return out
}

// CategorizePM25 buckets a weekly mean PM2.5 concentration (µg/m³).
func CategorizePM25(avg float64) AirQualityCategory {
	switch {
	case avg <= 12.0:
		return AirQualityGood
	case avg <= 35.4:
		return AirQualityModerate
	case avg <= 55.4:
		return AirQualityUnhealthyForSensitive
	case avg <= 150.4:
		return AirQualityUnhealthy
	case avg <= 250.4:
		return AirQualityVeryUnhealthy
	default:
		return AirQualityHazardous
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func meanOrNil(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	return ptr(mean(vs))
}

// sampleStddev is the n-1 standard deviation; nil for fewer than two values.
func sampleStddev(vs []float64) *float64 {
	if len(vs) < 2 {
		return nil
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return ptr(math.Sqrt(ss / float64(len(vs)-1)))
}

func minMax(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
