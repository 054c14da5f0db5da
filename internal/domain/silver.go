package domain

import (
	"cmp"
	"math"
	"slices"
	"time"
)

const (
	// maxPM25Value is the top of the EPA AQI scale; anything above it is a sensor fault.
	maxPM25Value = 500.0

	// Sanity bounds for daily mean temperature in the monitored region.
	minTempCelsius = -50.0
	maxTempCelsius = 60.0

	// minFluSampleSize is the patient count below which a weekly rate is flagged LOW_SAMPLE_SIZE.
	minFluSampleSize = 100
)

// CleanResult holds the rows a silver cleaner kept along with a tally of
// every input row by the flag it was assigned.
type CleanResult[T any] struct {
	Rows  []T
	Flags map[QualityFlag]int
}

// Input returns the number of raw rows the cleaner examined.
func (r CleanResult[T]) Input() int {
	n := 0
	for _, c := range r.Flags {
		n += c
	}
	return n
}

// Dropped returns the number of raw rows excluded from the silver table.
func (r CleanResult[T]) Dropped() int {
	return r.Input() - len(r.Rows)
}

// CleanAirQuality flags raw PM2.5 rows and keeps only VALID rows with a
// measurement date. Values are assumed to already be in µg/m³.
func CleanAirQuality(raw []RawAirQuality, processedAt time.Time) CleanResult[AirQualityRecord] {
	res := CleanResult[AirQualityRecord]{
		Rows:  make([]AirQualityRecord, 0, len(raw)),
		Flags: make(map[QualityFlag]int),
	}

	for _, r := range raw {
		flag := flagAirQuality(r.Value)
		res.Flags[flag]++
		if flag != FlagValid || r.DateUTC == nil {
			continue
		}
		res.Rows = append(res.Rows, AirQualityRecord{
			LocationID:           r.LocationID,
			SensorID:             r.SensorID,
			MeasurementTimestamp: r.DateUTC.UTC(),
			MeasurementDate:      dateOf(*r.DateUTC),
			Latitude:             r.Latitude,
			Longitude:            r.Longitude,
			PM25Value:            *r.Value,
			Unit:                 r.Units,
			Parameter:            r.Parameter,
			DataQualityFlag:      flag,
			ProcessedAt:          processedAt,
		})
	}

	slices.SortStableFunc(res.Rows, func(a, b AirQualityRecord) int {
		return cmp.Or(
			cmp.Compare(a.SensorID, b.SensorID),
			a.MeasurementTimestamp.Compare(b.MeasurementTimestamp),
		)
	})
	return res
}

func flagAirQuality(value *float64) QualityFlag {
	switch {
	case value == nil:
		return FlagNullValue
	case *value < 0:
		return FlagNegativeValue
	case *value > maxPM25Value:
		return FlagExtremeValue
	default:
		return FlagValid
	}
}

// CleanWeather flags raw daily temperature rows and keeps only VALID rows
// with a date. Temperatures are assumed to already be in Celsius.
func CleanWeather(raw []RawWeather, processedAt time.Time) CleanResult[WeatherRecord] {
	res := CleanResult[WeatherRecord]{
		Rows:  make([]WeatherRecord, 0, len(raw)),
		Flags: make(map[QualityFlag]int),
	}

	for _, r := range raw {
		flag := flagWeather(r.TempMean)
		res.Flags[flag]++
		if flag != FlagValid || r.Date == nil {
			continue
		}
		res.Rows = append(res.Rows, WeatherRecord{
			Date:            dateOf(*r.Date),
			City:            r.RegionLabel,
			Latitude:        r.Lat,
			Longitude:       r.Lon,
			TempMaxCelsius:  r.TempMax,
			TempMinCelsius:  r.TempMin,
			TempMeanCelsius: *r.TempMean,
			DataQualityFlag: flag,
			ProcessedAt:     processedAt,
		})
	}

	slices.SortStableFunc(res.Rows, func(a, b WeatherRecord) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.City, b.City),
		)
	})
	return res
}

func flagWeather(tempMean *float64) QualityFlag {
	switch {
	case tempMean == nil:
		return FlagMissingTemp
	case *tempMean < minTempCelsius || *tempMean > maxTempCelsius:
		return FlagInvalidTemp
	default:
		return FlagValid
	}
}

// CleanFlu flags raw weekly illness rows, keeps VALID and LOW_SAMPLE_SIZE
// rows with a week start, and attaches the rate's standard error.
func CleanFlu(raw []RawFlu, processedAt time.Time) CleanResult[FluRecord] {
	res := CleanResult[FluRecord]{
		Rows:  make([]FluRecord, 0, len(raw)),
		Flags: make(map[QualityFlag]int),
	}

	for _, r := range raw {
		flag := flagFlu(r.WILI, r.NumPatients)
		res.Flags[flag]++
		if (flag != FlagValid && flag != FlagLowSampleSize) || r.WeekStart == nil {
			continue
		}
		res.Rows = append(res.Rows, FluRecord{
			Epiweek:           r.Epiweek,
			WeekStart:         dateOf(*r.WeekStart),
			Region:            r.Region,
			GeoType:           r.GeoType,
			IllnessRate:       *r.WILI,
			ILI:               r.ILI,
			NumILI:            r.NumILI,
			NumPatients:       r.NumPatients,
			IllnessRateStderr: IllnessRateStderr(*r.WILI, r.NumPatients),
			DataQualityFlag:   flag,
			ProcessedAt:       processedAt,
		})
	}

	slices.SortStableFunc(res.Rows, func(a, b FluRecord) int {
		return cmp.Or(
			a.WeekStart.Compare(b.WeekStart),
			cmp.Compare(a.Region, b.Region),
			cmp.Compare(a.GeoType, b.GeoType),
		)
	})
	return res
}

// flagFlu applies the checks in priority order. A missing patient count
// never marks a row as low sample.
func flagFlu(rate *float64, patients *int64) QualityFlag {
	switch {
	case rate == nil:
		return FlagNullValue
	case *rate < 0:
		return FlagNegativeRate
	case patients != nil && *patients < minFluSampleSize:
		return FlagLowSampleSize
	default:
		return FlagValid
	}
}

// IllnessRateStderr returns the binomial standard error of a percentage-scale
// rate: sqrt(rate * (100 - rate) / patients). It is nil without a positive
// patient count, and for rates above 100 where the variance goes negative.
func IllnessRateStderr(rate float64, patients *int64) *float64 {
	if patients == nil || *patients <= 0 {
		return nil
	}
	variance := rate * (100 - rate) / float64(*patients)
	if variance < 0 {
		return nil
	}
	return ptr(math.Sqrt(variance))
}

func ptr[T any](v T) *T {
	return &v
}
