package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateAirQuality(t *testing.T) {
	monday := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	rows := []AirQualityRecord{
		{SensorID: 1, MeasurementDate: monday, PM25Value: 10},
		{SensorID: 1, MeasurementDate: monday.AddDate(0, 0, 3), PM25Value: 20},
		{SensorID: 2, MeasurementDate: monday.AddDate(0, 0, 6), PM25Value: 30},
		{SensorID: 2, MeasurementDate: monday.AddDate(0, 0, 7), PM25Value: 4},
	}

	weeks := AggregateAirQuality(rows)
	require.Len(t, weeks, 2)

	first := weeks[monday]
	assert.Equal(t, monday, first.WeekStart)
	assert.InDelta(t, 20.0, first.PM25Avg, 1e-9)
	require.NotNil(t, first.PM25Stddev)
	assert.InDelta(t, 10.0, *first.PM25Stddev, 1e-9)
	assert.Equal(t, 10.0, first.PM25Min)
	assert.Equal(t, 30.0, first.PM25Max)
	assert.Equal(t, 2, first.SensorCount)
	assert.Equal(t, 3, first.MeasurementCount)
	assert.Equal(t, AirQualityModerate, first.Category)

	second := weeks[monday.AddDate(0, 0, 7)]
	assert.Nil(t, second.PM25Stddev, "single measurement has no sample stddev")
	assert.Equal(t, 1, second.SensorCount)
	assert.Equal(t, AirQualityGood, second.Category)
}

func TestAggregateWeather(t *testing.T) {
	monday := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	wednesday := monday.AddDate(0, 0, 2)
	rows := []WeatherRecord{
		{Date: monday, City: "Albany", TempMeanCelsius: 1, TempMaxCelsius: f64(5), TempMinCelsius: f64(-2)},
		{Date: monday, City: "Buffalo", TempMeanCelsius: 3},
		{Date: wednesday, City: "Albany", TempMeanCelsius: 5, TempMaxCelsius: f64(9), TempMinCelsius: f64(1)},
	}

	weeks := AggregateWeather(rows)
	require.Len(t, weeks, 1)

	wk, ok := weeks[monday]
	require.True(t, ok, "wednesday rows belong to the monday of the same week")
	assert.InDelta(t, 3.0, wk.TempAvg, 1e-9)
	require.NotNil(t, wk.TempMax)
	assert.InDelta(t, 7.0, *wk.TempMax, 1e-9)
	require.NotNil(t, wk.TempMin)
	assert.InDelta(t, -0.5, *wk.TempMin, 1e-9)
	require.NotNil(t, wk.TempStddev)
	assert.InDelta(t, 2.0, *wk.TempStddev, 1e-9)
	assert.Equal(t, 2, wk.CityCount)
	assert.Equal(t, 2, wk.DayCount)
}

func TestAggregateWeather_NoExtremes(t *testing.T) {
	monday := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	weeks := AggregateWeather([]WeatherRecord{{Date: monday, City: "Albany", TempMeanCelsius: 1}})
	assert.Nil(t, weeks[monday].TempMax)
	assert.Nil(t, weeks[monday].TempMin)
}

func TestCategorizePM25(t *testing.T) {
	tests := []struct {
		avg  float64
		want AirQualityCategory
	}{
		{0, AirQualityGood},
		{12.0, AirQualityGood},
		{12.1, AirQualityModerate},
		{35.4, AirQualityModerate},
		{35.5, AirQualityUnhealthyForSensitive},
		{55.4, AirQualityUnhealthyForSensitive},
		{55.5, AirQualityUnhealthy},
		{150.4, AirQualityUnhealthy},
		{150.5, AirQualityVeryUnhealthy},
		{250.4, AirQualityVeryUnhealthy},
		{250.5, AirQualityHazardous},
		{500, AirQualityHazardous},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizePM25(tt.avg), "avg=%v", tt.avg)
	}
}
