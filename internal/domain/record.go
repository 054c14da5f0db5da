package domain

import "time"

// RawAirQuality is one OpenAQ sensor-day row as appended by the ingestion job.
type RawAirQuality struct {
	LocationID *int64     `json:"location_id" db:"location_id"`
	SensorID   int64      `json:"sensor_id" db:"sensor_id"`
	DateUTC    *time.Time `json:"date_utc" db:"date_utc"`
	Latitude   *float64   `json:"latitude" db:"latitude"`
	Longitude  *float64   `json:"longitude" db:"longitude"`
	Value      *float64   `json:"value" db:"value"`
	Units      *string    `json:"units" db:"units"`
	Parameter  *string    `json:"parameter" db:"parameter"`
}

// RawWeather is one daily temperature row for a single city.
type RawWeather struct {
	Date        *time.Time `json:"date" db:"date"`
	RegionLabel string     `json:"region_label" db:"region_label"`
	Lat         *float64   `json:"lat" db:"lat"`
	Lon         *float64   `json:"lon" db:"lon"`
	TempMax     *float64   `json:"temp_max" db:"temp_max"`
	TempMin     *float64   `json:"temp_min" db:"temp_min"`
	TempMean    *float64   `json:"temp_mean" db:"temp_mean"`
}

// RawFlu is one ILINet row for a region and epidemiological week.
// WILI is the weighted ILI percentage used as the illness rate.
type RawFlu struct {
	Epiweek     int        `json:"epiweek" db:"epiweek"`
	WeekStart   *time.Time `json:"week_start" db:"week_start"`
	Region      string     `json:"region" db:"region"`
	GeoType     string     `json:"geo_type" db:"geo_type"`
	WILI        *float64   `json:"wili" db:"wili"`
	ILI         *float64   `json:"ili" db:"ili"`
	NumILI      *int64     `json:"num_ili" db:"num_ili"`
	NumPatients *int64     `json:"num_patients" db:"num_patients"`
}

// AirQualityRecord is a validated PM2.5 measurement (silver.air_quality_clean).
type AirQualityRecord struct {
	LocationID           *int64      `json:"location_id" db:"location_id"`
	SensorID             int64       `json:"sensor_id" db:"sensor_id"`
	MeasurementTimestamp time.Time   `json:"measurement_timestamp" db:"measurement_timestamp"`
	MeasurementDate      time.Time   `json:"measurement_date" db:"measurement_date"`
	Latitude             *float64    `json:"latitude" db:"latitude"`
	Longitude            *float64    `json:"longitude" db:"longitude"`
	PM25Value            float64     `json:"pm25_value" db:"pm25_value"`
	Unit                 *string     `json:"unit" db:"unit"`
	Parameter            *string     `json:"parameter" db:"parameter"`
	DataQualityFlag      QualityFlag `json:"data_quality_flag" db:"data_quality_flag"`
	ProcessedAt          time.Time   `json:"processed_at" db:"processed_at"`
}

// WeatherRecord is a validated daily city temperature (silver.weather_clean).
type WeatherRecord struct {
	Date            time.Time   `json:"date" db:"date"`
	City            string      `json:"city" db:"city"`
	Latitude        *float64    `json:"latitude" db:"latitude"`
	Longitude       *float64    `json:"longitude" db:"longitude"`
	TempMaxCelsius  *float64    `json:"temp_max_celsius" db:"temp_max_celsius"`
	TempMinCelsius  *float64    `json:"temp_min_celsius" db:"temp_min_celsius"`
	TempMeanCelsius float64     `json:"temp_mean_celsius" db:"temp_mean_celsius"`
	DataQualityFlag QualityFlag `json:"data_quality_flag" db:"data_quality_flag"`
	ProcessedAt     time.Time   `json:"processed_at" db:"processed_at"`
}

// FluRecord is a validated weekly illness rate (silver.flu_clean).
type FluRecord struct {
	Epiweek           int         `json:"epiweek" db:"epiweek"`
	WeekStart         time.Time   `json:"week_start" db:"week_start"`
	Region            string      `json:"region" db:"region"`
	GeoType           string      `json:"geo_type" db:"geo_type"`
	IllnessRate       float64     `json:"illness_rate" db:"illness_rate"`
	ILI               *float64    `json:"ili" db:"ili"`
	NumILI            *int64      `json:"num_ili" db:"num_ili"`
	NumPatients       *int64      `json:"num_patients" db:"num_patients"`
	IllnessRateStderr *float64    `json:"illness_rate_stderr" db:"illness_rate_stderr"`
	DataQualityFlag   QualityFlag `json:"data_quality_flag" db:"data_quality_flag"`
	ProcessedAt       time.Time   `json:"processed_at" db:"processed_at"`
}

// WeeklyFeatureRow is one Monday-anchored week of the ML-ready feature table
// (gold.health_environment_features).
type WeeklyFeatureRow struct {
	WeekStartDate time.Time `json:"week_start_date" db:"week_start_date"`
	Epiweek       int       `json:"epiweek" db:"epiweek"`

	// Target.
	IllnessRate        float64     `json:"illness_rate" db:"illness_rate"`
	IllnessRateStderr  *float64    `json:"illness_rate_stderr" db:"illness_rate_stderr"`
	IllnessSampleSize  *int64      `json:"illness_sample_size" db:"illness_sample_size"`
	IllnessQualityFlag QualityFlag `json:"illness_quality_flag" db:"illness_quality_flag"`

	// Air quality.
	PM25Avg              float64            `json:"pm25_avg" db:"pm25_avg"`
	PM25Stddev           *float64           `json:"pm25_stddev" db:"pm25_stddev"`
	PM25Min              float64            `json:"pm25_min" db:"pm25_min"`
	PM25Max              float64            `json:"pm25_max" db:"pm25_max"`
	PM25SensorCount      int                `json:"pm25_sensor_count" db:"pm25_sensor_count"`
	PM25MeasurementCount int                `json:"pm25_measurement_count" db:"pm25_measurement_count"`
	AirQualityCategory   AirQualityCategory `json:"air_quality_category" db:"air_quality_category"`

	// Weather.
	TempAvgCelsius       float64  `json:"temp_avg_celsius" db:"temp_avg_celsius"`
	TempMaxCelsius       *float64 `json:"temp_max_celsius" db:"temp_max_celsius"`
	TempMinCelsius       *float64 `json:"temp_min_celsius" db:"temp_min_celsius"`
	TempStddev           *float64 `json:"temp_stddev" db:"temp_stddev"`
	WeatherCityCount     int      `json:"weather_city_count" db:"weather_city_count"`
	WeatherDayCount      int      `json:"weather_day_count" db:"weather_day_count"`
	PrecipitationTotalMM *float64 `json:"precipitation_total_mm" db:"precipitation_total_mm"` // upstream has no precipitation yet
	PrecipitationAvgMM   *float64 `json:"precipitation_avg_mm" db:"precipitation_avg_mm"`

	// Derived.
	TempRangeCelsius *float64 `json:"temp_range_celsius" db:"temp_range_celsius"`
	Year             int      `json:"year" db:"year"`
	Month            int      `json:"month" db:"month"`
	Quarter          int      `json:"quarter" db:"quarter"`
	Season           Season   `json:"season" db:"season"`

	// Lags.
	IllnessRateLag1W *float64 `json:"illness_rate_lag_1w" db:"illness_rate_lag_1w"`
	IllnessRateLag2W *float64 `json:"illness_rate_lag_2w" db:"illness_rate_lag_2w"`
	IllnessRateLag4W *float64 `json:"illness_rate_lag_4w" db:"illness_rate_lag_4w"`
	PM25Lag1W        *float64 `json:"pm25_lag_1w" db:"pm25_lag_1w"`
	TempLag1W        *float64 `json:"temp_lag_1w" db:"temp_lag_1w"`

	// Rolling 4-week trailing means.
	PM25Rolling4W        *float64 `json:"pm25_rolling_4w" db:"pm25_rolling_4w"`
	TempRolling4W        *float64 `json:"temp_rolling_4w" db:"temp_rolling_4w"`
	IllnessRateRolling4W *float64 `json:"illness_rate_rolling_4w" db:"illness_rate_rolling_4w"`

	DataCompleteness Completeness `json:"data_completeness" db:"data_completeness"`
	ProcessedAt      time.Time    `json:"processed_at" db:"processed_at"`
}
