package domain

// Table names, unqualified. Stores add their own schema or file prefix.
const (
	TableRawAirQuality = "air_quality"
	TableRawWeather    = "weather_daily"
	TableRawFlu        = "flu_weekly"

	TableAirQuality = "air_quality_clean"
	TableWeather    = "weather_clean"
	TableFlu        = "flu_clean"

	TableFeatures = "health_environment_features"
)

// Columns every raw table must carry. Values may be null; a missing column
// is a SchemaError.
var (
	RawAirQualityColumns = []string{"location_id", "sensor_id", "date_utc", "latitude", "longitude", "value", "units", "parameter"}
	RawWeatherColumns    = []string{"date", "region_label", "lat", "lon", "temp_max", "temp_min", "temp_mean"}
	RawFluColumns        = []string{"epiweek", "week_start", "region", "geo_type", "wili", "ili", "num_ili", "num_patients"}
)
