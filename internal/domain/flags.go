package domain

// QualityFlag tags a silver row with the outcome of its validation checks.
type QualityFlag string

const (
	FlagValid         QualityFlag = "VALID"
	FlagNullValue     QualityFlag = "NULL_VALUE"
	FlagNegativeValue QualityFlag = "NEGATIVE_VALUE"
	FlagNegativeRate  QualityFlag = "NEGATIVE_RATE"
	FlagExtremeValue  QualityFlag = "EXTREME_VALUE"
	FlagLowSampleSize QualityFlag = "LOW_SAMPLE_SIZE"
	FlagMissingTemp   QualityFlag = "MISSING_TEMP"
	FlagInvalidTemp   QualityFlag = "INVALID_TEMP"
)

// Completeness classifies how much of a gold week's inputs were present.
type Completeness string

const (
	CompletenessComplete          Completeness = "COMPLETE"
	CompletenessIncompleteWeek    Completeness = "INCOMPLETE_WEEK"
	CompletenessMissingAirQuality Completeness = "MISSING_AIR_QUALITY"
	CompletenessMissingWeather    Completeness = "MISSING_WEATHER"
)

// Retained reports whether rows with this classification stay in the gold table.
func (c Completeness) Retained() bool {
	return c == CompletenessComplete || c == CompletenessIncompleteWeek
}

// AirQualityCategory is the EPA-style bucket for a weekly mean PM2.5.
type AirQualityCategory string

const (
	AirQualityGood                  AirQualityCategory = "Good"
	AirQualityModerate              AirQualityCategory = "Moderate"
	AirQualityUnhealthyForSensitive AirQualityCategory = "Unhealthy for Sensitive"
	AirQualityUnhealthy             AirQualityCategory = "Unhealthy"
	AirQualityVeryUnhealthy         AirQualityCategory = "Very Unhealthy"
	AirQualityHazardous             AirQualityCategory = "Hazardous"
)

// Season is the meteorological season of a week.
type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonFall   Season = "Fall"
)

// GeoTypeState marks state-level rows in the flu table; only these anchor the gold table.
const GeoTypeState = "state"
