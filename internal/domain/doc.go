// Package domain models the public-health and environment datasets that feed
// the weekly feature table, and the pure functions that clean and join them.
//
// # Data Sources
//
// Three raw tables are appended to by ingestion jobs that live outside this
// service:
//
//	raw.air_quality    OpenAQ daily PM2.5 sensor averages (µg/m³)
//	raw.weather_daily  Open-Meteo daily temperatures per city (°C)
//	raw.flu_weekly     Delphi/CDC ILINet weighted ILI rates per region and epiweek
//
// Raw rows are immutable once appended. Every run recomputes the silver and
// gold tables from the full raw contents; nothing is carried between runs.
//
// # Silver Layer
//
// Each source is flagged and filtered independently:
//
//	Air quality: NULL_VALUE | NEGATIVE_VALUE | EXTREME_VALUE (> 500) | VALID
//	             only VALID rows survive.
//	Weather:     MISSING_TEMP | INVALID_TEMP (outside [-50, 60] °C) | VALID
//	             only VALID rows survive.
//	Flu:         NULL_VALUE | NEGATIVE_RATE | LOW_SAMPLE_SIZE (< 100 patients) | VALID
//	             VALID and LOW_SAMPLE_SIZE rows survive.
//
// The flu standard error is the binomial approximation on a percentage-scale
// rate: sqrt(rate * (100 - rate) / patients).
//
// # Gold Layer
//
// Weeks are Monday-anchored everywhere. The state-level flu series is the
// anchor: each flu week yields at most one feature row, left-joined against
// weekly air-quality and weather aggregates. Weeks without air quality or
// weather are dropped, weeks with fewer than five weather days are kept as
// INCOMPLETE_WEEK, and weeks before the pipeline start date are discarded.
//
// Air quality categories follow the EPA PM2.5 breakpoints:
//
//	<= 12.0 Good | <= 35.4 Moderate | <= 55.4 Unhealthy for Sensitive |
//	<= 150.4 Unhealthy | <= 250.4 Very Unhealthy | else Hazardous
//
// Lag and rolling features are computed over the filtered, week-ordered rows.
// See [LagMode] for the two supported gap semantics.
package domain
