package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"os"
	"testing"

	"github.com/couchcryptid/health-environment-etl/internal/adapter/file"
	"github.com/couchcryptid/health-environment-etl/internal/domain"
	"github.com/couchcryptid/health-environment-etl/internal/observability"
	"github.com/couchcryptid/health-environment-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockDir = "../../data/mock"

func defaultOptions() pipeline.Options {
	return pipeline.Options{StartDate: domain.PipelineStartDate, LagMode: domain.LagBySequence}
}

func goldFrom(t *testing.T, rawDir string, opts pipeline.Options) []domain.WeeklyFeatureRow {
	t.Helper()
	out := t.TempDir()
	logger := slog.New(slog.DiscardHandler)
	opts.Clock = clockwork.NewFakeClock()
	pl := pipeline.New(file.NewStore(rawDir, out, logger), opts, logger, observability.NewMetricsForTesting())
	_, err := pl.Run(context.Background())
	require.NoError(t, err)

	rows, err := file.ReadFeatures(file.GoldPath(out))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	return rows
}

func TestValidate_FreshTablePasses(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())

	for _, p := range []*phase{
		validateInvariants(rows, domain.PipelineStartDate),
		validateDerivedColumns(rows),
		validateRecompute(rows, mockDir, defaultOptions()),
	} {
		assert.True(t, p.passed(), "%s: %v", p.name, p.errors)
	}
}

func TestValidateInvariants_DuplicateWeek(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())
	rows[1].WeekStartDate = rows[0].WeekStartDate

	p := validateInvariants(rows, domain.PipelineStartDate)
	assert.False(t, p.passed())
}

func TestValidateInvariants_StartDateAfterFirstWeek(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())

	p := validateInvariants(rows, rows[1].WeekStartDate)
	assert.False(t, p.passed())
}

func TestValidateDerivedColumns_ReportsEachMismatch(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())
	rows[0].Season = domain.SeasonSummer
	rows[0].Quarter = 3
	rows[2].AirQualityCategory = domain.AirQualityHazardous

	p := validateDerivedColumns(rows)
	assert.Len(t, p.errors, 3)
}

func TestValidateRecompute_DetectsEditedValue(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())
	rows[3].IllnessRate += 1

	p := validateRecompute(rows, mockDir, defaultOptions())
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "differs from a fresh run")
}

func TestValidateRecompute_MissingRawDir(t *testing.T) {
	rows := goldFrom(t, mockDir, defaultOptions())

	p := validateRecompute(rows, t.TempDir(), defaultOptions())
	assert.False(t, p.passed())
}

// multiStateRawDir copies the mock tables and duplicates every ny flu row as
// a second state, so each week has two state-level anchors.
func multiStateRawDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, table := range []string{domain.TableRawAirQuality, domain.TableRawWeather} {
		data, err := os.ReadFile(file.RawPath(mockDir, table))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(file.RawPath(dir, table), data, 0o600))
	}

	data, err := os.ReadFile(file.RawPath(mockDir, domain.TableRawFlu))
	require.NoError(t, err)
	var flu []map[string]any
	require.NoError(t, json.Unmarshal(data, &flu))
	for _, row := range flu {
		if row["region"] != "ny" {
			continue
		}
		clone := maps.Clone(row)
		clone["region"] = "nj"
		flu = append(flu, clone)
	}
	data, err = json.Marshal(flu)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file.RawPath(dir, domain.TableRawFlu), data, 0o600))
	return dir
}

func TestValidateRecompute_RegionScopedTable(t *testing.T) {
	rawDir := multiStateRawDir(t)
	opts := defaultOptions()
	opts.Region = "ny"
	rows := goldFrom(t, rawDir, opts)

	p := validateRecompute(rows, rawDir, opts)
	assert.True(t, p.passed(), "%v", p.errors)

	p = validateRecompute(rows, rawDir, defaultOptions())
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "duplicate anchor week")
}
