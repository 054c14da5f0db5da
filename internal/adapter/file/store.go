// Package file stores the raw, silver, and gold tables as JSON arrays on
// local disk. It backs local runs and the checked-in fixtures.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/domain"
)

// Store reads raw_<table>.json files from one directory and writes
// silver_<table>.json and gold_<table>.json files to another.
type Store struct {
	dataDir   string
	outputDir string
	logger    *slog.Logger
}

// NewStore creates a Store. Output files are written to outputDir, which is
// created on first write.
func NewStore(dataDir, outputDir string, logger *slog.Logger) *Store {
	return &Store{dataDir: dataDir, outputDir: outputDir, logger: logger}
}

func (s *Store) ReadAirQuality(ctx context.Context) ([]domain.RawAirQuality, error) {
	return readRaw[domain.RawAirQuality](ctx, s.dataDir, domain.TableRawAirQuality, domain.RawAirQualityColumns)
}

func (s *Store) ReadWeather(ctx context.Context) ([]domain.RawWeather, error) {
	return readRaw[domain.RawWeather](ctx, s.dataDir, domain.TableRawWeather, domain.RawWeatherColumns)
}

func (s *Store) ReadFlu(ctx context.Context) ([]domain.RawFlu, error) {
	return readRaw[domain.RawFlu](ctx, s.dataDir, domain.TableRawFlu, domain.RawFluColumns)
}

func (s *Store) ReplaceAirQuality(ctx context.Context, rows []domain.AirQualityRecord) error {
	return s.replace(ctx, SilverPath(s.outputDir, domain.TableAirQuality), rows)
}

func (s *Store) ReplaceWeather(ctx context.Context, rows []domain.WeatherRecord) error {
	return s.replace(ctx, SilverPath(s.outputDir, domain.TableWeather), rows)
}

func (s *Store) ReplaceFlu(ctx context.Context, rows []domain.FluRecord) error {
	return s.replace(ctx, SilverPath(s.outputDir, domain.TableFlu), rows)
}

func (s *Store) ReplaceFeatures(ctx context.Context, rows []domain.WeeklyFeatureRow) error {
	return s.replace(ctx, GoldPath(s.outputDir), rows)
}

// SummarizeFeatures reads the gold file back and describes it.
func (s *Store) SummarizeFeatures(_ context.Context) (domain.FeatureSummary, error) {
	rows, err := ReadFeatures(GoldPath(s.outputDir))
	if err != nil {
		return domain.FeatureSummary{}, err
	}
	return domain.SummarizeFeatures(rows), nil
}

// RawPath returns the location of a raw table file.
func RawPath(dir, table string) string {
	return filepath.Join(dir, "raw_"+table+".json")
}

// SilverPath returns the location of a silver table file.
func SilverPath(dir, table string) string {
	return filepath.Join(dir, "silver_"+table+".json")
}

// GoldPath returns the location of the gold feature table file.
func GoldPath(dir string) string {
	return filepath.Join(dir, "gold_"+domain.TableFeatures+".json")
}

// ReadFeatures decodes a gold feature table file.
func ReadFeatures(path string) ([]domain.WeeklyFeatureRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gold table: %w", err)
	}
	var rows []domain.WeeklyFeatureRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode gold table %s: %w", path, err)
	}
	return rows, nil
}

// rawDateColumns lists the date and timestamp columns of each raw table.
// They accept RFC 3339 timestamps or bare YYYY-MM-DD dates (midnight UTC).
var rawDateColumns = map[string][]string{
	domain.TableRawAirQuality: {"date_utc"},
	domain.TableRawWeather:    {"date"},
	domain.TableRawFlu:        {"week_start"},
}

// readRaw decodes a raw table file after checking every row carries the
// required columns. Nulls are allowed; absent keys are not.
func readRaw[T any](ctx context.Context, dir, table string, columns []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qualified := "raw." + table

	data, err := os.ReadFile(RawPath(dir, table))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.SchemaError{Table: qualified, Reason: "table not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", qualified, err)
	}

	var generic []map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &domain.SchemaError{Table: qualified, Reason: "not a JSON array of objects: " + err.Error()}
	}
	widened := false
	for i, row := range generic {
		for _, c := range columns {
			if _, ok := row[c]; !ok {
				return nil, &domain.SchemaError{Table: qualified, Column: c, Reason: fmt.Sprintf("missing from row %d", i)}
			}
		}
		for _, c := range rawDateColumns[table] {
			if v, ok := widenDate(row[c]); ok {
				row[c] = v
				widened = true
			}
		}
	}
	if widened {
		if data, err = json.Marshal(generic); err != nil {
			return nil, fmt.Errorf("re-encode %s: %w", qualified, err)
		}
	}

	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &domain.SchemaError{Table: qualified, Column: typeErr.Field, Reason: "cannot decode " + typeErr.Value + " into " + typeErr.Type.String()}
		}
		return nil, &domain.SchemaError{Table: qualified, Reason: err.Error()}
	}
	return rows, nil
}

// widenDate rewrites a JSON "YYYY-MM-DD" string as an RFC 3339 timestamp at
// midnight UTC. Anything else is left for the decoder.
func widenDate(raw json.RawMessage) (json.RawMessage, bool) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, false
	}
	d, err := time.Parse(time.DateOnly, str)
	if err != nil {
		return nil, false
	}
	out, err := json.Marshal(d)
	if err != nil {
		return nil, false
	}
	return out, true
}

// replace atomically swaps the file at path for the JSON encoding of rows.
func (s *Store) replace(ctx context.Context, path string, rows any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	s.logger.Debug("table file replaced", "path", path)
	return nil
}
