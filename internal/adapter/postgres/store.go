// Package postgres is the warehouse table store: it reads the raw tables and
// replaces the silver and gold tables in a PostgreSQL database.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/config"
	"github.com/couchcryptid/health-environment-etl/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// maxParams is PostgreSQL's limit on bind parameters per statement.
const maxParams = 65535

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to the warehouse and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Store implements the pipeline's table reader and writer over sqlx.
type Store struct {
	db        *sqlx.DB
	raw       string
	silver    string
	gold      string
	batchSize int
	logger    *slog.Logger
}

// NewStore creates a Store using the schema names and write batch size from cfg.
func NewStore(db *sqlx.DB, cfg *config.Config, logger *slog.Logger) *Store {
	return &Store{
		db:        db,
		raw:       cfg.RawSchema,
		silver:    cfg.SilverSchema,
		gold:      cfg.GoldSchema,
		batchSize: cfg.WriteBatchSize,
		logger:    logger,
	}
}

// Migrate creates the silver and gold schemas and tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)

	r := strings.NewReplacer(
		"{{silver}}", pq.QuoteIdentifier(s.silver),
		"{{gold}}", pq.QuoteIdentifier(s.gold),
	)
	for _, name := range names {
		ddl, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, r.Replace(string(ddl))); err != nil {
			return fmt.Errorf("run migration %s: %w", name, err)
		}
		s.logger.Debug("migration applied", "name", name)
	}
	return nil
}

func (s *Store) ReadAirQuality(ctx context.Context) ([]domain.RawAirQuality, error) {
	return readRaw[domain.RawAirQuality](ctx, s, domain.TableRawAirQuality, domain.RawAirQualityColumns)
}

func (s *Store) ReadWeather(ctx context.Context) ([]domain.RawWeather, error) {
	return readRaw[domain.RawWeather](ctx, s, domain.TableRawWeather, domain.RawWeatherColumns)
}

func (s *Store) ReadFlu(ctx context.Context) ([]domain.RawFlu, error) {
	return readRaw[domain.RawFlu](ctx, s, domain.TableRawFlu, domain.RawFluColumns)
}

func (s *Store) ReplaceAirQuality(ctx context.Context, rows []domain.AirQualityRecord) error {
	return replaceTable(ctx, s, s.silver, domain.TableAirQuality, rows)
}

func (s *Store) ReplaceWeather(ctx context.Context, rows []domain.WeatherRecord) error {
	return replaceTable(ctx, s, s.silver, domain.TableWeather, rows)
}

func (s *Store) ReplaceFlu(ctx context.Context, rows []domain.FluRecord) error {
	return replaceTable(ctx, s, s.silver, domain.TableFlu, rows)
}

func (s *Store) ReplaceFeatures(ctx context.Context, rows []domain.WeeklyFeatureRow) error {
	return replaceTable(ctx, s, s.gold, domain.TableFeatures, rows)
}

// SummarizeFeatures reports the row count and week range of the gold table as
// committed.
func (s *Store) SummarizeFeatures(ctx context.Context) (domain.FeatureSummary, error) {
	q := fmt.Sprintf(
		`SELECT COUNT(*) AS "rows", MIN(week_start_date) AS first_week, MAX(week_start_date) AS last_week FROM %s`,
		qualify(s.gold, domain.TableFeatures),
	)
	var summary domain.FeatureSummary
	if err := s.db.GetContext(ctx, &summary, q); err != nil {
		return domain.FeatureSummary{}, fmt.Errorf("summarize gold table: %w", err)
	}
	return summary, nil
}

// Ping reports whether the warehouse is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// checkColumns verifies the raw table exists and carries every required column.
func (s *Store) checkColumns(ctx context.Context, table string, required []string) error {
	var present []string
	err := s.db.SelectContext(ctx, &present,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`,
		s.raw, table,
	)
	if err != nil {
		return fmt.Errorf("inspect %s.%s: %w", s.raw, table, err)
	}
	if len(present) == 0 {
		return &domain.SchemaError{Table: s.raw + "." + table, Reason: "table not found"}
	}
	for _, c := range required {
		if !slices.Contains(present, c) {
			return &domain.SchemaError{Table: s.raw + "." + table, Column: c, Reason: "column not found"}
		}
	}
	return nil
}

func readRaw[T any](ctx context.Context, s *Store, table string, columns []string) ([]T, error) {
	if err := s.checkColumns(ctx, table, columns); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT %s FROM %s", quoteAll(columns), qualify(s.raw, table))
	var rows []T
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", s.raw, table, err)
	}
	return rows, nil
}

// replaceTable truncates the table and inserts rows in batches inside one
// transaction, so readers see either the old or the new table.
func replaceTable[T any](ctx context.Context, s *Store, schema, table string, rows []T) error {
	name := qualify(schema, table)
	columns := dbColumns(reflect.TypeFor[T]())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+name); err != nil {
		return fmt.Errorf("truncate %s: %w", name, err)
	}

	insert := insertStatement(name, columns)
	size := batchSize(s.batchSize, len(columns))
	for batch := range slices.Chunk(rows, size) {
		if _, err := tx.NamedExecContext(ctx, insert, batch); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", name, err)
	}
	s.logger.Debug("table replaced", "table", name, "rows", len(rows))
	return nil
}

// dbColumns lists the db tags of a struct type in field order.
func dbColumns(t reflect.Type) []string {
	columns := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("db"); tag != "" && tag != "-" {
			columns = append(columns, tag)
		}
	}
	return columns
}

func insertStatement(table string, columns []string) string {
	named := make([]string, len(columns))
	for i, c := range columns {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, quoteAll(columns), strings.Join(named, ", "))
}

// batchSize caps the configured batch so one multi-row insert stays under
// the bind parameter limit.
func batchSize(configured, columns int) int {
	limit := maxParams / max(columns, 1)
	return max(min(configured, limit), 1)
}

func qualify(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func quoteAll(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}
