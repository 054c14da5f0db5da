package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/domain"
	"github.com/couchcryptid/health-environment-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when another run holds the pipeline, either in
// this process or, with a RunLock configured, anywhere else.
var ErrRunInProgress = errors.New("transform run already in progress")

// Source names used in logs, metrics, and reports.
const (
	SourceAirQuality = "air_quality"
	SourceWeather    = "weather"
	SourceFlu        = "flu"
	stageGold        = "gold"
)

// RawReader reads the three raw source tables.
type RawReader interface {
	ReadAirQuality(ctx context.Context) ([]domain.RawAirQuality, error)
	ReadWeather(ctx context.Context) ([]domain.RawWeather, error)
	ReadFlu(ctx context.Context) ([]domain.RawFlu, error)
}

// TableWriter fully replaces the silver and gold tables.
type TableWriter interface {
	ReplaceAirQuality(ctx context.Context, rows []domain.AirQualityRecord) error
	ReplaceWeather(ctx context.Context, rows []domain.WeatherRecord) error
	ReplaceFlu(ctx context.Context, rows []domain.FluRecord) error
	ReplaceFeatures(ctx context.Context, rows []domain.WeeklyFeatureRow) error
}

// Store is a table backend the pipeline reads from and writes to.
type Store interface {
	RawReader
	TableWriter
}

// FeatureSummarizer is implemented by stores that can describe the gold table
// as written. Stores without it are summarised from the in-memory rows.
type FeatureSummarizer interface {
	SummarizeFeatures(ctx context.Context) (domain.FeatureSummary, error)
}

// FeaturePublisher announces a freshly written gold table downstream.
type FeaturePublisher interface {
	PublishFeatures(ctx context.Context, rows []domain.WeeklyFeatureRow) error
}

// RunLock guards a run against concurrent runs in other processes.
type RunLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Options configures the gold stage and optional collaborators.
type Options struct {
	StartDate time.Time
	LagMode   domain.LagMode
	Region    string

	Publisher FeaturePublisher // nil disables publishing
	Lock      RunLock          // nil relies on the in-process guard only
	Clock     clockwork.Clock  // nil uses the real clock
}

// Pipeline runs the raw → silver → gold transform as one batch.
type Pipeline struct {
	store   Store
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	running atomic.Bool
	ready   atomic.Bool

	mu   sync.RWMutex
	last *Report
}

// New creates a Pipeline over store with the given options and observability.
func New(store Store, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		store:   store,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed a successful run,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a successful run yet")
	}
	return nil
}

// LastReport returns the report of the most recent successful run.
func (p *Pipeline) LastReport() (Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Report{}, false
	}
	return *p.last, true
}

// Run executes one full transform. Any failure aborts the run; the error is
// wrapped so errors.Is and errors.As still match the cause.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.metrics.RunsTotal.WithLabelValues("skipped").Inc()
		return Report{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	if p.opts.Lock != nil {
		ok, err := p.opts.Lock.TryLock(ctx)
		if err != nil {
			p.metrics.RunsTotal.WithLabelValues("error").Inc()
			return Report{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			p.metrics.RunsTotal.WithLabelValues("skipped").Inc()
			return Report{}, ErrRunInProgress
		}
		defer func() {
			if err := p.opts.Lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("release run lock failed", "error", err)
			}
		}()
	}

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := p.clock.Now()
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Sources:   make(map[string]SourceReport, 3),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("transform run started", "lag_mode", p.opts.LagMode, "region", p.opts.Region)

	if err := p.run(ctx, logger, &report); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("transform run failed", "error", err)
		return report, err
	}

	elapsed := p.clock.Since(start)
	report.DurationSeconds = elapsed.Seconds()
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))

	p.mu.Lock()
	p.last = &report
	p.mu.Unlock()
	p.ready.Store(true)

	logger.Info("transform run finished",
		"gold_rows", report.GoldRows,
		"duration", elapsed,
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	processedAt := report.StartedAt

	var (
		aq  domain.CleanResult[domain.AirQualityRecord]
		wx  domain.CleanResult[domain.WeatherRecord]
		flu domain.CleanResult[domain.FluRecord]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		aq, err = runSilverStage(gctx, p, logger, SourceAirQuality, processedAt,
			p.store.ReadAirQuality, domain.CleanAirQuality, p.store.ReplaceAirQuality)
		return err
	})
	g.Go(func() (err error) {
		wx, err = runSilverStage(gctx, p, logger, SourceWeather, processedAt,
			p.store.ReadWeather, domain.CleanWeather, p.store.ReplaceWeather)
		return err
	})
	g.Go(func() (err error) {
		flu, err = runSilverStage(gctx, p, logger, SourceFlu, processedAt,
			p.store.ReadFlu, domain.CleanFlu, p.store.ReplaceFlu)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	report.Sources[SourceAirQuality] = newSourceReport(aq)
	report.Sources[SourceWeather] = newSourceReport(wx)
	report.Sources[SourceFlu] = newSourceReport(flu)

	return p.runGoldStage(ctx, logger, report, flu.Rows, aq.Rows, wx.Rows)
}

// runSilverStage reads one raw table, cleans it, and replaces its silver table.
func runSilverStage[R, S any](
	ctx context.Context,
	p *Pipeline,
	logger *slog.Logger,
	source string,
	processedAt time.Time,
	read func(context.Context) ([]R, error),
	clean func([]R, time.Time) domain.CleanResult[S],
	write func(context.Context, []S) error,
) (domain.CleanResult[S], error) {
	start := p.clock.Now()

	raw, err := read(ctx)
	if err != nil {
		return domain.CleanResult[S]{}, fmt.Errorf("read raw %s: %w", source, err)
	}
	p.metrics.RawRowsRead.WithLabelValues(source).Add(float64(len(raw)))

	res := clean(raw, processedAt)
	for flag, n := range res.Flags {
		p.metrics.SilverRowsFlag.WithLabelValues(source, string(flag)).Add(float64(n))
	}

	if err := write(ctx, res.Rows); err != nil {
		return domain.CleanResult[S]{}, fmt.Errorf("write silver %s: %w", source, err)
	}
	p.metrics.SilverRowsKept.WithLabelValues(source).Set(float64(len(res.Rows)))
	p.metrics.StageDuration.WithLabelValues(source).Observe(p.clock.Since(start).Seconds())

	logger.Info("silver table replaced",
		"source", source,
		"input", res.Input(),
		"rows", len(res.Rows),
		"dropped", res.Dropped(),
	)
	return res, nil
}

func (p *Pipeline) runGoldStage(
	ctx context.Context,
	logger *slog.Logger,
	report *Report,
	flu []domain.FluRecord,
	aq []domain.AirQualityRecord,
	wx []domain.WeatherRecord,
) error {
	start := p.clock.Now()

	res, err := domain.BuildFeatures(flu, aq, wx, domain.FeatureOptions{
		StartDate:   p.opts.StartDate,
		LagMode:     p.opts.LagMode,
		Region:      p.opts.Region,
		ProcessedAt: report.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	floor := p.opts.StartDate
	if floor.IsZero() {
		floor = domain.PipelineStartDate
	}
	if err := domain.ValidateFeatures(res.Rows, floor); err != nil {
		return fmt.Errorf("validate features: %w", err)
	}

	if err := p.store.ReplaceFeatures(ctx, res.Rows); err != nil {
		return fmt.Errorf("write gold features: %w", err)
	}

	summary := domain.SummarizeFeatures(res.Rows)
	if s, ok := p.store.(FeatureSummarizer); ok {
		if summary, err = s.SummarizeFeatures(ctx); err != nil {
			return fmt.Errorf("summarize gold features: %w", err)
		}
	}

	p.metrics.GoldWeeks.Reset()
	for c, n := range res.Completeness {
		p.metrics.GoldWeeks.WithLabelValues(string(c)).Set(float64(n))
	}
	p.metrics.GoldRowsWritten.Set(float64(len(res.Rows)))
	p.metrics.StageDuration.WithLabelValues(stageGold).Observe(p.clock.Since(start).Seconds())

	report.GoldRows = len(res.Rows)
	report.Completeness = res.Completeness
	report.BeforeStart = res.BeforeStart
	report.Summary = summary

	logger.Info("gold table replaced",
		"rows", len(res.Rows),
		"before_start", res.BeforeStart,
		"completeness", res.Completeness,
	)

	report.Published = p.publish(ctx, logger, res.Rows)
	return nil
}

// publish sends the gold rows to the configured publisher. A failed
// publication is logged and counted but does not fail the run: the tables
// are already replaced and the next run republishes them.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, rows []domain.WeeklyFeatureRow) bool {
	if p.opts.Publisher == nil {
		return false
	}
	if err := p.opts.Publisher.PublishFeatures(ctx, rows); err != nil {
		p.metrics.FeaturesPublish.WithLabelValues("error").Inc()
		logger.Error("publish features failed", "error", err, "rows", len(rows))
		return false
	}
	p.metrics.FeaturesPublish.WithLabelValues("success").Inc()
	return true
}
