package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
	"ClimateTrend/internal/transform"
)

// topStationCount bounds the hottest/wettest station report.
const topStationCount = 5

// Extractor runs the extraction stage and reports what it completed.
type Extractor interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// PipelineDeps wires the pipeline stages and sinks into the orchestration.
type PipelineDeps struct {
	Extractor Extractor
	Raw       ports.RawStore
	Summaries ports.SummaryWriter
	Warehouse ports.Warehouse
	Charts    ports.ChartRenderer
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Units     domain.UnitConversion
}

// Pipeline implements the extract-transform-load workflow. Extraction and
// storage failures abort the run; individual sink failures degrade to
// warnings so one broken output cannot hold the rest hostage.
type Pipeline struct {
	extractor Extractor
	raw       ports.RawStore
	summaries ports.SummaryWriter
	warehouse ports.Warehouse
	charts    ports.ChartRenderer
	notifier  ports.Notifier
	logger    *slog.Logger
	units     domain.UnitConversion
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: deps.Extractor,
		raw:       deps.Raw,
		summaries: deps.Summaries,
		warehouse: deps.Warehouse,
		charts:    deps.Charts,
		notifier:  deps.Notifier,
		logger:    logger,
		units:     deps.Units,
	}
}

// Run executes one full pipeline pass triggered at the given time.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.RunReport, error) {
	if p.extractor == nil {
		return domain.RunReport{}, nil
	}

	report, err := p.extractor.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("extract: %w", err)
	}
	if report.Attempted() == 0 && report.Planned > 0 {
		p.logger.Info("extraction already complete", "windows", report.Planned)
	}

	records, err := p.raw.ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read raw dataset: %w", err)
	}
	if len(records) == 0 {
		p.logger.Warn("raw dataset is empty, nothing to transform")
		report.Warnings = append(report.Warnings, "raw dataset is empty")
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	daily := transform.Normalize(records, p.units)
	annual, stations := transform.Summarize(daily)

	var trend *domain.TrendResult
	fit, err := transform.FitTrend(annual)
	switch {
	case err == nil:
		trend = &fit
		p.logger.Info("temperature trend fitted",
			"slope_per_decade", fit.PerDecade(), "r", fit.R, "p_value", fit.PValue, "years", fit.Years)
	case errors.Is(err, domain.ErrInsufficientData):
		p.logger.Warn("too few defined years for a trend fit", "years", len(annual))
		report.Warnings = append(report.Warnings, "trend not fitted: insufficient data")
	default:
		p.logger.Error("trend fit failed", "error", err)
		report.Warnings = append(report.Warnings, fmt.Sprintf("trend fit: %v", err))
	}

	if p.summaries != nil {
		p.sink(&report, "annual csv", p.summaries.WriteAnnual(ctx, annual))
		p.sink(&report, "station csv", p.summaries.WriteStations(ctx, stations))
	}
	if p.warehouse != nil {
		p.sink(&report, "warehouse observations", p.warehouse.ReplaceObservations(ctx, records))
		p.sink(&report, "warehouse annual summaries", p.warehouse.ReplaceAnnualSummaries(ctx, annual))
		p.sink(&report, "warehouse station summaries", p.warehouse.ReplaceStationSummaries(ctx, stations))
	}
	if p.charts != nil {
		p.sink(&report, "temperature chart", p.charts.RenderTemperature(annual, trend))
		p.sink(&report, "precipitation chart", p.charts.RenderPrecipitation(annual))
	}

	hottest, wettest := p.topStations(ctx)

	report.FinishedAt = time.Now().UTC()
	p.logger.Info("run finished",
		"completed", len(report.Completed),
		"failed", len(report.Failed),
		"skipped", report.Skipped,
		"new_records", report.Records,
		"daily_rows", len(daily),
		"years", len(annual),
		"stations", len(stations),
		"warnings", len(report.Warnings),
		"took", report.FinishedAt.Sub(report.StartedAt))
	for _, failure := range report.Failed {
		p.logger.Warn("window failed this run", "window", failure.Window, "reason", failure.Reason)
	}

	if p.notifier != nil {
		digest := buildRunDigest(now, report, trend, hottest, wettest)
		if err := p.notifier.PublishDigest(ctx, digest); err != nil {
			p.logger.Warn("publish digest", "error", err)
		}
	}

	return report, nil
}

// sink records a load-stage failure without aborting the run.
func (p *Pipeline) sink(report *domain.RunReport, name string, err error) {
	if err == nil {
		return
	}
	p.logger.Error("sink failed", "sink", name, "error", err)
	report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", name, err))
}

func (p *Pipeline) topStations(ctx context.Context) (hottest, wettest []domain.StationSummary) {
	if p.warehouse == nil {
		return nil, nil
	}

	hottest, err := p.warehouse.TopStationsByTemp(ctx, topStationCount)
	if err != nil {
		p.logger.Warn("rank stations by temperature", "error", err)
	}
	for _, s := range hottest {
		p.logger.Info("hottest station", "station", s.Station, "avg_tmax", formatMeasure(s.AvgTMax, "°C"))
	}

	wettest, err = p.warehouse.TopStationsByPrecip(ctx, topStationCount)
	if err != nil {
		p.logger.Warn("rank stations by precipitation", "error", err)
	}
	for _, s := range wettest {
		p.logger.Info("wettest station", "station", s.Station, "mean_precip", formatMeasure(s.MeanPrecip, "mm"))
	}
	return hottest, wettest
}

func buildRunDigest(now time.Time, report domain.RunReport, trend *domain.TrendResult, hottest, wettest []domain.StationSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Climate pipeline run, %s\n", now.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Windows: %d completed, %d failed, %d already done\n",
		len(report.Completed), len(report.Failed), report.Skipped)
	if report.Records > 0 {
		fmt.Fprintf(&b, "New records: %d\n", report.Records)
	}
	if trend != nil {
		fmt.Fprintf(&b, "Trend: %+.2f °C/decade (r=%.2f, p=%.3f)\n", trend.PerDecade(), trend.R, trend.PValue)
	}
	if len(hottest) > 0 {
		b.WriteString("Hottest stations:\n")
		for _, s := range hottest {
			fmt.Fprintf(&b, "- %s, avg max %s\n", s.Station, formatMeasure(s.AvgTMax, "°C"))
		}
	}
	if len(wettest) > 0 {
		b.WriteString("Wettest stations:\n")
		for _, s := range wettest {
			fmt.Fprintf(&b, "- %s, mean precip %s\n", s.Station, formatMeasure(s.MeanPrecip, "mm"))
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(&b, "Warnings (%d):\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func formatMeasure(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f %s", *v, unit)
}
