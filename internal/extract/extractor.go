package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

// Deps wires the extractor's collaborators and tuning.
type Deps struct {
	Source   ports.ObservationSource
	Progress ports.ProgressStore
	Raw      ports.RawStore
	Logger   *slog.Logger

	StartYear int
	EndYear   int
	// PagePause and WindowPause space out API requests as a courtesy to the
	// shared upstream.
	PagePause   time.Duration
	WindowPause time.Duration
}

// Extractor walks the monthly windows of the configured range in
// chronological order, fetching each uncompleted window page by page. A
// window's records reach the raw store before the window is checkpointed, so
// a crash loses at most the window in flight.
type Extractor struct {
	source   ports.ObservationSource
	progress ports.ProgressStore
	raw      ports.RawStore
	logger   *slog.Logger

	windows     []domain.Window
	pagePause   time.Duration
	windowPause time.Duration
}

// New builds an Extractor for the configured year range.
func New(deps Deps) *Extractor {
	return &Extractor{
		source:      deps.Source,
		progress:    deps.Progress,
		raw:         deps.Raw,
		logger:      deps.Logger,
		windows:     Windows(deps.StartYear, deps.EndYear),
		pagePause:   deps.PagePause,
		windowPause: deps.WindowPause,
	}
}

// Run executes the extraction stage. A failed window is recorded and skipped;
// the run only errors out when storage breaks, the context is cancelled, or
// every attempted window fails.
func (e *Extractor) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		StartedAt: time.Now().UTC(),
		Planned:   len(e.windows),
	}

	done, err := e.progress.Completed(ctx)
	if err != nil {
		return report, fmt.Errorf("load extraction progress: %w", err)
	}

	for _, window := range e.windows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if done[window.ID()] {
			report.Skipped++
			continue
		}

		records, err := e.fetchWindow(ctx, window)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			e.logger.Error("window failed", "window", window.ID(), "error", err)
			report.Failed = append(report.Failed, domain.WindowFailure{
				Window: window.ID(),
				Reason: err.Error(),
			})
			e.pause(ctx, e.windowPause)
			continue
		}

		if err := e.raw.Append(ctx, records); err != nil {
			return report, fmt.Errorf("append raw records for %s: %w", window.ID(), err)
		}
		if err := e.progress.MarkCompleted(ctx, window.ID()); err != nil {
			return report, fmt.Errorf("checkpoint window %s: %w", window.ID(), err)
		}

		report.Completed = append(report.Completed, window.ID())
		report.Records += len(records)
		e.logger.Info("window completed", "window", window.ID(), "records", len(records))
		e.pause(ctx, e.windowPause)
	}

	if len(report.Completed) == 0 && report.Attempted() > 0 {
		return report, domain.ErrNoWindowsCompleted
	}
	return report, nil
}

func (e *Extractor) fetchWindow(ctx context.Context, window domain.Window) ([]domain.RawRecord, error) {
	var records []domain.RawRecord

	offset := domain.FirstPageOffset
	for {
		page, err := e.source.FetchPage(ctx, window, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if !page.HasMore {
			return records, nil
		}
		offset = page.NextOffset
		e.pause(ctx, e.pagePause)
	}
}

func (e *Extractor) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
