package ports

import (
	"context"
	"time"

	"ClimateTrend/internal/domain"
)

// ObservationSource fetches one page of raw observations for a window.
type ObservationSource interface {
	FetchPage(ctx context.Context, window domain.Window, offset int) (domain.Page, error)
}

// ProgressStore is the durable record of completed extraction windows.
type ProgressStore interface {
	Completed(ctx context.Context) (map[string]bool, error)
	MarkCompleted(ctx context.Context, windowID string) error
}

// RawStore persists the combined raw dataset between runs and stages.
type RawStore interface {
	Append(ctx context.Context, records []domain.RawRecord) error
	ReadAll(ctx context.Context) ([]domain.RawRecord, error)
}

// SummaryWriter exports derived summaries as flat files.
type SummaryWriter interface {
	WriteAnnual(ctx context.Context, summaries []domain.AnnualSummary) error
	WriteStations(ctx context.Context, summaries []domain.StationSummary) error
}

// Warehouse loads pipeline outputs into queryable tables.
type Warehouse interface {
	ReplaceObservations(ctx context.Context, records []domain.RawRecord) error
	ReplaceAnnualSummaries(ctx context.Context, summaries []domain.AnnualSummary) error
	ReplaceStationSummaries(ctx context.Context, summaries []domain.StationSummary) error
	TopStationsByTemp(ctx context.Context, limit int) ([]domain.StationSummary, error)
	TopStationsByPrecip(ctx context.Context, limit int) ([]domain.StationSummary, error)
}

// ChartRenderer draws the yearly summary charts.
type ChartRenderer interface {
	RenderTemperature(summaries []domain.AnnualSummary, trend *domain.TrendResult) error
	RenderPrecipitation(summaries []domain.AnnualSummary) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
