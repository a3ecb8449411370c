package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ClimateTrend/internal/config"
	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/extract"
	"ClimateTrend/internal/infrastructure/charts"
	"ClimateTrend/internal/infrastructure/checkpoint"
	"ClimateTrend/internal/infrastructure/csvsink"
	"ClimateTrend/internal/infrastructure/noaa"
	"ClimateTrend/internal/infrastructure/scheduler"
	"ClimateTrend/internal/infrastructure/telegram"
	"ClimateTrend/internal/infrastructure/warehouse"
	"ClimateTrend/internal/logging"
	"ClimateTrend/internal/ports"
	"ClimateTrend/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	warehouse *warehouse.Warehouse
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Env)
	}

	source := noaa.NewClient(cfg.NOAA, nil, baseLogger.With("component", "noaa"))
	progress := checkpoint.NewFileStore(cfg.Output.CheckpointPath())
	raw := csvsink.NewRawCSV(cfg.Output.RawCSVPath())

	extractor := extract.New(extract.Deps{
		Source:      source,
		Progress:    progress,
		Raw:         raw,
		Logger:      baseLogger.With("component", "extract"),
		StartYear:   cfg.Extract.StartYear,
		EndYear:     cfg.Extract.EndYear,
		PagePause:   cfg.Extract.PagePause.Std(),
		WindowPause: cfg.Extract.WindowPause.Std(),
	})

	wh, err := warehouse.Open(cfg.Output.DatabasePath(), baseLogger.With("component", "warehouse"))
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	tempFactor, precipFactor := cfg.NOAA.UnitConversionFactors()
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor: extractor,
		Raw:       raw,
		Summaries: csvsink.NewWriter(cfg.Output.AnnualCSVPath(), cfg.Output.StationCSVPath()),
		Warehouse: wh,
		Charts:    charts.NewRenderer(cfg.Output.TemperatureChartPath(), cfg.Output.PrecipitationChartPath()),
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "pipeline"),
		Units:     domain.UnitConversion{TempFactor: tempFactor, PrecipFactor: precipFactor},
	})

	a := &Application{cfg: cfg, pipeline: pipeline, warehouse: wh, logger: baseLogger}

	if expr := cfg.Scheduler.CronExpression; expr != "" {
		driver := scheduler.NewCronScheduler(expr, cfg.Scheduler.Location())
		a.scheduler = usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))
	}

	return a, nil
}

// Run executes a single pipeline pass, or keeps re-running it on the
// configured cron schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("scheduler started",
			"cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	}

	now := time.Now().In(a.cfg.Scheduler.Location())
	_, err := a.pipeline.Run(ctx, now)
	return err
}

// Close releases long-lived resources. Safe to call after a failed Run.
func (a *Application) Close() error {
	if a.warehouse == nil {
		return nil
	}
	return a.warehouse.Close()
}
