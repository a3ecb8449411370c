package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"ClimateTrend/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func openTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(":memory:", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestReplaceObservations(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	ctx := context.Background()

	date := time.Date(1974, time.January, 1, 0, 0, 0, 0, time.UTC)
	first := []domain.RawRecord{
		{Station: "A", Date: date, Element: domain.ElementTMax, Value: 3.9},
		{Station: "A", Date: date, Element: domain.ElementTMin, Value: -2.1},
	}
	if err := w.ReplaceObservations(ctx, first); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// A reload replaces everything previously stored.
	second := []domain.RawRecord{
		{Station: "B", Date: date, Element: domain.ElementPrecip, Value: 1.5, Attributes: ",,N,"},
	}
	if err := w.ReplaceObservations(ctx, second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&count); err != nil {
		t.Fatalf("count observations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 observation after reload, got %d", count)
	}

	var station, element string
	var value float64
	err := w.db.QueryRow("SELECT station, element, value FROM observations").Scan(&station, &element, &value)
	if err != nil {
		t.Fatalf("read observation: %v", err)
	}
	if station != "B" || element != "PRCP" || value != 1.5 {
		t.Fatalf("unexpected row: %s %s %v", station, element, value)
	}
}

func TestReplaceAnnualSummariesKeepsNulls(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	ctx := context.Background()

	summaries := []domain.AnnualSummary{
		{Year: 2000, AvgTMax: ptr(12.5), AvgTMin: ptr(2.5), AvgTemp: ptr(7.5), TotalPrecip: ptr(800), StationCount: 4, RecordCount: 1200},
		{Year: 2001}, // gap year
	}
	if err := w.ReplaceAnnualSummaries(ctx, summaries); err != nil {
		t.Fatalf("load annual summaries: %v", err)
	}

	var avgTemp sql.NullFloat64
	if err := w.db.QueryRow("SELECT avg_temp FROM annual_summary WHERE year = 2001").Scan(&avgTemp); err != nil {
		t.Fatalf("read gap year: %v", err)
	}
	if avgTemp.Valid {
		t.Fatalf("gap year must store NULL, got %v", avgTemp.Float64)
	}

	if err := w.db.QueryRow("SELECT avg_temp FROM annual_summary WHERE year = 2000").Scan(&avgTemp); err != nil {
		t.Fatalf("read populated year: %v", err)
	}
	if !avgTemp.Valid || avgTemp.Float64 != 7.5 {
		t.Fatalf("unexpected avg_temp: %+v", avgTemp)
	}
}

func stationFixture(id string, avgTMax, meanPrecip *float64) domain.StationSummary {
	return domain.StationSummary{
		Station:     id,
		RecordCount: 100,
		YearCount:   3,
		FirstDate:   time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		LastDate:    time.Date(2002, time.December, 31, 0, 0, 0, 0, time.UTC),
		AvgTMax:     avgTMax,
		MeanPrecip:  meanPrecip,
	}
}

func TestTopStationsRanking(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	ctx := context.Background()

	summaries := []domain.StationSummary{
		stationFixture("COOL", ptr(10), ptr(5)),
		stationFixture("HOT", ptr(25), ptr(1)),
		stationFixture("WARM", ptr(18), nil),
		stationFixture("UNKNOWN", nil, ptr(9)),
	}
	if err := w.ReplaceStationSummaries(ctx, summaries); err != nil {
		t.Fatalf("load station summaries: %v", err)
	}

	hot, err := w.TopStationsByTemp(ctx, 2)
	if err != nil {
		t.Fatalf("TopStationsByTemp: %v", err)
	}
	if len(hot) != 2 || hot[0].Station != "HOT" || hot[1].Station != "WARM" {
		t.Fatalf("unexpected temperature ranking: %+v", hot)
	}
	if hot[0].AvgTMax == nil || *hot[0].AvgTMax != 25 {
		t.Fatalf("unexpected top avg_tmax: %v", hot[0].AvgTMax)
	}
	if !hot[0].FirstDate.Equal(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first date: %v", hot[0].FirstDate)
	}

	wet, err := w.TopStationsByPrecip(ctx, 10)
	if err != nil {
		t.Fatalf("TopStationsByPrecip: %v", err)
	}
	// Stations without precipitation data are excluded from the ranking.
	if len(wet) != 3 || wet[0].Station != "UNKNOWN" || wet[1].Station != "COOL" || wet[2].Station != "HOT" {
		t.Fatalf("unexpected precipitation ranking: %+v", wet)
	}
	if wet[1].AvgTMax == nil || *wet[1].AvgTMax != 10 {
		t.Fatalf("expected avg_tmax to round-trip, got %v", wet[1].AvgTMax)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "climate.db")
	logger := slog.New(slog.DiscardHandler)

	w, err := Open(path, logger)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path, logger)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer reopened.Close()

	var applied int
	if err := reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}
}
