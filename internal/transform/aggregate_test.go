package transform

import (
	"testing"
	"time"

	"ClimateTrend/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func daily(station string, date time.Time, tmax, tmin, precip *float64) domain.DailyRecord {
	return domain.DailyRecord{Station: station, Date: date, TMax: tmax, TMin: tmin, Precip: precip}
}

func TestSummarizeAnnualAverage(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("A", day(2000, time.January, 1), ptr(10), ptr(10), nil),
		daily("A", day(2000, time.July, 1), ptr(20), ptr(20), nil),
	}

	annual, _ := Summarize(records)
	if len(annual) != 1 {
		t.Fatalf("expected 1 year, got %d", len(annual))
	}

	y := annual[0]
	if y.Year != 2000 {
		t.Fatalf("unexpected year: %d", y.Year)
	}
	if y.AvgTemp == nil || *y.AvgTemp != 15 {
		t.Fatalf("expected average temperature 15, got %v", y.AvgTemp)
	}
	if y.RecordCount != 2 || y.StationCount != 1 {
		t.Fatalf("unexpected counts: %+v", y)
	}
}

func TestSummarizeExcludesMissingPrecipFromCounts(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("A", day(2000, time.January, 1), ptr(5), nil, ptr(4)),
		daily("A", day(2000, time.January, 2), ptr(6), nil, nil),
	}

	annual, stations := Summarize(records)

	// The missing day contributes nothing: total 4, mean 4 (not 2).
	if got := annual[0].TotalPrecip; got == nil || *got != 4 {
		t.Fatalf("expected total precipitation 4, got %v", got)
	}
	if got := stations[0].MeanPrecip; got == nil || *got != 4 {
		t.Fatalf("expected mean precipitation 4, got %v", got)
	}
	if annual[0].RecordCount != 2 {
		t.Fatalf("record count should include both days, got %d", annual[0].RecordCount)
	}
}

func TestSummarizeDryYearKeepsNilPrecip(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("A", day(2000, time.January, 1), ptr(5), ptr(1), nil),
	}

	annual, stations := Summarize(records)
	if annual[0].TotalPrecip != nil {
		t.Fatalf("year without precipitation data must stay nil, got %v", *annual[0].TotalPrecip)
	}
	if stations[0].TotalPrecip != nil || stations[0].MeanPrecip != nil {
		t.Fatalf("station without precipitation data must stay nil")
	}
}

func TestSummarizeFillsGapYears(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("A", day(2000, time.May, 1), ptr(10), ptr(2), nil),
		daily("A", day(2003, time.May, 1), ptr(12), ptr(4), nil),
	}

	annual, _ := Summarize(records)
	if len(annual) != 4 {
		t.Fatalf("expected years 2000..2003, got %d entries", len(annual))
	}
	for i, want := range []int{2000, 2001, 2002, 2003} {
		if annual[i].Year != want {
			t.Fatalf("expected year %d at index %d, got %d", want, i, annual[i].Year)
		}
	}

	gap := annual[1]
	if gap.AvgTemp != nil || gap.AvgTMax != nil || gap.TotalPrecip != nil {
		t.Fatalf("gap year must carry nil measurements: %+v", gap)
	}
	if gap.RecordCount != 0 || gap.StationCount != 0 {
		t.Fatalf("gap year must carry zero counts: %+v", gap)
	}
}

func TestSummarizeStationHistory(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("B", day(2001, time.March, 3), ptr(8), ptr(0), ptr(1)),
		daily("A", day(2000, time.January, 1), ptr(10), ptr(0), ptr(2)),
		daily("A", day(2002, time.December, 31), ptr(14), ptr(4), ptr(6)),
	}

	_, stations := Summarize(records)
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	if stations[0].Station != "A" || stations[1].Station != "B" {
		t.Fatalf("expected stations sorted by id, got %s, %s", stations[0].Station, stations[1].Station)
	}

	a := stations[0]
	if a.RecordCount != 2 || a.YearCount != 2 {
		t.Fatalf("unexpected counts for A: %+v", a)
	}
	if !a.FirstDate.Equal(day(2000, time.January, 1)) || !a.LastDate.Equal(day(2002, time.December, 31)) {
		t.Fatalf("unexpected date range for A: %v..%v", a.FirstDate, a.LastDate)
	}
	if a.AvgTMax == nil || *a.AvgTMax != 12 {
		t.Fatalf("unexpected avg tmax for A: %v", a.AvgTMax)
	}
	if a.TotalPrecip == nil || *a.TotalPrecip != 8 {
		t.Fatalf("unexpected total precipitation for A: %v", a.TotalPrecip)
	}
}

func TestSummarizeOneSidedTemperature(t *testing.T) {
	t.Parallel()

	records := []domain.DailyRecord{
		daily("A", day(2000, time.June, 1), ptr(30), nil, nil),
	}

	annual, _ := Summarize(records)
	if annual[0].AvgTMin != nil {
		t.Fatalf("expected nil avg tmin")
	}
	// With only one side reported the midpoint degrades to that side.
	if annual[0].AvgTemp == nil || *annual[0].AvgTemp != 30 {
		t.Fatalf("expected one-sided average 30, got %v", annual[0].AvgTemp)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	t.Parallel()

	annual, stations := Summarize(nil)
	if annual != nil || stations != nil {
		t.Fatalf("expected nil summaries for empty input")
	}
}
