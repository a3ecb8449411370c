package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

// Writer exports annual and station summaries as CSV files, one row per year
// or station. Nil measurements become empty cells, never zeros.
type Writer struct {
	annualPath  string
	stationPath string
}

var _ ports.SummaryWriter = (*Writer)(nil)

// NewWriter returns a summary writer targeting the two output paths.
func NewWriter(annualPath, stationPath string) *Writer {
	return &Writer{annualPath: annualPath, stationPath: stationPath}
}

// WriteAnnual replaces the annual summary export.
func (w *Writer) WriteAnnual(ctx context.Context, summaries []domain.AnnualSummary) error {
	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, []string{
		"year", "avg_tmax", "avg_tmin", "avg_temp", "total_precip_mm", "station_count", "record_count",
	})
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.Itoa(s.Year),
			formatOptional(s.AvgTMax),
			formatOptional(s.AvgTMin),
			formatOptional(s.AvgTemp),
			formatOptional(s.TotalPrecip),
			strconv.Itoa(s.StationCount),
			strconv.Itoa(s.RecordCount),
		})
	}
	return writeCSV(w.annualPath, rows)
}

// WriteStations replaces the station summary export.
func (w *Writer) WriteStations(ctx context.Context, summaries []domain.StationSummary) error {
	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, []string{
		"station", "record_count", "year_count", "first_date", "last_date",
		"avg_tmax", "avg_tmin", "avg_temp", "mean_precip_mm", "total_precip_mm",
	})
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Station,
			strconv.Itoa(s.RecordCount),
			strconv.Itoa(s.YearCount),
			s.FirstDate.Format(csvDateLayout),
			s.LastDate.Format(csvDateLayout),
			formatOptional(s.AvgTMax),
			formatOptional(s.AvgTMin),
			formatOptional(s.AvgTemp),
			formatOptional(s.MeanPrecip),
			formatOptional(s.TotalPrecip),
		})
	}
	return writeCSV(w.stationPath, rows)
}

func writeCSV(path string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
