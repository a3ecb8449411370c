package csvsink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ClimateTrend/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteAnnualRendersNilAsEmptyCell(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	annualPath := filepath.Join(dir, "annual.csv")
	w := NewWriter(annualPath, filepath.Join(dir, "stations.csv"))

	summaries := []domain.AnnualSummary{
		{Year: 2000, AvgTMax: ptr(12.5), AvgTMin: ptr(2.5), AvgTemp: ptr(7.5), TotalPrecip: ptr(800), StationCount: 3, RecordCount: 900},
		{Year: 2001}, // gap year: no measurements at all
	}
	if err := w.WriteAnnual(context.Background(), summaries); err != nil {
		t.Fatalf("WriteAnnual error: %v", err)
	}

	rows := readRows(t, annualPath)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "2000" || rows[1][3] != "7.5" || rows[1][4] != "800" {
		t.Fatalf("unexpected populated row: %v", rows[1])
	}

	gap := rows[2]
	if gap[0] != "2001" {
		t.Fatalf("unexpected gap row: %v", gap)
	}
	for _, cell := range gap[1:5] {
		if cell != "" {
			t.Fatalf("nil measurement must render empty, got %q in %v", cell, gap)
		}
	}
	if gap[5] != "0" || gap[6] != "0" {
		t.Fatalf("gap year counts must be zero: %v", gap)
	}
}

func TestWriteAnnualOverwritesPreviousExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	annualPath := filepath.Join(dir, "annual.csv")
	w := NewWriter(annualPath, filepath.Join(dir, "stations.csv"))
	ctx := context.Background()

	if err := w.WriteAnnual(ctx, []domain.AnnualSummary{{Year: 1999}, {Year: 2000}}); err != nil {
		t.Fatalf("first WriteAnnual error: %v", err)
	}
	if err := w.WriteAnnual(ctx, []domain.AnnualSummary{{Year: 2001}}); err != nil {
		t.Fatalf("second WriteAnnual error: %v", err)
	}

	rows := readRows(t, annualPath)
	if len(rows) != 2 {
		t.Fatalf("export must be replaced, not appended: %d rows", len(rows))
	}
	if rows[1][0] != "2001" {
		t.Fatalf("unexpected surviving row: %v", rows[1])
	}
}

func TestWriteStations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stationPath := filepath.Join(dir, "stations.csv")
	w := NewWriter(filepath.Join(dir, "annual.csv"), stationPath)

	summaries := []domain.StationSummary{{
		Station:     "GHCND:USW00094728",
		RecordCount: 18250,
		YearCount:   50,
		FirstDate:   time.Date(1974, time.January, 1, 0, 0, 0, 0, time.UTC),
		LastDate:    time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		AvgTMax:     ptr(16.4),
		AvgTMin:     ptr(7.9),
		AvgTemp:     ptr(12.15),
		MeanPrecip:  ptr(3.4),
		TotalPrecip: ptr(62050),
	}}
	if err := w.WriteStations(context.Background(), summaries); err != nil {
		t.Fatalf("WriteStations error: %v", err)
	}

	rows := readRows(t, stationPath)
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
	row := rows[1]
	if row[0] != "GHCND:USW00094728" || row[1] != "18250" || row[2] != "50" {
		t.Fatalf("unexpected station row: %v", row)
	}
	if row[3] != "1974-01-01" || row[4] != "2023-12-31" {
		t.Fatalf("unexpected station dates: %v", row)
	}
	if row[7] != "12.15" {
		t.Fatalf("unexpected avg temp cell: %q", row[7])
	}
}
