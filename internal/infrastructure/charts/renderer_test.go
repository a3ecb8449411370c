package charts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"ClimateTrend/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func readPNG(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("%s is not a PNG file", path)
	}
	return data
}

func testSummaries() []domain.AnnualSummary {
	return []domain.AnnualSummary{
		{Year: 2000, AvgTemp: ptr(10.0), TotalPrecip: ptr(900)},
		{Year: 2001}, // gap year, must be skipped rather than drawn as zero
		{Year: 2002, AvgTemp: ptr(10.8), TotalPrecip: ptr(950)},
		{Year: 2003, AvgTemp: ptr(11.2), TotalPrecip: ptr(870)},
	}
}

func TestRenderTemperatureWritesPNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(filepath.Join(dir, "temp.png"), filepath.Join(dir, "precip.png"))

	trend := &domain.TrendResult{Slope: 0.4, Intercept: -790, R: 0.99, Years: 3}
	if err := r.RenderTemperature(testSummaries(), trend); err != nil {
		t.Fatalf("render temperature: %v", err)
	}
	readPNG(t, filepath.Join(dir, "temp.png"))
}

func TestRenderTemperatureWithoutTrend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(filepath.Join(dir, "temp.png"), filepath.Join(dir, "precip.png"))

	if err := r.RenderTemperature(testSummaries(), nil); err != nil {
		t.Fatalf("render temperature: %v", err)
	}
	readPNG(t, filepath.Join(dir, "temp.png"))
}

func TestRenderTemperatureNoData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(filepath.Join(dir, "temp.png"), filepath.Join(dir, "precip.png"))

	err := r.RenderTemperature([]domain.AnnualSummary{{Year: 2000}, {Year: 2001}}, nil)
	if err == nil {
		t.Fatal("expected an error for a dataset with no defined averages")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "temp.png")); !os.IsNotExist(statErr) {
		t.Fatalf("no chart file should be written, stat: %v", statErr)
	}
}

func TestRenderPrecipitationWritesPNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "precip.png")
	r := NewRenderer(filepath.Join(dir, "temp.png"), path)

	if err := r.RenderPrecipitation(testSummaries()); err != nil {
		t.Fatalf("render precipitation: %v", err)
	}
	readPNG(t, path)
}

func TestRenderOverwritesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "temp.png")
	if err := os.WriteFile(path, []byte("stale"), 0644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	r := NewRenderer(path, filepath.Join(dir, "precip.png"))
	if err := r.RenderTemperature(testSummaries(), nil); err != nil {
		t.Fatalf("render temperature: %v", err)
	}
	readPNG(t, path)
}
