package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

const csvDateLayout = "2006-01-02"

var rawHeader = []string{"station", "date", "element", "value", "attributes"}

// RawCSV is the append-only combined dataset file. Every completed window's
// records land here before the window is checkpointed, which makes the file
// the durable input of the transform stage across resumed runs.
type RawCSV struct {
	path string
	mu   sync.Mutex
}

var _ ports.RawStore = (*RawCSV)(nil)

// NewRawCSV returns a store backed by the given path.
func NewRawCSV(path string) *RawCSV {
	return &RawCSV{path: path}
}

// Append writes records to the end of the file, creating it (with a header)
// on first use.
func (s *RawCSV) Append(ctx context.Context, records []domain.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open raw csv: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat raw csv: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(rawHeader); err != nil {
			return fmt.Errorf("write raw csv header: %w", err)
		}
	}
	for _, r := range records {
		row := []string{
			r.Station,
			r.Date.Format(csvDateLayout),
			string(r.Element),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			r.Attributes,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write raw csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush raw csv: %w", err)
	}
	return nil
}

// ReadAll loads the whole dataset back. A missing file reads as no data.
func (s *RawCSV) ReadAll(ctx context.Context) ([]domain.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open raw csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(rawHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read raw csv: %w", err)
	}

	var records []domain.RawRecord
	for i, row := range rows {
		if i == 0 && row[0] == rawHeader[0] {
			continue
		}
		date, err := time.Parse(csvDateLayout, row[1])
		if err != nil {
			return nil, fmt.Errorf("raw csv row %d: bad date %q: %w", i+1, row[1], err)
		}
		value, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("raw csv row %d: bad value %q: %w", i+1, row[3], err)
		}
		records = append(records, domain.RawRecord{
			Station:    row[0],
			Date:       date,
			Element:    domain.Element(row[2]),
			Value:      value,
			Attributes: row[4],
		})
	}
	return records, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return nil
}
