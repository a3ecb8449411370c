package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

const dateLayout = "2006-01-02"

// Warehouse loads pipeline outputs into SQLite and answers the ranking
// queries used for run digests. Loads replace whole tables inside one
// transaction, mirroring the replace-on-reload semantics of the CSV exports.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.Warehouse = (*Warehouse)(nil)

// Open connects to the SQLite file at path, creating it and applying any
// pending schema migrations.
func Open(path string, logger *slog.Logger) (*Warehouse, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	// One connection keeps SQLite writes serialized and makes in-memory
	// databases behave.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	if err := migrate(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Warehouse{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

func buildDSN(path string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create warehouse dir %s: %w", dir, err)
		}
	}
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// ReplaceObservations reloads the observations table from the raw dataset.
func (w *Warehouse) ReplaceObservations(ctx context.Context, records []domain.RawRecord) error {
	return w.replace(ctx, "observations", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO observations (station, date, element, value, attributes) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare observations insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.Station, r.Date.Format(dateLayout), string(r.Element), r.Value, r.Attributes)
			if err != nil {
				return fmt.Errorf("insert observation: %w", err)
			}
		}
		return nil
	})
}

// ReplaceAnnualSummaries reloads the annual_summary table.
func (w *Warehouse) ReplaceAnnualSummaries(ctx context.Context, summaries []domain.AnnualSummary) error {
	return w.replace(ctx, "annual_summary", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO annual_summary
			 (year, avg_tmax, avg_tmin, avg_temp, total_precip_mm, station_count, record_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare annual insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range summaries {
			_, err := stmt.ExecContext(ctx,
				s.Year, nullable(s.AvgTMax), nullable(s.AvgTMin), nullable(s.AvgTemp),
				nullable(s.TotalPrecip), s.StationCount, s.RecordCount)
			if err != nil {
				return fmt.Errorf("insert annual summary %d: %w", s.Year, err)
			}
		}
		return nil
	})
}

// ReplaceStationSummaries reloads the station_summary table.
func (w *Warehouse) ReplaceStationSummaries(ctx context.Context, summaries []domain.StationSummary) error {
	return w.replace(ctx, "station_summary", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO station_summary
			 (station, record_count, year_count, first_date, last_date,
			  avg_tmax, avg_tmin, avg_temp, mean_precip_mm, total_precip_mm)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare station insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range summaries {
			_, err := stmt.ExecContext(ctx,
				s.Station, s.RecordCount, s.YearCount,
				s.FirstDate.Format(dateLayout), s.LastDate.Format(dateLayout),
				nullable(s.AvgTMax), nullable(s.AvgTMin), nullable(s.AvgTemp),
				nullable(s.MeanPrecip), nullable(s.TotalPrecip))
			if err != nil {
				return fmt.Errorf("insert station summary %s: %w", s.Station, err)
			}
		}
		return nil
	})
}

func (w *Warehouse) replace(ctx context.Context, table string, fill func(*sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s load: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s load: %w", table, err)
	}
	return nil
}

// TopStationsByTemp ranks stations by average daily maximum temperature.
func (w *Warehouse) TopStationsByTemp(ctx context.Context, limit int) ([]domain.StationSummary, error) {
	return w.topStations(ctx, "avg_tmax", limit)
}

// TopStationsByPrecip ranks stations by mean daily precipitation.
func (w *Warehouse) TopStationsByPrecip(ctx context.Context, limit int) ([]domain.StationSummary, error) {
	return w.topStations(ctx, "mean_precip_mm", limit)
}

func (w *Warehouse) topStations(ctx context.Context, orderCol string, limit int) ([]domain.StationSummary, error) {
	query, args, err := sq.Select(
		"station", "record_count", "year_count", "first_date", "last_date",
		"avg_tmax", "avg_tmin", "avg_temp", "mean_precip_mm", "total_precip_mm",
	).
		From("station_summary").
		Where(sq.NotEq{orderCol: nil}).
		OrderBy(orderCol + " DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top stations query: %w", err)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			w.logger.Error("close station rows", "error", err)
		}
	}()

	var out []domain.StationSummary
	for rows.Next() {
		var (
			s                   domain.StationSummary
			first, last         string
			avgTMax, avgTMin    sql.NullFloat64
			avgTemp, meanPrecip sql.NullFloat64
			totalPrecip         sql.NullFloat64
		)
		err := rows.Scan(&s.Station, &s.RecordCount, &s.YearCount, &first, &last,
			&avgTMax, &avgTMin, &avgTemp, &meanPrecip, &totalPrecip)
		if err != nil {
			return nil, fmt.Errorf("scan station summary: %w", err)
		}
		if s.FirstDate, err = time.Parse(dateLayout, first); err != nil {
			return nil, fmt.Errorf("parse first_date %q: %w", first, err)
		}
		if s.LastDate, err = time.Parse(dateLayout, last); err != nil {
			return nil, fmt.Errorf("parse last_date %q: %w", last, err)
		}
		s.AvgTMax = fromNull(avgTMax)
		s.AvgTMin = fromNull(avgTMin)
		s.AvgTemp = fromNull(avgTemp)
		s.MeanPrecip = fromNull(meanPrecip)
		s.TotalPrecip = fromNull(totalPrecip)
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
