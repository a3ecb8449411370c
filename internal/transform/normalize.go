package transform

import (
	"sort"
	"time"

	"ClimateTrend/internal/domain"
)

// Normalize reshapes raw element observations into one row per station and
// day, scaled by the given unit conversion. The first occurrence of an
// element wins and later duplicates are dropped. A missing element stays
// nil; it never becomes a zero.
func Normalize(records []domain.RawRecord, conv domain.UnitConversion) []domain.DailyRecord {
	type key struct {
		station string
		date    time.Time
	}

	grouped := make(map[key]*domain.DailyRecord)
	for _, r := range records {
		day := r.Date.UTC().Truncate(24 * time.Hour)
		k := key{station: r.Station, date: day}
		rec, ok := grouped[k]
		if !ok {
			rec = &domain.DailyRecord{Station: r.Station, Date: day}
			grouped[k] = rec
		}

		switch r.Element {
		case domain.ElementTMax:
			if rec.TMax == nil {
				v := r.Value * conv.TempFactor
				rec.TMax = &v
			}
		case domain.ElementTMin:
			if rec.TMin == nil {
				v := r.Value * conv.TempFactor
				rec.TMin = &v
			}
		case domain.ElementPrecip:
			if rec.Precip == nil {
				v := r.Value * conv.PrecipFactor
				rec.Precip = &v
			}
		}
	}

	out := make([]domain.DailyRecord, 0, len(grouped))
	for _, rec := range grouped {
		// Rows built solely from unrecognized elements carry nothing usable.
		if rec.TMax == nil && rec.TMin == nil && rec.Precip == nil {
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Station < out[j].Station
	})
	return out
}
