package transform

import (
	"sort"
	"time"

	"ClimateTrend/internal/domain"
)

type measureAcc struct {
	sumTMax   float64
	nTMax     int
	sumTMin   float64
	nTMin     int
	sumPrecip float64
	nPrecip   int
	records   int
}

func (a *measureAcc) add(rec domain.DailyRecord) {
	a.records++
	if rec.TMax != nil {
		a.sumTMax += *rec.TMax
		a.nTMax++
	}
	if rec.TMin != nil {
		a.sumTMin += *rec.TMin
		a.nTMin++
	}
	if rec.Precip != nil {
		a.sumPrecip += *rec.Precip
		a.nPrecip++
	}
}

// Summarize derives yearly and per-station aggregates from daily records.
// Only present measurements contribute to sums and counts; a station that
// never reported precipitation keeps a nil total instead of a zero. Years
// inside the observed range with no records at all still appear, with nil
// measurements, so gaps stay visible downstream.
func Summarize(records []domain.DailyRecord) ([]domain.AnnualSummary, []domain.StationSummary) {
	if len(records) == 0 {
		return nil, nil
	}

	type yearAcc struct {
		measureAcc
		stations map[string]bool
	}
	type stationAcc struct {
		measureAcc
		years map[int]bool
		first time.Time
		last  time.Time
	}

	years := make(map[int]*yearAcc)
	stations := make(map[string]*stationAcc)

	for _, rec := range records {
		year := rec.Date.Year()

		ya, ok := years[year]
		if !ok {
			ya = &yearAcc{stations: make(map[string]bool)}
			years[year] = ya
		}
		ya.add(rec)
		ya.stations[rec.Station] = true

		sa, ok := stations[rec.Station]
		if !ok {
			sa = &stationAcc{years: make(map[int]bool), first: rec.Date, last: rec.Date}
			stations[rec.Station] = sa
		}
		sa.add(rec)
		sa.years[year] = true
		if rec.Date.Before(sa.first) {
			sa.first = rec.Date
		}
		if rec.Date.After(sa.last) {
			sa.last = rec.Date
		}
	}

	minYear, maxYear := 0, 0
	for year := range years {
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}

	annual := make([]domain.AnnualSummary, 0, maxYear-minYear+1)
	for year := minYear; year <= maxYear; year++ {
		ya, ok := years[year]
		if !ok {
			annual = append(annual, domain.AnnualSummary{Year: year})
			continue
		}
		avgTMax := mean(ya.sumTMax, ya.nTMax)
		avgTMin := mean(ya.sumTMin, ya.nTMin)
		annual = append(annual, domain.AnnualSummary{
			Year:         year,
			AvgTMax:      avgTMax,
			AvgTMin:      avgTMin,
			AvgTemp:      midpoint(avgTMax, avgTMin),
			TotalPrecip:  total(ya.sumPrecip, ya.nPrecip),
			StationCount: len(ya.stations),
			RecordCount:  ya.records,
		})
	}

	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stationSummaries := make([]domain.StationSummary, 0, len(ids))
	for _, id := range ids {
		sa := stations[id]
		avgTMax := mean(sa.sumTMax, sa.nTMax)
		avgTMin := mean(sa.sumTMin, sa.nTMin)
		stationSummaries = append(stationSummaries, domain.StationSummary{
			Station:     id,
			RecordCount: sa.records,
			YearCount:   len(sa.years),
			FirstDate:   sa.first,
			LastDate:    sa.last,
			AvgTMax:     avgTMax,
			AvgTMin:     avgTMin,
			AvgTemp:     midpoint(avgTMax, avgTMin),
			MeanPrecip:  mean(sa.sumPrecip, sa.nPrecip),
			TotalPrecip: total(sa.sumPrecip, sa.nPrecip),
		})
	}

	return annual, stationSummaries
}

func mean(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := sum / float64(n)
	return &v
}

func total(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := sum
	return &v
}

// midpoint averages the two sides when both exist and degrades to whichever
// side is present when one is missing.
func midpoint(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := (*a + *b) / 2
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	default:
		return nil
	}
}
