package extract

import (
	"time"

	"ClimateTrend/internal/domain"
)

// Windows enumerates the calendar months covering [startYear, endYear),
// oldest first. Each window spans the first through the last day of one
// month, so consecutive windows are contiguous and never overlap.
func Windows(startYear, endYear int) []domain.Window {
	if startYear >= endYear {
		return nil
	}

	out := make([]domain.Window, 0, (endYear-startYear)*12)
	for year := startYear; year < endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			out = append(out, domain.Window{
				Start: start,
				End:   start.AddDate(0, 1, -1),
			})
		}
	}
	return out
}
