package transform

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"ClimateTrend/internal/domain"
)

// FitTrend regresses yearly average temperature on year with ordinary least
// squares. Years without a defined average are left out; fewer than two
// usable years cannot constrain a line and yield ErrInsufficientData.
func FitTrend(summaries []domain.AnnualSummary) (domain.TrendResult, error) {
	var xs, ys []float64
	for _, s := range summaries {
		if s.AvgTemp == nil {
			continue
		}
		xs = append(xs, float64(s.Year))
		ys = append(ys, *s.AvgTemp)
	}
	if len(xs) < 2 {
		return domain.TrendResult{}, domain.ErrInsufficientData
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		// A flat series has zero variance and an undefined correlation.
		r = 0
	}

	meanX := stat.Mean(xs, nil)
	meanY := stat.Mean(ys, nil)
	var sxx, syy, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	df := float64(len(xs) - 2)
	sse := syy - slope*sxy
	if sse < 0 {
		sse = 0
	}

	var stderr float64
	if df > 0 && sxx > 0 {
		stderr = math.Sqrt(sse / df / sxx)
	}

	var p float64
	switch {
	case df <= 0:
		// Two points always fit exactly; there is no evidence either way.
		p = 1
	case stderr == 0:
		if slope == 0 {
			p = 1
		} else {
			p = 0
		}
	default:
		t := slope / stderr
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		p = 2 * dist.Survival(math.Abs(t))
	}

	return domain.TrendResult{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		PValue:    p,
		StdErr:    stderr,
		Years:     len(xs),
	}, nil
}
