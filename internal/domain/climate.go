package domain

import (
	"fmt"
	"time"
)

// Element identifies a GHCND daily observation type.
type Element string

const (
	ElementTMax   Element = "TMAX"
	ElementTMin   Element = "TMIN"
	ElementPrecip Element = "PRCP"
)

// Window is one calendar month of the extraction range.
type Window struct {
	Start time.Time
	End   time.Time
}

// ID returns the stable window identifier used for checkpointing.
func (w Window) ID() string {
	return w.Start.Format("2006-01")
}

// StartDate and EndDate render the window bounds as API date parameters.
func (w Window) StartDate() string { return w.Start.Format("2006-01-02") }
func (w Window) EndDate() string   { return w.End.Format("2006-01-02") }

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.StartDate(), w.EndDate())
}

// RawRecord is a single station/date/element observation as delivered upstream.
type RawRecord struct {
	Station    string
	Date       time.Time
	Element    Element
	Value      float64
	Attributes string
}

// FirstPageOffset is the offset of the first page of a resultset. CDO
// offsets are 1-based.
const FirstPageOffset = 1

// Page is one bounded slice of a window's observations.
type Page struct {
	Records []RawRecord
	// HasMore reports whether the upstream resultset extends past this page.
	HasMore bool
	// NextOffset is the server-reported offset of the following page.
	NextOffset int
	// Total is the resultset size reported by the upstream metadata.
	Total int
}

// DailyRecord is the normalized per-station, per-day row. A nil measurement
// means the station did not report that element; it is never a zero.
type DailyRecord struct {
	Station string
	Date    time.Time
	TMax    *float64
	TMin    *float64
	Precip  *float64
}

// UnitConversion scales raw observation values into degrees Celsius and
// millimetres. The upstream metric mode already delivers those units.
type UnitConversion struct {
	TempFactor   float64
	PrecipFactor float64
}

var (
	// MetricUnits passes values through unchanged.
	MetricUnits = UnitConversion{TempFactor: 1, PrecipFactor: 1}
	// TenthsUnits converts the GHCND raw encoding (tenths of a unit).
	TenthsUnits = UnitConversion{TempFactor: 0.1, PrecipFactor: 0.1}
)

// AnnualSummary aggregates one calendar year. Nil measurements mean no
// station reported that element for the year.
type AnnualSummary struct {
	Year         int
	AvgTMax      *float64
	AvgTMin      *float64
	AvgTemp      *float64
	TotalPrecip  *float64
	StationCount int
	RecordCount  int
}

// StationSummary aggregates the full history of one station.
type StationSummary struct {
	Station     string
	RecordCount int
	YearCount   int
	FirstDate   time.Time
	LastDate    time.Time
	AvgTMax     *float64
	AvgTMin     *float64
	AvgTemp     *float64
	MeanPrecip  *float64
	TotalPrecip *float64
}

// TrendResult is an ordinary least squares fit of yearly average
// temperature against year.
type TrendResult struct {
	Slope     float64
	Intercept float64
	R         float64
	PValue    float64
	StdErr    float64
	Years     int
}

// PerDecade expresses the fitted slope as degrees per decade.
func (t TrendResult) PerDecade() float64 {
	return t.Slope * 10
}

// WindowFailure records a window that exhausted its attempts or hit a
// terminal fetch error.
type WindowFailure struct {
	Window string
	Reason string
}

// RunReport summarizes one pipeline run for logging and digests.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Planned    int
	Skipped    int
	Completed  []string
	Failed     []WindowFailure
	Records    int
	Warnings   []string
}

// Attempted reports how many windows were actually fetched this run.
func (r RunReport) Attempted() int {
	return r.Planned - r.Skipped
}
