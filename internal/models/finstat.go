package models

import (
	"fmt"
	"strings"
)

// ReportCode identifies the reporting period of a disclosure.
type ReportCode string

const (
	ReportAnnual   ReportCode = "11011"
	ReportHalfYear ReportCode = "11012"
	ReportQ1       ReportCode = "11013"
	ReportQ3       ReportCode = "11014"
)

var reportLabels = map[ReportCode]string{
	ReportAnnual:   "사업보고서",
	ReportHalfYear: "반기보고서",
	ReportQ1:       "1분기보고서",
	ReportQ3:       "3분기보고서",
}

// Valid reports whether c is one of the known report codes.
func (c ReportCode) Valid() bool {
	_, ok := reportLabels[c]
	return ok
}

// Label returns the display name, or the raw code when unknown.
func (c ReportCode) Label() string {
	if l, ok := reportLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseReportCode validates a raw report code.
func ParseReportCode(raw string) (ReportCode, error) {
	c := ReportCode(strings.TrimSpace(raw))
	if !c.Valid() {
		return "", fmt.Errorf("unknown report code %q", raw)
	}
	return c, nil
}

// FsDiv selects consolidated or separate statements.
type FsDiv string

const (
	Consolidated FsDiv = "CFS"
	Separate     FsDiv = "OFS"
)

// ParseFsDiv accepts CFS/OFS in any case; empty defaults to consolidated.
func ParseFsDiv(raw string) (FsDiv, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(Consolidated):
		return Consolidated, nil
	case string(Separate):
		return Separate, nil
	default:
		return "", fmt.Errorf("unknown fs_div %q", raw)
	}
}

// Metric names one line of the fixed metric set.
type Metric string

const (
	Revenue          Metric = "revenue"
	OperatingIncome  Metric = "operating_income"
	NetIncome        Metric = "net_income"
	TotalAssets      Metric = "total_assets"
	TotalLiabilities Metric = "total_liabilities"
	TotalEquity      Metric = "total_equity"
)

// Metrics lists the fixed metric set in presentation order.
var Metrics = []Metric{
	Revenue,
	OperatingIncome,
	NetIncome,
	TotalAssets,
	TotalLiabilities,
	TotalEquity,
}

// FinancialRow is one normalized statement for a (year, report code, fs_div) combination.
type FinancialRow struct {
	CorpCode   string              `json:"corp_code"`
	Year       int                 `json:"year"`
	ReportCode ReportCode          `json:"reprt_code"`
	ReportName string              `json:"reprt_name"`
	FsDiv      FsDiv               `json:"fs_div"`
	Currency   string              `json:"currency,omitempty"`
	Values     map[Metric]*float64 `json:"values"`
}

// Value returns the metric value and whether the source carried it.
func (r FinancialRow) Value(m Metric) (float64, bool) {
	v := r.Values[m]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// TrendPoint is the mean of one metric across the rows of one year.
type TrendPoint struct {
	Year    int     `json:"year"`
	Metric  Metric  `json:"metric"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}
