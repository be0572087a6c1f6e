// Package finstat maps OpenDART full financial statement responses
// (fnlttSinglAcntAll) onto a fixed set of metrics.
package finstat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/corpradar/backend/internal/models"
)

// ErrMalformedSourceData means the payload is not a usable statement response.
var ErrMalformedSourceData = errors.New("malformed source data")

// StatusOK is the DART status code for a successful response.
const StatusOK = "000"

type matcher struct {
	accountIDs []string
	names      []string
	exclude    []string
}

// Element ids are tried first; space-stripped Korean account names are a
// fallback for filers using custom ids.
var matchers = map[models.Metric]matcher{
	models.Revenue: {
		accountIDs: []string{"ifrs-full_Revenue", "ifrs_Revenue"},
		names:      []string{"매출액", "수익(매출액)", "영업수익"},
	},
	models.OperatingIncome: {
		accountIDs: []string{"dart_OperatingIncomeLoss"},
		names:      []string{"영업이익"},
	},
	models.NetIncome: {
		accountIDs: []string{"ifrs-full_ProfitLoss", "ifrs_ProfitLoss"},
		names:      []string{"당기순이익"},
	},
	models.TotalAssets: {
		accountIDs: []string{"ifrs-full_Assets", "ifrs_Assets"},
		names:      []string{"자산총계"},
	},
	models.TotalLiabilities: {
		accountIDs: []string{"ifrs-full_Liabilities", "ifrs_Liabilities"},
		names:      []string{"부채총계"},
	},
	models.TotalEquity: {
		accountIDs: []string{"ifrs-full_Equity", "ifrs_Equity"},
		names:      []string{"자본총계"},
		exclude:    []string{"부채와자본", "부채및자본"},
	},
}

type line struct {
	accountID string
	name      string
	amount    *float64
}

// Normalize maps one raw statement response to a FinancialRow. Missing line
// items become nil values; only a structurally unusable payload is an error.
func Normalize(raw []byte, corpCode string, year int, code models.ReportCode, fsDiv models.FsDiv) (models.FinancialRow, error) {
	lines, currency, err := parse(raw)
	if err != nil {
		return models.FinancialRow{}, err
	}

	row := models.FinancialRow{
		CorpCode:   corpCode,
		Year:       year,
		ReportCode: code,
		ReportName: code.Label(),
		FsDiv:      fsDiv,
		Currency:   currency,
		Values:     make(map[models.Metric]*float64, len(models.Metrics)),
	}

	for _, metric := range models.Metrics {
		row.Values[metric] = find(lines, matchers[metric])
	}

	return row, nil
}

func parse(raw []byte) ([]line, string, error) {
	if !gjson.ValidBytes(raw) {
		return nil, "", fmt.Errorf("%w: invalid json", ErrMalformedSourceData)
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, "", fmt.Errorf("%w: not an object", ErrMalformedSourceData)
	}

	status := doc.Get("status")
	if !status.Exists() {
		return nil, "", fmt.Errorf("%w: missing status", ErrMalformedSourceData)
	}
	if status.String() != StatusOK {
		return nil, "", fmt.Errorf("%w: status %s: %s", ErrMalformedSourceData, status.String(), doc.Get("message").String())
	}

	list := doc.Get("list")
	if !list.IsArray() {
		return nil, "", fmt.Errorf("%w: missing list", ErrMalformedSourceData)
	}

	var (
		lines    []line
		currency string
	)
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		if currency == "" {
			currency = strings.TrimSpace(item.Get("currency").String())
		}
		lines = append(lines, line{
			accountID: strings.TrimSpace(item.Get("account_id").String()),
			name:      strings.Join(strings.Fields(item.Get("account_nm").String()), ""),
			amount:    ParseAmount(item.Get("thstrm_amount").String()),
		})
		return true
	})

	return lines, currency, nil
}

// find returns the first non-nil amount matching by element id, then by name.
func find(lines []line, m matcher) *float64 {
	for _, l := range lines {
		if l.amount == nil {
			continue
		}
		for _, id := range m.accountIDs {
			if l.accountID == id {
				return l.amount
			}
		}
	}

	for _, l := range lines {
		if l.amount == nil || excluded(l.name, m.exclude) {
			continue
		}
		for _, name := range m.names {
			if strings.Contains(l.name, name) {
				return l.amount
			}
		}
	}

	return nil
}

func excluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// ParseAmount parses a DART amount string such as "1,234,567" or "-9". Blank,
// "-" and "NaN" mean the source has no value.
func ParseAmount(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	switch s {
	case "", "-", "NaN", "nan":
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
