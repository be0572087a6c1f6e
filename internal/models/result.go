package models

// NewsResult is the deduplicated answer to one news request.
type NewsResult struct {
	RequestID   string               `json:"request_id"`
	Source      string               `json:"source"`
	Query       string               `json:"query,omitempty"`
	Sort        string               `json:"sort"`
	Fetched     int                  `json:"fetched"`
	Items       []NormalizedNewsItem `json:"items"`
	Diagnostics []Diagnostic         `json:"diagnostics"`
}

// FinStatResult is the aggregated answer to one financial statement request.
type FinStatResult struct {
	RequestID   string         `json:"request_id"`
	CorpCode    string         `json:"corp_code"`
	Mode        string         `json:"mode"`
	Rows        []FinancialRow `json:"rows"`
	Trend       []TrendPoint   `json:"trend"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
}
