// internal/models/match.go
package models

// MatchFactor is one weighted sub-score contributing to a match.
type MatchFactor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"` // normalized 0-1 before weighting
}

// MatchResult scores one (RFQ, supplier) pair. At most one exists per pair;
// recomputation replaces the stored row.
type MatchResult struct {
	RFQID      string        `json:"rfqId"`
	SupplierID string        `json:"supplierId"`
	Score      float64       `json:"score"` // 0-100
	Factors    []MatchFactor `json:"factors"`
	Rank       int           `json:"rank"`
}
