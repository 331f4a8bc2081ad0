// internal/models/rfq.go
package models

import "time"

// Urgency levels for an RFQ.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// BudgetRange is the buyer's acceptable spend band.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Location identifies where a buyer needs delivery or a supplier operates.
type Location struct {
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// RFQRequest is one buyer's request for quote as submitted. Quantity and
// Budget arrive as free-form text from the buyer form; the extractor
// normalizes them into numerics. Immutable once persisted.
type RFQRequest struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Quantity    string     `json:"quantity,omitempty"`
	Budget      string     `json:"budget,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Urgency     Urgency    `json:"urgency,omitempty"`
	SpecTags    []string   `json:"specTags,omitempty"`
	Location    Location   `json:"location,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FeatureVector is the normalized output of feature extraction. Missing
// quantity or budget stays nil and scores as neutral downstream.
type FeatureVector struct {
	Category string       `json:"category"`
	Tags     []string     `json:"tags"`
	Quantity *float64     `json:"quantity,omitempty"`
	Budget   *BudgetRange `json:"budget,omitempty"`
	Deadline *time.Time   `json:"deadline,omitempty"`
	Urgency  Urgency      `json:"urgency"`
	Location Location     `json:"location,omitempty"`
}
