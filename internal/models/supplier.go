// internal/models/supplier.go
package models

// SupplierProfile is a candidate supplier as read from the supplier store.
// The matching pipeline never mutates these; each pipeline run works on a
// point-in-time snapshot.
type SupplierProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	Categories    []string `json:"categories"`
	Location      Location `json:"location"`
	Verified      bool     `json:"verified"`
	Rating        *float64 `json:"rating,omitempty"` // 0-5; nil scores as zero
	ResponseRate  float64  `json:"responseRate"`     // 0-1
	SpecTags      []string `json:"specTags,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"emailVerified,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	WebhookURL    string   `json:"webhookUrl,omitempty"`
}
