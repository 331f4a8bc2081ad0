// Package extractor normalizes a raw RFQ submission into the feature vector
// consumed by the match scorer. Extraction is pure and deterministic: no I/O,
// same input always yields the same vector.
package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/models"
)

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

var urgencyKeywords = []string{"urgent", "asap", "emergency"}

// Extract builds a FeatureVector from an RFQ. An RFQ with neither category
// nor description carries nothing to match on and fails extraction; every
// other missing field degrades to a neutral value.
func Extract(rfq models.RFQRequest) (models.FeatureVector, error) {
	category := strings.ToLower(strings.TrimSpace(rfq.Category))
	description := strings.TrimSpace(rfq.Description)

	if category == "" && description == "" {
		return models.FeatureVector{}, errors.NewExtractionFailedError(
			"rfq has neither category nor description")
	}

	fv := models.FeatureVector{
		Category: category,
		Tags:     normalizeTags(rfq.SpecTags),
		Quantity: parseQuantity(rfq.Quantity),
		Budget:   parseBudget(rfq.Budget),
		Deadline: rfq.Deadline,
		Urgency:  rfq.Urgency,
		Location: models.Location{
			Region:  strings.ToLower(strings.TrimSpace(rfq.Location.Region)),
			Country: strings.ToLower(strings.TrimSpace(rfq.Location.Country)),
		},
	}

	if fv.Urgency == "" {
		fv.Urgency = inferUrgency(description)
	}

	return fv, nil
}

// normalizeTags lowercases, trims and dedupes tags, keeping stable order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseQuantity pulls the first number out of free-form quantity text like
// "500 units" or "approx. 1,200 pcs". Unparseable text yields nil.
func parseQuantity(raw string) *float64 {
	n := firstNumbers(raw, 1)
	if len(n) == 0 {
		return nil
	}
	return &n[0]
}

// parseBudget reads up to two numbers from budget text. One number becomes a
// degenerate range (min == max); "10000-15000 USD" becomes a proper band.
func parseBudget(raw string) *models.BudgetRange {
	n := firstNumbers(raw, 2)
	switch len(n) {
	case 0:
		return nil
	case 1:
		return &models.BudgetRange{Min: n[0], Max: n[0]}
	default:
		lo, hi := n[0], n[1]
		if hi < lo {
			lo, hi = hi, lo
		}
		return &models.BudgetRange{Min: lo, Max: hi}
	}
}

func firstNumbers(raw string, limit int) []float64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	matches := numberPattern.FindAllString(raw, limit)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// inferUrgency scans the description for urgency keywords when the buyer
// left the urgency field unset.
func inferUrgency(description string) models.Urgency {
	lower := strings.ToLower(description)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return models.UrgencyHigh
		}
	}
	return models.UrgencyNormal
}
