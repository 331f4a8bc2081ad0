package dispatcher

import (
	"fmt"
	"strings"

	"rfq-pipeline/internal/models"
)

const (
	defaultSubjectTemplate = "New RFQ match: {{category}}"
	defaultBodyTemplate    = "Hello {{supplierName}}, you matched RFQ {{rfqId}} " +
		"in category {{category}} with a score of {{score}}. " +
		"Log in to review the request and respond with a quote."
)

// renderTemplate substitutes {{placeholder}} tokens in a template string.
func renderTemplate(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// buildPayload renders the match notification for one supplier.
func buildPayload(rfq models.RFQRequest, match models.MatchResult, supplier models.SupplierProfile) Payload {
	name := supplier.Name
	if name == "" {
		name = "supplier"
	}
	data := map[string]string{
		"rfqId":        rfq.ID,
		"category":     rfq.Category,
		"score":        fmt.Sprintf("%.1f", match.Score),
		"supplierName": name,
	}
	return Payload{
		Subject: renderTemplate(defaultSubjectTemplate, data),
		Body:    renderTemplate(defaultBodyTemplate, data),
	}
}
