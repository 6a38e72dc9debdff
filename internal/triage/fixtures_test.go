package triage_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const paymentTicket = `Customers report that the payment submission spinner never stops on checkout.
The payments-api logs show repeated timeouts from the card processor since 09:00 UTC.`

// validDoc returns a decoded record containing only required fields.
func validDoc() map[string]any {
	return map[string]any{
		"title":              "Payment submission stuck on checkout",
		"ticketType":         "bug",
		"severity":           "sev1",
		"summary":            "Payment submissions hang and never complete.",
		"userImpact":         "Customers cannot finish purchases.",
		"observedBehavior":   "Spinner never stops after clicking Pay.",
		"expectedBehavior":   "Payment completes and a receipt is shown.",
		"suspectedComponent": nil,
		"investigationChecklist": []any{
			map[string]any{"item": "Check payments-api timeout logs"},
		},
		"requesterReply": map[string]any{
			"subject": "Re: Payment stuck",
			"body":    "We are investigating the payment timeouts.",
		},
		"confidence": map[string]any{
			"classification":    0.9,
			"investigationPlan": 0.8,
			"responseDraft":     0.7,
		},
		"meta": map[string]any{
			"source":      "ticket",
			"generatedAt": "2025-01-15T12:00:00.000Z",
		},
	}
}

func docJSON(t *testing.T, doc map[string]any) string {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

func validJSON(t *testing.T, mutate ...func(map[string]any)) string {
	t.Helper()
	doc := validDoc()
	for _, m := range mutate {
		m(doc)
	}
	return docJSON(t, doc)
}
