package eval

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Summary is the compact view of a case output kept in reports.
type Summary struct {
	TicketType     string   `json:"ticketType"`
	Severity       string   `json:"severity"`
	ChecklistCount int      `json:"checklistCount"`
	QuestionCount  int      `json:"questionCount"`
	Flags          []string `json:"flags"`
}

// Check applies the case expectations to a validated record and returns the
// failures found, in a fixed order.
func Check(c Case, rec models.TriageRecord) []string {
	var failures []string
	checklist := len(rec.InvestigationChecklist)
	questions := len(rec.QuestionsToAsk)

	if checklist < 1 {
		failures = append(failures, "investigationChecklist must have at least 1 item")
	}
	if len(c.Expect.TicketType) > 0 && !contains(c.Expect.TicketType, rec.TicketType) {
		failures = append(failures, fmt.Sprintf("ticketType %q not in allowed [%s]", rec.TicketType, join(c.Expect.TicketType)))
	}
	if len(c.Expect.Severity) > 0 && !contains(c.Expect.Severity, rec.Severity) {
		failures = append(failures, fmt.Sprintf("severity %q not in allowed [%s]", rec.Severity, join(c.Expect.Severity)))
	}

	minItems := 1
	if c.Expect.MinChecklistItems != nil {
		minItems = *c.Expect.MinChecklistItems
	}
	if checklist < minItems {
		failures = append(failures, fmt.Sprintf("checklistCount %d < minChecklistItems %d", checklist, minItems))
	}

	if c.Expect.MustHaveQuestions && questions < 1 {
		failures = append(failures, "mustHaveQuestions true but questionCount < 1")
	}

	// Stricter than the runtime guardrail: a component the ticket never
	// mentions fails the case outright.
	if comp := rec.SuspectedComponent; comp != nil && *comp != "" &&
		!strings.Contains(strings.ToLower(c.TicketText), strings.ToLower(*comp)) {
		failures = append(failures, fmt.Sprintf("suspectedComponent %q not found in ticket text", *comp))
	}

	return failures
}

func summarize(rec models.TriageRecord, flags []string) Summary {
	if flags == nil {
		flags = []string{}
	}
	return Summary{
		TicketType:     string(rec.TicketType),
		Severity:       string(rec.Severity),
		ChecklistCount: len(rec.InvestigationChecklist),
		QuestionCount:  len(rec.QuestionsToAsk),
		Flags:          flags,
	}
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func join[T ~string](list []T) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
