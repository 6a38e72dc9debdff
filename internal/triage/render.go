package triage

import (
	"strings"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// RenderMarkdown projects a record into a fixed-layout markdown report.
// The output always ends with a newline.
func RenderMarkdown(rec models.TriageRecord) string {
	component := "Unclear"
	if rec.SuspectedComponent != nil {
		component = *rec.SuspectedComponent
	}

	lines := []string{
		"# " + rec.Title,
		"",
		"Type: " + string(rec.TicketType) + " | Severity: " + string(rec.Severity),
		"Component: " + component,
		"Generated: " + rec.Meta.GeneratedAt,
		"",
		"## Summary",
		rec.Summary,
		"",
		"## User Impact",
		rec.UserImpact,
		"",
		"## Observed vs Expected",
		"**Observed:** " + rec.ObservedBehavior,
		"**Expected:** " + rec.ExpectedBehavior,
		"",
		"## Repro Steps",
	}
	lines = append(lines, bullets(rec.ReproSteps, "None provided.")...)

	lines = append(lines, "", "## Questions to Ask")
	questions := make([]string, 0, len(rec.QuestionsToAsk))
	for _, q := range rec.QuestionsToAsk {
		questions = append(questions, "Q: "+q.Question+" (Why: "+q.Why+")")
	}
	lines = append(lines, bullets(questions, "None.")...)

	lines = append(lines, "", "## Investigation Checklist")
	for _, c := range rec.InvestigationChecklist {
		lines = append(lines, checklistLine(c))
	}

	lines = append(lines, "", "## Proposed Fix Plan")
	lines = append(lines, bullets(rec.ProposedFixPlan, "Not proposed yet.")...)

	lines = append(lines, "", "## Acceptance Criteria")
	criteria := make([]string, 0, len(rec.AcceptanceCriteria))
	for _, a := range rec.AcceptanceCriteria {
		criteria = append(criteria, a.Criterion)
	}
	lines = append(lines, bullets(criteria, "None defined.")...)

	lines = append(lines,
		"",
		"## Reply Draft",
		"**Subject:** "+rec.RequesterReply.Subject,
		"",
		rec.RequesterReply.Body,
	)

	return strings.Join(lines, "\n") + "\n"
}

func checklistLine(c models.ChecklistItem) string {
	status := c.Status
	if status == "" {
		status = models.StatusTodo
	}
	box := "[ ]"
	if status == models.StatusDone {
		box = "[x]"
	}
	var b strings.Builder
	b.WriteString("- " + box + " " + c.Item)
	if c.Owner != nil && *c.Owner != "" {
		b.WriteString(" (Owner: " + *c.Owner + ")")
	}
	b.WriteString(" (Status: " + string(status) + ")")
	return b.String()
}

func bullets(items []string, fallback string) []string {
	if len(items) == 0 {
		return []string{"- " + fallback}
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "- " + s
	}
	return out
}
