package triage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

func loginRecord() models.TriageRecord {
	return models.TriageRecord{
		Title:              "Login fails with 500 error",
		TicketType:         models.TicketTypeBug,
		Severity:           models.Sev1,
		Summary:            "Users cannot log in when submitting credentials.",
		UserImpact:         "All users attempting login are blocked.",
		ReproSteps:         []string{"Navigate to /login", "Enter credentials", "Click Sign in"},
		ObservedBehavior:   "API returns 500 Internal Server Error.",
		ExpectedBehavior:   "User is authenticated and redirected to dashboard.",
		SuspectedComponent: strPtr("auth-service"),
		QuestionsToAsk: []models.Question{
			{Question: "When did this start?", Why: "Identify deployment window."},
		},
		InvestigationChecklist: []models.ChecklistItem{
			{Item: "Check auth service logs", Owner: strPtr("DevOps"), Status: models.StatusTodo},
			{Item: "Verify DB connectivity", Status: models.StatusDone},
		},
		ProposedFixPlan: []string{"Restart auth pods", "Rollback if needed"},
		AcceptanceCriteria: []models.AcceptanceCriterion{
			{Criterion: "Login returns 200 for valid credentials"},
			{Criterion: "User sees dashboard after login"},
		},
		RequesterReply: models.RequesterReply{
			Subject: "Re: Login issue, investigating",
			Body:    "We are looking into the auth service. ETA for update: 2 hours.",
		},
		Confidence: models.Confidence{Classification: 0.9, InvestigationPlan: 0.8, ResponseDraft: 0.7},
		Meta:       models.RecordMeta{Source: models.SourceTicket, GeneratedAt: "2025-01-15T12:00:00.000Z"},
	}
}

func TestRenderMarkdown_Golden(t *testing.T) {
	want := `# Login fails with 500 error

Type: bug | Severity: sev1
Component: auth-service
Generated: 2025-01-15T12:00:00.000Z

## Summary
Users cannot log in when submitting credentials.

## User Impact
All users attempting login are blocked.

## Observed vs Expected
**Observed:** API returns 500 Internal Server Error.
**Expected:** User is authenticated and redirected to dashboard.

## Repro Steps
- Navigate to /login
- Enter credentials
- Click Sign in

## Questions to Ask
- Q: When did this start? (Why: Identify deployment window.)

## Investigation Checklist
- [ ] Check auth service logs (Owner: DevOps) (Status: todo)
- [x] Verify DB connectivity (Status: done)

## Proposed Fix Plan
- Restart auth pods
- Rollback if needed

## Acceptance Criteria
- Login returns 200 for valid credentials
- User sees dashboard after login

## Reply Draft
**Subject:** Re: Login issue, investigating

We are looking into the auth service. ETA for update: 2 hours.
`
	assert.Equal(t, want, triage.RenderMarkdown(loginRecord()))
}

func TestRenderMarkdown_NullComponent(t *testing.T) {
	rec := loginRecord()
	rec.SuspectedComponent = nil
	assert.Contains(t, triage.RenderMarkdown(rec), "Component: Unclear\n")
}

func TestRenderMarkdown_EmptySequenceFallbacks(t *testing.T) {
	rec := loginRecord()
	rec.ReproSteps = nil
	rec.QuestionsToAsk = nil
	rec.ProposedFixPlan = []string{}
	rec.AcceptanceCriteria = nil

	md := triage.RenderMarkdown(rec)
	assert.Contains(t, md, "## Repro Steps\n- None provided.\n")
	assert.Contains(t, md, "## Questions to Ask\n- None.\n")
	assert.Contains(t, md, "## Proposed Fix Plan\n- Not proposed yet.\n")
	assert.Contains(t, md, "## Acceptance Criteria\n- None defined.\n")
}

func TestRenderMarkdown_CheckboxKeyedOnDone(t *testing.T) {
	rec := loginRecord()
	rec.InvestigationChecklist = []models.ChecklistItem{
		{Item: "a", Status: models.StatusDone},
		{Item: "b", Status: models.StatusBlocked},
		{Item: "c", Status: models.StatusTodo},
		{Item: "d", Owner: strPtr("")},
	}

	md := triage.RenderMarkdown(rec)
	assert.Contains(t, md, "- [x] a (Status: done)\n")
	assert.Contains(t, md, "- [ ] b (Status: blocked)\n")
	assert.Contains(t, md, "- [ ] c (Status: todo)\n")
	assert.Contains(t, md, "- [ ] d (Status: todo)\n")
}

func TestRenderMarkdown_Deterministic(t *testing.T) {
	rec := loginRecord()
	assert.Equal(t, triage.RenderMarkdown(rec), triage.RenderMarkdown(rec))
}
