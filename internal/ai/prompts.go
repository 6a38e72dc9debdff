package ai

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Prompt is one system and user message pair.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You are a ticket triage agent. Output MUST be valid JSON matching the schema exactly. No markdown fences, no extra text.

Type rules (arrays MUST NOT be null):
- questionsToAsk: array of { "question": string, "why": string }
- investigationChecklist: array of { "item": string, "owner"?: string, "status"?: "todo"|"done"|"blocked" } (min 1 item)
- reproSteps, proposedFixPlan, acceptanceCriteria: arrays (use [] not null)
- confidence: { "classification": number, "investigationPlan": number, "responseDraft": number }, numbers 0..1
- suspectedComponent: string or null

Rules:
- Do NOT invent repro steps, observed/expected behavior, component, owners, or acceptance criteria if not present in the ticket.
- Use suspectedComponent: null when unknown.
- Use reproSteps: [] when not provided.
- Put missing info into questionsToAsk.
- investigationChecklist must have at least 1 item.
- Confidence scores (0..1) should be conservative.
- Reply draft: concise, professional, no timeline promises. Ask key missing questions if any.

Severity:
- sev0: production outage / safety / data loss happening now
- sev1: major functionality broken for many users
- sev2: partial degradation / workaround exists / limited users
- sev3: minor issue / cosmetic / informational

Ticket type:
- bug: broken behavior
- feature: new capability request
- data: reporting/data inconsistency/ETL issues
- support: how-to/access/request`

const repairSystemPrompt = `You are a JSON repair function. Output ONLY valid JSON matching the schema. No extra keys. Fix type mismatches.

Required shapes:
- questionsToAsk: array of objects { "question": string, "why": string }
- investigationChecklist: array of objects { "item": string, "owner"?: string, "status"?: "todo"|"done"|"blocked" } (min 1 item)
- Arrays must be [] not null
- confidence.* must be numbers 0..1 (not strings)
- suspectedComponent must be string or null`

const shapeSnippet = `{
  "questionsToAsk": [{"question":"...","why":"..."}],
  "investigationChecklist": [{"item":"...","status":"todo"}],
  "proposedFixPlan": [],
  "acceptanceCriteria": [],
  "confidence": {"classification": 0.7, "investigationPlan": 0.6, "responseDraft": 0.8}
}`

// GeneratePrompt builds the messages asking a model to triage a ticket.
func GeneratePrompt(req models.GenerateRequest) Prompt {
	tone := "Use a neutral, professional tone in the reply draft."
	if req.Tone == models.ToneDirect {
		tone = "Be direct and concise in the reply draft."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Triage this %s:\n\n", req.Source)
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", req.Title)
	}
	fmt.Fprintf(&b, "Content:\n%s\n\n%s\n\n", req.TicketText, tone)
	fmt.Fprintf(&b, "Output valid JSON. Example shape snippet (types only):\n%s\n\n", shapeSnippet)
	fmt.Fprintf(&b, "Full schema: title, ticketType, severity, summary, userImpact, reproSteps, observedBehavior, "+
		"expectedBehavior, suspectedComponent, questionsToAsk, investigationChecklist (min 1), proposedFixPlan, "+
		"acceptanceCriteria, requesterReply (subject, body), confidence, meta (source: %q, generatedAt: ISO 8601 string).",
		string(req.Source))

	return Prompt{System: systemPrompt, User: b.String()}
}

// RepairPrompt builds the messages asking a model to fix rejected JSON.
func RepairPrompt(req models.RepairRequest) Prompt {
	user := "Here is invalid JSON:\n\n" + req.RawText +
		"\n\nHere are validation errors:\n\n" + strings.Join(req.Violations, "\n") +
		"\n\nFix so it matches required shapes. Return repaired JSON only."
	return Prompt{System: repairSystemPrompt, User: user}
}
