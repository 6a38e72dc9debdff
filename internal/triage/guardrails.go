package triage

import (
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// DefaultReproThreshold is the ticket length, in characters, below which
// non-empty repro steps are assumed to be partly invented by the model.
const DefaultReproThreshold = 800

// LowConfidenceThreshold is the strict lower bound on any confidence score.
const LowConfidenceThreshold = 0.5

// Guardrails evaluates advisory heuristics over a validated record.
// Flags never block a run.
type Guardrails struct {
	ReproThreshold int
}

// Evaluate returns the guardrail flags for rec in a fixed order:
// component, repro, confidence.
func (g Guardrails) Evaluate(rec models.TriageRecord, ticketText string) []string {
	threshold := g.ReproThreshold
	if threshold <= 0 {
		threshold = DefaultReproThreshold
	}

	var flags []string
	lowerTicket := strings.ToLower(ticketText)

	if rec.SuspectedComponent != nil &&
		!strings.Contains(lowerTicket, strings.ToLower(*rec.SuspectedComponent)) {
		flags = append(flags, models.FlagComponentNotInTicket)
	}

	if utf8.RuneCountInString(ticketText) < threshold && hasStepNotIn(rec.ReproSteps, lowerTicket) {
		flags = append(flags, models.FlagReproMayBeInferred)
	}

	c := rec.Confidence
	if c.Classification < LowConfidenceThreshold ||
		c.InvestigationPlan < LowConfidenceThreshold ||
		c.ResponseDraft < LowConfidenceThreshold {
		flags = append(flags, models.FlagLowConfidenceOutput)
	}
	return flags
}

// hasStepNotIn reports whether any non-empty step is absent from the
// already lowercased ticket text.
func hasStepNotIn(steps []string, lowerTicket string) bool {
	for _, s := range steps {
		if s != "" && !strings.Contains(lowerTicket, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
