package triage

import (
	"encoding/json"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Outcome classifies candidate model output.
type Outcome int

const (
	OutcomeValid Outcome = iota + 1
	OutcomeInvalid
	OutcomeParseFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeParseFailure:
		return "parse_failure"
	default:
		return "unknown"
	}
}

// Messages recorded in a trace when model output is not JSON at all.
const (
	MsgInvalidJSON         = "Invalid JSON from model"
	MsgRepairedInvalidJSON = "Repaired JSON parse failed"
)

// CheckResult is the classification of one candidate text.
// Record is set only for OutcomeValid; Violations only for the other two.
type CheckResult struct {
	Outcome    Outcome
	Record     models.TriageRecord
	Violations []string
}

// Check parses raw as JSON and validates it against the record schema.
// The input must be a single JSON document; surrounding prose or trailing
// data is a parse failure.
func Check(raw string) CheckResult {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return CheckResult{Outcome: OutcomeParseFailure, Violations: []string{MsgInvalidJSON}}
	}
	rec, violations := Validate(doc)
	if len(violations) > 0 {
		return CheckResult{Outcome: OutcomeInvalid, Violations: violations}
	}
	return CheckResult{Outcome: OutcomeValid, Record: rec}
}
