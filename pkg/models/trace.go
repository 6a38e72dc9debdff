package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is ISO 8601 in UTC with millisecond precision. Every
// timestamp a run emits uses it.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Flags appended to a RunTrace. Several may co-occur; order is emission order.
const (
	FlagValidationFailed     = "VALIDATION_FAILED"
	FlagRepairFailed         = "REPAIR_FAILED"
	FlagRepairedOutput       = "REPAIRED_OUTPUT"
	FlagComponentNotInTicket = "COMPONENT_NOT_IN_TICKET"
	FlagReproMayBeInferred   = "REPRO_MAY_BE_INFERRED"
	FlagLowConfidenceOutput  = "LOW_CONFIDENCE_OUTPUT"
)

// RunTrace is the audit record of one pipeline execution. Exactly one of
// ValidationErrors (failed run) and Evaluation (successful run) is set.
type RunTrace struct {
	RunID            string      `json:"runId"`
	Model            string      `json:"model"`
	TicketChars      int         `json:"ticketChars"`
	StartedAt        time.Time   `json:"startedAt"`
	FinishedAt       time.Time   `json:"finishedAt"`
	Flags            []string    `json:"flags"`
	ParseOK          bool        `json:"parseOk"`
	ValidationErrors []string    `json:"validationErrors,omitempty"`
	Evaluation       *Evaluation `json:"evaluation,omitempty"`
}

type traceJSON RunTrace

// MarshalJSON writes StartedAt and FinishedAt in TimestampLayout so a trace
// carries one timestamp format throughout.
func (t RunTrace) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		traceJSON
		StartedAt  string `json:"startedAt"`
		FinishedAt string `json:"finishedAt"`
	}{
		traceJSON:  traceJSON(t),
		StartedAt:  t.StartedAt.UTC().Format(TimestampLayout),
		FinishedAt: t.FinishedAt.UTC().Format(TimestampLayout),
	})
}

// UnmarshalJSON accepts any RFC 3339 timestamp, millisecond or not.
func (t *RunTrace) UnmarshalJSON(data []byte) error {
	aux := struct {
		*traceJSON
		StartedAt  string `json:"startedAt"`
		FinishedAt string `json:"finishedAt"`
	}{traceJSON: (*traceJSON)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if t.StartedAt, err = parseTraceTime("startedAt", aux.StartedAt); err != nil {
		return err
	}
	t.FinishedAt, err = parseTraceTime("finishedAt", aux.FinishedAt)
	return err
}

func parseTraceTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("trace %s: %w", field, err)
	}
	return ts.UTC(), nil
}

// Evaluation summarises a successful run's record.
type Evaluation struct {
	ChecklistCount int `json:"checklistCount"`
	QuestionCount  int `json:"questionCount"`
}

// HasFlag reports whether flag was emitted during the run.
func (t RunTrace) HasFlag(flag string) bool {
	for _, f := range t.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share slices with the recorder.
func (t RunTrace) Clone() RunTrace {
	out := t
	out.Flags = append([]string{}, t.Flags...)
	if t.ValidationErrors != nil {
		out.ValidationErrors = append([]string{}, t.ValidationErrors...)
	}
	if t.Evaluation != nil {
		ev := *t.Evaluation
		out.Evaluation = &ev
	}
	return out
}

// RunRecord is a persisted run: the trace plus whatever the run produced.
// Result and Markdown are nil for failed runs.
type RunRecord struct {
	RunID        string        `json:"runId"`
	Title        string        `json:"title"`
	Source       Source        `json:"source"`
	Provider     string        `json:"provider"`
	// Fingerprint identifies the ticket text; see internal/fingerprint.
	Fingerprint  string        `json:"fingerprint"`
	Trace        RunTrace      `json:"trace"`
	Result       *TriageRecord `json:"result,omitempty"`
	Markdown     *string       `json:"markdown,omitempty"`
	RawText      string        `json:"rawText"`
	RepairedText *string       `json:"repairedText,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}
