package triage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// TimestampLayout matches ISO 8601 with millisecond precision in UTC.
const TimestampLayout = models.TimestampLayout

// NewRunID returns an identifier combining the wall clock with 8 random hex
// characters, e.g. run_1718000000000_3f9a1c2e.
func NewRunID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("run_%d_%s", now.UnixMilli(), random[:8])
}

// FormatTimestamp renders t as stamped into meta.generatedAt.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// State is a step of the run state machine.
type State int

const (
	StateStarted State = iota
	StateGenerated
	StateParseFailed
	StateInvalid
	StateValid
	StateRepairing
	StateRepairFailed
	StateRepaired
	StateFinalized
)

var stateNames = map[State]string{
	StateStarted:      "STARTED",
	StateGenerated:    "GENERATED",
	StateParseFailed:  "PARSE_FAILED",
	StateInvalid:      "INVALID",
	StateValid:        "VALID",
	StateRepairing:    "REPAIRING",
	StateRepairFailed: "REPAIR_FAILED",
	StateRepaired:     "REPAIRED",
	StateFinalized:    "FINALIZED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var validTransitions = map[State][]State{
	StateStarted:     {StateGenerated},
	StateGenerated:   {StateParseFailed, StateInvalid, StateValid},
	StateParseFailed: {StateRepairing},
	StateInvalid:     {StateRepairing},
	StateValid:       {StateFinalized},
	StateRepairing:   {StateRepairFailed, StateRepaired},
	StateRepaired:    {StateFinalized},
}

// recorder accumulates the trace of a single run. It is owned by one
// goroutine and never shared.
type recorder struct {
	trace   models.RunTrace
	state   State
	history []State
	err     error
	now     func() time.Time
	logger  *slog.Logger
}

func newRecorder(runID, model string, ticketChars int, now func() time.Time, logger *slog.Logger) *recorder {
	return &recorder{
		trace: models.RunTrace{
			RunID:       runID,
			Model:       model,
			TicketChars: ticketChars,
			StartedAt:   stamp(now()),
			Flags:       []string{},
		},
		state:   StateStarted,
		history: []State{StateStarted},
		now:     now,
		logger:  logger.With(slog.String("run_id", runID)),
	}
}

// transition moves to the next state. The first illegal move is kept as a
// sticky error and reported when the trace is sealed.
func (r *recorder) transition(to State) {
	legal := false
	for _, s := range validTransitions[r.state] {
		if s == to {
			legal = true
			break
		}
	}
	if !legal && r.err == nil {
		r.err = fmt.Errorf("invalid run state transition: %s -> %s", r.state, to)
	}
	r.logger.Debug("run state changed", slog.String("from", r.state.String()), slog.String("to", to.String()))
	r.state = to
	r.history = append(r.history, to)
}

func (r *recorder) flag(flags ...string) {
	r.trace.Flags = append(r.trace.Flags, flags...)
}

// finalize seals a successful run.
func (r *recorder) finalize(rec models.TriageRecord) (models.RunTrace, error) {
	r.transition(StateFinalized)
	r.trace.FinishedAt = stamp(r.now())
	r.trace.ParseOK = true
	r.trace.Evaluation = &models.Evaluation{
		ChecklistCount: len(rec.InvestigationChecklist),
		QuestionCount:  len(rec.QuestionsToAsk),
	}
	r.logger.Debug("run trace sealed",
		slog.String("path", r.path()),
		slog.Bool("parse_ok", r.trace.ParseOK),
	)
	if r.err != nil {
		return models.RunTrace{}, r.err
	}
	return r.trace.Clone(), nil
}

// fail seals a run that ended in REPAIR_FAILED.
func (r *recorder) fail(violations []string) (models.RunTrace, error) {
	r.trace.FinishedAt = stamp(r.now())
	r.trace.ParseOK = false
	r.trace.ValidationErrors = append([]string{}, violations...)
	r.logger.Debug("run trace sealed",
		slog.String("path", r.path()),
		slog.Bool("parse_ok", r.trace.ParseOK),
	)
	if r.err != nil {
		return models.RunTrace{}, r.err
	}
	return r.trace.Clone(), nil
}

// path renders the visited states, e.g. STARTED>GENERATED>VALID>FINALIZED.
func (r *recorder) path() string {
	names := make([]string, len(r.history))
	for i, s := range r.history {
		names[i] = s.String()
	}
	return strings.Join(names, ">")
}

// stamp truncates to the millisecond precision traces are persisted with.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
