package eval_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kiranshivaraju/triage/internal/ai"
	"github.com/kiranshivaraju/triage/internal/ai/mock"
	"github.com/kiranshivaraju/triage/internal/eval"
	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type runnerFunc func(ctx context.Context, req triage.Request) (*triage.Result, error)

func (f runnerFunc) Run(ctx context.Context, req triage.Request) (*triage.Result, error) {
	return f(ctx, req)
}

var fixedNow = func() time.Time {
	return time.Date(2025, 1, 15, 12, 0, 0, 123_000_000, time.UTC)
}

type reportFile struct {
	Input struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"input"`
	Output   eval.Summary `json:"output"`
	Pass     bool         `json:"pass"`
	Failures []string     `json:"failures"`
}

func readReport(t *testing.T, path string) reportFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var r reportFile
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestHarness_RealServiceWithMockGenerator(t *testing.T) {
	dir := t.TempDir()
	svc := triage.NewService(mock.NewGenerator())
	h := eval.NewHarness(svc, dir, eval.WithClock(fixedNow))

	cases := []eval.Case{
		{
			ID:         "stuck-payment",
			Title:      "Payment stuck",
			TicketText: "Clicking Pay spins forever; payments-api shows timeouts.",
			Expect:     eval.Expectation{TicketType: []models.TicketType{"bug"}, Severity: []models.Severity{"sev0", "sev1"}, MustHaveQuestions: true},
		},
		{
			ID:         "wrong-type",
			TicketText: "Please add dark mode to the dashboard.",
			Expect:     eval.Expectation{TicketType: []models.TicketType{"feature"}},
		},
	}

	results, err := h.Run(t.Context(), cases)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Pass)
	assert.Empty(t, results[0].Failures)
	assert.Equal(t, filepath.Join(dir, "stuck-payment.2025-01-15T12-00-00-123Z.json"), results[0].ReportPath)

	assert.False(t, results[1].Pass)
	assert.Equal(t, []string{
		`ticketType "bug" not in allowed [feature]`,
		`suspectedComponent "payments-api" not found in ticket text`,
	}, results[1].Failures)

	got := readReport(t, results[1].ReportPath)
	want := reportFile{}
	want.Input.ID = "wrong-type"
	want.Output = eval.Summary{
		TicketType:     "bug",
		Severity:       "sev1",
		ChecklistCount: 1,
		QuestionCount:  1,
		Flags:          []string{models.FlagComponentNotInTicket},
	}
	want.Failures = results[1].Failures
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, eval.Passed(results))
}

func TestHarness_RunErrorFailsOnlyThatCase(t *testing.T) {
	dir := t.TempDir()
	runner := runnerFunc(func(_ context.Context, req triage.Request) (*triage.Result, error) {
		switch req.Title {
		case "transport":
			return nil, ai.ErrProviderUnavailable
		case "invalid":
			return nil, &triage.ValidationError{
				Message: "Repair failed: severity: must be one of sev0, sev1, sev2, sev3",
				Trace:   models.RunTrace{Flags: []string{models.FlagValidationFailed, models.FlagRepairFailed}},
			}
		}
		rec := sampleRecord()
		rec.SuspectedComponent = nil
		return &triage.Result{Record: rec}, nil
	})
	h := eval.NewHarness(runner, dir, eval.WithClock(fixedNow), eval.WithParallel(3))

	results, err := h.Run(t.Context(), []eval.Case{
		{ID: "a", Title: "transport", TicketText: "x"},
		{ID: "b", Title: "invalid", TicketText: "x"},
		{ID: "c", Title: "ok", TicketText: "x"},
	})
	require.NoError(t, err)

	assert.False(t, results[0].Pass)
	assert.Equal(t, []string{ai.ErrProviderUnavailable.Error()}, results[0].Failures)
	assert.Equal(t, eval.Summary{TicketType: "-", Severity: "-", Flags: []string{}}, results[0].Summary)

	assert.False(t, results[1].Pass)
	assert.Equal(t, []string{"VALIDATION_FAILED", "REPAIR_FAILED"}, results[1].Summary.Flags)
	assert.Equal(t, "-", readReport(t, results[1].ReportPath).Output.TicketType)

	assert.True(t, results[2].Pass)
	assert.Equal(t, []string{}, readReport(t, results[2].ReportPath).Failures)
}

func TestHarness_BoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32
	runner := runnerFunc(func(ctx context.Context, _ triage.Request) (*triage.Result, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
		}
		return &triage.Result{Record: sampleRecord()}, nil
	})

	cases := make([]eval.Case, 8)
	for i := range cases {
		cases[i] = eval.Case{ID: string(rune('a' + i)), TicketText: "payments-api"}
	}

	h := eval.NewHarness(runner, t.TempDir(), eval.WithParallel(2))
	results, err := h.Run(t.Context(), cases)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, r := range results {
		assert.Equal(t, cases[i].ID, r.Case.ID, "results keep case order")
	}
}

func TestHarness_PassesModelOverride(t *testing.T) {
	var got triage.Request
	runner := runnerFunc(func(_ context.Context, req triage.Request) (*triage.Result, error) {
		got = req
		return nil, errors.New("stop")
	})
	h := eval.NewHarness(runner, t.TempDir(), eval.WithModel("gpt-4o"))
	_, err := h.Run(t.Context(), []eval.Case{{ID: "a", Title: "T", Source: models.SourceEmail, Tone: models.ToneDirect, TicketText: "body"}})
	require.NoError(t, err)

	assert.Equal(t, triage.Request{TicketText: "body", Title: "T", Source: models.SourceEmail, Tone: models.ToneDirect, Model: "gpt-4o"}, got)
}

func TestHarness_UnwritableResultsDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	h := eval.NewHarness(runnerFunc(func(context.Context, triage.Request) (*triage.Result, error) {
		return nil, errors.New("unused")
	}), file)
	_, err := h.Run(t.Context(), []eval.Case{{ID: "a", TicketText: "x"}})
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	results := []eval.Result{
		{Case: eval.Case{ID: "login-loop"}, Pass: true},
		{Case: eval.Case{ID: "csv-export"}, Failures: []string{"first", "second"}},
	}

	var buf bytes.Buffer
	eval.RenderSummary(&buf, results, "eval/results")
	out := buf.String()

	assert.Contains(t, out, "PASS/FAIL")
	assert.Contains(t, out, "login-loop")
	assert.Contains(t, out, "first; second")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "1/2 passed. Reports in eval/results/")
}
