package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/triage/internal/triage"
)

// DefaultResultsDir is where per-case reports go unless told otherwise.
const DefaultResultsDir = "eval/results"

const reportStampLayout = "2006-01-02T15:04:05.000Z"

// stampReplacer makes an ISO 8601 timestamp safe for file names.
var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

// Runner is the part of triage.Service the harness needs.
type Runner interface {
	Run(ctx context.Context, req triage.Request) (*triage.Result, error)
}

// Result is the outcome of one case.
type Result struct {
	Case       Case
	Pass       bool
	Failures   []string
	Summary    Summary
	ReportPath string
}

// Harness runs cases with bounded parallelism and writes one report per case.
type Harness struct {
	runner     Runner
	resultsDir string
	parallel   int
	model      string
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Harness)

// WithParallel bounds how many cases run at once. Values below 1 mean 1.
func WithParallel(n int) Option {
	return func(h *Harness) { h.parallel = n }
}

// WithModel overrides the generator's default model for every case.
func WithModel(model string) Option {
	return func(h *Harness) { h.model = model }
}

func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

func NewHarness(r Runner, resultsDir string, opts ...Option) *Harness {
	if resultsDir == "" {
		resultsDir = DefaultResultsDir
	}
	h := &Harness{
		runner:     r,
		resultsDir: resultsDir,
		parallel:   1,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.parallel < 1 {
		h.parallel = 1
	}
	return h
}

// Run evaluates every case. A failing triage run fails its case and nothing
// else; only an unwritable report aborts the batch. Results keep case order.
func (h *Harness) Run(ctx context.Context, cases []Case) ([]Result, error) {
	if err := os.MkdirAll(h.resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	stamp := stampReplacer.Replace(h.now().UTC().Format(reportStampLayout))

	results := make([]Result, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallel)

	for i, c := range cases {
		g.Go(func() error {
			res := h.runCase(gctx, c)
			path, err := h.writeReport(res, stamp)
			if err != nil {
				return err
			}
			res.ReportPath = path
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Harness) runCase(ctx context.Context, c Case) Result {
	out, err := h.runner.Run(ctx, triage.Request{
		TicketText: c.TicketText,
		Title:      c.Title,
		Source:     c.Source,
		Tone:       c.Tone,
		Model:      h.model,
	})
	if err != nil {
		summary := Summary{TicketType: "-", Severity: "-", Flags: []string{}}
		var verr *triage.ValidationError
		if errors.As(err, &verr) {
			summary.Flags = append(summary.Flags, verr.Trace.Flags...)
		}
		h.logger.Warn("eval case run failed", slog.String("case", c.ID), slog.Any("error", err))
		return Result{Case: c, Failures: []string{err.Error()}, Summary: summary}
	}

	failures := Check(c, out.Record)
	h.logger.Info("eval case finished",
		slog.String("case", c.ID),
		slog.String("run_id", out.RunID),
		slog.Bool("pass", len(failures) == 0),
	)
	return Result{
		Case:     c,
		Pass:     len(failures) == 0,
		Failures: failures,
		Summary:  summarize(out.Record, out.Trace.Flags),
	}
}

type report struct {
	Input struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"input"`
	Output   Summary  `json:"output"`
	Pass     bool     `json:"pass"`
	Failures []string `json:"failures"`
}

func (h *Harness) writeReport(res Result, stamp string) (string, error) {
	var r report
	r.Input.ID = res.Case.ID
	r.Input.Title = res.Case.Title
	r.Output = res.Summary
	r.Pass = res.Pass
	r.Failures = res.Failures
	if r.Failures == nil {
		r.Failures = []string{}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report %s: %w", res.Case.ID, err)
	}
	path := filepath.Join(h.resultsDir, res.Case.ID+"."+stamp+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", res.Case.ID, err)
	}
	return path, nil
}

// Passed counts passing results.
func Passed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Pass {
			n++
		}
	}
	return n
}

// RenderSummary prints the result table followed by the pass count.
func RenderSummary(w io.Writer, results []Result, resultsDir string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "PASS/FAIL", "Failures"})
	for _, r := range results {
		verdict, failures := "PASS", "-"
		if !r.Pass {
			verdict = "FAIL"
		}
		if len(r.Failures) > 0 {
			failures = strings.Join(r.Failures, "; ")
		}
		tw.AppendRow(table.Row{r.Case.ID, verdict, failures})
	}
	tw.Render()

	fmt.Fprintf(w, "\n%d/%d passed. Reports in %s/\n", Passed(results), len(results), resultsDir)
}
