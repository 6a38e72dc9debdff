// Package output writes the on-disk artifacts of a triage run and loads
// ticket text from files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kiranshivaraju/triage/internal/triage"
	"github.com/kiranshivaraju/triage/pkg/models"
)

// DefaultDir is where the CLI writes artifacts unless told otherwise.
const DefaultDir = "outputs"

// Artifacts lists the files written for one run. Empty fields were not written.
type Artifacts struct {
	Trace    string
	Triage   string
	Markdown string
	Raw      string
	Repaired string
}

// Paths returns the written files in the order they are reported to users.
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.Triage, a.Markdown, a.Raw, a.Repaired, a.Trace} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Writer writes run artifacts under Dir as <runId>.<kind>.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	return &Writer{Dir: dir}
}

// WriteResult writes every artifact of a successful run. The trace goes
// first so a later write failure still leaves the audit record behind.
func (w *Writer) WriteResult(res *triage.Result) (Artifacts, error) {
	var a Artifacts
	var err error

	if a.Trace, err = w.WriteTrace(res.RunID, res.Trace); err != nil {
		return a, err
	}
	if a.Triage, err = w.writeJSON(res.RunID, "triage.json", res.Record); err != nil {
		return a, err
	}
	if a.Markdown, err = w.writeFile(res.RunID, "triage.md", []byte(res.Markdown)); err != nil {
		return a, err
	}
	if a.Raw, err = w.writeFile(res.RunID, "raw.json", []byte(res.RawText)); err != nil {
		return a, err
	}
	if res.RepairedText != nil {
		if a.Repaired, err = w.writeFile(res.RunID, "repaired.raw.json", []byte(*res.RepairedText)); err != nil {
			return a, err
		}
	}
	return a, nil
}

// WriteFailure writes the trace of a run that failed validation.
func (w *Writer) WriteFailure(verr *triage.ValidationError) (Artifacts, error) {
	path, err := w.WriteTrace(verr.RunID, verr.Trace)
	return Artifacts{Trace: path}, err
}

func (w *Writer) WriteTrace(runID string, trace models.RunTrace) (string, error) {
	return w.writeJSON(runID, "trace.json", trace)
}

func (w *Writer) writeJSON(runID, kind string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", kind, err)
	}
	return w.writeFile(runID, kind, data)
}

func (w *Writer) writeFile(runID, kind string, data []byte) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.Dir, runID+"."+kind)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	return path, nil
}

// ReadTextFile loads a ticket from disk.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read ticket file %q: %w", path, err)
	}
	return string(data), nil
}

// ReadRecord loads a saved triage.json and validates it against the schema.
func ReadRecord(path string) (models.TriageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.TriageRecord{}, fmt.Errorf("read record %q: %w", path, err)
	}
	res := triage.Check(string(data))
	if res.Outcome != triage.OutcomeValid {
		return models.TriageRecord{}, &RecordError{Path: path, Violations: res.Violations}
	}
	return res.Record, nil
}

// RecordError reports a saved record that no longer satisfies the schema.
type RecordError struct {
	Path       string
	Violations []string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s is not a valid triage record (%d violation(s))", e.Path, len(e.Violations))
}
