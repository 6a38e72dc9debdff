package eval_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/triage/internal/eval"
	"github.com/kiranshivaraju/triage/pkg/models"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadCases_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-login.yaml", `
id: login-loop
title: Login redirects forever
ticketText: After SSO the auth-service keeps redirecting back to /login.
expect:
  ticketType: [bug]
  severity: [sev1, sev2]
  minChecklistItems: 2
`)
	writeFile(t, dir, "a-export.json", `{
  "id": "csv-export",
  "source": "email",
  "tone": "direct",
  "ticketText": "Can we get CSV export on the reports page?",
  "expect": {"ticketType": ["feature"], "mustHaveQuestions": true}
}`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	cases, err := eval.LoadCases(dir)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "csv-export", cases[0].ID)
	assert.Equal(t, models.SourceEmail, cases[0].Source)
	assert.Equal(t, models.ToneDirect, cases[0].Tone)
	assert.True(t, cases[0].Expect.MustHaveQuestions)
	assert.Nil(t, cases[0].Expect.MinChecklistItems)

	assert.Equal(t, "login-loop", cases[1].ID)
	assert.Equal(t, []models.Severity{models.Sev1, models.Sev2}, cases[1].Expect.Severity)
	require.NotNil(t, cases[1].Expect.MinChecklistItems)
	assert.Equal(t, 2, *cases[1].Expect.MinChecklistItems)
}

func TestLoadCases_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "duplicate id",
			files: map[string]string{"a.json": `{"id":"x","ticketText":"t"}`, "b.yml": "id: x\nticketText: t\n"},
			want:  `case "x" defined in both a.json and b.yml`,
		},
		{
			name:  "missing id",
			files: map[string]string{"a.json": `{"ticketText":"t"}`},
			want:  "id is required",
		},
		{
			name:  "missing ticket text",
			files: map[string]string{"a.yaml": "id: empty\nticketText: '   '\n"},
			want:  "case empty: ticketText is required",
		},
		{
			name:  "malformed",
			files: map[string]string{"a.json": `{"id":`},
			want:  "parse case a.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, body := range tt.files {
				writeFile(t, dir, name, body)
			}
			_, err := eval.LoadCases(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCases_MissingDir(t *testing.T) {
	_, err := eval.LoadCases(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRequireEnabled(t *testing.T) {
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == "RUN_EVALS" {
				return v
			}
			return ""
		}
	}
	assert.NoError(t, eval.RequireEnabled(env("1")))
	assert.ErrorIs(t, eval.RequireEnabled(env("")), eval.ErrEvalsDisabled)
	assert.ErrorIs(t, eval.RequireEnabled(env("true")), eval.ErrEvalsDisabled)
}
