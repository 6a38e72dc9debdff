// Package eval runs triage against a directory of labelled cases and checks
// each output against case expectations.
package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// ErrEvalsDisabled guards against burning model calls by accident.
var ErrEvalsDisabled = errors.New("eval harness requires RUN_EVALS=1")

// RequireEnabled returns ErrEvalsDisabled unless RUN_EVALS is exactly "1".
func RequireEnabled(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if getenv("RUN_EVALS") != "1" {
		return ErrEvalsDisabled
	}
	return nil
}

// Case is one labelled ticket.
type Case struct {
	ID         string        `json:"id"         yaml:"id"`
	Title      string        `json:"title"      yaml:"title"`
	Source     models.Source `json:"source"     yaml:"source"`
	Tone       models.Tone   `json:"tone"       yaml:"tone"`
	TicketText string        `json:"ticketText" yaml:"ticketText"`
	Expect     Expectation   `json:"expect"     yaml:"expect"`
}

// Expectation constrains a case's output. Empty lists allow any value.
type Expectation struct {
	TicketType        []models.TicketType `json:"ticketType,omitempty"        yaml:"ticketType"`
	Severity          []models.Severity   `json:"severity,omitempty"          yaml:"severity"`
	MustHaveQuestions bool                `json:"mustHaveQuestions,omitempty" yaml:"mustHaveQuestions"`
	// MinChecklistItems defaults to 1 when unset.
	MinChecklistItems *int `json:"minChecklistItems,omitempty" yaml:"minChecklistItems"`
}

// LoadCases reads every .json, .yaml and .yml file in dir, sorted by file
// name. Case ids must be unique.
func LoadCases(dir string) ([]Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cases dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	cases := make([]Case, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		c, err := loadCase(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("case %q defined in both %s and %s", c.ID, prev, name)
		}
		seen[c.ID] = name
		cases = append(cases, c)
	}
	return cases, nil
}

func loadCase(path string) (Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Case{}, fmt.Errorf("read case: %w", err)
	}

	var c Case
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return Case{}, fmt.Errorf("parse case %s: %w", filepath.Base(path), err)
	}

	if c.ID == "" {
		return Case{}, fmt.Errorf("case %s: id is required", filepath.Base(path))
	}
	if strings.TrimSpace(c.TicketText) == "" {
		return Case{}, fmt.Errorf("case %s: ticketText is required", c.ID)
	}
	return c, nil
}
