// Package triage turns untrusted model output into validated triage records.
//
// A run generates candidate JSON, validates it against the record schema,
// repairs it at most once through the same generator, applies advisory
// guardrails, and returns an audit trace whatever the outcome.
package triage

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// Validate checks decoded JSON against the triage record schema.
// It returns the canonical record with defaults applied, or the ordered list
// of violations formatted as "path: reason". Unknown keys are ignored.
func Validate(doc any) (models.TriageRecord, []string) {
	v := &validator{}
	root, ok := doc.(map[string]any)
	if !ok {
		v.fail("", "expected object, got %s", kindOf(doc))
		return models.TriageRecord{}, v.violations
	}

	rec := models.TriageRecord{
		Title:              v.requiredString(root, "", "title"),
		TicketType:         models.TicketType(v.enum(root, "", "ticketType", enumValues(models.TicketTypes))),
		Severity:           models.Severity(v.enum(root, "", "severity", enumValues(models.Severities))),
		Summary:            v.requiredString(root, "", "summary"),
		UserImpact:         v.requiredString(root, "", "userImpact"),
		ReproSteps:         v.stringList(root, "", "reproSteps"),
		ObservedBehavior:   v.requiredString(root, "", "observedBehavior"),
		ExpectedBehavior:   v.requiredString(root, "", "expectedBehavior"),
		SuspectedComponent: v.optionalString(root, "", "suspectedComponent"),
	}

	rec.QuestionsToAsk = []models.Question{}
	for i, el := range v.list(root, "", "questionsToAsk", 0) {
		path := join("questionsToAsk", fmt.Sprint(i))
		obj, ok := v.object(el, path)
		if !ok {
			continue
		}
		rec.QuestionsToAsk = append(rec.QuestionsToAsk, models.Question{
			Question: v.requiredString(obj, path, "question"),
			Why:      v.requiredString(obj, path, "why"),
		})
	}

	rec.InvestigationChecklist = []models.ChecklistItem{}
	for i, el := range v.list(root, "", "investigationChecklist", 1) {
		path := join("investigationChecklist", fmt.Sprint(i))
		obj, ok := v.object(el, path)
		if !ok {
			continue
		}
		item := models.ChecklistItem{
			Item:   v.requiredString(obj, path, "item"),
			Owner:  v.omittableString(obj, path, "owner"),
			Status: models.StatusTodo,
		}
		if _, present := obj["status"]; present {
			item.Status = models.ChecklistStatus(v.enum(obj, path, "status", enumValues(models.ChecklistStatuses)))
		}
		rec.InvestigationChecklist = append(rec.InvestigationChecklist, item)
	}

	rec.ProposedFixPlan = v.stringList(root, "", "proposedFixPlan")

	rec.AcceptanceCriteria = []models.AcceptanceCriterion{}
	for i, el := range v.list(root, "", "acceptanceCriteria", 0) {
		path := join("acceptanceCriteria", fmt.Sprint(i))
		obj, ok := v.object(el, path)
		if !ok {
			continue
		}
		rec.AcceptanceCriteria = append(rec.AcceptanceCriteria, models.AcceptanceCriterion{
			Criterion: v.requiredString(obj, path, "criterion"),
		})
	}

	if reply, ok := v.requiredObject(root, "", "requesterReply"); ok {
		rec.RequesterReply = models.RequesterReply{
			Subject: v.requiredString(reply, "requesterReply", "subject"),
			Body:    v.requiredString(reply, "requesterReply", "body"),
		}
	}

	if conf, ok := v.requiredObject(root, "", "confidence"); ok {
		rec.Confidence = models.Confidence{
			Classification:    v.score(conf, "confidence", "classification"),
			InvestigationPlan: v.score(conf, "confidence", "investigationPlan"),
			ResponseDraft:     v.score(conf, "confidence", "responseDraft"),
		}
	}

	if meta, ok := v.requiredObject(root, "", "meta"); ok {
		rec.Meta = models.RecordMeta{
			Source:      models.Source(v.enum(meta, "meta", "source", enumValues(models.Sources))),
			GeneratedAt: v.requiredString(meta, "meta", "generatedAt"),
		}
	}

	if len(v.violations) > 0 {
		return models.TriageRecord{}, v.violations
	}
	return rec, nil
}

type validator struct {
	violations []string
}

func (v *validator) fail(path, format string, args ...any) {
	if path == "" {
		path = "(root)"
	}
	v.violations = append(v.violations, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) object(x any, path string) (map[string]any, bool) {
	obj, ok := x.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", kindOf(x))
	}
	return obj, ok
}

func (v *validator) requiredObject(m map[string]any, parent, key string) (map[string]any, bool) {
	path := join(parent, key)
	x, present := m[key]
	if !present {
		v.fail(path, "required")
		return nil, false
	}
	return v.object(x, path)
}

func (v *validator) requiredString(m map[string]any, parent, key string) string {
	path := join(parent, key)
	x, present := m[key]
	if !present {
		v.fail(path, "required")
		return ""
	}
	s, ok := x.(string)
	if !ok {
		v.fail(path, "expected string, got %s", kindOf(x))
		return ""
	}
	if s == "" {
		v.fail(path, "must not be empty")
	}
	return s
}

// optionalString treats a missing key and an explicit null the same way.
func (v *validator) optionalString(m map[string]any, parent, key string) *string {
	x := m[key]
	if x == nil {
		return nil
	}
	s, ok := x.(string)
	if !ok {
		v.fail(join(parent, key), "expected string or null, got %s", kindOf(x))
		return nil
	}
	return &s
}

// omittableString accepts a missing key but, unlike optionalString, rejects
// an explicit null.
func (v *validator) omittableString(m map[string]any, parent, key string) *string {
	x, present := m[key]
	if !present {
		return nil
	}
	s, ok := x.(string)
	if !ok {
		v.fail(join(parent, key), "expected string, got %s", kindOf(x))
		return nil
	}
	return &s
}

func (v *validator) enum(m map[string]any, parent, key string, allowed []string) string {
	path := join(parent, key)
	x, present := m[key]
	if !present {
		v.fail(path, "required")
		return ""
	}
	s, ok := x.(string)
	if !ok {
		v.fail(path, "expected string, got %s", kindOf(x))
		return ""
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	v.fail(path, "must be one of %s; got %q", strings.Join(allowed, ", "), s)
	return ""
}

// list returns the elements of an optional array. A missing key yields an
// empty list; an explicit null is a violation.
func (v *validator) list(m map[string]any, parent, key string, minLen int) []any {
	path := join(parent, key)
	x, present := m[key]
	if !present {
		if minLen > 0 {
			v.fail(path, "required")
		}
		return nil
	}
	items, ok := x.([]any)
	if !ok {
		v.fail(path, "expected array, got %s", kindOf(x))
		return nil
	}
	if len(items) < minLen {
		v.fail(path, "must contain at least %d element(s)", minLen)
	}
	return items
}

func (v *validator) stringList(m map[string]any, parent, key string) []string {
	out := []string{}
	for i, el := range v.list(m, parent, key, 0) {
		s, ok := el.(string)
		if !ok {
			v.fail(join(parent, key, fmt.Sprint(i)), "expected string, got %s", kindOf(el))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *validator) score(m map[string]any, parent, key string) float64 {
	path := join(parent, key)
	x, present := m[key]
	if !present {
		v.fail(path, "required")
		return 0
	}
	f, ok := x.(float64)
	if !ok {
		v.fail(path, "expected number, got %s", kindOf(x))
		return 0
	}
	if f < 0 {
		v.fail(path, "must be >= 0")
	}
	if f > 1 {
		v.fail(path, "must be <= 1")
	}
	return f
}

func join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

func kindOf(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", x)
	}
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
