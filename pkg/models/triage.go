package models

// TicketType classifies what kind of work a ticket asks for.
type TicketType string

const (
	TicketTypeBug     TicketType = "bug"
	TicketTypeFeature TicketType = "feature"
	TicketTypeData    TicketType = "data"
	TicketTypeSupport TicketType = "support"
)

// TicketTypes lists the accepted ticket types in canonical order.
var TicketTypes = []TicketType{TicketTypeBug, TicketTypeFeature, TicketTypeData, TicketTypeSupport}

// Severity ranks urgency, sev0 being an outage happening now.
type Severity string

const (
	Sev0 Severity = "sev0"
	Sev1 Severity = "sev1"
	Sev2 Severity = "sev2"
	Sev3 Severity = "sev3"
)

// Severities lists every valid Severity, most urgent first.
var Severities = []Severity{Sev0, Sev1, Sev2, Sev3}

// ChecklistStatus tracks an investigation checklist item.
type ChecklistStatus string

const (
	StatusTodo    ChecklistStatus = "todo"
	StatusDone    ChecklistStatus = "done"
	StatusBlocked ChecklistStatus = "blocked"
)

// ChecklistStatuses lists every valid ChecklistStatus.
var ChecklistStatuses = []ChecklistStatus{StatusTodo, StatusDone, StatusBlocked}

// Source is where the ticket text came from.
type Source string

const (
	SourceTicket Source = "ticket"
	SourceEmail  Source = "email"
)

// Sources lists every valid Source.
var Sources = []Source{SourceTicket, SourceEmail}

// Tone steers the requester reply draft.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneDirect  Tone = "direct"
)

// Tones lists every valid Tone.
var Tones = []Tone{ToneNeutral, ToneDirect}

// TriageRecord is the validated, structured output of a triage run.
// Values are only ever built by schema validation; see triage.Validate.
type TriageRecord struct {
	Title                  string                `json:"title"`
	TicketType             TicketType            `json:"ticketType"`
	Severity               Severity              `json:"severity"`
	Summary                string                `json:"summary"`
	UserImpact             string                `json:"userImpact"`
	ReproSteps             []string              `json:"reproSteps"`
	ObservedBehavior       string                `json:"observedBehavior"`
	ExpectedBehavior       string                `json:"expectedBehavior"`
	SuspectedComponent     *string               `json:"suspectedComponent"`
	QuestionsToAsk         []Question            `json:"questionsToAsk"`
	InvestigationChecklist []ChecklistItem       `json:"investigationChecklist"`
	ProposedFixPlan        []string              `json:"proposedFixPlan"`
	AcceptanceCriteria     []AcceptanceCriterion `json:"acceptanceCriteria"`
	RequesterReply         RequesterReply        `json:"requesterReply"`
	Confidence             Confidence            `json:"confidence"`
	Meta                   RecordMeta            `json:"meta"`
}

type Question struct {
	Question string `json:"question"`
	Why      string `json:"why"`
}

type ChecklistItem struct {
	Item   string          `json:"item"`
	Owner  *string         `json:"owner,omitempty"`
	Status ChecklistStatus `json:"status"`
}

type AcceptanceCriterion struct {
	Criterion string `json:"criterion"`
}

type RequesterReply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Confidence scores are in [0, 1] inclusive.
type Confidence struct {
	Classification    float64 `json:"classification"`
	InvestigationPlan float64 `json:"investigationPlan"`
	ResponseDraft     float64 `json:"responseDraft"`
}

// RecordMeta.GeneratedAt is an ISO 8601 string; the orchestrator overwrites
// whatever the model produced with the actual completion time.
type RecordMeta struct {
	Source      Source `json:"source"`
	GeneratedAt string `json:"generatedAt"`
}
