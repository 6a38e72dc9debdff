// Package models contains shared data models used across the triage codebase.
package models

import "context"

// Generator is the free-text-to-JSON capability the triage pipeline depends on.
// Never call specific AI providers directly; always inject this interface.
type Generator interface {
	// Generate produces candidate triage JSON for a ticket.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Repair asks the model to fix JSON that failed validation.
	Repair(ctx context.Context, req RepairRequest) (string, error)
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
	// DefaultModel is used when a request does not name a model.
	DefaultModel() string
}

// GenerateRequest is the ticket context sent to a Generator.
type GenerateRequest struct {
	Model      string
	TicketText string
	Title      string
	Source     Source
	Tone       Tone
}

// RepairRequest carries the rejected output and the validator's complaints.
type RepairRequest struct {
	Model      string
	RawText    string
	Violations []string
}
