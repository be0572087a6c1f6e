package models

// DiagnosticKind classifies an absorbed, non-fatal failure.
type DiagnosticKind string

const (
	// UnparsableInput marks a date or URL field that failed to parse.
	UnparsableInput DiagnosticKind = "unparsable_input"
	// MalformedSourceData marks an upstream payload missing structural fields.
	MalformedSourceData DiagnosticKind = "malformed_source_data"
	// CollaboratorFailure marks a failed or timed-out upstream call.
	CollaboratorFailure DiagnosticKind = "collaborator_failure"
)

// Diagnostic records one dropped or degraded record so callers can report it.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Subject string         `json:"subject"`
	Detail  string         `json:"detail"`
}
