package agentloop

import (
	"time"

	"github.com/brightframe/investigator/internal/session"
)

// EventKind tags a ProgressEvent's variant (spec §3, component C8).
type EventKind string

// Event kinds. Completed and Error are terminal — they are never dropped by
// backpressure (spec §4.5 "Backpressure").
const (
	EventStarted   EventKind = "started"
	EventTurn      EventKind = "turn"
	EventFinding   EventKind = "finding"
	EventLead      EventKind = "lead"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventError     EventKind = "error"
)

// Terminal reports whether the event kind must never be dropped by
// backpressure.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventError
}

// ProgressEvent is the tagged union the agent loop emits over its lifetime
// (spec §3). Only the fields relevant to Kind are populated.
type ProgressEvent struct {
	Kind           EventKind
	InvestigationID string
	Timestamp      time.Time

	// EventStarted
	Goal string

	// EventTurn
	TurnNumber int
	Action     string

	// EventFinding
	Finding *session.Finding

	// EventLead
	Lead *session.Lead

	// EventProgress
	Message string

	// EventCompleted
	Summary *session.Summary
	Report  string

	// EventError
	Err error
}
