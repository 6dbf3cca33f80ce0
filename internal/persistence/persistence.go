// Package persistence implements the session persistence codec (spec §4.7,
// component C7): a versioned JSON document that round-trips a Session's
// goal, start time, turn count, findings, leads, entity index, tool history
// and reasoning trace, so a run can be saved mid-flight and resumed or
// archived for audit. The safety audit and investigation graph attached to
// a session are not written.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brightframe/investigator/internal/session"
)

// Version is the persistence codec's current schema version (spec §4.7,
// "a single top-level version: 1 field").
const Version = 1

// document is the on-disk shape. Unknown top-level keys are ignored on
// load; missing optional keys default to empty (spec §4.7 "Forward
// compatibility").
type document struct {
	Version        int                       `json:"version"`
	SessionID      string                    `json:"session_id"`
	Goal           string                    `json:"goal"`
	StartedAt      time.Time                 `json:"started_at"`
	TurnCount      int                       `json:"turn_count"`
	Findings       []session.Finding         `json:"findings"`
	Leads          []session.Lead            `json:"leads"`
	Entities       map[string]session.Entity `json:"entities"`
	ToolHistory    []session.ToolHistoryEntry `json:"tool_history"`
	ReasoningTrace []string                  `json:"reasoning_trace"`
}

// Save serializes sess to path as a versioned JSON document, creating
// parent directories as needed (spec §4.7).
func Save(sess *session.Session, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("persistence: create directory: %w", err)
	}

	doc := document{
		Version:        Version,
		SessionID:      sess.ID(),
		Goal:           sess.Goal(),
		StartedAt:      sess.StartedAt(),
		TurnCount:      sess.TurnCount(),
		Findings:       sess.Findings(),
		Leads:          sess.Leads(),
		Entities:       sess.Entities(),
		ToolHistory:    sess.ToolHistory(),
		ReasoningTrace: sess.ReasoningTrace(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write %s: %w", path, err)
	}
	return nil
}

// Load reconstructs a Session from a saved document (spec §4.7). Findings
// and leads are restored by field; entities are re-indexed from findings
// and then overlaid with anything in the standalone entity index that no
// finding referenced (e.g. an entity discovered by a tool call whose
// finding was later pruned upstream).
func Load(path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal %s: %w", path, err)
	}

	sess := session.New(doc.Goal, doc.SessionID)
	if !doc.StartedAt.IsZero() {
		sess.RestoreStartedAt(doc.StartedAt)
	}
	for _, f := range doc.Findings {
		sess.AddFinding(f)
	}
	for _, l := range doc.Leads {
		sess.AddLead(l)
	}
	for id, e := range doc.Entities {
		if e.ID == "" {
			e.ID = id
		}
		sess.OverlayEntity(e)
	}
	sess.SetTurnCount(doc.TurnCount)
	sess.RestoreToolHistory(doc.ToolHistory)
	sess.RestoreReasoningTrace(doc.ReasoningTrace)
	return sess, nil
}

// ListSaved enumerates saved session documents under dir, sorted by
// filename (spec SPEC_FULL.md §4 "session list/archive").
func ListSaved(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
