// Package session implements the mutable investigation state (spec §3, §4.1,
// component C1). A Session accumulates findings, leads, and a typed entity
// index over the lifetime of one investigation run; findings are immutable
// once added, leads are mutable only via status transitions, and entities
// merge by id with per-property deduplication.
package session

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus enumerates the lifecycle of a Lead.
type LeadStatus string

// Lead statuses per spec §3.
const (
	LeadOpen          LeadStatus = "open"
	LeadInvestigating LeadStatus = "investigating"
	LeadResolved      LeadStatus = "resolved"
	LeadDeadEnd       LeadStatus = "dead_end"
)

type (
	// Finding is an attested observation produced by a tool. Once added to a
	// Session, a Finding is immutable.
	Finding struct {
		ID            string         `json:"id"`
		Source        string         `json:"source"`
		Summary       string         `json:"summary"`
		Entities      []Entity       `json:"entities"`
		Relationships []Relationship `json:"relationships"`
		Confidence    float64        `json:"confidence"`
		Timestamp     time.Time      `json:"timestamp"`
		RawData       map[string]any `json:"raw_data"`
	}

	// Relationship is a reference to a relationship between two entities by
	// id. Relationships are themselves entities in the entity index (spec
	// §9 "Cyclic ownership in entities"); this type carries the minimal
	// endpoint references a Finding needs to cite one.
	Relationship struct {
		ID     string `json:"id"`
		Schema string `json:"schema"`
		From   string `json:"from"`
		To     string `json:"to"`
	}

	// Entity is a typed record keyed by id within a Session. Properties map
	// a property name to an ordered list of string values. The session
	// drops duplicate values when it merges an entity into one it already
	// holds; an entity's first insertion is stored as given.
	Entity struct {
		ID         string              `json:"id"`
		Schema     string              `json:"schema"`
		Properties map[string][]string `json:"properties"`
	}

	// Lead is a suggested follow-up. Mutable only via status transitions
	// (ResolveLead).
	Lead struct {
		ID              string  `json:"id"`
		Description     string  `json:"description"`
		Priority        float64 `json:"priority"`
		SourceFindingID string  `json:"source_finding_id"`
		SuggestedQuery  string  `json:"suggested_query"`
		SuggestedTool   string  `json:"suggested_tool"`
		// EntityIDs carries the entity ids this lead's tool call should act
		// on (e.g. screen_sanctions' entity_ids arg), when the lead is about
		// specific entities rather than a free-text query.
		EntityIDs []string   `json:"entity_ids,omitempty"`
		Status    LeadStatus `json:"status"`
		Timestamp time.Time  `json:"timestamp"`
	}

	// ToolHistoryEntry records one tool invocation.
	ToolHistoryEntry struct {
		Tool          string         `json:"tool"`
		Args          map[string]any `json:"args"`
		ResultSummary string         `json:"result_summary"`
		Timestamp     time.Time      `json:"timestamp"`
	}

	// Summary is the machine-readable investigation summary (spec §4.1).
	Summary struct {
		SessionID    string    `json:"session_id"`
		Goal         string    `json:"goal"`
		StartedAt    time.Time `json:"started_at"`
		Turns        int       `json:"turns"`
		EntityCount  int       `json:"entity_count"`
		FindingCount int       `json:"finding_count"`
		LeadsOpen    int       `json:"leads_open"`
		LeadsTotal   int       `json:"leads_total"`
		ToolsUsed    int       `json:"tools_used"`
		UniqueTools  []string  `json:"unique_tools"`
	}
)

// NewEntity constructs an Entity with an initialized Properties map.
func NewEntity(id, schema string) Entity {
	return Entity{ID: id, Schema: schema, Properties: map[string][]string{}}
}

// WithProperty appends values to a property, returning the entity for
// chaining. Used by builtin tools assembling fixture entities.
func (e Entity) WithProperty(name string, values ...string) Entity {
	if e.Properties == nil {
		e.Properties = map[string][]string{}
	}
	e.Properties[name] = append(append([]string(nil), e.Properties[name]...), values...)
	return e
}

// Name returns the entity's first "name" property value, falling back to its
// id, mirroring context_for_llm's rendering rule (spec §4.1).
func (e Entity) Name() string {
	if names, ok := e.Properties["name"]; ok && len(names) > 0 {
		return names[0]
	}
	return e.ID
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
