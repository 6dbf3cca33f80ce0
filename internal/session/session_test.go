package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/session"
)

func TestAddFinding_IndexesEntities(t *testing.T) {
	s := session.New("Acme Corp shell companies", "")
	e := session.NewEntity("acme-1", "Company").WithProperty("name", "Acme Holdings")
	s.AddFinding(session.Finding{
		Source:   "search_entities",
		Summary:  "found Acme Holdings",
		Entities: []session.Entity{e},
	})

	require.Equal(t, 1, s.FindingCount())
	require.Equal(t, 1, s.EntityCount())

	got, ok := s.Entity("acme-1")
	require.True(t, ok)
	assert.Equal(t, "Company", got.Schema)
	assert.Equal(t, []string{"Acme Holdings"}, got.Properties["name"])
}

func TestAddFinding_MergesEntityProperties(t *testing.T) {
	s := session.New("goal", "")
	first := session.NewEntity("e1", "Company").WithProperty("jurisdiction", "vg")
	second := session.NewEntity("e1", "Company").
		WithProperty("jurisdiction", "vg", "ky").
		WithProperty("name", "Meridian")

	s.AddFinding(session.Finding{Source: "a", Entities: []session.Entity{first}})
	s.AddFinding(session.Finding{Source: "b", Entities: []session.Entity{second}})

	e, ok := s.Entity("e1")
	require.True(t, ok)
	assert.Equal(t, []string{"vg", "ky"}, e.Properties["jurisdiction"])
	assert.Equal(t, []string{"Meridian"}, e.Properties["name"])
	assert.Equal(t, 1, s.EntityCount())
}

func TestAddFinding_MergeIdempotent(t *testing.T) {
	s1 := session.New("goal", "")
	s2 := session.New("goal", "")
	e := session.NewEntity("e1", "Person").WithProperty("name", "Viktor Renko")

	s1.AddFinding(session.Finding{Source: "a", Entities: []session.Entity{e}})

	s2.AddFinding(session.Finding{Source: "a", Entities: []session.Entity{e}})
	s2.AddFinding(session.Finding{Source: "a", Entities: []session.Entity{e}})

	got1, _ := s1.Entity("e1")
	got2, _ := s2.Entity("e1")
	assert.Equal(t, got1.Properties, got2.Properties)
}

func TestGetOpenLeads_SortedByPriorityStableOnTies(t *testing.T) {
	s := session.New("goal", "")
	s.AddLead(session.Lead{Description: "first", Priority: 0.5})
	s.AddLead(session.Lead{Description: "second", Priority: 0.9})
	s.AddLead(session.Lead{Description: "third", Priority: 0.5})
	s.AddLead(session.Lead{Description: "resolved-already", Priority: 1.0, Status: session.LeadResolved})

	open := s.GetOpenLeads()
	require.Len(t, open, 3)
	assert.Equal(t, "second", open[0].Description)
	assert.Equal(t, "first", open[1].Description)
	assert.Equal(t, "third", open[2].Description)
}

func TestResolveLead(t *testing.T) {
	s := session.New("goal", "")
	s.AddLead(session.Lead{ID: "lead-1", Description: "chase shell company", Priority: 0.8})
	s.ResolveLead("lead-1", session.LeadDeadEnd)

	require.Empty(t, s.GetOpenLeads())
	leads := s.Leads()
	require.Len(t, leads, 1)
	assert.Equal(t, session.LeadDeadEnd, leads[0].Status)
}

func TestContextForLLM_Truncates(t *testing.T) {
	s := session.New("a very long goal string used to pad the context output", "")
	for i := 0; i < 20; i++ {
		s.AddLead(session.Lead{Description: "investigate further", Priority: 0.5})
	}
	text := s.ContextForLLM(80)
	assert.LessOrEqual(t, len(text), 80)
	assert.Contains(t, text, "truncated")
}

func TestSummary(t *testing.T) {
	s := session.New("Acme Corp", "sess-1")
	s.RecordToolUse("search_entities", map[string]any{"query": "Acme"}, map[string]any{"result_count": 3})
	s.IncrementTurn()

	sum := s.Summary()
	assert.Equal(t, "sess-1", sum.SessionID)
	assert.Equal(t, 1, sum.Turns)
	assert.Equal(t, 1, sum.ToolsUsed)
	assert.Equal(t, []string{"search_entities"}, sum.UniqueTools)
}
