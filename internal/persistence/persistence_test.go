package persistence_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/persistence"
	"github.com/brightframe/investigator/internal/session"
)

func buildSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New("Meridian Holdings", "")
	sess.AddFinding(session.Finding{
		Source:  "search_entities",
		Summary: "found 2 entities",
		Entities: []session.Entity{
			session.NewEntity("e1", "Company").WithProperty("name", "Meridian Holdings"),
		},
		Confidence: 0.9,
	})
	sess.AddLead(session.Lead{Description: "screen e1", SuggestedTool: "screen_sanctions", Priority: 1})
	sess.IncrementTurn()
	sess.RecordToolUse("search_entities", map[string]any{"query": "Meridian"}, map[string]any{"result_count": 1})
	sess.RecordReasoning("seeded from goal")
	return sess
}

func TestSaveLoad_RoundTripsCoreFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	original := buildSession(t)
	require.NoError(t, persistence.Save(original, path))

	loaded, err := persistence.Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.Goal(), loaded.Goal())
	assert.Equal(t, original.TurnCount(), loaded.TurnCount())
	assert.Equal(t, original.FindingCount(), loaded.FindingCount())
	assert.Len(t, loaded.Leads(), 1)
	assert.Equal(t, original.StartedAt().Unix(), loaded.StartedAt().Unix())

	entity, ok := loaded.Entity("e1")
	require.True(t, ok)
	assert.Equal(t, "Meridian Holdings", entity.Name())
}

func TestLoad_TolerantOfUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	raw := `{"version":1,"goal":"Helios Trust","unexpected_future_field":{"x":1}}`
	require.NoError(t, writeFile(path, raw))

	loaded, err := persistence.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Helios Trust", loaded.Goal())
	assert.Equal(t, 0, loaded.FindingCount())
}

func TestListSaved_ReturnsJSONFilesSorted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, persistence.Save(buildSession(t), filepath.Join(dir, "b.json")))
	require.NoError(t, persistence.Save(buildSession(t), filepath.Join(dir, "a.json")))

	files, err := persistence.ListSaved(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "a.json")
	assert.Contains(t, files[1], "b.json")
}

func TestListSaved_MissingDirectoryReturnsEmpty(t *testing.T) {
	files, err := persistence.ListSaved("/nonexistent/path/for/test")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
