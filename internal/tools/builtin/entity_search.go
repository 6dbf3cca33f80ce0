package builtin

import (
	"context"
	"fmt"

	"github.com/brightframe/investigator/internal/session"
	"github.com/brightframe/investigator/internal/tools"
)

// EntitySearchName is the tool name used to seed an investigation from its
// goal string (spec §4.5 "Seed").
const EntitySearchName = "search_entities"

// NewEntitySearch returns the demo-mode entity-search tool: it matches the
// query argument against the fixture dataset and returns matched entities.
func NewEntitySearch() tools.Tool {
	return tools.Func{
		Ident: EntitySearchName,
		Fn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			query, _ := args["query"].(string)
			matches := matchEntities(query)
			return tools.Result{
				"entities":     matches,
				"result_count": len(matches),
			}, nil
		},
	}
}

// EntitiesFrom extracts the []session.Entity slice a tool result carries
// under the "entities" key, tolerating a nil/missing key.
func EntitiesFrom(res tools.Result) []session.Entity {
	v, ok := res["entities"]
	if !ok {
		return nil
	}
	list, ok := v.([]session.Entity)
	if !ok {
		return nil
	}
	return list
}

// Summarize renders a short human-readable summary line for a search-style
// result: the result count when res has one, otherwise a completion note.
// The agent loop builds its own summaries and does not call it.
func Summarize(tool string, res tools.Result) string {
	if v, ok := res["result_count"]; ok {
		return fmt.Sprintf("%s returned %v result(s)", tool, v)
	}
	return fmt.Sprintf("%s completed", tool)
}
