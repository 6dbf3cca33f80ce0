package builtin

import (
	"context"
	"fmt"

	"github.com/brightframe/investigator/internal/session"
	"github.com/brightframe/investigator/internal/tools"
)

// ScreenSanctionsName is the tool name auto_sanctions_screen seeds a lead
// for (spec §4.5).
const ScreenSanctionsName = "screen_sanctions"

// NewScreenSanctions returns the demo-mode sanctions screening tool. It
// checks entity ids named in args["entity_ids"] against a fixture sanctions
// list and reports any proximity matches.
func NewScreenSanctions() tools.Tool {
	return tools.Func{
		Ident: ScreenSanctionsName,
		Fn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			ids, _ := args["entity_ids"].([]string)
			var matches []map[string]any
			for _, id := range ids {
				if reason, flagged := sanctionedNames[id]; flagged {
					matches = append(matches, map[string]any{
						"entity_id": id,
						"reason":    reason,
					})
				}
			}
			return tools.Result{
				"matches":      matches,
				"result_count": len(matches),
			}, nil
		},
	}
}

// NewsCheckName is the tool name auto_news_check seeds a lead for.
const NewsCheckName = "check_news"

// NewNewsCheck returns the demo-mode OSINT news-check tool. It returns a
// single fixture article referencing the queried entity so downstream
// finding/lead derivation has real content to work from.
func NewNewsCheck() tools.Tool {
	return tools.Func{
		Ident: NewsCheckName,
		Fn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			query, _ := args["query"].(string)
			articles := []map[string]any{
				{
					"title":   fmt.Sprintf("Offshore filings name %s in ownership chain", query),
					"snippet": "Public corporate registry filings link the named entity to a multi-jurisdiction holding structure.",
					"source":  "demo_newswire",
				},
			}
			return tools.Result{
				"articles":     articles,
				"result_count": len(articles),
			}, nil
		},
	}
}

// NewGenericLookup returns a generic follow-up lookup over the fixture
// entities. The heuristic decision policy falls back to it only when its
// FallbackTool is set to "generic_lookup"; the default is "search_entities".
func NewGenericLookup() tools.Tool {
	return tools.Func{
		Ident: "generic_lookup",
		Fn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			query, _ := args["query"].(string)
			ents := matchEntities(query)
			entity := session.Entity{}
			if len(ents) > 0 {
				entity = ents[0]
			}
			return tools.Result{
				"entities":     []session.Entity{entity},
				"result_count": 1,
			}, nil
		},
	}
}
