package bridge

import "fmt"

// Block is a generic structured payload element in the shape Slack-style
// adapters expect (spec §4.6 "format_for_*"). The bridge defines no
// Slack-specific wire types; callers serialize Block into whatever their
// transport requires.
type Block struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Fields   []string          `json:"fields,omitempty"`
	Elements []string          `json:"elements,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// SlackPayload is the generic rendering FormatForSlack returns.
type SlackPayload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// FormatForSlack renders an InvestigationResult as a generic block payload
// (spec §4.6). The bridge owns no Slack-specific types; this is a
// field-compatible structural stand-in an adapter maps into its own SDK's
// block kit types.
func FormatForSlack(result InvestigationResult) SlackPayload {
	if result.Error != "" {
		return SlackPayload{
			Text: fmt.Sprintf("investigation failed: %s", result.Error),
			Blocks: []Block{
				{Type: "section", Text: fmt.Sprintf("investigation failed\n%s", result.Error)},
			},
		}
	}

	blocks := []Block{
		{Type: "header", Text: fmt.Sprintf("investigation: %s", result.Session.Goal())},
		{
			Type: "section",
			Fields: []string{
				fmt.Sprintf("entities: %d", result.Summary.EntityCount),
				fmt.Sprintf("findings: %d", result.Summary.FindingCount),
				fmt.Sprintf("turns: %d", result.Summary.Turns),
				fmt.Sprintf("leads open: %d", result.Summary.LeadsOpen),
			},
		},
	}

	if findings := result.Session.Findings(); len(findings) > 0 {
		n := len(findings)
		if n > 5 {
			n = 5
		}
		var lines []string
		for _, f := range findings[:n] {
			lines = append(lines, fmt.Sprintf("[%s] %s", f.Source, truncate(f.Summary, 100)))
		}
		blocks = append(blocks, Block{Type: "section", Elements: lines})
	}

	if leads := result.Session.GetOpenLeads(); len(leads) > 0 {
		n := len(leads)
		if n > 3 {
			n = 3
		}
		var lines []string
		for _, l := range leads[:n] {
			lines = append(lines, truncate(l.Description, 80))
		}
		blocks = append(blocks, Block{Type: "section", Elements: lines})
	}

	if result.PIIScrubbed > 0 {
		blocks = append(blocks, Block{Type: "context", Text: fmt.Sprintf("%d PII item(s) redacted", result.PIIScrubbed)})
	}

	return SlackPayload{Text: result.ScrubbedReportText, Blocks: blocks}
}

// Embed is a generic structured payload element in the shape Discord-style
// adapters expect.
type Embed struct {
	Title  string       `json:"title"`
	Fields []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one name/value pair within an Embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DiscordPayload is the generic rendering FormatForDiscord returns.
type DiscordPayload struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

// FormatForDiscord renders an InvestigationResult as a generic embed
// payload (spec §4.6).
func FormatForDiscord(result InvestigationResult) DiscordPayload {
	if result.Error != "" {
		return DiscordPayload{Content: fmt.Sprintf("investigation failed: %s", result.Error)}
	}

	embed := Embed{
		Title: fmt.Sprintf("investigation: %s", result.Session.Goal()),
		Fields: []EmbedField{
			{Name: "entities", Value: fmt.Sprintf("%d", result.Summary.EntityCount)},
			{Name: "findings", Value: fmt.Sprintf("%d", result.Summary.FindingCount)},
			{Name: "turns", Value: fmt.Sprintf("%d", result.Summary.Turns)},
		},
	}

	if findings := result.Session.Findings(); len(findings) > 0 {
		n := len(findings)
		if n > 5 {
			n = 5
		}
		for _, f := range findings[:n] {
			embed.Fields = append(embed.Fields, EmbedField{Name: f.Source, Value: truncate(f.Summary, 100)})
		}
	}

	if result.PIIScrubbed > 0 {
		embed.Fields = append(embed.Fields, EmbedField{Name: "redacted", Value: fmt.Sprintf("%d PII item(s)", result.PIIScrubbed)})
	}

	return DiscordPayload{Content: result.ScrubbedReportText, Embeds: []Embed{embed}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
