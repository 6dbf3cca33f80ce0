// Package builtin provides a small set of demo-mode investigative tools
// (entity search, sanctions screening, news check, and a generic follow-up
// lookup) backed by a self-contained fictional dataset. They exist so the
// agent loop, safety harness, and bridge can be exercised end-to-end without
// any external network dependency — grounded on
// original_source/emet/data/demo_entities.py.
//
// All entities, names, and addresses below are entirely fictional.
package builtin

import "github.com/brightframe/investigator/internal/session"

func e(id, schema string) session.Entity { return session.NewEntity(id, schema) }

// demoEntities models a small offshore shell-company network: Meridian
// Holdings (BVI) is ultimately controlled, via a nominee chain, by Viktor
// Renko — who the sanctions tool flags as proximate to a sanctioned entity.
var demoEntities = []session.Entity{
	e("demo:meridian-holdings", "Company").
		WithProperty("name", "Meridian Holdings Ltd").
		WithProperty("jurisdiction", "vg").
		WithProperty("address", "Pasea Estate, Road Town, Tortola, British Virgin Islands").
		WithProperty("status", "Active"),
	e("demo:zenith-capital", "Company").
		WithProperty("name", "Zenith Capital Partners LP").
		WithProperty("jurisdiction", "ky").
		WithProperty("address", "PO Box 309, George Town, Grand Cayman, Cayman Islands"),
	e("demo:nova-offshore", "Company").
		WithProperty("name", "Nova Offshore LLC").
		WithProperty("jurisdiction", "pa").
		WithProperty("address", "Calle 50, Edificio Global Plaza, Panama City, Panama"),
	e("demo:pacific-rim", "Company").
		WithProperty("name", "Pacific Rim Trading Ltd").
		WithProperty("jurisdiction", "hk").
		WithProperty("notes", "Nominee shareholder structure identified"),
	e("demo:viktor-renko", "Person").
		WithProperty("name", "Viktor Renko").
		WithProperty("nationality", "RU").
		WithProperty("address", "28 Arch. Makariou III, Limassol, Cyprus").
		WithProperty("contact_email", "viktor.renko@example.com").
		WithProperty("contact_phone", "+357-25-555-0142").
		WithProperty("notes", "Managing Partner of Zenith Capital Partners LP",
			"Previously associated with sanctioned entity Vostok Energy Group"),
	e("demo:elena-marchetti", "Person").
		WithProperty("name", "Elena Marchetti").
		WithProperty("position", "Compliance Officer"),
	e("demo:james-wu", "Person").
		WithProperty("name", "James Wu").
		WithProperty("notes", "Professional nominee director — appears in 47 other BVI/HK structures"),
	e("demo:own-zenith-meridian", "Ownership").
		WithProperty("owner", "demo:zenith-capital").
		WithProperty("asset", "demo:meridian-holdings").
		WithProperty("ownershipType", "Beneficial ownership via nominee structure").
		WithProperty("percentage", "100"),
	e("demo:own-nova-zenith", "Ownership").
		WithProperty("owner", "demo:nova-offshore").
		WithProperty("asset", "demo:zenith-capital").
		WithProperty("ownershipType", "Limited partnership interest").
		WithProperty("percentage", "60"),
}

// sanctionedNames models the sanctions list the screening tool matches
// against.
var sanctionedNames = map[string]string{
	"demo:viktor-renko": "proximity match: former officer of sanctioned entity Vostok Energy Group",
}

// matchEntities returns demo entities whose name contains query
// (ASCII case-insensitive substring, sufficient for a fixture dataset).
func matchEntities(query string) []session.Entity {
	if query == "" {
		return append([]session.Entity(nil), demoEntities...)
	}
	var out []session.Entity
	for _, ent := range demoEntities {
		for _, name := range ent.Properties["name"] {
			if containsFold(name, query) {
				out = append(out, ent)
				break
			}
		}
	}
	if len(out) == 0 {
		// Seed queries (company/person names the user typed) still surface
		// the demo network so the rest of the pipeline has something to
		// chase, mirroring the original's "first run always finds
		// something" fixture behavior.
		out = append(out, demoEntities[0])
	}
	return out
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	if len(subl) == 0 {
		return true
	}
	lower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := range sl {
		sl[i] = lower(sl[i])
	}
	for i := range subl {
		subl[i] = lower(subl[i])
	}
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j := range subl {
			if sl[i+j] != subl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
