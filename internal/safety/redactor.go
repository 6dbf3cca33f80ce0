package safety

import "regexp"

// piiPattern pairs a PII type label with the regexp that detects it and the
// stable opaque token substituted in its place. Order matters: more
// specific patterns (SSN, IBAN) run before the looser phone-number pattern
// so a national identifier is never mis-tagged as a phone number.
type piiPattern struct {
	typ     string
	token   string
	pattern *regexp.Regexp
}

// piiPatterns implements the minimum PII taxonomy from spec §4.3: email
// addresses, international and North-American phone numbers, US-style
// national identifiers, and IBAN. No third-party PII-detection library
// exists anywhere in the reference corpus, so this is a deliberate,
// documented use of the standard library's regexp package (see DESIGN.md).
var piiPatterns = []piiPattern{
	{
		typ:     "SSN",
		token:   "[SSN]",
		pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		typ:     "IBAN",
		token:   "[IBAN]",
		pattern: regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
	},
	{
		typ:     "EMAIL",
		token:   "[EMAIL]",
		pattern: regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
	},
	{
		typ:     "PHONE",
		token:   "[PHONE]",
		pattern: regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]\d{2,4}[-.\s]\d{2,4}(?:[-.\s]\d{1,4})?`),
	},
}

// Redactor detects and replaces PII in free text. It is one of the safety
// harness's three independently pluggable sub-gates (spec §4.3) and may be
// nil/disabled.
type Redactor struct {
	enabled bool
}

// NewRedactor constructs an enabled Redactor.
func NewRedactor() *Redactor { return &Redactor{enabled: true} }

// Enabled reports whether the redactor is active.
func (r *Redactor) Enabled() bool { return r != nil && r.enabled }

// Detect scans text and returns, for each PII type found, the count of
// matches. It does not alter text — used by post_check in observe mode.
// Patterns are applied in order to a private working copy, so its counts
// match those Redact reports for the same text.
func (r *Redactor) Detect(text string) (count int, types []string) {
	if r == nil || !r.enabled {
		return 0, nil
	}
	seen := map[string]struct{}{}
	work := text
	for _, p := range piiPatterns {
		matches := p.pattern.FindAllString(work, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		if _, ok := seen[p.typ]; !ok {
			seen[p.typ] = struct{}{}
			types = append(types, p.typ)
		}
		work = p.pattern.ReplaceAllString(work, p.token)
	}
	return count, types
}

// Redact replaces every detected PII span with its type's stable opaque
// token and returns the scrubbed text alongside the detection count and
// type list (spec §4.3 "Two identical inputs scrubbed independently must
// produce the same token for the same detection type").
func (r *Redactor) Redact(text string) (scrubbed string, count int, types []string) {
	if r == nil || !r.enabled {
		return text, 0, nil
	}
	scrubbed = text
	seen := map[string]struct{}{}
	for _, p := range piiPatterns {
		matches := p.pattern.FindAllString(scrubbed, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		if _, ok := seen[p.typ]; !ok {
			seen[p.typ] = struct{}{}
			types = append(types, p.typ)
		}
		scrubbed = p.pattern.ReplaceAllString(scrubbed, p.token)
	}
	return scrubbed, count, types
}
