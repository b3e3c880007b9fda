package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/gotlex"
)

// ConjugationSource narrows the conjugation tables of a verb, as returned by
// a page source, to one person and/or one tense.
type ConjugationSource struct {
	base   gotlex.Source
	person string // canonical person, or "" for all
	tense  string // canonical tense (or the folded input when unknown), or "" for all
}

// NewConjugationSource wraps base. person accepts any subject form ("elle",
// "j'"); tense accepts any alias ("fut", "pc"). An unknown tense is matched
// against section headings as typed.
func NewConjugationSource(base gotlex.Source, person, tense string) (*ConjugationSource, error) {
	c := &ConjugationSource{base: base}

	if strings.TrimSpace(person) != "" {
		p, ok := gotlex.NormalizePerson(person)
		if !ok {
			return nil, &gotlex.LookupError{Message: "unknown person", Term: person}
		}
		c.person = p
	}

	if strings.TrimSpace(tense) != "" {
		if t, ok := gotlex.NormalizeTense(tense); ok {
			c.tense = t
		} else {
			c.tense = gotlex.NormalizeKey(tense)
		}
	}

	return c, nil
}

// Name returns the name of the wrapped source.
func (c *ConjugationSource) Name() string {
	return c.base.Name()
}

// Person returns the canonical person filter.
func (c *ConjugationSource) Person() string {
	return c.person
}

// Tense returns the canonical tense filter.
func (c *ConjugationSource) Tense() string {
	return c.tense
}

// KeyParts returns the key qualifiers that distinguish this filter, for use
// with gotlex.WithKeyPrefix. An unfiltered source has none.
func (c *ConjugationSource) KeyParts() []string {
	if c.person == "" && c.tense == "" {
		return nil
	}
	return []string{c.person, c.tense}
}

// Fetch retrieves the tables for verb and keeps the requested person and tense.
func (c *ConjugationSource) Fetch(ctx context.Context, verb string) (json.RawMessage, error) {
	raw, err := c.base.Fetch(ctx, verb)
	if err != nil {
		return nil, err
	}

	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}

	filtered := FilterConjugation(doc, c.person, c.tense)
	if filtered.Len() == 0 {
		return nil, &gotlex.SourceError{
			Source:   c.Name(),
			Message:  fmt.Sprintf("no conjugation of %q for person %q and tense %q", verb, c.person, c.tense),
			NotFound: true,
		}
	}
	return filtered.Encode()
}

// FilterConjugation returns the sections of doc whose heading matches tense
// and, within them, the entries conjugated for person. Empty filters match
// everything. Sections whose heading equals tense win over partial matches,
// so "présent" does not also select "subjonctif présent" when both exist.
func FilterConjugation(doc *Document, person, tense string) *Document {
	out := &Document{Term: doc.Term, Source: doc.Source, URL: doc.URL, Sections: []Section{}}

	sections := doc.Sections
	if tense != "" {
		sections = matchTense(sections, gotlex.NormalizeKey(tense))
	}

	for _, s := range sections {
		entries := s.Entries
		if person != "" {
			entries = nil
			for _, e := range s.Entries {
				if p, ok := entryPerson(e); ok && p == person {
					entries = append(entries, e)
				}
			}
		}
		if len(entries) > 0 {
			out.Sections = append(out.Sections, Section{Heading: s.Heading, Entries: entries})
		}
	}
	return out
}

func matchTense(sections []Section, tense string) []Section {
	var exact, partial []Section
	for _, s := range sections {
		heading := gotlex.NormalizeKey(s.Heading)
		switch {
		case heading == "":
		case heading == tense:
			exact = append(exact, s)
		case strings.Contains(heading, tense) || strings.Contains(tense, heading):
			partial = append(partial, s)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}

// entryPerson recognizes the subject of a conjugated form such as
// "j'aime", "que nous allions" or "elles sont allées".
func entryPerson(entry string) (string, bool) {
	e := gotlex.NormalizeKey(strings.ReplaceAll(entry, "’", "'"))
	e = strings.TrimPrefix(e, "que ")
	e = strings.TrimPrefix(e, "qu'")

	if strings.HasPrefix(e, "j'") {
		return "je", true
	}
	first, _, _ := strings.Cut(e, " ")
	return gotlex.NormalizePerson(first)
}

// Verify ConjugationSource implements Source
var _ gotlex.Source = (*ConjugationSource)(nil)
