// Package source provides gotlex.Source implementations: a configurable
// HTML page scraper, an OpenAI-backed translator, a conjugation filter and
// a mock for tests. All of them produce a Document encoded as JSON.
package source

import (
	"encoding/json"
	"strings"

	"github.com/ZaguanLabs/gotlex"
)

// Document is the payload every source stores in the cache.
type Document struct {
	Term     string    `json:"term"`
	Source   string    `json:"source"`
	URL      string    `json:"url,omitempty"`
	Sections []Section `json:"sections"`
}

// Section is a titled group of entries, e.g. one tense of a conjugation table.
type Section struct {
	Heading string   `json:"heading,omitempty"`
	Entries []string `json:"entries"`
}

// Len returns the number of entries across all sections.
func (d *Document) Len() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Entries)
	}
	return n
}

// Lines renders the document as plain text lines: headings flush left,
// entries indented below them.
func (d *Document) Lines() []string {
	var lines []string
	for _, s := range d.Sections {
		indent := ""
		if s.Heading != "" {
			lines = append(lines, s.Heading)
			indent = "  "
		}
		for _, e := range s.Entries {
			lines = append(lines, indent+e)
		}
	}
	return lines
}

// Encode marshals the document for storage.
func (d *Document) Encode() (json.RawMessage, error) {
	if d.Sections == nil {
		d.Sections = []Section{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, &gotlex.SourceError{Source: d.Source, Message: "encoding document", Cause: err}
	}
	return raw, nil
}

// DecodeDocument parses a cached or fetched payload.
func DecodeDocument(raw json.RawMessage) (*Document, error) {
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, &gotlex.SourceError{Source: "document", Message: "decoding document", Cause: err}
	}
	return &d, nil
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// appendUnique adds text to entries unless it is empty or already present.
func appendUnique(entries []string, seen map[string]bool, text string) []string {
	text = cleanText(text)
	if text == "" || seen[text] {
		return entries
	}
	seen[text] = true
	return append(entries, text)
}
