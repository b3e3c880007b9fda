package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/gotlex"
)

// MockSource is a mock source for testing.
type MockSource struct {
	Entries   map[string][]string // Map of normalized term to entries
	CallCount int                 // Number of times Fetch was called
	LastTerm  string              // Last term received

	mu sync.Mutex
}

// NewMockSource creates a new mock source with default entries.
func NewMockSource() *MockSource {
	return &MockSource{
		Entries: map[string][]string{
			"maison": {"house", "home"},
			"courir": {"to run"},
			"être":   {"to be", "being"},
			"aller":  {"je vais", "tu vas", "il va", "nous allons", "vous allez", "ils vont"},
		},
	}
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Fetch returns the mock entries for term as a Document. Unknown terms are
// a NotFound SourceError.
func (m *MockSource) Fetch(ctx context.Context, term string) (json.RawMessage, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTerm = term
	entries, ok := m.Entries[gotlex.NormalizeKey(term)]
	m.mu.Unlock()

	if !ok {
		return nil, &gotlex.SourceError{Source: m.Name(), Message: fmt.Sprintf("no entries found for %q", term), NotFound: true}
	}

	doc := &Document{
		Term:     term,
		Source:   m.Name(),
		Sections: []Section{{Entries: append([]string(nil), entries...)}},
	}
	return doc.Encode()
}

// Calls returns the number of Fetch calls so far.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset resets the call count and last term.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastTerm = ""
}

// Verify MockSource implements Source
var _ gotlex.Source = (*MockSource)(nil)
