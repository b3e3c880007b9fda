package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ZaguanLabs/gotlex"
)

// DefaultMaxBodyBytes bounds the size of a fetched page.
const DefaultMaxBodyBytes = 4 << 20

// IgnoredTags are elements whose text never ends up in an entry.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"template": true,
}

// blockTags separate the words of their content from what follows.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "dd": true, "dt": true,
	"td": true, "th": true, "tr": true, "table": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true,
}

// HTMLConfig describes how to fetch and read one site.
type HTMLConfig struct {
	Name            string        // Source name used in errors (e.g., "larousse")
	URLTemplate     string        // Page URL with a single %s for the escaped term
	SectionSelector string        // Optional: each match becomes a Section
	HeadingSelector string        // Optional: section heading, relative to the section
	EntrySelector   string        // Entries, relative to the section (or the page)
	UserAgent       string        // Default: gotlex.UserAgent()
	Timeout         time.Duration // Default: 10s; ignored when Client is set
	Client          *http.Client  // Optional custom client
	MaxBodyBytes    int64         // Default: DefaultMaxBodyBytes
	SplitLines      bool          // Split each entry on <br>, e.g. one form per line in a tense block
}

// HTMLSource fetches a page per term and extracts entries with CSS selectors.
type HTMLSource struct {
	cfg    HTMLConfig
	client *http.Client
}

// NewHTMLSource validates cfg and creates a source.
func NewHTMLSource(cfg HTMLConfig) (*HTMLSource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("html source: name is required")
	}
	if strings.Count(cfg.URLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("html source %s: url template must contain exactly one %%s", cfg.Name)
	}
	if cfg.EntrySelector == "" {
		return nil, fmt.Errorf("html source %s: entry selector is required", cfg.Name)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = gotlex.UserAgent()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTMLSource{cfg: cfg, client: client}, nil
}

// Name returns the configured source name.
func (s *HTMLSource) Name() string {
	return s.cfg.Name
}

// URL returns the page address for term.
func (s *HTMLSource) URL(term string) string {
	return fmt.Sprintf(s.cfg.URLTemplate, url.PathEscape(strings.ToLower(strings.TrimSpace(term))))
}

// Fetch downloads the page for term and returns its entries as a Document.
// A 404 or a page without entries is a SourceError with NotFound set.
func (s *HTMLSource) Fetch(ctx context.Context, term string) (json.RawMessage, error) {
	doc, err := s.FetchDocument(ctx, term)
	if err != nil {
		return nil, err
	}
	return doc.Encode()
}

// FetchDocument is Fetch without the final encoding step.
func (s *HTMLSource) FetchDocument(ctx context.Context, term string) (*Document, error) {
	pageURL := s.URL(term)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, s.sourceError("building request", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.sourceError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &gotlex.SourceError{Source: s.cfg.Name, Message: fmt.Sprintf("no page for %q", term), NotFound: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &gotlex.SourceError{Source: s.cfg.Name, Message: fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode)}
	}

	page, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, s.sourceError("failed to parse HTML", err)
	}

	doc := &Document{
		Term:     term,
		Source:   s.cfg.Name,
		URL:      pageURL,
		Sections: s.extract(page.Selection),
	}
	if doc.Len() == 0 {
		return nil, &gotlex.SourceError{Source: s.cfg.Name, Message: fmt.Sprintf("no entries found for %q", term), NotFound: true}
	}
	return doc, nil
}

func (s *HTMLSource) sourceError(message string, err error) error {
	return &gotlex.SourceError{Source: s.cfg.Name, Message: message, Cause: err}
}

// extract groups entries into sections, or a single untitled section when
// no section selector is configured.
func (s *HTMLSource) extract(page *goquery.Selection) []Section {
	if s.cfg.SectionSelector == "" {
		entries := s.entries(page)
		if len(entries) == 0 {
			return nil
		}
		return []Section{{Entries: entries}}
	}

	var sections []Section
	page.Find(s.cfg.SectionSelector).Each(func(_ int, sel *goquery.Selection) {
		entries := s.entries(sel)
		if len(entries) == 0 {
			return
		}

		heading := ""
		if s.cfg.HeadingSelector != "" {
			heading = nodeText(sel.Find(s.cfg.HeadingSelector).First().Nodes...)
		}
		sections = append(sections, Section{Heading: heading, Entries: entries})
	})
	return sections
}

func (s *HTMLSource) entries(sel *goquery.Selection) []string {
	var entries []string
	seen := make(map[string]bool)
	sel.Find(s.cfg.EntrySelector).Each(func(_ int, item *goquery.Selection) {
		if insideIgnored(item.Get(0)) {
			return
		}
		text := rawText(item.Nodes...)
		if !s.cfg.SplitLines {
			entries = appendUnique(entries, seen, text)
			return
		}
		for _, line := range strings.Split(text, "\n") {
			entries = appendUnique(entries, seen, line)
		}
	})
	return entries
}

// insideIgnored reports whether n sits below one of the IgnoredTags,
// e.g. a list item in the page footer.
func insideIgnored(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && IgnoredTags[strings.ToLower(p.Data)] {
			return true
		}
	}
	return false
}

// nodeText returns the visible text below nodes, whitespace collapsed.
func nodeText(nodes ...*html.Node) string {
	return cleanText(rawText(nodes...))
}

// rawText returns the visible text below nodes with each <br> as a newline
// and every other line break turned into a space.
func rawText(nodes ...*html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		block := false
		switch n.Type {
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if IgnoredTags[tag] {
				return
			}
			if tag == "br" {
				b.WriteByte('\n')
				return
			}
			block = blockTags[tag]
		case html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			return
		case html.CommentNode:
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if block {
			b.WriteByte(' ')
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

// Verify HTMLSource implements Source
var _ gotlex.Source = (*HTMLSource)(nil)
