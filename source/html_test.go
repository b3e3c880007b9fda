package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ZaguanLabs/gotlex"
)

const dictionaryPage = `<!DOCTYPE html>
<html><body>
<header><nav><a href="/">Accueil</a></nav></header>
<ul class="defs">
  <li class="def">Se déplacer <strong>rapidement</strong> par une suite d'enjambées.</li>
  <li class="def">Aller vite,   se hâter.<script>track()</script></li>
  <li class="def">Aller vite, se hâter.</li>
  <li class="def">   </li>
</ul>
<footer><li class="def">Mentions légales</li></footer>
</body></html>`

const conjugationPage = `<html><body>
<div class="tense"><h3>Présent</h3><div class="form">je vais</div><div class="form">tu vas</div><div class="form">il va</div></div>
<div class="tense"><h3>Futur simple</h3><div class="form">j'irai</div><div class="form">tu iras</div></div>
<div class="tense"><h3>Subjonctif présent</h3><div class="form">que j'aille</div><div class="form">que tu ailles</div></div>
<div class="tense"><h3>Vide</h3></div>
</body></html>`

func newTestServer(t *testing.T, pages map[string]string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, gotlex.Name+"/") {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewHTMLSource_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  HTMLConfig
	}{
		{"missing name", HTMLConfig{URLTemplate: "http://x/%s", EntrySelector: "li"}},
		{"no placeholder", HTMLConfig{Name: "x", URLTemplate: "http://x/", EntrySelector: "li"}},
		{"two placeholders", HTMLConfig{Name: "x", URLTemplate: "http://x/%s/%s", EntrySelector: "li"}},
		{"missing selector", HTMLConfig{Name: "x", URLTemplate: "http://x/%s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHTMLSource(tt.cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestHTMLSource_URL(t *testing.T) {
	src, err := NewHTMLSource(HTMLConfig{Name: "x", URLTemplate: "https://example.com/fren/%s", EntrySelector: "li"})
	if err != nil {
		t.Fatal(err)
	}

	got := src.URL("  Pomme de terre ")
	if got != "https://example.com/fren/pomme%20de%20terre" {
		t.Errorf("URL() = %q", got)
	}
}

func TestHTMLSource_Fetch(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/dict/courir": dictionaryPage}, nil)
	src, err := NewHTMLSource(HTMLConfig{
		Name:          "larousse",
		URLTemplate:   srv.URL + "/dict/%s",
		EntrySelector: "li.def",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := src.Fetch(context.Background(), "Courir")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	doc, err := DecodeDocument(raw)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Term != "Courir" || doc.Source != "larousse" || doc.URL != srv.URL+"/dict/courir" {
		t.Errorf("Unexpected document header: %+v", doc)
	}

	want := []string{
		"Se déplacer rapidement par une suite d'enjambées.",
		"Aller vite, se hâter.",
	}
	if len(doc.Sections) != 1 || !reflect.DeepEqual(doc.Sections[0].Entries, want) {
		t.Errorf("Entries = %#v, want %#v", doc.Sections, want)
	}
}

func TestHTMLSource_Sections(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/verbe/aller.php": conjugationPage}, nil)
	src, err := NewHTMLSource(HTMLConfig{
		Name:            "conjugaison",
		URLTemplate:     srv.URL + "/verbe/%s.php",
		SectionSelector: "div.tense",
		HeadingSelector: "h3",
		EntrySelector:   "div.form",
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := src.FetchDocument(context.Background(), "aller")
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}

	if len(doc.Sections) != 3 {
		t.Fatalf("Expected 3 non-empty sections, got %d: %+v", len(doc.Sections), doc.Sections)
	}
	if doc.Sections[1].Heading != "Futur simple" {
		t.Errorf("Unexpected heading %q", doc.Sections[1].Heading)
	}
	if doc.Len() != 7 {
		t.Errorf("Expected 7 entries, got %d", doc.Len())
	}
}

func TestHTMLSource_NotFound(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/dict/vide": `<html><body><p>rien</p></body></html>`}, nil)
	src, _ := NewHTMLSource(HTMLConfig{Name: "larousse", URLTemplate: srv.URL + "/dict/%s", EntrySelector: "li.def"})

	for _, term := range []string{"absent", "vide"} {
		t.Run(term, func(t *testing.T) {
			_, err := src.Fetch(context.Background(), term)
			var srcErr *gotlex.SourceError
			if !errors.As(err, &srcErr) {
				t.Fatalf("Expected SourceError, got %v", err)
			}
			if !srcErr.NotFound {
				t.Error("Expected NotFound to be set")
			}
		})
	}
}

func TestHTMLSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src, _ := NewHTMLSource(HTMLConfig{Name: "wordreference", URLTemplate: srv.URL + "/%s", EntrySelector: "td"})

	_, err := src.Fetch(context.Background(), "maison")
	var srcErr *gotlex.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("Expected SourceError, got %v", err)
	}
	if srcErr.NotFound {
		t.Error("A server error is not a missing entry")
	}
	if !strings.Contains(srcErr.Error(), "503") {
		t.Errorf("Expected status in error, got %q", srcErr.Error())
	}
}

func TestHTMLSource_ContextCancelled(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/dict/courir": dictionaryPage}, nil)
	src, _ := NewHTMLSource(HTMLConfig{Name: "larousse", URLTemplate: srv.URL + "/dict/%s", EntrySelector: "li.def"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx, "courir")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestHTMLSource_WithLookupCachesPage(t *testing.T) {
	var hits int32
	srv := newTestServer(t, map[string]string{"/dict/courir": dictionaryPage}, &hits)
	src, _ := NewHTMLSource(HTMLConfig{Name: "larousse", URLTemplate: srv.URL + "/dict/%s", EntrySelector: "li.def"})

	store := newMemoryStore(t)
	lookup := gotlex.NewLookup(gotlex.NamespaceDictionary, store, src)

	for _, term := range []string{"courir", "Courir", " COURIR "} {
		if _, err := lookup.Get(context.Background(), term); err != nil {
			t.Fatalf("Get(%q) failed: %v", term, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected 1 request, got %d", n)
	}
}

func TestNodeText(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/p/x": `<div id="x"><p>un<br>deux</p><p>trois<!-- non --></p><span>qua</span><em>tre</em></div>`}, nil)
	src, _ := NewHTMLSource(HTMLConfig{Name: "t", URLTemplate: srv.URL + "/p/%s", EntrySelector: "#x"})

	doc, err := src.FetchDocument(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Sections[0].Entries[0]; got != "un deux trois quatre" {
		t.Errorf("nodeText = %q", got)
	}
}

func TestHTMLSource_SplitLines(t *testing.T) {
	page := `<html><body>
<div class="tempstab"><h3 class="tempsheader">Présent</h3>
<div class="tempscorps">je <b>vais</b><br>tu <b>vas</b><br>
il <b>va</b><br></div></div>
</body></html>`
	srv := newTestServer(t, map[string]string{"/verbe/aller.php": page}, nil)

	cfg := HTMLConfig{
		Name:            "la-conjugaison",
		URLTemplate:     srv.URL + "/verbe/%s.php",
		SectionSelector: "div.tempstab",
		HeadingSelector: "h3.tempsheader",
		EntrySelector:   "div.tempscorps",
		SplitLines:      true,
	}
	src, err := NewHTMLSource(cfg)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := src.FetchDocument(context.Background(), "aller")
	if err != nil {
		t.Fatal(err)
	}
	want := []Section{{Heading: "Présent", Entries: []string{"je vais", "tu vas", "il va"}}}
	if !reflect.DeepEqual(doc.Sections, want) {
		t.Errorf("Sections = %#v", doc.Sections)
	}

	cfg.SplitLines = false
	joined, _ := NewHTMLSource(cfg)
	doc, err = joined.FetchDocument(context.Background(), "aller")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Sections[0].Entries; len(got) != 1 || got[0] != "je vais tu vas il va" {
		t.Errorf("Entries = %q", got)
	}
}
