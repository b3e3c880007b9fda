// Package gotlex provides a namespaced, TTL-bounded lookup cache shared by
// command-line dictionary, translation and conjugation tools.
//
// A Store holds one bucket per tool (a Namespace), each with its own TTL.
// Keys are normalized lookup terms; values are opaque JSON documents. A
// Lookup puts a Store in front of a Source so that a term is only fetched
// when it is absent or expired.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/gotlex"
//	    "github.com/ZaguanLabs/gotlex/cache"
//	    "github.com/ZaguanLabs/gotlex/source"
//	)
//
//	func main() {
//	    // Open the shared cache file
//	    store, err := cache.OpenFileStore("/tmp/gotlex.json", []gotlex.Namespace{
//	        {Name: gotlex.NamespaceDictionary, TTL: 14 * 24 * time.Hour},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer store.Close()
//
//	    // Create a source for dictionary pages
//	    src, err := source.NewHTMLSource(source.HTMLConfig{
//	        Name:          "larousse",
//	        URLTemplate:   "https://www.larousse.fr/dictionnaires/francais/%s",
//	        EntrySelector: "li.DivisionDefinition",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Look up a word; the second call is served from the cache
//	    lookup := gotlex.NewLookup(gotlex.NamespaceDictionary, store, src)
//	    result, err := lookup.Get(context.Background(), "courir")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(string(result.Value))
//	}
package gotlex
