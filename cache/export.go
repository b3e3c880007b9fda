package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ZaguanLabs/gotlex"
)

// ExportVersion is the version written to, and accepted from, export files.
const ExportVersion = "1.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry represents a single cache entry.
type ExportEntry struct {
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// Exporter provides cache export functionality.
type Exporter struct {
	store gotlex.Dumper
}

// NewExporter creates a new cache exporter.
func NewExporter(store gotlex.Dumper) *Exporter {
	return &Exporter{store: store}
}

// Export writes the cache contents to a writer in JSON format.
// Expired entries are exported too; they keep their original timestamps.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) (int, error) {
	entries, err := e.store.Dump(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting cache entries: %w", err)
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    make([]ExportEntry, 0, len(entries)),
		Metadata:   metadata,
	}
	for _, entry := range entries {
		export.Entries = append(export.Entries, ExportEntry{
			Namespace: entry.Namespace,
			Key:       entry.Key,
			Value:     entry.Value,
			CreatedAt: entry.CreatedAt.UTC(),
		})
	}

	// Compact output keeps payloads byte-identical through an import.
	raw, err := marshalJSON(export, false)
	if err != nil {
		return 0, fmt.Errorf("encoding JSON: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}

	return len(entries), nil
}

// ExportToFile exports the cache to a file.
// The path is provided by the caller and is intentionally user-controlled.
// The file is replaced atomically, so a failed export leaves any previous
// file at path untouched.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) (int, error) {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer f.Cleanup()

	n, err := e.Export(ctx, f, metadata)
	if err != nil {
		return 0, err
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("writing file: %w", err)
	}
	return n, nil
}

// Importer provides cache import functionality.
type Importer struct {
	store gotlex.Store
}

// NewImporter creates a new cache importer.
func NewImporter(store gotlex.Store) *Importer {
	return &Importer{store: store}
}

// Import reads cache entries from a reader and loads them into the store.
//
// Stores implementing gotlex.Restorer keep the exported timestamps; others
// receive each entry through Put and restart its TTL. Entries of namespaces
// the store does not configure are skipped.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %q", export.Version)
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	if restorer, ok := i.store.(gotlex.Restorer); ok {
		entries := make([]gotlex.Entry, 0, len(export.Entries))
		for _, entry := range export.Entries {
			entries = append(entries, gotlex.Entry{
				Namespace: entry.Namespace,
				Key:       entry.Key,
				Value:     entry.Value,
				CreatedAt: entry.CreatedAt,
			})
		}
		n, err := restorer.Restore(ctx, entries)
		if err != nil {
			return nil, err
		}
		result.Imported = n
		result.Skipped = len(entries) - n
		return result, nil
	}

	for _, entry := range export.Entries {
		err := i.store.Put(ctx, entry.Namespace, entry.Key, entry.Value)
		var cfgErr *gotlex.ConfigurationError
		switch {
		case err == nil:
			result.Imported++
		case errors.As(err, &cfgErr):
			result.Skipped++
		default:
			result.Failed++
		}
	}

	return result, nil
}

// ImportFromFile imports cache entries from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
	Skipped  int // entries of namespaces the store does not configure, or invalid entries
}
