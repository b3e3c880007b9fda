// Package report renders cache statistics and maintenance results for the
// terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/ZaguanLabs/gotlex"
	"github.com/ZaguanLabs/gotlex/internal/config"
)

// Stats writes r as a table: one row per namespace, a total row and the
// size of the backing medium when known.
func Stats(w io.Writer, r *gotlex.Report) error {
	renderer := lipgloss.NewRenderer(w)
	header := renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := renderer.NewStyle().Padding(0, 1)
	number := cell.Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(renderer.NewStyle().Faint(true)).
		Headers("NAMESPACE", "TTL", "TOTAL", "FRESH", "EXPIRED").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col >= 2:
				return number
			default:
				return cell
			}
		})

	for _, ns := range r.Namespaces {
		t.Row(namespaceRow(ns)...)
	}
	totals := r.Totals()
	t.Row("total", "", strconv.Itoa(totals.Total), strconv.Itoa(totals.Fresh), strconv.Itoa(totals.Expired))

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Cache size: %s\n", Size(r))
	return err
}

func namespaceRow(ns gotlex.NamespaceStats) []string {
	ttl := config.FormatDuration(ns.TTL)
	if !ns.Configured {
		ttl = "not configured"
	}
	return []string{ns.Name, ttl, strconv.Itoa(ns.Total), strconv.Itoa(ns.Fresh), strconv.Itoa(ns.Expired)}
}

// Size returns the humanized backing size, or "unknown".
func Size(r *gotlex.Report) string {
	if !r.SizeKnown {
		return "unknown"
	}
	if r.SizeBytes < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(r.SizeBytes))
}

type namespaceJSON struct {
	Name       string `json:"name"`
	TTLSeconds int64  `json:"ttl_seconds"`
	Configured bool   `json:"configured"`
	Total      int    `json:"total"`
	Fresh      int    `json:"fresh"`
	Expired    int    `json:"expired"`
}

type statsJSON struct {
	Namespaces []namespaceJSON `json:"namespaces"`
	Total      int             `json:"total"`
	Fresh      int             `json:"fresh"`
	Expired    int             `json:"expired"`
	SizeBytes  *int64          `json:"size_bytes,omitempty"`
}

// StatsJSON writes r as an indented JSON object.
func StatsJSON(w io.Writer, r *gotlex.Report) error {
	totals := r.Totals()
	out := statsJSON{
		Namespaces: make([]namespaceJSON, 0, len(r.Namespaces)),
		Total:      totals.Total,
		Fresh:      totals.Fresh,
		Expired:    totals.Expired,
	}
	for _, ns := range r.Namespaces {
		out.Namespaces = append(out.Namespaces, namespaceJSON{
			Name:       ns.Name,
			TTLSeconds: int64(ns.TTL.Seconds()),
			Configured: ns.Configured,
			Total:      ns.Total,
			Fresh:      ns.Fresh,
			Expired:    ns.Expired,
		})
	}
	if r.SizeKnown {
		size := r.SizeBytes
		out.SizeBytes = &size
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Cleared reports the result of clearing the cache.
func Cleared(w io.Writer, n int) error {
	_, err := fmt.Fprintf(w, "Cleared %s from the cache\n", entries(n))
	return err
}

// CleanedUp reports the result of removing expired entries.
func CleanedUp(w io.Writer, n int) error {
	if n == 0 {
		_, err := fmt.Fprintln(w, "No expired entries")
		return err
	}
	_, err := fmt.Fprintf(w, "Removed %s expired %s\n", humanize.Comma(int64(n)), plural(n, "entry", "entries"))
	return err
}

// Exported reports the result of an export.
func Exported(w io.Writer, n int, path string) error {
	_, err := fmt.Fprintf(w, "Exported %s to %s\n", entries(n), path)
	return err
}

// Imported reports the result of an import.
func Imported(w io.Writer, imported, skipped, failed int) error {
	_, err := fmt.Fprintf(w, "Imported %s (%d skipped, %d failed)\n", entries(imported), skipped, failed)
	return err
}

// Count writes {"removed": n} style output for --json.
func Count(w io.Writer, field string, n int) error {
	return json.NewEncoder(w).Encode(map[string]int{field: n})
}

func entries(n int) string {
	return humanize.Comma(int64(n)) + " " + plural(n, "entry", "entries")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
