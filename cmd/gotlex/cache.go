package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotlex"
	"github.com/ZaguanLabs/gotlex/cache"
	"github.com/ZaguanLabs/gotlex/internal/report"
)

// managementFlags are the cache maintenance flags every lookup command accepts.
type managementFlags struct {
	stats   bool
	clear   bool
	cleanup bool
}

func (m *managementFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&m.stats, "cache-stats", false, "Show cache statistics and exit")
	cmd.Flags().BoolVar(&m.clear, "clear-cache", false, "Remove every cached entry and exit")
	cmd.Flags().BoolVar(&m.cleanup, "cleanup-cache", false, "Remove expired entries and exit")
	cmd.MarkFlagsMutuallyExclusive("cache-stats", "clear-cache", "cleanup-cache")
}

// runManagement performs the requested maintenance action, if any, and
// reports whether one was requested.
func (a *app) runManagement(ctx context.Context, m managementFlags) (bool, error) {
	switch {
	case m.stats:
		return true, a.showStats(ctx)
	case m.clear:
		return true, a.clearCache(ctx)
	case m.cleanup:
		return true, a.cleanupCache(ctx)
	default:
		return false, nil
	}
}

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the shared cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show per-namespace entry counts and TTLs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.showStats(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every entry of every namespace",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.clearCache(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Remove expired entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.cleanupCache(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "export FILE",
			Short: "Write every entry to a JSON file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.exportCache(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Load entries from a JSON export",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.importCache(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

func (a *app) showStats(ctx context.Context) error {
	return a.withStore(func(store gotlex.Store) error {
		r, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return report.StatsJSON(a.stdout, r)
		}
		return report.Stats(a.stdout, r)
	})
}

func (a *app) clearCache(ctx context.Context) error {
	return a.withStore(func(store gotlex.Store) error {
		n, err := store.ClearAll(ctx)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return report.Count(a.stdout, "removed", n)
		}
		return report.Cleared(a.stdout, n)
	})
}

func (a *app) cleanupCache(ctx context.Context) error {
	return a.withStore(func(store gotlex.Store) error {
		n, err := store.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return report.Count(a.stdout, "removed", n)
		}
		return report.CleanedUp(a.stdout, n)
	})
}

func (a *app) exportCache(ctx context.Context, path string) error {
	return a.withStore(func(store gotlex.Store) error {
		dumper, ok := store.(gotlex.Dumper)
		if !ok {
			return fmt.Errorf("the %s backend cannot be exported", a.cfg.Cache.Backend)
		}
		n, err := cache.NewExporter(dumper).ExportToFile(ctx, path, map[string]string{
			"backend": a.cfg.Cache.Backend,
			"version": gotlex.FullVersion(),
		})
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return report.Count(a.stdout, "exported", n)
		}
		return report.Exported(a.stdout, n, path)
	})
}

func (a *app) importCache(ctx context.Context, path string) error {
	return a.withStore(func(store gotlex.Store) error {
		res, err := cache.NewImporter(store).ImportFromFile(ctx, path)
		if err != nil {
			return err
		}
		if a.jsonOutput {
			return report.Count(a.stdout, "imported", res.Imported)
		}
		return report.Imported(a.stdout, res.Imported, res.Skipped, res.Failed)
	})
}
