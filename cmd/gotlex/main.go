// Command gotlex looks up French words (translation, definition,
// conjugation) and keeps the results in a shared cache.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/gotlex"
	"github.com/ZaguanLabs/gotlex/cache"
	"github.com/ZaguanLabs/gotlex/internal/config"
	"github.com/ZaguanLabs/gotlex/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app carries global flags and the state built from them.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	cacheFile  string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           gotlex.Name,
		Short:         gotlex.Description,
		Version:       gotlex.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetVersionTemplate(versionText())

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/gotlex/config.yaml)")
	flags.StringVar(&a.cacheFile, "cache-file", "", "Cache file for the file backend (env "+config.EnvCacheFile+")")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+config.EnvLogLevel+")")
	flags.BoolVar(&a.jsonOutput, "json", false, "Output results as JSON")

	root.AddCommand(
		newTranslateCommand(a),
		newDefineCommand(a),
		newConjugateCommand(a),
		newCacheCommand(a),
	)
	return root
}

func versionText() string {
	s := gotlex.Name + " " + gotlex.FullVersion() + "\n"
	if commit := gotlex.Commit(); commit != "" {
		s += "  commit:  " + commit + "\n"
	}
	if gotlex.BuildDate != "" {
		s += "  built:   " + gotlex.BuildDate + "\n"
	}
	return s
}

// setup loads the configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.cacheFile != "" {
		cfg.Cache.File = a.cacheFile
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured cache backend.
func (a *app) openStore() (gotlex.Store, error) {
	namespaces := a.cfg.Namespaces()
	opts := []cache.Option{cache.WithLogger(a.logger)}

	var (
		store gotlex.Store
		err   error
	)
	switch a.cfg.Cache.Backend {
	case config.BackendMemory:
		store, err = cache.NewMemoryStore(namespaces, opts...)
	case config.BackendRedis:
		store, err = cache.NewRedisStore(cache.RedisConfig{
			URL:       a.cfg.Cache.Redis.URL,
			KeyPrefix: a.cfg.Cache.Redis.KeyPrefix,
		}, namespaces, opts...)
	default:
		path := a.cfg.Cache.File
		if path == "" {
			if path, err = cache.DefaultFilePath(); err != nil {
				return nil, fmt.Errorf("locating cache file: %w", err)
			}
		}
		a.logger.Debug("opening cache", zap.String("path", path))
		store, err = cache.OpenFileStore(path, namespaces, opts...)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// withStore opens the store, runs fn and closes the store.
func (a *app) withStore(fn func(gotlex.Store) error) (err error) {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(store)
}

func (a *app) rateLimit() gotlex.RateLimitConfig {
	return gotlex.RateLimitConfig{
		RequestsPerMinute: a.cfg.RateLimit.RequestsPerMinute,
		BurstSize:         a.cfg.RateLimit.Burst,
	}
}
