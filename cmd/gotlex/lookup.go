package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/gotlex"
	"github.com/ZaguanLabs/gotlex/internal/config"
	"github.com/ZaguanLabs/gotlex/source"
)

func newTranslateCommand(a *app) *cobra.Command {
	var mgmt managementFlags
	var direction string

	cmd := &cobra.Command{
		Use:   "translate [flags] TERM...",
		Short: "Translate French words to English, or back",
		Example: `  gotlex translate maison
  gotlex translate --direction en-fr house
  gotlex translate --cache-stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.runManagement(cmd.Context(), mgmt); done {
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one term is required")
			}

			dir, err := gotlex.ParseDirection(direction)
			if err != nil {
				return err
			}
			src, err := a.translationSource(dir)
			if err != nil {
				return err
			}
			return a.lookup(cmd.Context(), gotlex.NamespaceTranslation, src, args, gotlex.WithKeyPrefix(dir.Compact()))
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", string(gotlex.DefaultDirection), "Translation direction: fr-en or en-fr")
	mgmt.register(cmd)
	return cmd
}

func newDefineCommand(a *app) *cobra.Command {
	var mgmt managementFlags

	cmd := &cobra.Command{
		Use:   "define [flags] WORD...",
		Short: "Look up French definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.runManagement(cmd.Context(), mgmt); done {
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one word is required")
			}

			src, err := a.pageSource(a.cfg.Sources.Dictionary)
			if err != nil {
				return err
			}
			return a.lookup(cmd.Context(), gotlex.NamespaceDictionary, src, args)
		},
	}

	mgmt.register(cmd)
	return cmd
}

func newConjugateCommand(a *app) *cobra.Command {
	var mgmt managementFlags
	var person, tense string

	cmd := &cobra.Command{
		Use:   "conjugate [flags] VERB",
		Short: "Conjugate a French verb",
		Example: `  gotlex conjugate aller
  gotlex conjugate aller --person nous --tense fut`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.runManagement(cmd.Context(), mgmt); done {
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("a verb is required")
			}

			page, err := a.pageSource(a.cfg.Sources.Conjugation)
			if err != nil {
				return err
			}
			conj, err := source.NewConjugationSource(page, person, tense)
			if err != nil {
				return err
			}
			return a.lookup(cmd.Context(), gotlex.NamespaceConjugation, conj, args, gotlex.WithKeyPrefix(conj.KeyParts()...))
		},
	}

	cmd.Flags().StringVarP(&person, "person", "p", "", "Only this person (je, tu, il, nous, vous, ils)")
	cmd.Flags().StringVarP(&tense, "tense", "t", "", "Only this tense (e.g. présent, fut, pc)")
	mgmt.register(cmd)
	return cmd
}

// pageSource builds a rate-limited scraper for a configured site.
func (a *app) pageSource(page config.PageConfig) (gotlex.Source, error) {
	src, err := source.NewHTMLSource(source.HTMLConfig{
		Name:            page.Name,
		URLTemplate:     page.URLTemplate,
		SectionSelector: page.SectionSelector,
		HeadingSelector: page.HeadingSelector,
		EntrySelector:   page.EntrySelector,
		SplitLines:      page.SplitLines,
		Timeout:         time.Duration(page.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return gotlex.NewRateLimitedSource(src, a.rateLimit()), nil
}

func (a *app) translationSource(dir gotlex.Direction) (gotlex.Source, error) {
	if a.cfg.Sources.Translation.Provider == config.ProviderOpenAI {
		src := source.NewOpenAISource(source.OpenAIConfig{
			APIKey:      a.cfg.OpenAI.APIKey,
			Model:       a.cfg.OpenAI.Model,
			Temperature: a.cfg.OpenAI.Temperature,
			BaseURL:     a.cfg.OpenAI.BaseURL,
			Direction:   dir,
		})
		return gotlex.NewRateLimitedSource(src, a.rateLimit()), nil
	}

	page, err := a.cfg.TranslationPage(dir)
	if err != nil {
		return nil, err
	}
	return a.pageSource(page)
}

// lookup resolves terms through the cache and prints the results.
func (a *app) lookup(ctx context.Context, namespace string, src gotlex.Source, terms []string, opts ...gotlex.LookupOption) error {
	return a.withStore(func(store gotlex.Store) error {
		opts = append(opts, gotlex.WithLogger(a.logger))
		l := gotlex.NewLookup(namespace, store, src, opts...)

		results, err := l.LookupAll(ctx, terms)

		// A failed cache write still leaves a usable result.
		var storageErr *gotlex.StorageError
		if err != nil && errors.As(err, &storageErr) && allPresent(results) {
			a.logger.Warn("result not cached", zap.Error(err))
			err = nil
		}
		if err != nil {
			var srcErr *gotlex.SourceError
			if errors.As(err, &srcErr) && srcErr.NotFound {
				return fmt.Errorf("not found: %s", srcErr.Message)
			}
			return err
		}

		return a.printResults(results)
	})
}

func allPresent(results []*gotlex.Result) bool {
	for _, r := range results {
		if r == nil || r.Value == nil {
			return false
		}
	}
	return true
}

func (a *app) printResults(results []*gotlex.Result) error {
	if a.jsonOutput {
		values := make([]json.RawMessage, len(results))
		for i, r := range results {
			values[i] = r.Value
		}
		var out interface{} = values
		if len(values) == 1 {
			out = values[0]
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = a.stdout.Write(buf.Bytes())
		return err
	}

	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "== %s ==\n", r.Term)
		}
		doc, err := source.DecodeDocument(r.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, strings.Join(doc.Lines(), "\n"))
		if r.Cached {
			a.logger.Info("served from cache", zap.String("term", r.Term), zap.String("namespace", r.Namespace))
		}
	}
	return nil
}
