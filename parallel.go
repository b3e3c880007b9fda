package gotlex

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// LookupAll looks up terms in parallel and returns results in input order.
// Terms sharing a normalized key are looked up once and share a Result.
// The first failure cancels outstanding lookups and is returned; results
// already obtained stay in the slice, the rest are nil.
func (l *Lookup) LookupAll(ctx context.Context, terms []string) ([]*Result, error) {
	results := make([]*Result, len(terms))
	if len(terms) == 0 {
		return results, nil
	}

	// Deduplicate by key, preserving first occurrence order
	indexesByKey := make(map[string][]int)
	var order []string
	for i, term := range terms {
		key := l.Key(term)
		if _, seen := indexesByKey[key]; !seen {
			order = append(order, key)
		}
		indexesByKey[key] = append(indexesByKey[key], i)
	}

	unique := make([]*Result, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, key := range order {
		term := terms[indexesByKey[key][0]]
		g.Go(func() error {
			res, err := l.Get(gctx, term)
			unique[i] = res
			return err
		})
	}

	err := g.Wait()

	for i, key := range order {
		for _, idx := range indexesByKey[key] {
			results[idx] = unique[i]
		}
	}

	return results, err
}
