// Package enricher builds a weather snippet per distinct location.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"courier/internal/notify/ports"
	"courier/internal/platform/metrics"
	pkgstrings "courier/pkg/platform/strings"
)

// DegreeUnit is the temperature unit reported by the context source.
const DegreeUnit = "C"

// Result holds the snippets that could be built and the locations that
// failed. A location appears in at most one of the two maps.
type Result struct {
	Snippets map[string]string
	Failed   map[string]error
}

// Snippet returns the snippet for location, if one was built.
func (r Result) Snippet(location string) (string, bool) {
	s, ok := r.Snippets[location]
	return s, ok
}

type Enricher struct {
	source         ports.ContextSource
	maxConcurrency int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Enricher)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enricher) {
		e.metrics = m
	}
}

func WithMaxConcurrency(n int) Option {
	return func(e *Enricher) {
		e.maxConcurrency = n
	}
}

func New(source ports.ContextSource, opts ...Option) *Enricher {
	e := &Enricher{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich fetches conditions once per distinct non-empty location. A failed
// fetch only drops that location; Enrich itself never fails.
func (e *Enricher) Enrich(ctx context.Context, locations []string) Result {
	distinct := pkgstrings.DedupeAndTrim(locations)
	res := Result{
		Snippets: make(map[string]string, len(distinct)),
		Failed:   make(map[string]error),
	}
	if len(distinct) == 0 {
		return res
	}

	var mu sync.Mutex
	var g errgroup.Group
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	for _, location := range distinct {
		g.Go(func() error {
			snippet, err := e.fetch(ctx, location)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[location] = err
				return nil
			}
			res.Snippets[location] = snippet
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (e *Enricher) fetch(ctx context.Context, location string) (string, error) {
	cond, err := e.source.CurrentConditions(ctx, location)
	if err == nil && cond == nil {
		err = fmt.Errorf("no conditions for %q", location)
	}
	if err != nil {
		e.metrics.IncrementSnippetFetch("error")
		e.logger.WarnContext(ctx, "weather lookup failed",
			"location", location,
			"error", err,
		)
		return "", err
	}
	e.metrics.IncrementSnippetFetch("ok")
	return FormatSnippet(*cond), nil
}

// FormatSnippet renders conditions as a one-line sentence.
//
//	It's Clear, 21.5 C degrees in Oslo
func FormatSnippet(c ports.Conditions) string {
	return fmt.Sprintf("It's %s, %s %s degrees in %s",
		c.Condition,
		strconv.FormatFloat(c.Temperature, 'f', -1, 64),
		DegreeUnit,
		c.Place,
	)
}
