// Package resolver turns directory handles into profiles.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"courier/internal/notify/ports"
	"courier/internal/platform/metrics"
	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/sentinel"
)

const (
	lookupFound    = "found"
	lookupNotFound = "not_found"
	lookupError    = "error"

	// the directory is down or its circuit is open
	lookupUnavailable = "unavailable"
)

// Resolver looks up every handle concurrently and waits for all of them.
type Resolver struct {
	directory      ports.ProfileDirectory
	maxConcurrency int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithMaxConcurrency caps in-flight lookups. Zero or less means unlimited.
func WithMaxConcurrency(n int) Option {
	return func(r *Resolver) {
		r.maxConcurrency = n
	}
}

func New(directory ports.ProfileDirectory, opts ...Option) *Resolver {
	r := &Resolver{directory: directory, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one profile per handle, in input order. Duplicate handles
// are looked up independently. A handle the directory does not know yields a
// profile without contact details. Any other lookup failure cancels the
// remaining lookups and fails the batch with CodeUpstreamUnavailable.
func (r *Resolver) Resolve(ctx context.Context, handles []id.Handle) ([]ports.Profile, error) {
	profiles := make([]ports.Profile, len(handles))

	g, gctx := errgroup.WithContext(ctx)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for i, handle := range handles {
		g.Go(func() error {
			p, err := r.lookup(gctx, handle)
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "profile directory unavailable")
	}
	return profiles, nil
}

func (r *Resolver) lookup(ctx context.Context, handle id.Handle) (ports.Profile, error) {
	start := time.Now()
	p, err := r.directory.LookupProfile(ctx, handle)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		r.metrics.IncrementProfileLookup(lookupNotFound)
		r.logger.DebugContext(ctx, "profile not found",
			"handle", handle.String(),
		)
		return ports.Profile{Handle: handle}, nil
	case errors.Is(err, sentinel.ErrUnavailable):
		r.metrics.IncrementProfileLookup(lookupUnavailable)
		r.logger.WarnContext(ctx, "profile directory unavailable",
			"handle", handle.String(),
			"duration", time.Since(start),
			"error", err,
		)
		return ports.Profile{}, err
	case err != nil:
		r.metrics.IncrementProfileLookup(lookupError)
		r.logger.WarnContext(ctx, "profile lookup failed",
			"handle", handle.String(),
			"duration", time.Since(start),
			"error", err,
		)
		return ports.Profile{}, err
	case p == nil:
		r.metrics.IncrementProfileLookup(lookupNotFound)
		return ports.Profile{Handle: handle}, nil
	}

	r.metrics.IncrementProfileLookup(lookupFound)
	profile := *p
	if profile.Handle == "" {
		profile.Handle = handle
	}
	return profile, nil
}
