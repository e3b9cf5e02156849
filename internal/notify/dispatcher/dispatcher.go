// Package dispatcher sends the personalized message to every contactable profile.
package dispatcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"courier/internal/notify/ports"
	"courier/internal/platform/metrics"
)

// SnippetSeparator sits between the message and the appended snippet.
const SnippetSeparator = "\n---\n"

// Snippets looks up the snippet for a location.
type Snippets interface {
	Snippet(location string) (string, bool)
}

// Envelope carries the fields shared by every message of one dispatch.
type Envelope struct {
	From    string
	Subject string
	Text    string
}

// Failure is one send that the transport rejected.
type Failure struct {
	Profile ports.Profile
	Err     error
}

// Result tallies one dispatch. Attempted counts distinct contacts; Sent
// counts those the transport accepted.
type Result struct {
	Attempted int
	Sent      int
	Failures  []Failure
}

type Dispatcher struct {
	transport      ports.OutboundTransport
	maxConcurrency int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.maxConcurrency = n
	}
}

func New(transport ports.OutboundTransport, opts ...Option) *Dispatcher {
	d := &Dispatcher{transport: transport, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends one message per distinct contactable profile. Every send is
// attempted; a failed send is recorded and never affects the others.
func (d *Dispatcher) Dispatch(ctx context.Context, profiles []ports.Profile, env Envelope, snippets Snippets) Result {
	targets := Contactable(profiles)
	res := Result{Attempted: len(targets)}

	var mu sync.Mutex
	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}
	for _, p := range targets {
		g.Go(func() error {
			msg := ports.Message{
				From:    env.From,
				To:      p.Email,
				Subject: env.Subject,
				Body:    Body(env.Text, p, snippets),
			}
			err := d.transport.Send(ctx, msg)
			d.metrics.ObserveSend(err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.WarnContext(ctx, "message send failed",
					"handle", p.Handle.String(),
					"error", err,
				)
				res.Failures = append(res.Failures, Failure{Profile: p, Err: err})
				return nil
			}
			res.Sent++
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// Contactable drops profiles without an email and collapses duplicates of
// the same handle and address. Order of first appearance is kept.
func Contactable(profiles []ports.Profile) []ports.Profile {
	seen := make(map[string]struct{}, len(profiles))
	out := make([]ports.Profile, 0, len(profiles))
	for _, p := range profiles {
		if !p.HasContact() {
			continue
		}
		key := p.Handle.Key() + "\x00" + strings.ToLower(p.Email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Body appends the location snippet to text when one exists.
func Body(text string, p ports.Profile, snippets Snippets) string {
	location := strings.TrimSpace(p.Location)
	if location == "" || snippets == nil {
		return text
	}
	snippet, ok := snippets.Snippet(location)
	if !ok || snippet == "" {
		return text
	}
	return text + SnippetSeparator + snippet
}
