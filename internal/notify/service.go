// Package notify sequences the fan-out pipeline: validate the payload, resolve
// handles to profiles, enrich distinct locations, then dispatch one message
// per contactable profile. Stages run strictly in order; work inside a stage
// runs concurrently.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courier/internal/notify/dispatcher"
	"courier/internal/notify/enricher"
	"courier/internal/notify/ports"
	"courier/internal/platform/config"
	"courier/internal/platform/metrics"
	"courier/internal/validation"
	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/requestcontext"
)

type ProfileResolver interface {
	Resolve(ctx context.Context, handles []id.Handle) ([]ports.Profile, error)
}

type ContextEnricher interface {
	Enrich(ctx context.Context, locations []string) enricher.Result
}

type MessageDispatcher interface {
	Dispatch(ctx context.Context, profiles []ports.Profile, env dispatcher.Envelope, snippets dispatcher.Snippets) dispatcher.Result
}

// Result is the response of a completed pipeline run.
type Result struct {
	Number int
	Stages []StageResult
}

type Service struct {
	resolver   ProfileResolver
	enricher   ContextEnricher
	dispatcher MessageDispatcher
	cfg        config.NotifyConfig

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(resolver ProfileResolver, enricher ContextEnricher, dispatcher MessageDispatcher, cfg config.NotifyConfig, opts ...Option) *Service {
	s := &Service{
		resolver:   resolver,
		enricher:   enricher,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify runs the pipeline for one request. The first failed stage ends the
// run; messages already sent are not retracted.
func (s *Service) Notify(ctx context.Context, payload validation.Payload) (*Result, error) {
	var (
		handles  []id.Handle
		message  string
		profiles []ports.Profile
		snippets enricher.Result
		sent     dispatcher.Result
	)
	result := &Result{}

	stages := []struct {
		stage   Stage
		timeout time.Duration
		run     stageFunc
	}{
		{StageValidate, 0, func(context.Context) (bool, error) {
			var err error
			handles, message, err = s.validate(payload)
			return false, err
		}},
		{StageResolve, s.cfg.ResolveTimeout, func(ctx context.Context) (bool, error) {
			var err error
			profiles, err = s.resolver.Resolve(ctx, handles)
			return false, withDeadline(ctx, err)
		}},
		{StageEnrich, s.cfg.EnrichTimeout, func(ctx context.Context) (bool, error) {
			snippets = s.enricher.Enrich(ctx, locations(profiles))
			return len(snippets.Failed) > 0, nil
		}},
		{StageDispatch, s.cfg.DispatchTimeout, func(ctx context.Context) (bool, error) {
			sent = s.dispatcher.Dispatch(ctx, profiles, dispatcher.Envelope{
				From:    s.cfg.MailFrom,
				Subject: s.cfg.MailSubject,
				Text:    message,
			}, snippets)
			return len(sent.Failures) > 0, s.dispatchError(ctx, sent)
		}},
	}

	for _, st := range stages {
		res := s.runStage(ctx, st.stage, st.timeout, st.run)
		result.Stages = append(result.Stages, res)
		if res.Failed() {
			s.logFailure(ctx, res)
			return nil, res.Err
		}
	}

	result.Number = sent.Sent
	s.logger.InfoContext(ctx, "notification dispatched",
		"request_id", requestcontext.RequestID(ctx),
		"handles", len(handles),
		"profiles", len(profiles),
		"snippets", len(snippets.Snippets),
		"sent", sent.Sent,
		"failed", len(sent.Failures),
	)
	return result, nil
}

func (s *Service) validate(payload validation.Payload) ([]id.Handle, string, error) {
	if errs := validation.Notify().Validate(payload); errs != nil {
		return nil, "", dErrors.Validation(errs)
	}
	raw, _ := validation.Strings(payload[validation.FieldUsername])
	handles := id.ParseHandles(raw)
	if s.cfg.MaxHandles > 0 && len(handles) > s.cfg.MaxHandles {
		return nil, "", dErrors.Validation(map[string]string{validation.FieldUsername: validation.ReasonMaxItems})
	}
	message, _ := payload[validation.FieldMessage].(string)
	return handles, message, nil
}

// dispatchError applies the dispatch policy. Partial tolerates individual
// failures unless the stage deadline cut sends short; strict fails on any.
func (s *Service) dispatchError(ctx context.Context, res dispatcher.Result) error {
	if len(res.Failures) == 0 {
		return nil
	}
	first := res.Failures[0].Err
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return withDeadline(ctx, first)
	}
	if s.cfg.DispatchPolicy != config.DispatchStrict {
		return nil
	}
	s.logger.WarnContext(ctx, "strict dispatch aborted after partial send",
		"request_id", requestcontext.RequestID(ctx),
		"sent", res.Sent,
		"failed", len(res.Failures),
	)
	return dErrors.Wrap(first, dErrors.CodeUpstreamUnavailable,
		fmt.Sprintf("%d of %d messages could not be sent", len(res.Failures), res.Attempted))
}

func (s *Service) logFailure(ctx context.Context, res StageResult) {
	level := slog.LevelError
	if dErrors.IsClientFacing(dErrors.CodeOf(res.Err)) {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "notify pipeline stopped",
		"request_id", requestcontext.RequestID(ctx),
		"stage", string(res.Stage),
		"duration", res.Duration,
		"error", res.Err,
	)
}

// withDeadline marks err as a deadline failure when the stage context expired,
// even if the collaborator returned an unrelated error.
func withDeadline(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
	}
	return err
}

func locations(profiles []ports.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.HasContact() && p.Location != "" {
			out = append(out, p.Location)
		}
	}
	return out
}
