package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"courier/internal/audit"
	"courier/internal/auth/models"
	"courier/internal/platform/config"
	"courier/internal/platform/metrics"
	"courier/internal/validation"
	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/sentinel"
	"courier/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, principal *models.Principal) error
	FindByIdentity(ctx context.Context, identity id.Identity) (*models.Principal, error)
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) error
}

type TokenService interface {
	GenerateAccessToken(identity id.Identity, expiresIn time.Duration) (string, error)
	ExtractIdentity(token string) (id.Identity, error)
}

// AvatarStore stores an uploaded avatar and returns its public locations.
type AvatarStore interface {
	Upload(ctx context.Context, avatar models.Avatar) (models.AvatarURLs, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Auth failure causes. They reach logs and metrics, never the caller.
const (
	causeMissingToken    = "missing_token"
	causeInvalidToken    = "invalid_token"
	causeUnknownIdentity = "unknown_identity"
)

// Service handles registration, login and credential verification.
type Service struct {
	users       UserStore
	hasher      PasswordHasher
	tokens      TokenService
	avatars     AvatarStore
	cfg         config.AuthConfig
	avatarTypes []string

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAllowedAvatarTypes restricts avatar MIME types at sign-up.
func WithAllowedAvatarTypes(types []string) Option {
	return func(s *Service) {
		s.avatarTypes = types
	}
}

func New(users UserStore, hasher PasswordHasher, tokens TokenService, avatars AvatarStore, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		avatars:     avatars,
		cfg:         cfg,
		avatarTypes: []string{"image/jpeg", "image/png"},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) passwordRange() validation.PasswordRange {
	return validation.PasswordRange{Min: s.cfg.PasswordMinLength, Max: s.cfg.PasswordMaxLength}
}

// SignUp registers a principal. Password hashing and avatar upload run
// concurrently once the identity is known to be free.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.SignUpResult, error) {
	email := normalizeEmail(req.Email)
	payload := validation.Payload{}
	putString(payload, validation.FieldEmail, email)
	putString(payload, validation.FieldPassword, req.Password)
	if !req.Avatar.IsZero() {
		payload[validation.FieldAvatar] = validation.File{
			Filename:    req.Avatar.Filename,
			ContentType: req.Avatar.ContentType,
			Size:        int64(len(req.Avatar.Content)),
		}
	}
	if errs := validation.SignUp(s.passwordRange(), s.avatarTypes).Validate(payload); errs != nil {
		return nil, dErrors.Validation(errs)
	}

	identity := id.Identity(*email)
	_, err := s.users.FindByIdentity(ctx, identity)
	switch {
	case err == nil:
		s.emit(ctx, audit.ActionSignUpBlocked, "duplicate_identity", identity.String())
		return nil, dErrors.Conflict(validation.FieldEmail, models.ReasonDuplicateIdentity)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up principal")
	}

	var (
		hash string
		urls models.AvatarURLs
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = h
		return nil
	})
	g.Go(func() error {
		u, err := s.avatars.Upload(gctx, *req.Avatar)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "avatar upload failed")
		}
		urls = u
		return nil
	})
	if err := g.Wait(); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare principal")
	}

	principal, err := models.NewPrincipal(id.NewUserID(), identity, hash, urls, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build principal")
	}
	if err := s.users.Create(ctx, principal); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Conflict(validation.FieldEmail, models.ReasonDuplicateIdentity)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}

	token, err := s.tokens.GenerateAccessToken(identity, s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.metrics.IncrementUsersCreated()
	s.emit(ctx, audit.ActionUserCreated, "sign_up", identity.String())

	return &models.SignUpResult{Token: token, AvatarURL: principal.AvatarURL}, nil
}

// SignIn checks an identity and password pair. Unknown identity and wrong
// password produce the same error.
func (s *Service) SignIn(ctx context.Context, req models.SignInRequest) (*models.SignInResult, error) {
	email := normalizeEmail(req.Email)
	payload := validation.Payload{}
	putString(payload, validation.FieldEmail, email)
	putString(payload, validation.FieldPassword, req.Password)
	if errs := validation.SignIn(s.passwordRange()).Validate(payload); errs != nil {
		return nil, dErrors.Validation(errs)
	}

	identity := id.Identity(*email)
	principal, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.ActionSignInFailed, "unknown_identity", identity.String())
			return nil, dErrors.New(dErrors.CodeBadRequest, models.MessageWrongCredentials)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up principal")
	}

	if err := s.hasher.Verify(*req.Password, principal.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			s.emit(ctx, audit.ActionSignInFailed, "password_mismatch", identity.String())
			return nil, dErrors.New(dErrors.CodeBadRequest, models.MessageWrongCredentials)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	token, err := s.tokens.GenerateAccessToken(principal.Identity, s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	return &models.SignInResult{
		Token:           token,
		Email:           principal.Identity.String(),
		AvatarURL:       principal.AvatarURL,
		OriginAvatarURL: principal.OriginAvatarURL,
	}, nil
}

// Authenticate resolves a credential to a known principal. Every rejection is
// CodeUnauthorized with the same message; the cause is recorded once through
// the audit publisher.
func (s *Service) Authenticate(ctx context.Context, token string, present bool) (*models.Principal, error) {
	if !present {
		return nil, s.reject(ctx, causeMissingToken, "", nil)
	}

	identity, err := s.tokens.ExtractIdentity(token)
	if err != nil {
		return nil, s.reject(ctx, causeInvalidToken, "", err)
	}

	principal, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.reject(ctx, causeUnknownIdentity, identity.String(), nil)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up principal")
	}
	return principal, nil
}

func (s *Service) reject(ctx context.Context, cause, subject string, err error) error {
	reason := cause
	if err != nil {
		reason = cause + ": " + err.Error()
	}
	s.metrics.IncrementAuthFailure(cause)
	s.emit(ctx, audit.ActionAuthFailed, reason, subject)
	if err == nil {
		return dErrors.New(dErrors.CodeUnauthorized, models.MessageNoAccess)
	}
	return dErrors.Wrap(err, dErrors.CodeUnauthorized, models.MessageNoAccess)
}

func (s *Service) emit(ctx context.Context, action audit.Action, reason, subject string) {
	event := audit.NewEvent(ctx, action, reason, subject)
	if s.auditPublisher == nil {
		s.logger.WarnContext(ctx, "security event",
			"action", string(action),
			"reason", reason,
			"subject", subject,
			"request_id", event.RequestID,
		)
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(action),
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

// normalizeEmail applies identity normalization before validation so padded or
// mixed-case input is checked in the form it will be stored.
func normalizeEmail(v *string) *string {
	if v == nil {
		return nil
	}
	n := id.NormalizeIdentity(*v).String()
	return &n
}

func putString(p validation.Payload, field string, v *string) {
	if v != nil {
		p[field] = *v
	}
}
