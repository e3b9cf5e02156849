package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"courier/internal/audit"
	"courier/internal/auth/models"
	"courier/internal/auth/service/mocks"
	"courier/internal/platform/config"
	"courier/internal/platform/logger"
	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,PasswordHasher,TokenService,AvatarStore,AuditPublisher

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	users   *mocks.MockUserStore
	hasher  *mocks.MockPasswordHasher
	tokens  *mocks.MockTokenService
	avatars *mocks.MockAvatarStore
	auditor *mocks.MockAuditPublisher
	events  []audit.Event
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.reset()
}

// SetupSubTest gives every s.Run its own controller so unmet expectations stay
// with the subtest that set them.
func (s *ServiceSuite) SetupSubTest() {
	s.reset()
}

func (s *ServiceSuite) reset() {
	ctrl := gomock.NewController(s.T())
	s.ctx = context.Background()
	s.users = mocks.NewMockUserStore(ctrl)
	s.hasher = mocks.NewMockPasswordHasher(ctrl)
	s.tokens = mocks.NewMockTokenService(ctrl)
	s.avatars = mocks.NewMockAvatarStore(ctrl)
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.events = nil
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.events = append(s.events, e)
		return nil
	}).AnyTimes()

	cfg := config.Default().Auth
	s.service = New(s.users, s.hasher, s.tokens, s.avatars, cfg,
		WithLogger(logger.Discard()),
		WithAuditPublisher(s.auditor),
	)
}

func ptr(v string) *string { return &v }

func validAvatar() *models.Avatar {
	return &models.Avatar{Filename: "me.png", ContentType: "image/png", Content: []byte("png-bytes")}
}

func (s *ServiceSuite) TestSignUp() {
	s.Run("registers principal with normalized identity", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(nil, sentinel.ErrNotFound)
		s.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
		s.avatars.EXPECT().Upload(gomock.Any(), *validAvatar()).
			Return(models.AvatarURLs{Origin: "https://cdn/o.png", Thumb: "https://cdn/t.png"}, nil)
		s.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.Principal) error {
			s.Equal(id.Identity("a@b.com"), p.Identity)
			s.Equal("hashed", p.PasswordHash)
			s.Equal("https://cdn/t.png", p.AvatarURL)
			s.Equal("https://cdn/o.png", p.OriginAvatarURL)
			s.False(p.ID.IsNil())
			return nil
		})
		s.tokens.EXPECT().GenerateAccessToken(id.Identity("a@b.com"), 24*time.Hour).Return("tok", nil)

		res, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("  A@B.com "), Password: ptr("secret1"), Avatar: validAvatar(),
		})
		s.Require().NoError(err)
		s.Equal("tok", res.Token)
		s.Equal("https://cdn/t.png", res.AvatarURL)
		s.Require().Len(s.events, 1)
		s.Equal(audit.ActionUserCreated, s.events[0].Action)
	})

	s.Run("reports every missing field without touching the store", func() {
		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
		de, _ := dErrors.As(err)
		s.Equal(map[string]string{"email": "required", "password": "required", "avatar": "required"}, de.Fields)
	})

	s.Run("rejects avatar with unsupported type", func() {
		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("a@b.com"), Password: ptr("secret1"),
			Avatar: &models.Avatar{Filename: "x.gif", ContentType: "image/gif", Content: []byte("g")},
		})
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal("isIn", de.Fields["avatar"])
	})

	s.Run("duplicate identity is a field-scoped conflict", func() {
		s.events = nil
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(&models.Principal{}, nil)

		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("a@b.com"), Password: ptr("secret1"), Avatar: validAvatar(),
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
		de, _ := dErrors.As(err)
		s.Equal(models.ReasonDuplicateIdentity, de.Fields["email"])
		s.Equal(`Validation error(s) with parameters "email" appeared.`, de.Message)
		s.Require().Len(s.events, 1)
		s.Equal(audit.ActionSignUpBlocked, s.events[0].Action)
	})

	s.Run("lost create race is also a conflict", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.avatars.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(models.AvatarURLs{Origin: "o", Thumb: "t"}, nil)
		s.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("a@b.com"), Password: ptr("secret1"), Avatar: validAvatar(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("avatar upload failure is upstream unavailable", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil).AnyTimes()
		s.avatars.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(models.AvatarURLs{}, errors.New("cdn down"))

		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("a@b.com"), Password: ptr("secret1"), Avatar: validAvatar(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
	})

	s.Run("store failure is internal", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

		_, err := s.service.SignUp(s.ctx, models.SignUpRequest{
			Email: ptr("a@b.com"), Password: ptr("secret1"), Avatar: validAvatar(),
		})
		s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestSignIn() {
	stored := &models.Principal{
		ID:              id.NewUserID(),
		Identity:        "a@b.com",
		PasswordHash:    "hashed",
		AvatarURL:       "https://cdn/t.png",
		OriginAvatarURL: "https://cdn/o.png",
	}

	s.Run("returns token and avatars", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(stored, nil)
		s.hasher.EXPECT().Verify("secret1", "hashed").Return(nil)
		s.tokens.EXPECT().GenerateAccessToken(id.Identity("a@b.com"), gomock.Any()).Return("tok", nil)

		res, err := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("A@b.com"), Password: ptr("secret1")})
		s.Require().NoError(err)
		s.Equal(&models.SignInResult{
			Token: "tok", Email: "a@b.com",
			AvatarURL: "https://cdn/t.png", OriginAvatarURL: "https://cdn/o.png",
		}, res)
	})

	s.Run("wrong password and unknown identity are indistinguishable", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(stored, nil)
		s.hasher.EXPECT().Verify("wrong-pass", "hashed").Return(dErrors.New(dErrors.CodeInvalidInput, "invalid secret"))
		_, wrongPassword := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("a@b.com"), Password: ptr("wrong-pass")})

		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("x@b.com")).Return(nil, sentinel.ErrNotFound)
		_, unknown := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("x@b.com"), Password: ptr("secret1")})

		s.Equal(wrongPassword.Error(), unknown.Error())
		s.True(dErrors.HasCode(unknown, dErrors.CodeBadRequest))
		de, _ := dErrors.As(unknown)
		s.Equal(models.MessageWrongCredentials, de.Message)
	})

	s.Run("padded mixed-case email is normalized before validation", func() {
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(stored, nil)
		s.hasher.EXPECT().Verify("secret1", "hashed").Return(nil)
		s.tokens.EXPECT().GenerateAccessToken(id.Identity("a@b.com"), gomock.Any()).Return("tok", nil)

		res, err := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("  A@B.com "), Password: ptr("secret1")})
		s.Require().NoError(err)
		s.Equal("a@b.com", res.Email)
	})

	s.Run("blank email fails the email rule", func() {
		_, err := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("   "), Password: ptr("secret1")})
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal("isEmail", de.Fields["email"])
	})

	s.Run("missing password is a validation error", func() {
		_, err := s.service.SignIn(s.ctx, models.SignInRequest{Email: ptr("a@b.com")})
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(map[string]string{"password": "required"}, de.Fields)
	})
}

func (s *ServiceSuite) TestAuthenticate() {
	s.Run("resolves known identity", func() {
		p := &models.Principal{Identity: "a@b.com"}
		s.tokens.EXPECT().ExtractIdentity("good").Return(id.Identity("a@b.com"), nil)
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("a@b.com")).Return(p, nil)

		got, err := s.service.Authenticate(s.ctx, "good", true)
		s.Require().NoError(err)
		s.Same(p, got)
	})

	s.Run("all rejection causes look identical and emit one event each", func() {
		s.events = nil

		_, missing := s.service.Authenticate(s.ctx, "", false)

		s.tokens.EXPECT().ExtractIdentity("garbage").Return(id.Identity(""), dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
		_, invalid := s.service.Authenticate(s.ctx, "garbage", true)

		s.tokens.EXPECT().ExtractIdentity("orphan").Return(id.Identity("gone@b.com"), nil)
		s.users.EXPECT().FindByIdentity(gomock.Any(), id.Identity("gone@b.com")).Return(nil, sentinel.ErrNotFound)
		_, unknown := s.service.Authenticate(s.ctx, "orphan", true)

		for _, err := range []error{missing, invalid, unknown} {
			s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
			de, _ := dErrors.As(err)
			s.Equal(models.MessageNoAccess, de.Message)
			s.Empty(de.Fields)
		}

		s.Require().Len(s.events, 3)
		s.Equal("missing_token", s.events[0].Reason)
		s.Contains(s.events[1].Reason, "invalid_token")
		s.Equal("unknown_identity", s.events[2].Reason)
		s.Equal("gone@b.com", s.events[2].Subject)
		for _, e := range s.events {
			s.Equal(audit.ActionAuthFailed, e.Action)
		}
	})

	s.Run("directory failure is internal, not unauthorized", func() {
		s.tokens.EXPECT().ExtractIdentity("good").Return(id.Identity("a@b.com"), nil)
		s.users.EXPECT().FindByIdentity(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

		_, err := s.service.Authenticate(s.ctx, "good", true)
		s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}
