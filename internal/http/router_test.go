package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	authhandler "courier/internal/auth/handler"
	"courier/internal/auth/models"
	"courier/internal/auth/secrets"
	"courier/internal/auth/service"
	"courier/internal/auth/store/user"
	jwttoken "courier/internal/jwt_token"
	"courier/internal/notify"
	"courier/internal/notify/dispatcher"
	"courier/internal/notify/enricher"
	notifyhandler "courier/internal/notify/handler"
	"courier/internal/notify/ports"
	"courier/internal/notify/resolver"
	"courier/internal/platform/config"
	"courier/internal/platform/logger"
	"courier/internal/platform/metrics"
	id "courier/pkg/domain"
	"courier/pkg/platform/httputil"
	"courier/pkg/platform/sentinel"
	"courier/pkg/testutil"
)

type fakeDirectory map[string]ports.Profile

func (d fakeDirectory) LookupProfile(_ context.Context, handle id.Handle) (*ports.Profile, error) {
	p, ok := d[handle.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

type fakeWeather struct {
	mu    sync.Mutex
	calls int
}

func (w *fakeWeather) CurrentConditions(_ context.Context, location string) (*ports.Conditions, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	return &ports.Conditions{Condition: "Clear", Temperature: 18, Place: location}, nil
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []ports.Message
}

func (t *fakeTransport) Send(_ context.Context, msg ports.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return nil
}

type noAvatars struct{}

func (noAvatars) Upload(context.Context, models.Avatar) (models.AvatarURLs, error) {
	return models.AvatarURLs{}, errors.New("not used")
}

type RouterSuite struct {
	suite.Suite
	router    http.Handler
	users     *user.InMemoryUserStore
	tokens    *jwttoken.JWTService
	weather   *fakeWeather
	transport *fakeTransport
	cfg       config.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.cfg = config.Default()
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	s.users = user.New()
	s.tokens = jwttoken.NewJWTService("router-test-key", "courier")
	s.weather = &fakeWeather{}
	s.transport = &fakeTransport{}

	authSvc := service.New(s.users, secrets.NewHasher(bcrypt.MinCost), s.tokens, noAvatars{}, s.cfg.Auth,
		service.WithLogger(log), service.WithMetrics(m))

	directory := fakeDirectory{
		"alice": {Handle: "alice", Email: "alice@example.com", Location: "Oslo"},
		"bob":   {Handle: "bob", Email: "bob@example.com", Location: "Oslo"},
	}
	notifySvc := notify.New(
		resolver.New(directory, resolver.WithLogger(log)),
		enricher.New(s.weather, enricher.WithLogger(log)),
		dispatcher.New(s.transport, dispatcher.WithLogger(log)),
		s.cfg.Notify,
		notify.WithLogger(log),
		notify.WithMetrics(m),
	)

	s.router = NewRouter(Deps{
		Logger:        log,
		Metrics:       m,
		Auth:          authhandler.New(authSvc, log, s.cfg.Avatar.MaxUploadBytes),
		Authenticator: authSvc,
		TokenHeader:   s.cfg.Auth.TokenHeader,
		Notify:        notifyhandler.New(notifySvc, log),
		Gatherer:      reg,
	})
}

func (s *RouterSuite) register(identity string) string {
	principal, err := models.NewPrincipal(id.NewUserID(), id.NormalizeIdentity(identity), "$2a$04$hash", models.AvatarURLs{}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), principal))
	return s.token(identity)
}

func (s *RouterSuite) token(identity string) string {
	token, err := s.tokens.GenerateAccessToken(id.NormalizeIdentity(identity), time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) notifyRequest(path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, body)
	if token != "" {
		req.Header.Set("x-access-token", token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) decode(rr *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func (s *RouterSuite) TestBanner() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/"))

	s.Equal(http.StatusOK, rr.Code)
	s.Equal(map[string]any{"status": "success", "message": "hello, world!"}, s.decode(rr))
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestUnknownRouteIsJSON404() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/nope"))

	testutil.AssertStatusAndMessage(s.T(), rr, http.StatusNotFound, httputil.MessageNotFound)
}

func (s *RouterSuite) TestWrongMethodIsJSON405() {
	for _, path := range []string{"/sign-in", "/notify"} {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, path))

		testutil.AssertStatusAndMessage(s.T(), rr, http.StatusMethodNotAllowed, httputil.MessageNotAllowed)
	}
}

func (s *RouterSuite) TestRejectionsAreIndistinguishable() {
	unknown := s.token("ghost@example.com")
	other := jwttoken.NewJWTService("another-key", "courier")
	forged, err := other.GenerateAccessToken(id.NormalizeIdentity("a@b.com"), time.Hour)
	s.Require().NoError(err)

	var bodies []string
	for _, token := range []string{"", "garbage", forged, unknown} {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/notify", map[string]any{"username": "alice", "message": "hi"})
		if token != "" {
			req.Header.Set("x-access-token", token)
		}
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
		bodies = append(bodies, rr.Body.String())
	}
	for _, b := range bodies[1:] {
		s.Equal(bodies[0], b)
	}
	s.Contains(bodies[0], models.MessageNoAccess)
	s.Empty(s.transport.sent)
}

func (s *RouterSuite) TestNotifyEndToEnd() {
	token := s.register("A@B.com")

	for _, path := range []string{"/notify", "/github-emails"} {
		s.transport.sent = nil
		rr := s.notifyRequest(path, token, map[string]any{"username": []string{"alice", "bob", ""}, "message": "hello"})

		s.Equal(http.StatusOK, rr.Code, path)
		s.Equal(map[string]any{"status": "success", "number": float64(2)}, s.decode(rr))
		s.Len(s.transport.sent, 2)
		for _, msg := range s.transport.sent {
			s.Equal("hello\n---\nIt's Clear, 18 C degrees in Oslo", msg.Body)
		}
	}
	// one lookup per request for the shared location
	s.Equal(2, s.weather.calls)
}

func (s *RouterSuite) TestNotifyValidationAfterAuth() {
	token := s.register("a@b.com")

	rr := s.notifyRequest("/notify", token, map[string]any{"username": "alice"})

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertFieldError(s.T(), rr, "message", "required")
	s.Empty(s.transport.sent)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/"))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "courier_http_requests_total")
}

func TestHealth(t *testing.T) {
	t.Run("all up", func(t *testing.T) {
		router := NewRouter(Deps{
			Logger:       logger.Discard(),
			HealthChecks: map[string]HealthCheck{"redis": func(context.Context) error { return nil }},
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"success","checks":{"redis":"up"}}`, rr.Body.String())
	})

	t.Run("dependency down", func(t *testing.T) {
		router := NewRouter(Deps{
			Logger: logger.Discard(),
			HealthChecks: map[string]HealthCheck{
				"redis":    func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"error","checks":{"redis":"up","postgres":"down"}}`, rr.Body.String())
	})
}

func TestAvatarFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me_thumb.png"), []byte("png-bytes"), 0o644))
	router := NewRouter(Deps{Logger: logger.Discard(), AvatarDir: dir})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/avatars/me_thumb.png"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "png-bytes", rr.Body.String())

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/avatars/missing.png"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), dir))
}
