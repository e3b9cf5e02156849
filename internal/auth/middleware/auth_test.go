package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/auth/models"
	"courier/internal/platform/logger"
	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/requestcontext"
)

type stubAuthenticator struct {
	principal *models.Principal
	err       error

	gotToken   string
	gotPresent bool
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string, present bool) (*models.Principal, error) {
	s.gotToken, s.gotPresent = token, present
	return s.principal, s.err
}

func serve(auth Authenticator, req *http.Request) (*httptest.ResponseRecorder, *http.Request) {
	var seen *http.Request
	h := RequireAuth(auth, "", logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuthAttachesPrincipal(t *testing.T) {
	p := &models.Principal{ID: id.NewUserID(), Identity: "a@b.com"}
	auth := &stubAuthenticator{principal: p}
	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	req.Header.Set("X-Access-Token", "tok")

	rec, seen := serve(auth, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok", auth.gotToken)
	assert.True(t, auth.gotPresent)
	require.NotNil(t, seen)
	got, ok := PrincipalFrom(seen.Context())
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, id.Identity("a@b.com"), requestcontext.Identity(seen.Context()))
}

func TestRequireAuthDistinguishesAbsentFromEmpty(t *testing.T) {
	auth := &stubAuthenticator{err: dErrors.New(dErrors.CodeUnauthorized, models.MessageNoAccess)}

	serve(auth, httptest.NewRequest(http.MethodPost, "/notify", nil))
	assert.False(t, auth.gotPresent)

	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	req.Header["X-Access-Token"] = []string{""}
	serve(auth, req)
	assert.True(t, auth.gotPresent)
}

func TestRequireAuthRejectsWithFixedBody(t *testing.T) {
	auth := &stubAuthenticator{err: dErrors.Wrap(errors.New("signature is invalid"), dErrors.CodeUnauthorized, models.MessageNoAccess)}
	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	req.Header.Set("x-access-token", "bad")

	rec, seen := serve(auth, req)

	assert.Nil(t, seen)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{
		"status":  "error",
		"message": "You have no access rights to perform current action.",
	}, body)
	assert.NotContains(t, rec.Body.String(), "signature")
}

func TestRequireAuthInternalFailure(t *testing.T) {
	auth := &stubAuthenticator{err: dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "lookup failed")}
	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	req.Header.Set("x-access-token", "tok")

	rec, _ := serve(auth, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}
