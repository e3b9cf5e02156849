package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/platform/config"
	"courier/internal/providers"
	"courier/internal/providers/github"
	id "courier/pkg/domain"
	"courier/pkg/platform/circuit"
	"courier/pkg/platform/sentinel"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...github.Option) *github.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := github.New(config.GitHubConfig{BaseURL: server.URL, Username: "bot", Token: "secret"}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := github.New(config.GitHubConfig{})
	assert.Error(t, err)
}

func TestLookupProfile(t *testing.T) {
	t.Run("public email and location", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/octocat", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "bot", user)
			assert.Equal(t, "secret", pass)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login":"octocat","email":"octo@github.com","location":" San Francisco "}`))
		})

		profile, err := client.LookupProfile(context.Background(), id.Handle("octocat"))

		require.NoError(t, err)
		assert.Equal(t, id.Handle("octocat"), profile.Handle)
		assert.Equal(t, "octo@github.com", profile.Email)
		assert.Equal(t, "San Francisco", profile.Location)
	})

	t.Run("private email", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"login":"Ghost","email":null,"location":null}`))
		})

		profile, err := client.LookupProfile(context.Background(), id.Handle("ghost"))

		require.NoError(t, err)
		assert.Equal(t, id.Handle("Ghost"), profile.Handle)
		assert.False(t, profile.HasContact())
	})

	t.Run("unknown login matches not found", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		})

		_, err := client.LookupProfile(context.Background(), id.Handle("nobody"))

		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("server error is an outage", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.LookupProfile(context.Background(), id.Handle("octocat"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{nope`))
		})

		_, err := client.LookupProfile(context.Background(), id.Handle("octocat"))

		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("open circuit skips the call", func(t *testing.T) {
		var calls atomic.Int32
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}, github.WithBreaker(circuit.New("github", circuit.WithFailureThreshold(1))))

		_, err := client.LookupProfile(context.Background(), id.Handle("a"))
		require.Error(t, err)
		_, err = client.LookupProfile(context.Background(), id.Handle("b"))

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, providers.ErrorCircuitOpen, providers.GetCategory(err))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("not found does not trip the circuit", func(t *testing.T) {
		breaker := circuit.New("github", circuit.WithFailureThreshold(1))
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, github.WithBreaker(breaker))

		_, _ = client.LookupProfile(context.Background(), id.Handle("a"))

		assert.False(t, breaker.IsOpen())
	})
}
