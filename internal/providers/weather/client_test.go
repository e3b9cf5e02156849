package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/platform/config"
	"courier/internal/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := New(config.WeatherConfig{BaseURL: server.URL + "/", APIKey: "key"})
	require.NoError(t, err)
	return c
}

func TestCurrentConditions(t *testing.T) {
	t.Run("maps the response", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/weather", r.URL.Path)
			assert.Equal(t, "Oslo", r.URL.Query().Get("q"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			assert.Equal(t, "key", r.URL.Query().Get("appid"))
			_, _ = w.Write([]byte(`{"name":"Oslo","weather":[{"main":"Clouds","description":"broken clouds"}],"main":{"temp":7.36},"sys":{"country":"NO"}}`))
		})

		cond, err := c.CurrentConditions(context.Background(), " Oslo ")

		require.NoError(t, err)
		assert.Equal(t, "Clouds", cond.Condition)
		assert.Equal(t, 7.4, cond.Temperature)
		assert.Equal(t, "Oslo, NO", cond.Place)
	})

	t.Run("falls back to the queried location for the place", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"weather":[{"main":"Clear"}],"main":{"temp":20}}`))
		})

		cond, err := c.CurrentConditions(context.Background(), "Nowhere")

		require.NoError(t, err)
		assert.Equal(t, "Nowhere", cond.Place)
	})

	t.Run("unknown city", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		})

		_, err := c.CurrentConditions(context.Background(), "Atlantis")

		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
	})

	t.Run("empty weather list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":"Oslo","weather":[]}`))
		})

		_, err := c.CurrentConditions(context.Background(), "Oslo")

		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("empty location", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})

		_, err := c.CurrentConditions(context.Background(), "  ")

		assert.Error(t, err)
	})
}
