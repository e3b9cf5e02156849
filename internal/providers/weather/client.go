// Package weather reports current conditions through an OpenWeatherMap
// compatible API, optionally behind a Redis cache.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier/internal/notify/ports"
	"courier/internal/platform/config"
	"courier/internal/providers"
	"courier/pkg/platform/circuit"
)

const providerID = "weather"

// currentResponse is the subset of GET /weather we read.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Client implements ports.ContextSource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuit.Breaker
}

var _ ports.ContextSource = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func New(cfg config.WeatherConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("weather base url required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		breaker:    circuit.New(providerID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CurrentConditions queries the conditions for a free-form location in
// metric units.
func (c *Client) CurrentConditions(ctx context.Context, location string) (*ports.Conditions, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("location must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/weather")
	if err != nil {
		return nil, fmt.Errorf("parse weather url: %w", err)
	}
	params := url.Values{}
	params.Set("q", location)
	params.Set("units", "metric")
	if c.apiKey != "" {
		params.Set("appid", c.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var payload currentResponse
	if err := providers.DoJSON(c.httpClient, c.breaker, providerID, req, &payload); err != nil {
		return nil, err
	}
	if len(payload.Weather) == 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "response has no weather entry", nil)
	}

	place := payload.Name
	if place == "" {
		place = location
	}
	if payload.Sys.Country != "" {
		place += ", " + payload.Sys.Country
	}
	return &ports.Conditions{
		Condition:   payload.Weather[0].Main,
		Temperature: math.Round(payload.Main.Temp*10) / 10,
		Place:       place,
	}, nil
}
