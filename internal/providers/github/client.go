// Package github resolves handles to profiles through the GitHub REST users API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier/internal/notify/ports"
	"courier/internal/platform/config"
	"courier/internal/providers"
	id "courier/pkg/domain"
	"courier/pkg/platform/circuit"
)

const providerID = "github"

// User is the subset of GET /users/{login} the directory needs. Email and
// Location are null unless the user made them public.
type User struct {
	Login    string  `json:"login"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
}

// Client implements ports.ProfileDirectory.
type Client struct {
	baseURL    string
	username   string
	token      string
	httpClient *http.Client
	breaker    *circuit.Breaker
}

var _ ports.ProfileDirectory = (*Client)(nil)

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

func New(cfg config.GitHubConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("github base url required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   cfg.Username,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    circuit.New(providerID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LookupProfile fetches one public profile. An unknown login returns an
// error matching sentinel.ErrNotFound.
func (c *Client) LookupProfile(ctx context.Context, handle id.Handle) (*ports.Profile, error) {
	login := strings.TrimSpace(handle.String())
	if login == "" {
		return nil, providers.NewProviderError(providers.ErrorNotFound, providerID, "empty handle", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+url.PathEscape(login), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		if c.username != "" {
			req.SetBasicAuth(c.username, c.token)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}

	var user User
	if err := providers.DoJSON(c.httpClient, c.breaker, providerID, req, &user); err != nil {
		return nil, err
	}

	profile := &ports.Profile{Handle: id.Handle(user.Login)}
	if profile.Handle == "" {
		profile.Handle = handle
	}
	if user.Email != nil {
		profile.Email = strings.TrimSpace(*user.Email)
	}
	if user.Location != nil {
		profile.Location = strings.TrimSpace(*user.Location)
	}
	return profile, nil
}
