package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server is the single configuration value built at startup. Components
// receive the sub-struct they need through their constructors.
type Server struct {
	Addr     string         `yaml:"addr"`
	LogLevel string         `yaml:"log_level"`
	Auth     AuthConfig     `yaml:"auth"`
	Notify   NotifyConfig   `yaml:"notify"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	GitHub   GitHubConfig   `yaml:"github"`
	Weather  WeatherConfig  `yaml:"weather"`
	Mail     MailConfig     `yaml:"mail"`
	Avatar   AvatarConfig   `yaml:"avatar"`
	Audit    AuditConfig    `yaml:"audit"`
}

// AuthConfig covers credential signing and password policy.
type AuthConfig struct {
	JWTSigningKey     string        `yaml:"jwt_signing_key"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	TokenHeader       string        `yaml:"token_header"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	PasswordMinLength int           `yaml:"password_min_length"`
	PasswordMaxLength int           `yaml:"password_max_length"`
}

// DispatchPolicy selects how send failures affect the notify response.
type DispatchPolicy string

const (
	// DispatchPartial counts successful sends and ignores individual failures.
	DispatchPartial DispatchPolicy = "partial"
	// DispatchStrict fails the request when any send fails.
	DispatchStrict DispatchPolicy = "strict"
)

// NotifyConfig covers the fan-out pipeline.
type NotifyConfig struct {
	MailFrom        string         `yaml:"mail_from"`
	MailSubject     string         `yaml:"mail_subject"`
	ResolveTimeout  time.Duration  `yaml:"resolve_timeout"`
	EnrichTimeout   time.Duration  `yaml:"enrich_timeout"`
	DispatchTimeout time.Duration  `yaml:"dispatch_timeout"`
	MaxConcurrency  int            `yaml:"max_concurrency"`
	DispatchPolicy  DispatchPolicy `yaml:"dispatch_policy"`
	MaxHandles      int            `yaml:"max_handles"`
}

// DatabaseConfig enables the Postgres principal directory when URL is set.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig enables the shared snippet cache when URL is set.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// GitHubConfig configures the profile directory client.
type GitHubConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// WeatherConfig configures the context source client.
type WeatherConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// MailConfig configures the outbound transport. Transport is "log" or an
// smtp:// / smtps:// URL.
type MailConfig struct {
	Transport string `yaml:"transport"`
}

// AvatarConfig configures the asset store.
type AvatarConfig struct {
	CloudinaryURL  string   `yaml:"cloudinary_url"`
	Dir            string   `yaml:"dir"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	ThumbWidth     int      `yaml:"thumb_width"`
	ThumbHeight    int      `yaml:"thumb_height"`
	AllowedTypes   []string `yaml:"allowed_types"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// AuditConfig selects the operational sink for security events.
type AuditConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Topic        string   `yaml:"topic"`
	DatabaseURL  string   `yaml:"database_url"`
	BufferSize   int      `yaml:"buffer_size"`
}

// Default returns the development defaults.
func Default() Server {
	return Server{
		Addr:     ":1337",
		LogLevel: "info",
		Auth: AuthConfig{
			JWTSigningKey:     "dev-secret-key-change-in-production",
			TokenTTL:          24 * time.Hour,
			TokenHeader:       "x-access-token",
			BcryptCost:        10,
			PasswordMinLength: 3,
			PasswordMaxLength: 64,
		},
		Notify: NotifyConfig{
			MailFrom:        "Courier <no-reply@courier.local>",
			MailSubject:     "You have a new message",
			ResolveTimeout:  10 * time.Second,
			EnrichTimeout:   5 * time.Second,
			DispatchTimeout: 15 * time.Second,
			MaxConcurrency:  8,
			DispatchPolicy:  DispatchPartial,
			MaxHandles:      100,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
		},
		Weather: WeatherConfig{
			BaseURL:  "https://api.openweathermap.org/data/2.5",
			CacheTTL: 10 * time.Minute,
		},
		Mail: MailConfig{
			Transport: "log",
		},
		Avatar: AvatarConfig{
			Dir:            os.TempDir(),
			PublicBaseURL:  "http://localhost:1337/avatars",
			ThumbWidth:     100,
			ThumbHeight:    100,
			AllowedTypes:   []string{"image/jpeg", "image/png"},
			MaxUploadBytes: 5 << 20,
		},
		Audit: AuditConfig{
			Topic:      "courier.security",
			BufferSize: 1000,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (Server, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Server{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// FromEnv builds a Server config from defaults and environment variables only.
func FromEnv() (Server, error) {
	return Load("")
}

// Validate rejects configurations the pipeline cannot run with.
func (c Server) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSigningKey) == "" {
		errs = append(errs, errors.New("auth.jwt_signing_key is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.PasswordMinLength <= 0 || c.Auth.PasswordMaxLength < c.Auth.PasswordMinLength {
		errs = append(errs, errors.New("auth password length range is invalid"))
	}
	if c.Notify.ResolveTimeout <= 0 || c.Notify.EnrichTimeout <= 0 || c.Notify.DispatchTimeout <= 0 {
		errs = append(errs, errors.New("notify stage timeouts must be positive"))
	}
	if c.Notify.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("notify.max_concurrency must be positive"))
	}
	switch c.Notify.DispatchPolicy {
	case DispatchPartial, DispatchStrict:
	default:
		errs = append(errs, fmt.Errorf("notify.dispatch_policy %q is not supported", c.Notify.DispatchPolicy))
	}
	return errors.Join(errs...)
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Server, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("COURIER_ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)

	str("JWT_SIGNING_KEY", &cfg.Auth.JWTSigningKey)
	dur("JWT_EXPIRES_IN", &cfg.Auth.TokenTTL)
	num("BCRYPT_COST", &cfg.Auth.BcryptCost)

	str("MAIL_FROM", &cfg.Notify.MailFrom)
	str("MAIL_SUBJECT", &cfg.Notify.MailSubject)
	dur("NOTIFY_RESOLVE_TIMEOUT", &cfg.Notify.ResolveTimeout)
	dur("NOTIFY_ENRICH_TIMEOUT", &cfg.Notify.EnrichTimeout)
	dur("NOTIFY_DISPATCH_TIMEOUT", &cfg.Notify.DispatchTimeout)
	num("NOTIFY_MAX_CONCURRENCY", &cfg.Notify.MaxConcurrency)
	if v, ok := lookup("NOTIFY_DISPATCH_POLICY"); ok && v != "" {
		cfg.Notify.DispatchPolicy = DispatchPolicy(strings.ToLower(v))
	}

	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)

	str("GITHUB_BASE_URL", &cfg.GitHub.BaseURL)
	str("GITHUB_USERNAME", &cfg.GitHub.Username)
	str("GITHUB_TOKEN", &cfg.GitHub.Token)

	str("WEATHER_BASE_URL", &cfg.Weather.BaseURL)
	str("WEATHER_API_KEY", &cfg.Weather.APIKey)
	dur("WEATHER_CACHE_TTL", &cfg.Weather.CacheTTL)

	str("MAIL_TRANSPORT", &cfg.Mail.Transport)

	str("CLOUDINARY_URL", &cfg.Avatar.CloudinaryURL)
	str("AVATAR_DIR", &cfg.Avatar.Dir)
	str("AVATAR_PUBLIC_BASE_URL", &cfg.Avatar.PublicBaseURL)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Audit.KafkaBrokers = strings.Split(v, ",")
	}
	str("AUDIT_TOPIC", &cfg.Audit.Topic)
	str("AUDIT_DATABASE_URL", &cfg.Audit.DatabaseURL)

	return errors.Join(errs...)
}
