package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string    `yaml:"server_address" validate:"required"`
	DatabasePath  string    `yaml:"database_path"`
	DatabaseURL   string    `yaml:"database_url"`
	Instagram     Instagram `yaml:"instagram"`
	Calendar      Calendar  `yaml:"calendar"`
	Feed          Feed      `yaml:"feed"`
	Session       Session   `yaml:"session"`
	LockDir       string    `yaml:"lock_dir"`
}

// Instagram holds the OAuth client and API endpoints of the photo service
type Instagram struct {
	ClientID     string   `yaml:"client_id" validate:"required"`
	ClientSecret string   `yaml:"client_secret" validate:"required"`
	AuthURL      string   `yaml:"auth_url" validate:"required,url"`
	TokenURL     string   `yaml:"token_url" validate:"required,url"`
	APIBaseURL   string   `yaml:"api_base_url" validate:"required,url"`
	RedirectURL  string   `yaml:"redirect_url" validate:"omitempty,url"`
	Scopes       []string `yaml:"scopes"`
}

// Calendar fixes the zone in which photo days are counted
type Calendar struct {
	UTCOffset string `yaml:"utc_offset" validate:"required"`
}

// Feed controls how the remote media feed is read
type Feed struct {
	DrainTimeout   time.Duration `yaml:"drain_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// Session configures the browser session that carries the access token
type Session struct {
	Secret        string `yaml:"secret" validate:"required,min=16"`
	Salt          string `yaml:"salt"`
	DurationHours int    `yaml:"duration_hours" validate:"gt=0"`
	CookieSecure  bool   `yaml:"cookie_secure"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Offset returns the configured calendar offset as a duration
func (c *Config) Offset() (time.Duration, error) {
	return ParseUTCOffset(c.Calendar.UTCOffset)
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "threesixtyfive.db",
		Instagram: Instagram{
			AuthURL:    "https://api.instagram.com/oauth/authorize",
			TokenURL:   "https://api.instagram.com/oauth/access_token",
			APIBaseURL: "https://api.instagram.com/v1",
			Scopes:     []string{"basic"},
		},
		Calendar: Calendar{
			UTCOffset: "+01:00",
		},
		Feed: Feed{
			DrainTimeout:   2 * time.Minute,
			RequestTimeout: 30 * time.Second,
		},
		Session: Session{
			DurationHours: 24,
		},
		LockDir: os.TempDir(),
	}
}

// Load loads configuration from file, .env and environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "threesixtyfive.yaml"
	}
	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		c.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		c.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		c.DatabaseURL = dbURL
	}
	if id := os.Getenv("THREESIXTYFIVE_CLIENT_ID"); id != "" {
		c.Instagram.ClientID = id
	}
	if secret := os.Getenv("THREESIXTYFIVE_CLIENT_SECRET"); secret != "" {
		c.Instagram.ClientSecret = secret
	}
	if redirect := os.Getenv("OAUTH_REDIRECT_URL"); redirect != "" {
		c.Instagram.RedirectURL = redirect
	}
	if base := os.Getenv("INSTAGRAM_API_URL"); base != "" {
		c.Instagram.APIBaseURL = base
	}
	if offset := os.Getenv("UTC_OFFSET"); offset != "" {
		c.Calendar.UTCOffset = offset
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		c.Session.Secret = secret
	}
	if salt := os.Getenv("SESSION_SALT"); salt != "" {
		c.Session.Salt = salt
	}
	if hours := os.Getenv("SESSION_DURATION_HOURS"); hours != "" {
		if h, err := strconv.Atoi(hours); err == nil && h > 0 {
			c.Session.DurationHours = h
		}
	}
	if secure := os.Getenv("SESSION_COOKIE_SECURE"); secure != "" {
		c.Session.CookieSecure = secure == "true" || secure == "1"
	}
	if dir := os.Getenv("LOCK_DIR"); dir != "" {
		c.LockDir = dir
	}
	if timeout := os.Getenv("FEED_DRAIN_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid FEED_DRAIN_TIMEOUT %q: %w", timeout, err)
		}
		c.Feed.DrainTimeout = d
	}
	return nil
}

var validate = validator.New()

// Validate checks required settings and the calendar offset
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Offset(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseUTCOffset parses offsets such as "+01:00", "-0530", "+2" or "Z"
func ParseUTCOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || strings.EqualFold(s, "UTC") {
		return 0, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hh, mm = parts[0], parts[1]
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	default:
		hh, mm = s, "0"
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || hh == "" {
		return 0, fmt.Errorf("utc offset %q: bad hours", s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("utc offset %q: bad minutes", s)
	}
	if hours < 0 || hours > 14 {
		return 0, fmt.Errorf("utc offset %q: out of range", s)
	}

	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}
