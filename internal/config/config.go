package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tekkin/internal/dates"
)

// NewsSource describes a single RSS/Atom feed harvested into the news table.
type NewsSource struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	URL      string `yaml:"url" json:"url" validate:"required,url"`
	Category string `yaml:"category" json:"category" validate:"oneof=events promotion production"`
}

// Artist is one entry of the spotlight roster scraped from Bandsintown.
type Artist struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	ID   string `yaml:"id" json:"id" validate:"required"`
	// Instagram is the handle used for the profile thumbnail. Defaults to
	// the lowercased name without spaces.
	Instagram string `yaml:"instagram,omitempty" json:"instagram,omitempty"`
}

// ManualEvent is a curated spotlight entry. When RRule is set the entry is a
// residency and expands into one event per occurrence up to Until.
type ManualEvent struct {
	Artist  string `yaml:"artist" json:"artist" validate:"required"`
	Date    string `yaml:"date" json:"date" validate:"required"`
	Venue   string `yaml:"venue" json:"venue"`
	City    string `yaml:"city" json:"city"`
	Country string `yaml:"country" json:"country"`
	URL     string `yaml:"url" json:"url"`
	RRule   string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	Until   string `yaml:"until,omitempty" json:"until,omitempty"`
}

// CalendarConfig describes a single ICS subscription imported as events.
type CalendarConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" validate:"required"`
	// ID is used as the event source tag and in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the admin endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type DatabaseConfig struct {
	// Driver is one of "postgres", "sqlite" or "memory".
	Driver      string `yaml:"driver" json:"driver" default:"postgres" validate:"oneof=postgres sqlite memory"`
	URL         string `yaml:"url" json:"-"`
	MaxPoolSize int    `yaml:"max_pool_size" json:"max_pool_size" default:"10"`
}

type NewsConfig struct {
	Sources        []NewsSource  `yaml:"sources" json:"sources" validate:"dive"`
	ItemsPerSource int           `yaml:"items_per_source" json:"items_per_source" default:"20"`
	SummaryLength  int           `yaml:"summary_length" json:"summary_length" default:"350"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" default:"20s"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" default:"TekkinBot/1.0 (+https://tekkin.it)"`
	// CacheDir enables conditional requests (ETag / Last-Modified) when set.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

type EventsConfig struct {
	Artists      []Artist      `yaml:"artists" json:"artists" validate:"dive"`
	PageURL      string        `yaml:"page_url" json:"page_url" default:"https://www.bandsintown.com/a/%s?came_from=api"`
	PageTimeout  time.Duration `yaml:"page_timeout" json:"page_timeout" default:"60s"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36"`
	MaxScanDepth int           `yaml:"max_scan_depth" json:"max_scan_depth" default:"12"`
}

type ManualConfig struct {
	Events []ManualEvent `yaml:"events" json:"events" validate:"dive"`
	// HorizonDays bounds residency expansion when Until is empty.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days" default:"90"`
}

// ScheduleConfig holds cron specs for the harvest jobs run by "serve".
// An empty spec disables the job.
type ScheduleConfig struct {
	News      string `yaml:"news" json:"news" default:"*/30 * * * *"`
	Events    string `yaml:"events" json:"events" default:"0 */6 * * *"`
	Calendars string `yaml:"calendars" json:"calendars"`
}

type InstagramConfig struct {
	AccessToken      string        `yaml:"-" json:"-"`
	BusinessID       string        `yaml:"-" json:"-"`
	MediaURL         string        `yaml:"media_url" json:"media_url" default:"https://graph.instagram.com"`
	GraphURL         string        `yaml:"graph_url" json:"graph_url" default:"https://graph.facebook.com"`
	APIVersion       string        `yaml:"api_version" json:"api_version" default:"v21.0"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout" default:"10s"`
	ProfileCacheTTL  time.Duration `yaml:"profile_cache_ttl" json:"profile_cache_ttl" default:"1h"`
	ProfileCacheSize int           `yaml:"profile_cache_size" json:"profile_cache_size" default:"256"`
	ProfileMissTTL   time.Duration `yaml:"profile_miss_ttl" json:"profile_miss_ttl" default:"5m"`
}

type StripeConfig struct {
	SecretKey string `yaml:"-" json:"-"`
	PriceID   string `yaml:"price_id" json:"price_id"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info error"`
	Format string `yaml:"format" json:"format" default:"text" validate:"oneof=text json"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" default:"127.0.0.1:8080"`

	// Timezone is the IANA timezone used for every civil-date decision
	// (spotlight buckets, scraped date normalization). Process-wide.
	Timezone string `yaml:"timezone" json:"timezone" default:"Europe/Rome"`

	// SiteURL is the public origin used for Stripe success/cancel URLs.
	SiteURL string `yaml:"site_url" json:"site_url"`

	// AssetsURL is the base URL of the fallback spotlight thumbnails.
	AssetsURL string `yaml:"assets_url" json:"assets_url" default:"https://tekkin-assets.s3.eu-central-1.amazonaws.com"`

	Database  DatabaseConfig   `yaml:"database" json:"database"`
	News      NewsConfig       `yaml:"news" json:"news"`
	Events    EventsConfig     `yaml:"events" json:"events"`
	Manual    ManualConfig     `yaml:"manual" json:"manual"`
	Calendars []CalendarConfig `yaml:"calendars" json:"calendars" validate:"dive"`
	Schedule  ScheduleConfig   `yaml:"schedule" json:"schedule"`
	Instagram InstagramConfig  `yaml:"instagram" json:"instagram"`
	Stripe    StripeConfig     `yaml:"stripe" json:"stripe"`
	Log       LogConfig        `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on the admin
	// endpoints (harvest triggers, metrics).
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration carrying the
// production feed list, artist roster and curated events.
func DefaultConfig() *Config {
	cfg := &Config{
		News: NewsConfig{
			Sources: DefaultNewsSources(),
		},
		Events: EventsConfig{
			Artists: DefaultArtists(),
		},
		Manual: ManualConfig{
			Events: DefaultManualEvents(),
		},
		Calendars: []CalendarConfig{},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	_ = defaults.Set(c)

	if c.Timezone == "" {
		c.Timezone = dates.DefaultTimezone
	}
	if c.News.Sources == nil {
		c.News.Sources = []NewsSource{}
	}
	if c.Events.Artists == nil {
		c.Events.Artists = []Artist{}
	}
	if c.Manual.Events == nil {
		c.Manual.Events = []ManualEvent{}
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		if c.Calendars[i].ID == "" {
			if c.Calendars[i].Name != "" {
				c.Calendars[i].ID = c.Calendars[i].Name
			} else {
				c.Calendars[i].ID = c.Calendars[i].URL
			}
		}
	}
}

// Location resolves Timezone; an unknown zone falls back to UTC with an error.
func (c *Config) Location() (*time.Location, error) {
	return dates.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path and overlays secrets
// from the environment (optionally read from envFile first).
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path, envFile string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Parse unmarshals YAML into a normalized Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// ApplyEnv overlays credentials and deployment settings from the process
// environment. Secrets are never written back to the YAML file.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Database.URL, "DATABASE_URL")
	setFromEnv(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setFromEnv(&c.Stripe.PriceID, "STRIPE_PRICE_ID")
	setFromEnv(&c.SiteURL, "SITE_URL")
	setFromEnv(&c.Instagram.AccessToken, "IG_ACCESS_TOKEN")
	setFromEnv(&c.Instagram.BusinessID, "IG_BUSINESS_ID")
	setFromEnv(&c.Listen, "LISTEN_ADDR")

	user, pass := os.Getenv("ADMIN_USER"), os.Getenv("ADMIN_PASSWORD")
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tekkin-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
