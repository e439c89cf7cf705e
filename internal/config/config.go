// Package config loads dsadash settings from defaults, a TOML file, DSA_*
// environment variables and command-line flags, and resolves the saved
// sheet and webhook URLs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dsadash/dsadash/internal/extract"
	"github.com/dsadash/dsadash/internal/sheet"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DSA"

// Keys understood in the config file and as DSA_* variables.
const (
	KeySheetURL       = "sheet.url"
	KeySheetBaseURL   = "sheet.base_url"
	KeyWebhookURL     = "webhook.url"
	KeyWebhookTimeout = "webhook.timeout"
	KeyHTTPTimeout    = "http.timeout"
	KeyDBPath         = "db.path"
	KeyLogFile        = "log.file"
	KeyLogVerbose     = "log.verbose"
	KeyAIAPIKey       = "ai.api_key"
	KeyAIModel        = "ai.model"
	KeyAIMaxTokens    = "ai.max_tokens"
	KeyDashboardPort  = "dashboard.port"
)

var (
	// ErrEmptySheetURL is returned when saving a blank sheet URL.
	ErrEmptySheetURL = errors.New("please enter a valid Google Sheets URL")

	// ErrInvalidSheetURL is returned for a URL without a spreadsheet id.
	ErrInvalidSheetURL = errors.New("invalid Google Sheets URL format")

	// ErrInvalidWebhookURL is returned for a webhook URL that is not http(s).
	ErrInvalidWebhookURL = errors.New("webhook URL must be an http or https URL")

	// ErrUnknownKey is returned by file edits for keys not listed in Keys.
	ErrUnknownKey = errors.New("unknown config key")
)

// Config is the resolved configuration passed to constructors.
type Config struct {
	SheetURL       string        `yaml:"sheet_url"`
	SheetBaseURL   string        `yaml:"sheet_base_url"`
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	DBPath         string        `yaml:"db_path"`
	LogFile        string        `yaml:"log_file"`
	Verbose        bool          `yaml:"verbose"`
	AIAPIKey       string        `yaml:"ai_api_key"`
	AIModel        string        `yaml:"ai_model"`
	AIMaxTokens    int           `yaml:"ai_max_tokens"`
	DashboardPort  int           `yaml:"dashboard_port"`

	// Source names where SheetURL and WebhookURL came from: "config",
	// "saved" or "default".
	SheetURLSource   string `yaml:"sheet_url_source"`
	WebhookURLSource string `yaml:"webhook_url_source"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SheetBaseURL:     sheet.DefaultBaseURL,
		WebhookTimeout:   10 * time.Second,
		HTTPTimeout:      15 * time.Second,
		DBPath:           filepath.Join(DefaultDir(), "dsadash.db"),
		AIModel:          extract.DefaultModel,
		AIMaxTokens:      extract.DefaultMaxTokens,
		DashboardPort:    8080,
		SheetURLSource:   SourceDefault,
		WebhookURLSource: SourceDefault,
	}
}

// DefaultDir is the per-user dsadash directory.
func DefaultDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "dsadash")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dsadash")
	}
	return ".dsadash"
}

// DefaultPath is the default config file.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// NewViper returns a viper instance with defaults and environment binding.
// path selects the config file; empty uses DefaultPath.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault(KeySheetBaseURL, d.SheetBaseURL)
	v.SetDefault(KeyWebhookTimeout, d.WebhookTimeout)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyAIModel, d.AIModel)
	v.SetDefault(KeyAIMaxTokens, d.AIMaxTokens)
	v.SetDefault(KeyDashboardPort, d.DashboardPort)
	v.SetDefault(KeyLogVerbose, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeySheetURL)
	_ = v.BindEnv(KeyWebhookURL)
	_ = v.BindEnv(KeyLogFile)
	_ = v.BindEnv(KeyAIAPIKey, "DSA_AI_API_KEY", "ANTHROPIC_API_KEY")

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	return v
}

// Load reads the config file (a missing file is fine) and returns the
// merged configuration. Saved URLs are not consulted; see Resolve.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{
		SheetURL:       strings.TrimSpace(v.GetString(KeySheetURL)),
		SheetBaseURL:   v.GetString(KeySheetBaseURL),
		WebhookURL:     strings.TrimSpace(v.GetString(KeyWebhookURL)),
		WebhookTimeout: v.GetDuration(KeyWebhookTimeout),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		DBPath:         v.GetString(KeyDBPath),
		LogFile:        v.GetString(KeyLogFile),
		Verbose:        v.GetBool(KeyLogVerbose),
		AIAPIKey:       v.GetString(KeyAIAPIKey),
		AIModel:        v.GetString(KeyAIModel),
		AIMaxTokens:    v.GetInt(KeyAIMaxTokens),
		DashboardPort:  v.GetInt(KeyDashboardPort),

		SheetURLSource:   SourceDefault,
		WebhookURLSource: SourceDefault,
	}
	if cfg.SheetURL != "" {
		cfg.SheetURLSource = SourceConfig
	}
	if cfg.WebhookURL != "" {
		cfg.WebhookURLSource = SourceConfig
	}
	return cfg, nil
}

// DocumentID is the spreadsheet id of SheetURL, or the default sheet.
func (c *Config) DocumentID() string {
	return sheet.ResolveDocumentID(c.SheetURL)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.AIAPIKey != "" {
		out.AIAPIKey = "********"
	}
	return out
}

// ValidateSheetURL checks a user-entered sheet URL.
func ValidateSheetURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptySheetURL
	}
	if _, ok := sheet.DocumentID(raw); !ok {
		return ErrInvalidSheetURL
	}
	return nil
}

// ValidateWebhookURL accepts empty (disabled) or an http(s) URL.
func ValidateWebhookURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "http://") {
		return ErrInvalidWebhookURL
	}
	return nil
}
