package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	SQLitePath       string        `mapstructure:"SQLITE_PATH"`
	AdminKey         string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB  int64         `mapstructure:"MAX_UPLOAD_MB"`
	MessagingBaseURL string        `mapstructure:"MESSAGING_BASE_URL"`
	CountryCode      string        `mapstructure:"COUNTRY_CODE"`
	TimeZone         string        `mapstructure:"TIME_ZONE"`
	TokenPlaceholder string        `mapstructure:"TOKEN_PLACEHOLDER"`
	StripPictographs bool          `mapstructure:"STRIP_PICTOGRAPHS"`
	MessageTemplate  string        `mapstructure:"MESSAGE_TEMPLATE"`
}

var defaults = map[string]any{
	"ENV":                  "dev",
	"PORT":                 "8080",
	"DATABASE_URL":         "",
	"SQLITE_PATH":          "",
	"ADMIN_KEY":            "",
	"CORS_ALLOWED_ORIGINS": "*",
	"REQUEST_TIMEOUT":      "30s",
	"LOG_LEVEL":            "info",
	"MAX_UPLOAD_MB":        20,
	"MESSAGING_BASE_URL":   "https://wa.me",
	"COUNTRY_CODE":         "507",
	"TIME_ZONE":            "America/Panama",
	"TOKEN_PLACEHOLDER":    "__________",
	"STRIP_PICTOGRAPHS":    true,
	"MESSAGE_TEMPLATE":     "extended",
}

// Load reads .env from the working directory, if present, overridden by the
// process environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	// AutomaticEnv only reaches keys viper already knows about.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	switch cfg.MessageTemplate {
	case "extended", "classic":
	default:
		return Config{}, fmt.Errorf("MESSAGE_TEMPLATE %q: want extended or classic", cfg.MessageTemplate)
	}
	return cfg, nil
}

// Location resolves TIME_ZONE. Ticket dates are calendar dates in this zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIME_ZONE %q: %w", name, err)
	}
	return loc, nil
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}
