// Package config loads the adnsd process configuration: which addresses
// to listen on, how logging is configured, and the tree of zone
// providers that supply and persist zone data.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	derrors "github.com/nkovacs/adnsd/internal/errors"
	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/security"
	"github.com/nkovacs/adnsd/internal/zone"
)

// DefaultConfigFile is used when no explicit path is given to Load.
const DefaultConfigFile = "/etc/adnsd/adnsd.yaml"

// Config is the top-level process configuration, unmarshaled from YAML
// (or any other format viper supports) via Load.
type Config struct {
	// Listen is the set of host:port addresses the server binds, each
	// over both UDP and TCP.
	Listen []string `mapstructure:"listen"`

	Provider ProviderConfig `mapstructure:"provider"`

	Log LogConfig `mapstructure:"log"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// PrometheusBind, if non-empty, is the address a metrics endpoint
	// would listen on. Exposing metrics themselves is out of scope here;
	// the field is kept so a deployment's config file does not need to
	// change shape if that endpoint is added later.
	PrometheusBind string `mapstructure:"prometheus_bind"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// RateLimitConfig configures the per-source-IP query rate limiter. A zero
// QPS disables rate limiting entirely.
type RateLimitConfig struct {
	QPS        int           `mapstructure:"qps"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// Build constructs a security.RateLimiter from c, or nil if rate limiting
// is disabled (QPS <= 0).
func (c RateLimitConfig) Build() *security.RateLimiter {
	if c.QPS <= 0 {
		return nil
	}
	cooldown := c.Cooldown
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	maxEntries := c.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return security.NewRateLimiter(c.QPS, cooldown, maxEntries)
}

// ProviderConfig describes one node of a zone-provider tree. Type
// selects which fields are meaningful:
//
//	static   Path (a YAML zone file, loaded once and never reloaded)
//	file     Path (a YAML zone file, reloaded on change)
//	dynfile  Path (a YAML zone file, reloaded on change, writable via UPDATE)
//	sql      DSN  (a sqlite3 data source name)
//	merge    Top, Bottom, SendUpdates
type ProviderConfig struct {
	Type string `mapstructure:"type"`

	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`

	Top         *ProviderConfig `mapstructure:"top"`
	Bottom      *ProviderConfig `mapstructure:"bottom"`
	SendUpdates string          `mapstructure:"send_updates"`
}

// Load reads and parses the config file at path (DefaultConfigFile if
// path is empty), applying ADNSD_-prefixed environment variable
// overrides (e.g. ADNSD_PROVIDER_DSN overrides provider.dsn).
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetEnvPrefix("adnsd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(cfg.Listen) == 0 {
		return nil, &derrors.ValidationError{Field: "listen", Message: "at least one listen address is required"}
	}
	return &cfg, nil
}

// BuildProvider constructs the provider.ZoneProvider tree described by c.
func (c ProviderConfig) BuildProvider() (provider.ZoneProvider, error) {
	switch c.Type {
	case "static":
		if c.Path == "" {
			return nil, &derrors.ValidationError{Field: "provider.path", Message: "static provider requires a path"}
		}
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return nil, fmt.Errorf("config: reading static zone file %s: %w", c.Path, err)
		}
		z, err := zone.ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("config: parsing static zone file %s: %w", c.Path, err)
		}
		return &provider.Static{Zone: z}, nil

	case "file":
		if c.Path == "" {
			return nil, &derrors.ValidationError{Field: "provider.path", Message: "file provider requires a path"}
		}
		return &provider.File{Path: c.Path}, nil

	case "dynfile":
		if c.Path == "" {
			return nil, &derrors.ValidationError{Field: "provider.path", Message: "dynfile provider requires a path"}
		}
		return &provider.DynFile{Path: c.Path}, nil

	case "sql":
		if c.DSN == "" {
			return nil, &derrors.ValidationError{Field: "provider.dsn", Message: "sql provider requires a dsn"}
		}
		return &provider.SQL{DSN: c.DSN}, nil

	case "merge":
		if c.Top == nil || c.Bottom == nil {
			return nil, &derrors.ValidationError{Field: "provider", Message: "merge provider requires both top and bottom"}
		}
		top, err := c.Top.BuildProvider()
		if err != nil {
			return nil, err
		}
		bottom, err := c.Bottom.BuildProvider()
		if err != nil {
			return nil, err
		}
		target, err := parseSendTarget(c.SendUpdates)
		if err != nil {
			return nil, err
		}
		return &provider.Merge{Top: top, Bottom: bottom, SendUpdates: target}, nil

	default:
		return nil, &derrors.ValidationError{Field: "provider.type", Value: c.Type, Message: "unknown provider type"}
	}
}

func parseSendTarget(s string) (provider.SendTarget, error) {
	switch strings.ToLower(s) {
	case "", "bottom":
		return provider.SendToBottom, nil
	case "top":
		return provider.SendToTop, nil
	default:
		return 0, &derrors.ValidationError{Field: "provider.send_updates", Value: s, Message: "unknown merge send_updates target"}
	}
}
