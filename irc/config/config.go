// Package config carries the ircd runtime configuration: a YAML, TOML
// or JSON document loaded from a file or URL, overlaid with environment
// variables.
package config

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server struct {
		Name     string `yaml:"name" toml:"name" json:"name" env:"IRCD_SERVER_NAME" validate:"required,hostname"`
		Host     string `yaml:"host" toml:"host" json:"host" env:"IRCD_HOST" validate:"required"`
		Port     int    `yaml:"port" toml:"port" json:"port" env:"IRCD_PORT" validate:"min=1,max=65535"`
		Password string `yaml:"password" toml:"password" json:"password" env:"IRCD_PASSWORD"`
	} `yaml:"server" toml:"server" json:"server"`

	TLS struct {
		Enabled           bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_TLS_ENABLED"`
		Port              int    `yaml:"port" toml:"port" json:"port" env:"IRCD_TLS_PORT" validate:"min=0,max=65535"`
		CertFile          string `yaml:"cert" toml:"cert" json:"cert" env:"IRCD_TLS_CERT"`
		KeyFile           string `yaml:"key" toml:"key" json:"key" env:"IRCD_TLS_KEY"`
		SaveGenerated     bool   `yaml:"save_generated" toml:"save_generated" json:"save_generated" env:"IRCD_TLS_SAVE_GENERATED"`
		GeneratedCertPath string `yaml:"generated_cert" toml:"generated_cert" json:"generated_cert" env:"IRCD_TLS_GENERATED_CERT"`
		GeneratedKeyPath  string `yaml:"generated_key" toml:"generated_key" json:"generated_key" env:"IRCD_TLS_GENERATED_KEY"`
	} `yaml:"tls" toml:"tls" json:"tls"`

	// Admin REST API settings
	Admin struct {
		Enabled      bool     `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_ADMIN_ENABLED"`
		Host         string   `yaml:"host" toml:"host" json:"host" env:"IRCD_ADMIN_HOST"`
		Port         int      `yaml:"port" toml:"port" json:"port" env:"IRCD_ADMIN_PORT" validate:"min=0,max=65535"`
		BearerTokens []string `yaml:"bearer_tokens" toml:"bearer_tokens" json:"bearer_tokens" env:"IRCD_ADMIN_TOKENS" envSeparator:","`
	} `yaml:"admin" toml:"admin" json:"admin"`

	Limits struct {
		// NickTries is how many ERR_NICKNAMEINUSE refusals a session
		// may accumulate before it is disconnected.
		NickTries int `yaml:"nick_tries" toml:"nick_tries" json:"nick_tries" env:"IRCD_NICK_TRIES" validate:"min=1"`
		// KeepaliveSeconds is the interval between server PINGs.
		KeepaliveSeconds int `yaml:"keepalive_seconds" toml:"keepalive_seconds" json:"keepalive_seconds" env:"IRCD_KEEPALIVE_SECONDS" validate:"min=1"`
	} `yaml:"limits" toml:"limits" json:"limits"`

	Channels struct {
		// AutoPrune drops a channel, topic included, as soon as its
		// last member leaves. Disable to keep empty channels around.
		AutoPrune bool `yaml:"auto_prune" toml:"auto_prune" json:"auto_prune" env:"IRCD_CHANNELS_AUTO_PRUNE"`
	} `yaml:"channels" toml:"channels" json:"channels"`

	MOTD  []string `yaml:"motd" toml:"motd" json:"motd" env:"IRCD_MOTD" envSeparator:"|"`
	Debug bool     `yaml:"debug" toml:"debug" json:"debug" env:"IRCD_DEBUG"`

	// Configuration source for rehashing
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Default returns a configuration with every default applied and no
// file loaded.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	c.Server.Name = "goircd.local"
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 6667
	c.TLS.Port = 6697
	c.TLS.GeneratedCertPath = "certs/server.crt"
	c.TLS.GeneratedKeyPath = "certs/server.key"
	c.Admin.Host = "127.0.0.1"
	c.Admin.Port = 6680
	c.Limits.NickTries = 5
	c.Limits.KeepaliveSeconds = 60
	c.Channels.AutoPrune = true
	c.MOTD = []string{"Welcome!"}
}

// Load loads configuration from a file or URL, applies environment
// overrides and validates the result.
func Load(source string) (*Config, error) {
	cfg := Default()
	cfg.Source = source

	if err := cfg.loadFromSource(source); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload reloads the configuration from the original source or a new
// source, replacing c wholesale on success.
func (c *Config) Reload(newSource string) error {
	if newSource != "" {
		c.Source = newSource
	}
	newCfg, err := Load(c.Source)
	if err != nil {
		return err
	}
	*c = *newCfg
	return nil
}

// loadFromSource loads configuration from a file or URL, picking the
// codec by extension and defaulting to YAML.
func (c *Config) loadFromSource(source string) error {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return fmt.Errorf("failed to load config from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to load config from URL, status: %s", resp.Status)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read config from URL: %w", err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	switch {
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// Validate checks the configuration's field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CheckPassword reports whether pass satisfies the configured server
// password. No configured password admits everything; a configured
// value beginning with "$2" is treated as a bcrypt hash.
func (c *Config) CheckPassword(pass string) bool {
	want := c.Server.Password
	if want == "" {
		return true
	}
	if strings.HasPrefix(want, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(want), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(pass)) == 1
}

// ListenAddr returns the formatted listen address for the plain
// listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TLSListenAddr returns the formatted listen address for the TLS
// listener.
func (c *Config) TLSListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.TLS.Port)
}

// AdminListenAddr returns the formatted listen address for the admin
// REST API.
func (c *Config) AdminListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// KeepaliveInterval returns the configured keepalive period.
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.Limits.KeepaliveSeconds) * time.Second
}
