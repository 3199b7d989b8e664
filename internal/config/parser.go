// Package config contains the dohrollout configuration.
package config

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/ooni/dohrollout/internal/hujsonx"
	"github.com/pkg/errors"
)

// ConfigVersion is the current version of the config file.
const ConfigVersion = 1

// ReadConfig reads the configuration from the path
func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := ParseConfig(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	c.path = path
	return c, nil
}

// ParseConfig returns config from JSON bytes. Comments and trailing
// commas are allowed, so that people can annotate their config.
func ParseConfig(b []byte) (*Config, error) {
	var c Config

	if err := hujsonx.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}

	if err := c.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}

	return &c, nil
}

// Config for the dohrollout installation
type Config struct {
	// Private settings
	Comment string `json:"_"`
	Version int64  `json:"_version"`

	DebounceWindowSeconds int64         `json:"debounce_window_seconds"`
	PromptTimeoutSeconds  int64         `json:"prompt_timeout_seconds"`
	CaptivePortal         CaptivePortal `json:"captive_portal"`
	Network               Network       `json:"network"`
	Resolver              Resolver      `json:"resolver"`
	PoliciesPath          string        `json:"policies_path"`
	ParentalControls      bool          `json:"parental_controls"`
	MetricsAddress        string        `json:"metrics_address"`

	mutex sync.Mutex
	path  string
}

// Default values.
const (
	DefaultDebounceWindowSeconds     = 30
	DefaultPromptTimeoutSeconds      = 900
	DefaultCaptivePortalURL          = "http://detectportal.firefox.com/success.txt"
	DefaultCaptivePortalExpectedBody = "success\n"
	DefaultCaptivePortalPollSeconds  = 60
	DefaultNetworkPollSeconds        = 5
	DefaultResolverTimeoutSeconds    = 5
	DefaultResolverResolvConf        = "/etc/resolv.conf"
	maxPollIntervalSeconds           = 24 * 3600
	maxPromptTimeoutSeconds          = 7 * 24 * 3600
)

// Path returns the path of the config file, if any.
func (c *Config) Path() string {
	return c.path
}

// SetPath sets the path where Write writes the config.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Write the config file in json to the path
func (c *Config) Write() error {
	c.Lock()
	defer c.Unlock()
	if c.path == "" {
		return errors.New("config file path is empty")
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling config JSON")
	}
	if err := os.WriteFile(c.path, configJSON, 0600); err != nil {
		return errors.Wrap(err, "writing config JSON")
	}
	return nil
}

// Lock acquires the write mutex
func (c *Config) Lock() {
	c.mutex.Lock()
}

// Unlock releases the write mutex
func (c *Config) Unlock() {
	c.mutex.Unlock()
}

// Default fills the settings left empty with their default values.
func (c *Config) Default() error {
	if c.Version == 0 {
		c.Version = ConfigVersion
	}
	if c.DebounceWindowSeconds == 0 {
		c.DebounceWindowSeconds = DefaultDebounceWindowSeconds
	}
	if c.PromptTimeoutSeconds == 0 {
		c.PromptTimeoutSeconds = DefaultPromptTimeoutSeconds
	}
	c.CaptivePortal.defaults()
	if c.Network.PollIntervalSeconds == 0 {
		c.Network.PollIntervalSeconds = DefaultNetworkPollSeconds
	}
	if c.Resolver.TimeoutSeconds == 0 {
		c.Resolver.TimeoutSeconds = DefaultResolverTimeoutSeconds
	}
	if c.Resolver.ResolvConf == "" && len(c.Resolver.Nameservers) <= 0 {
		c.Resolver.ResolvConf = DefaultResolverResolvConf
	}
	return nil
}

// Validate the config file
func (c *Config) Validate() error {
	if c.Version > ConfigVersion {
		return errors.Errorf("unsupported config version: %d", c.Version)
	}
	if c.DebounceWindowSeconds < 0 {
		return errors.New("debounce_window_seconds must not be negative")
	}
	if c.PromptTimeoutSeconds < 0 || c.PromptTimeoutSeconds > maxPromptTimeoutSeconds {
		return errors.Errorf("prompt_timeout_seconds out of range: %d", c.PromptTimeoutSeconds)
	}
	if err := validatePollInterval("captive_portal", c.CaptivePortal.PollIntervalSeconds); err != nil {
		return err
	}
	if err := validatePollInterval("network", c.Network.PollIntervalSeconds); err != nil {
		return err
	}
	if c.Resolver.TimeoutSeconds < 0 {
		return errors.New("resolver.timeout_seconds must not be negative")
	}
	return nil
}

func validatePollInterval(section string, value int64) error {
	if value <= 0 || value > maxPollIntervalSeconds {
		return errors.Errorf("%s.poll_interval_seconds out of range: %d", section, value)
	}
	return nil
}

// DebounceWindow returns the debounce window as a time.Duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowSeconds) * time.Second
}

// PromptTimeout returns the doorhanger timeout as a time.Duration.
func (c *Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSeconds) * time.Second
}
