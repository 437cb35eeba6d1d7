// Package config builds the process configuration once at startup.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML
// file, then DOMAINWATCH_* environment variables. A key such as
// "schedule.warn_days" maps to DOMAINWATCH_SCHEDULE_WARN_DAYS.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOMAINWATCH_"

// Credential backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Domain          string `mapstructure:"domain"`
	Recipient       string `mapstructure:"recipient"`
	RecipientSuffix string `mapstructure:"recipient_suffix"`
	Account         string `mapstructure:"account"`
	Listen          string `mapstructure:"listen"`

	Credentials Credentials `mapstructure:"credentials"`
	Redis       Redis       `mapstructure:"redis"`
	Gateway     Gateway     `mapstructure:"gateway"`
	RDAP        RDAP        `mapstructure:"rdap"`
	Whois       Whois       `mapstructure:"whois"`
	Schedule    Schedule    `mapstructure:"schedule"`
	Session     Session     `mapstructure:"session"`
	Log         Log         `mapstructure:"log"`
}

type Credentials struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`

	// EncryptionKey seals blobs at rest when set: 32 bytes, hex or base64.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys is a comma separated list of retired keys still accepted for reads.
	FallbackKeys string `mapstructure:"fallback_keys"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Gateway struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type RDAP struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Whois struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Schedule struct {
	Hour         int           `mapstructure:"hour"`
	Timezone     string        `mapstructure:"timezone"`
	WarnDays     int           `mapstructure:"warn_days"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

type Session struct {
	MaxChallengeAttempts int           `mapstructure:"max_challenge_attempts"`
	ChallengeTimeout     time.Duration `mapstructure:"challenge_timeout"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	SettleDelay          time.Duration `mapstructure:"settle_delay"`
	SendRetries          int           `mapstructure:"send_retries"`
	SendTimeout          time.Duration `mapstructure:"send_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaults also lists every key that can be overridden from the environment.
func defaults() map[string]any {
	return map[string]any{
		"domain":           "",
		"recipient":        "",
		"recipient_suffix": "@s.whatsapp.net",
		"account":          "default",
		"listen":           "",
		"credentials": map[string]any{
			"backend":        BackendFile,
			"dir":            ".domainwatch/auth",
			"encryption_key": "",
			"fallback_keys":  "",
		},
		"redis": map[string]any{
			"addr":     "localhost:6379",
			"password": "",
			"db":       0,
			"prefix":   "domainwatch:",
		},
		"gateway": map[string]any{
			"url":   "",
			"token": "",
		},
		"rdap": map[string]any{
			"base_url": "https://rdap.org",
			"timeout":  "10s",
		},
		"whois": map[string]any{
			"server":  "",
			"timeout": "15s",
		},
		"schedule": map[string]any{
			"hour":          9,
			"timezone":      "Local",
			"warn_days":     30,
			"startup_delay": "5s",
		},
		"session": map[string]any{
			"max_challenge_attempts": 3,
			"challenge_timeout":      "60s",
			"reconnect_delay":        "5s",
			"settle_delay":           "10s",
			"send_retries":           3,
			"send_timeout":           "30s",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// Default returns the configuration with no file and no environment applied.
func Default() (*Config, error) {
	return decode(defaults())
}

// Load reads path (optional, may be empty) and the environment on top of the defaults.
func Load(path string) (*Config, error) {
	values := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		merge(values, file)
	}

	applyEnv(values, "")
	return decode(values)
}

func decode(values map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				merge(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// applyEnv overrides every known key that has a matching variable set.
func applyEnv(values map[string]any, prefix string) {
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			applyEnv(sub, key)
			continue
		}
		if env, ok := os.LookupEnv(EnvName(key)); ok {
			values[k] = env
		}
	}
}

// EnvName returns the environment variable for a dotted key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Keys lists every configuration key in dotted form.
func Keys() []string {
	var keys []string
	var walk func(map[string]any, string)
	walk = func(m map[string]any, prefix string) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(sub, key)
				continue
			}
			keys = append(keys, key)
		}
	}
	walk(defaults(), "")
	sort.Strings(keys)
	return keys
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Schedule.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Schedule.Timezone)
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Domain) == "" {
		errs = append(errs, errors.New("domain is required"))
	}
	if strings.TrimSpace(c.Recipient) == "" {
		errs = append(errs, errors.New("recipient is required"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	}
	switch c.Credentials.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("credentials.backend %q is not one of file, redis, memory", c.Credentials.Backend))
	}
	if _, _, err := c.Credentials.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		errs = append(errs, fmt.Errorf("schedule.hour %d is out of range", c.Schedule.Hour))
	}
	if c.Schedule.WarnDays < 1 {
		errs = append(errs, fmt.Errorf("schedule.warn_days must be at least 1, got %d", c.Schedule.WarnDays))
	}
	if c.Session.MaxChallengeAttempts < 1 {
		errs = append(errs, fmt.Errorf("session.max_challenge_attempts must be at least 1, got %d", c.Session.MaxChallengeAttempts))
	}
	if c.Session.SendRetries < 1 {
		errs = append(errs, fmt.Errorf("session.send_retries must be at least 1, got %d", c.Session.SendRetries))
	}
	if c.Session.ChallengeTimeout <= 0 {
		errs = append(errs, errors.New("session.challenge_timeout must be positive"))
	}
	if c.Session.SendTimeout <= 0 {
		errs = append(errs, errors.New("session.send_timeout must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Keys decodes the encryption keys. A nil active key means blobs are stored as is.
func (c Credentials) Keys() (active []byte, fallback [][]byte, err error) {
	if strings.TrimSpace(c.EncryptionKey) == "" {
		if strings.TrimSpace(c.FallbackKeys) != "" {
			return nil, nil, errors.New("credentials.fallback_keys requires credentials.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("credentials.encryption_key: %w", err)
	}
	for i, raw := range strings.Split(c.FallbackKeys, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		k, err := decodeKey(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("credentials.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, k)
	}
	return active, fallback, nil
}

func decodeKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if k, err := hex.DecodeString(raw); err == nil && len(k) == 32 {
		return k, nil
	}
	if k, err := base64.StdEncoding.DecodeString(raw); err == nil && len(k) == 32 {
		return k, nil
	}
	return nil, errors.New("key must be 32 bytes encoded as hex or base64")
}
