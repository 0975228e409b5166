// Package config resolves formdraft settings from flags, FORMDRAFT_* environment
// variables and an optional formdraft.yaml, in that order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FORMDRAFT_REDIS_ADDR.
const EnvPrefix = "FORMDRAFT"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// RedisConfig configures the redis store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Lock     bool          `mapstructure:"lock"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Dir           string        `mapstructure:"dir"`
	Store         string        `mapstructure:"store"`
	DataDir       string        `mapstructure:"data-dir"`
	Redis         RedisConfig   `mapstructure:"redis"`
	Namespace     string        `mapstructure:"namespace"`
	Debounce      time.Duration `mapstructure:"debounce"`
	EncryptionKey string        `mapstructure:"encryption-key"`
	FallbackKeys  []string      `mapstructure:"fallback-keys"`
	PII           []string      `mapstructure:"pii"`
	Sanitize      bool          `mapstructure:"sanitize"`
	Exclude       []string      `mapstructure:"exclude"`
	Debug         bool          `mapstructure:"debug"`
	Port          int           `mapstructure:"port"`
	CORS          bool          `mapstructure:"cors"`
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("dir", "forms")
	v.SetDefault("store", StoreFile)
	v.SetDefault("data-dir", ".formdraft/drafts")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)
	v.SetDefault("redis.lock", false)
	v.SetDefault("namespace", "formdraft")
	v.SetDefault("debounce", 500*time.Millisecond)
	v.SetDefault("encryption-key", "")
	v.SetDefault("fallback-keys", []string{})
	v.SetDefault("pii", []string{})
	v.SetDefault("sanitize", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("debug", false)
	v.SetDefault("port", 8080)
	v.SetDefault("cors", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags makes flags override env and file values. Flag names match keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// Load reads path, or formdraft.yaml from the working directory when path is
// empty and such a file exists, and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("formdraft")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store '%s' (want %s, %s or %s)", c.Store, StoreMemory, StoreFile, StoreRedis)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	for _, p := range c.PII {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("pii pattern %q: %w", p, err)
		}
	}
	if _, _, err := c.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (c *Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("fallback-keys require encryption-key")
		}
		return nil, nil, nil
	}

	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption-key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback-keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
