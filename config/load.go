package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// keys that may be overridden from the environment, e.g. GOLD_PROGRAM_ID.
var envKeys = []string{
	"cluster", "net_status", "program_id", "gold_mint", "usdc_mint", "price_feed_id",
	"price_feed_shard", "oracle_program", "key", "keypair_file", "confirm_timeout_seconds",
	"refresh_interval_seconds", "watch", "listen", "ding-url", "db_driver", "db_url",
	"db_scheme", "db_user", "db_passwd", "log_level", "log_format", "workspace",
}

// LoadEnv reads a .env file into the process environment. A missing file is
// not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads the json config at path (optional) with GOLD_* environment
// overrides, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
