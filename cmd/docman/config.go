// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docman/internal/secrets"
	"github.com/pdiddy/docman/pkg/types"
)

// bindFlags ties config keys to the flags that override them.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, flag := range map[string]string{
		"lookup.base_url": "lookup-url",
		"lookup.timeout":  "timeout",
		"output.atomic":   "atomic",
	} {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

// loadConfig resolves the configuration from, lowest priority first:
// built-in defaults, the config file, DOCMAN_* environment variables
// (including those from .env) and flags. The lookup API key falls back to
// .secrets/lookup-api-key.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (types.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("docman")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "docman"))
		}
	}

	_ = godotenv.Load()
	v.SetEnvPrefix("DOCMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := types.DefaultConfig()
	v.SetDefault("lookup.base_url", defaults.Lookup.BaseURL)
	v.SetDefault("lookup.timeout", defaults.Lookup.Timeout)
	v.SetDefault("lookup.user_agent", "docman/"+version)
	v.SetDefault("lookup.api_key", "")
	v.SetDefault("lookup.max_retries", defaults.Lookup.MaxRetries)
	v.SetDefault("lookup.rate_limit", defaults.Lookup.RateLimit)
	v.SetDefault("output.atomic", defaults.Output.Atomic)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else {
		slog.Debug("using config file", "path", v.ConfigFileUsed())
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	loaded, err := secrets.Load(secrets.DefaultDir)
	if err != nil {
		return types.Config{}, err
	}
	if len(loaded) > 0 {
		keys := make([]string, 0, len(loaded))
		for k := range loaded {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		slog.Debug("loaded secrets", "keys", keys)
	}
	cfg.Lookup.APIKey = secrets.Default(loaded, secrets.LookupAPIKey, cfg.Lookup.APIKey)

	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}
