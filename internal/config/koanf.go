// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"castd.yaml",
	"castd.yml",
	"/etc/castd/config.yaml",
	"/etc/castd/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces castd environment variables:
// CASTD_SERVER_PORT -> server.port, CASTD_AUTH_JWKS_TTL -> auth.jwks_ttl.
const envPrefix = "CASTD_"

// envAliases maps the identity provider's and platform's canonical variable
// names onto config paths. These take precedence over everything else so a
// deployment configured for the original service works unchanged.
var envAliases = map[string]string{
	"AUTH0_DOMAIN":        "auth.domain",
	"API_AUDIENCE":        "auth.audience",
	"AUTH0_CLIENT_ID":     "auth.client_id",
	"AUTH0_CLIENT_SECRET": "auth.client_secret",
	"AUTH0_CALLBACK_URL":  "auth.callback_url",
	"DATABASE_URL":        "database.url",
	"PORT":                "server.port",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
}

// Load builds the configuration from layered sources, lowest priority first:
// built-in defaults, an optional YAML file, CASTD_* environment variables,
// and finally the canonical aliases (DATABASE_URL, AUTH0_DOMAIN, ...).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for name, path := range envAliases {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(path, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps CASTD_SECTION_SOME_KEY to section.some_key. Only the
// first underscore separates the section; the rest belongs to the key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are config paths whose env values arrive as
// comma-separated strings but unmarshal into slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		s, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to split %s: %w", path, err)
		}
	}
	return nil
}
