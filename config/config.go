// Copyright 2025 BrightClass
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the gateway's configuration from environment
// variables, with BRIGHTCLASS_-prefixed variables taking precedence
// over the conventional fallbacks (DATABASE_URL, REDIS_ADDR).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "BRIGHTCLASS_"

// Config is the gateway process configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, defaults to :8080.
	ListenAddr string

	// DatabaseURL is the PostgreSQL connection string (required).
	DatabaseURL string

	// RedisAddr enables usage-counter caching when set.
	RedisAddr string

	// RedisPassword is optional.
	RedisPassword string

	// AuthSecret signs and verifies bearer tokens (required).
	AuthSecret string

	// AnthropicAPIKey authenticates upstream model calls (required).
	AnthropicAPIKey string

	// QuotaOverridesPath points at the server quota overrides YAML
	// file; empty disables server overrides.
	QuotaOverridesPath string

	// UsageCacheTTL bounds staleness of cached usage counters.
	UsageCacheTTL time.Duration

	// UpstreamTimeout caps one upstream model call.
	UpstreamTimeout time.Duration

	// CORSOrigins lists allowed browser origins; empty allows all.
	CORSOrigins []string
}

// Load reads configuration from the environment. Missing required
// values are reported together so operators fix them in one pass.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:        firstNonEmpty(os.Getenv(envPrefix+"DATABASE_URL"), os.Getenv("DATABASE_URL")),
		RedisAddr:          firstNonEmpty(os.Getenv(envPrefix+"REDIS_ADDR"), os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv(envPrefix + "REDIS_PASSWORD"),
		AuthSecret:         os.Getenv(envPrefix + "AUTH_SECRET"),
		AnthropicAPIKey:    firstNonEmpty(os.Getenv(envPrefix+"ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_API_KEY")),
		QuotaOverridesPath: os.Getenv(envPrefix + "QUOTA_OVERRIDES"),
	}

	var err error
	if cfg.UsageCacheTTL, err = getDuration("USAGE_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if origins := os.Getenv(envPrefix + "CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, envPrefix+"DATABASE_URL")
	}
	if cfg.AuthSecret == "" {
		missing = append(missing, envPrefix+"AUTH_SECRET")
	}
	if cfg.AnthropicAPIKey == "" {
		missing = append(missing, envPrefix+"ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Accept bare seconds for operator convenience.
		if secs, serr := strconv.Atoi(v); serr == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid %s%s: %q", envPrefix, key, v)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
