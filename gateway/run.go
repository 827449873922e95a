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

// Package gateway assembles the AI core into one HTTP service: the
// websocket relay, the tool execution API, quota status and the usual
// health and metrics endpoints.
package gateway

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"brightclass/aicore/auth"
	"brightclass/aicore/config"
	"brightclass/aicore/llm/anthropic"
	"brightclass/aicore/quota"
	"brightclass/aicore/redact"
	"brightclass/aicore/relay"
	"brightclass/aicore/shared/logger"
	"brightclass/aicore/tools"
	"brightclass/aicore/usage"
)

// Run wires the service from environment configuration and blocks
// serving HTTP until the process exits.
func Run() {
	log := logger.New("gateway")

	cfg, err := config.Load()
	if err != nil {
		log.ErrorWithErr("", "", "Configuration error", err, nil)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.ErrorWithErr("", "", "Failed to open database", err, nil)
		os.Exit(1)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	verifier, err := auth.NewVerifier([]byte(cfg.AuthSecret))
	if err != nil {
		log.ErrorWithErr("", "", "Invalid auth secret", err, nil)
		os.Exit(1)
	}

	store, err := quota.NewPostgresStore(quota.PostgresStoreConfig{
		DB:       db,
		Cache:    cache,
		CacheTTL: cfg.UsageCacheTTL,
	})
	if err != nil {
		log.ErrorWithErr("", "", "Failed to build quota store", err, nil)
		os.Exit(1)
	}

	overrides := quota.NewServerOverrides()
	if cfg.QuotaOverridesPath != "" {
		if err := overrides.LoadFile(cfg.QuotaOverridesPath); err != nil {
			log.ErrorWithErr("", "", "Failed to load quota overrides", err, map[string]interface{}{
				"path": cfg.QuotaOverridesPath,
			})
			os.Exit(1)
		}
	}
	quotas := quota.NewManager(store, overrides)

	provider, err := anthropic.NewProvider(anthropic.Config{
		APIKey:  cfg.AnthropicAPIKey,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		log.ErrorWithErr("", "", "Failed to build model provider", err, nil)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry, db, provider)

	recorder := usage.NewRecorder(db)

	r := relay.New(relay.Config{
		Verifier: verifier,
		Provider: provider,
		Redactor: redact.New(),
		Quotas:   quotas,
		Recorder: recorder,
	})

	s := &server{
		log:      log,
		db:       db,
		verifier: verifier,
		quotas:   quotas,
		registry: registry,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/ws/ai", r.HandleWebSocket)
	router.HandleFunc("/api/v1/tools", s.listToolsHandler).Methods("GET")
	router.HandleFunc("/api/v1/tools/{id}/execute", s.executeToolHandler).Methods("POST")
	router.HandleFunc("/api/v1/tools/stats", s.toolStatsHandler).Methods("GET")
	router.HandleFunc("/api/v1/quota/status", s.quotaStatusHandler).Methods("GET")

	allowedOrigins := cfg.CORSOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Info("", "", "BrightClass AI gateway listening", map[string]interface{}{
		"addr": cfg.ListenAddr,
	})
	if err := http.ListenAndServe(cfg.ListenAddr, c.Handler(router)); err != nil {
		log.ErrorWithErr("", "", "Server exited", err, nil)
		os.Exit(1)
	}
}
