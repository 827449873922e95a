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

// Package main is the entry point for the BrightClass AI gateway.
//
// The gateway is the single process behind the product's AI features:
// it relays streamed model output to clients over websockets, executes
// authorized tool calls, and enforces per-tenant quotas.
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	BRIGHTCLASS_LISTEN_ADDR - HTTP listen address (default: :8080)
//	BRIGHTCLASS_DATABASE_URL - PostgreSQL connection string (required)
//	BRIGHTCLASS_REDIS_ADDR - Redis address for usage caching (optional)
//	BRIGHTCLASS_AUTH_SECRET - bearer token signing secret (required)
//	BRIGHTCLASS_ANTHROPIC_API_KEY - upstream model API key (required)
//	BRIGHTCLASS_QUOTA_OVERRIDES - path to server quota overrides YAML (optional)
package main

import (
	"brightclass/aicore/gateway"
)

func main() {
	gateway.Run()
}
