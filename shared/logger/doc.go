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

/*
Package logger provides structured JSON logging with multi-tenant support
for BrightClass AI core components.

Each log entry is a single JSON line on stdout carrying:
  - Timestamp (RFC3339Nano)
  - Level (DEBUG, INFO, WARN, ERROR)
  - Component name (relay, quota, tools, gateway)
  - Instance ID and container name
  - Organization ID (tenant isolation)
  - Request ID (correlation)
  - Custom fields

Create a logger per component and log with tenant and request context:

	log := logger.New("relay")
	log.Info("org-42", "req-7", "turn completed", map[string]interface{}{
	    "model": "claude-3-5-haiku-20241022",
	})

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
