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
Package quota computes effective AI usage limits and allow/deny decisions
for BrightClass callers.

# Resolution Order

Limits resolve through an explicit ordered chain of sources, first match
wins:

 1. Teacher allocation (principal-managed, per org and teacher). When
    present and defining a feature it is authoritative, even when the
    subscription tier's defaults would be more generous or more
    restrictive.
 2. Server-pushed limits document (YAML, hot-swappable).
 3. Static per-tier defaults.

A failing source falls open to the next level: a degraded quota backend
never blocks legitimate AI usage outright. Only the resolved numeric limit
denies a call, with reason "over_quota".

# Storage

PostgresStore reads allocations and monthly usage counters from
PostgreSQL, with an optional Redis read cache in front of the usage
counters. Usage is written elsewhere (see the usage package); the quota
manager is read-then-decide, and double-spend races are an accepted minor
overage risk rather than a correctness bug.
*/
package quota
