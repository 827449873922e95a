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
Package types provides shared type definitions used across BrightClass
AI core components.

# Overview

This package is the single source of truth for the caller identity model
shared between the quota manager, the tool registry, and the stream relay:

  - Tier: ordered subscription tiers (free through enterprise)
  - Role: organization roles (student through admin)
  - QuotaFeature and QuotaMap: billable AI capabilities and their limits
  - Identity: the authorization facts for one authenticated caller

# Tier Ordering

Tiers are ordered, and every authorization decision compares rank:

	if caller.Tier.AtLeast(types.TierPremium) {
	    // unlock the premium model
	}

Unknown tier strings rank below free, so a corrupted or forged tier value
never unlocks anything.

# Thread Safety

All types in this package are value types and are safe for concurrent use.
QuotaMap is a plain map; callers that mutate one must Clone first.
*/
package types
