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

package llm

import "brightclass/aicore/shared/types"

// Model variants served by tier.
const (
	// ModelEconomy is the smaller, faster model served to lower tiers.
	ModelEconomy = "claude-3-5-haiku-20241022"

	// ModelPremium is the more capable model unlocked by the top tiers.
	ModelPremium = "claude-3-5-sonnet-20241022"
)

// ModelForTier selects the model variant for a tier. The rule is a fixed
// rank threshold: pro and enterprise unlock the premium model, everything
// else gets the economy model. The decision is deterministic and carries
// no per-request randomness.
func ModelForTier(tier types.Tier) string {
	if tier.AtLeast(types.TierPro) {
		return ModelPremium
	}
	return ModelEconomy
}
