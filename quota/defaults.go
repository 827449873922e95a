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

package quota

import "brightclass/aicore/shared/types"

// defaultTierQuotas holds the static per-tier monthly limits used when no
// allocation or server override applies. Limits are monotonic in tier:
// a higher tier never has a smaller limit for any feature.
var defaultTierQuotas = map[types.Tier]types.QuotaMap{
	types.TierFree: {
		types.FeatureLessonGeneration:  3,
		types.FeatureGradingAssistance: 0,
		types.FeatureHomeworkHelp:      5,
		types.FeatureTranscription:     0,
	},
	types.TierStarter: {
		types.FeatureLessonGeneration:  10,
		types.FeatureGradingAssistance: 5,
		types.FeatureHomeworkHelp:      20,
		types.FeatureTranscription:     5,
	},
	types.TierBasic: {
		types.FeatureLessonGeneration:  30,
		types.FeatureGradingAssistance: 20,
		types.FeatureHomeworkHelp:      50,
		types.FeatureTranscription:     15,
	},
	types.TierPremium: {
		types.FeatureLessonGeneration:  100,
		types.FeatureGradingAssistance: 75,
		types.FeatureHomeworkHelp:      150,
		types.FeatureTranscription:     50,
	},
	types.TierPro: {
		types.FeatureLessonGeneration:  300,
		types.FeatureGradingAssistance: 250,
		types.FeatureHomeworkHelp:      500,
		types.FeatureTranscription:     150,
	},
	types.TierEnterprise: {
		types.FeatureLessonGeneration:  types.QuotaUnlimited,
		types.FeatureGradingAssistance: types.QuotaUnlimited,
		types.FeatureHomeworkHelp:      types.QuotaUnlimited,
		types.FeatureTranscription:     types.QuotaUnlimited,
	},
}

// DefaultQuotas returns the static default quota map for a tier. Unknown
// tiers get the free tier defaults.
func DefaultQuotas(tier types.Tier) types.QuotaMap {
	if m, ok := defaultTierQuotas[tier]; ok {
		return m.Clone()
	}
	return defaultTierQuotas[types.TierFree].Clone()
}
