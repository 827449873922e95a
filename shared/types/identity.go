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

// Package types provides shared type definitions used across BrightClass
// AI core components. This file defines the caller identity model: tiers,
// roles, and the authenticated Identity passed through the gateway.
package types

// Tier represents a subscription tier. Tiers are ordered; authorization
// checks compare tier rank, never string equality.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// tierRank maps each tier to its position in the ordering.
// Unknown tiers rank below free so a garbled tier never unlocks anything.
var tierRank = map[Tier]int{
	TierFree:       1,
	TierStarter:    2,
	TierBasic:      3,
	TierPremium:    4,
	TierPro:        5,
	TierEnterprise: 6,
}

// Rank returns the ordinal position of the tier, or 0 for unknown tiers.
func (t Tier) Rank() int {
	return tierRank[t]
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// IsValid returns true if the Tier is a known value.
func (t Tier) IsValid() bool {
	_, ok := tierRank[t]
	return ok
}

// String returns the string representation of the Tier.
func (t Tier) String() string {
	return string(t)
}

// AllTiers returns all known tiers in ascending rank order.
func AllTiers() []Tier {
	return []Tier{TierFree, TierStarter, TierBasic, TierPremium, TierPro, TierEnterprise}
}

// Role represents the caller's role within an organization.
type Role string

const (
	RoleStudent   Role = "student"
	RoleParent    Role = "parent"
	RoleTeacher   Role = "teacher"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

// IsValid returns true if the Role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RolePrincipal, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsPrincipalClass reports whether the role carries organization-management
// rights (principal or admin).
func (r Role) IsPrincipalClass() bool {
	return r == RolePrincipal || r == RoleAdmin
}

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// QuotaFeature identifies a billable AI capability. Each feature has an
// independent monthly usage counter.
type QuotaFeature string

const (
	FeatureLessonGeneration  QuotaFeature = "lesson_generation"
	FeatureGradingAssistance QuotaFeature = "grading_assistance"
	FeatureHomeworkHelp      QuotaFeature = "homework_help"
	FeatureTranscription     QuotaFeature = "transcription"
)

// AllFeatures returns every known quota feature.
func AllFeatures() []QuotaFeature {
	return []QuotaFeature{
		FeatureLessonGeneration,
		FeatureGradingAssistance,
		FeatureHomeworkHelp,
		FeatureTranscription,
	}
}

// QuotaUnlimited marks a feature with no monthly cap.
const QuotaUnlimited = -1

// QuotaMap maps features to monthly limits. QuotaUnlimited (-1) denotes
// an unlimited feature.
type QuotaMap map[QuotaFeature]int

// Clone returns a copy of the map. Clone of nil returns nil.
func (m QuotaMap) Clone() QuotaMap {
	if m == nil {
		return nil
	}
	out := make(QuotaMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Identity contains the authorization facts for one authenticated caller.
// It is constructed fresh per connection or per call from the verified
// credential and is never persisted.
type Identity struct {
	SubjectID string `json:"subject_id"`
	OrgID     string `json:"org_id"`
	Role      Role   `json:"role"`
	Tier      Tier   `json:"tier"`
	Guest     bool   `json:"guest"`
}
