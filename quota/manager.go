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

import (
	"context"
	"time"

	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
)

// ReasonOverQuota is the deny reason reported when usage would exceed the
// resolved limit.
const ReasonOverQuota = "over_quota"

// EffectiveLimits is the resolved quota view for one caller.
type EffectiveLimits struct {
	Tier                  types.Tier     `json:"tier"`
	Quotas                types.QuotaMap `json:"quotas"`
	OverageRequiresPrepay bool           `json:"overage_requires_prepay"`
	Source                Source         `json:"source"`
	CanOrgAllocate        bool           `json:"can_org_allocate"`
}

// Status is the usage position for one (caller, feature) pair. Limit and
// Remaining are types.QuotaUnlimited for uncapped features; Remaining is
// otherwise never negative.
type Status struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// Decision is the outcome of a CanUse check. When denied, Reason and
// RequiresPrepay tell the caller how to remediate.
type Decision struct {
	Allowed        bool            `json:"allowed"`
	Reason         string          `json:"reason,omitempty"`
	RequiresPrepay bool            `json:"requires_prepay,omitempty"`
	Status         Status          `json:"status"`
	Limits         EffectiveLimits `json:"limits"`
}

// Manager computes effective limits and allow/deny decisions by walking an
// ordered chain of quota sources: allocation > server override > defaults.
// Source failures fail open to the next precedence level; only the numeric
// limit itself denies a call.
type Manager struct {
	store   Store
	sources []quotaSource
	log     *logger.Logger
	now     func() time.Time
}

// NewManager creates a Manager over the given store and server overrides.
// overrides may be nil.
func NewManager(store Store, overrides *ServerOverrides) *Manager {
	return &Manager{
		store: store,
		sources: []quotaSource{
			&allocationSource{store: store},
			&serverSource{overrides: overrides},
			&defaultSource{},
		},
		log: logger.New("quota"),
		now: time.Now,
	}
}

// resolve walks the source chain and returns the first answer. The default
// source always answers, so resolve never returns nil.
func (m *Manager) resolve(ctx context.Context, id types.Identity) *resolvedQuotas {
	for _, src := range m.sources {
		res, err := src.Resolve(ctx, id)
		if err != nil {
			// Degraded quota backends never block usage outright.
			m.log.Warn(id.OrgID, "", "Quota source failed, falling through", map[string]interface{}{
				"subject_id": id.SubjectID,
				"error":      err.Error(),
			})
			continue
		}
		if res != nil {
			return res
		}
	}
	return &resolvedQuotas{source: SourceDefault, quotas: DefaultQuotas(id.Tier)}
}

// EffectiveLimits returns the resolved quota view for a caller. Exactly one
// Source is reported: the highest-precedence source that produced a
// non-nil quota map.
func (m *Manager) EffectiveLimits(ctx context.Context, id types.Identity) EffectiveLimits {
	res := m.resolve(ctx, id)

	prepay := true
	if res.prepay != nil {
		prepay = *res.prepay
	}

	return EffectiveLimits{
		Tier:                  id.Tier,
		Quotas:                res.quotas,
		OverageRequiresPrepay: prepay,
		Source:                res.source,
		CanOrgAllocate:        m.canOrgAllocate(ctx, id),
	}
}

// canOrgAllocate grants allocation-management rights to principal-class
// roles unconditionally, and to premium-and-above callers whose org
// participates in allocation management. A failed org lookup falls back
// to the role-only grant.
func (m *Manager) canOrgAllocate(ctx context.Context, id types.Identity) bool {
	if id.Role.IsPrincipalClass() {
		return true
	}
	if !id.Tier.AtLeast(types.TierPremium) {
		return false
	}
	enabled, err := m.store.OrgAllocationEnabled(ctx, id.OrgID)
	if err != nil {
		m.log.Warn(id.OrgID, "", "Org allocation lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return enabled
}

// Status returns the usage position for one feature.
func (m *Manager) Status(ctx context.Context, id types.Identity, feature types.QuotaFeature) Status {
	limit, alloc := m.featureLimit(ctx, id, feature)
	used := m.featureUsage(ctx, id, feature, alloc)
	return m.buildStatus(used, limit)
}

// CanUse decides whether the caller may consume count units of a feature.
// Remaining is never reported negative; exceeding the limit denies with
// ReasonOverQuota instead.
func (m *Manager) CanUse(ctx context.Context, id types.Identity, feature types.QuotaFeature, count int) Decision {
	if count <= 0 {
		count = 1
	}

	limits := m.EffectiveLimits(ctx, id)
	limit, alloc := m.featureLimit(ctx, id, feature)
	used := m.featureUsage(ctx, id, feature, alloc)
	status := m.buildStatus(used, limit)

	if limit == types.QuotaUnlimited {
		return Decision{Allowed: true, Status: status, Limits: limits}
	}

	if used+count > limit {
		return Decision{
			Allowed:        false,
			Reason:         ReasonOverQuota,
			RequiresPrepay: limits.OverageRequiresPrepay,
			Status:         status,
			Limits:         limits,
		}
	}

	return Decision{Allowed: true, Status: status, Limits: limits}
}

// featureLimit resolves the authoritative limit for one feature. A source
// that answers but does not define the feature falls through to the next
// level; a feature no level defines is capped at zero.
func (m *Manager) featureLimit(ctx context.Context, id types.Identity, feature types.QuotaFeature) (int, *Allocation) {
	for _, src := range m.sources {
		res, err := src.Resolve(ctx, id)
		if err != nil {
			m.log.Warn(id.OrgID, "", "Quota source failed, falling through", map[string]interface{}{
				"subject_id": id.SubjectID,
				"error":      err.Error(),
			})
			continue
		}
		if res == nil {
			continue
		}
		if limit, ok := res.quotas[feature]; ok {
			return limit, res.alloc
		}
	}
	return 0, nil
}

// featureUsage reads usage from the allocation record when one is
// authoritative, otherwise from the monthly usage counters. A failed
// counter read degrades to zero rather than blocking the caller.
func (m *Manager) featureUsage(ctx context.Context, id types.Identity, feature types.QuotaFeature, alloc *Allocation) int {
	if alloc != nil {
		return alloc.Used[feature]
	}

	used, err := m.store.GetUsage(ctx, id.SubjectID, feature, m.monthKey())
	if err != nil {
		m.log.Warn(id.OrgID, "", "Usage read failed, assuming zero", map[string]interface{}{
			"subject_id": id.SubjectID,
			"feature":    string(feature),
			"error":      err.Error(),
		})
		return 0
	}
	return used
}

func (m *Manager) buildStatus(used, limit int) Status {
	status := Status{
		Used:     used,
		Limit:    limit,
		ResetsAt: m.nextReset(),
	}
	if limit == types.QuotaUnlimited {
		status.Remaining = types.QuotaUnlimited
		return status
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	status.Remaining = remaining
	return status
}

// monthKey returns the current usage month, e.g. "2026-08".
func (m *Manager) monthKey() string {
	return m.now().UTC().Format("2006-01")
}

// nextReset returns the first instant of the next month, when monthly
// counters roll over.
func (m *Manager) nextReset() time.Time {
	now := m.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
