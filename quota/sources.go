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

	"brightclass/aicore/shared/types"
)

// Source identifies which precedence level produced a quota map.
type Source string

const (
	// SourceOrgAllocation is a principal-managed teacher allocation.
	// Highest precedence: it wins even over a more restrictive tier.
	SourceOrgAllocation Source = "org_allocation"

	// SourceServer is a server-pushed limits document.
	SourceServer Source = "server"

	// SourceDefault is the static per-tier default table.
	SourceDefault Source = "default"
)

// resolvedQuotas is the outcome of one source consult. A nil return from
// Resolve means the source has no answer for this caller and the chain
// moves on.
type resolvedQuotas struct {
	source Source
	quotas types.QuotaMap
	prepay *bool       // nil means "no opinion", Manager applies the default
	alloc  *Allocation // set only by the allocation source; carries used counters
}

// quotaSource is one strategy in the resolution chain. Sources are
// consulted in precedence order; the first non-nil result wins. A source
// error fails open to the next source, never the whole check.
type quotaSource interface {
	Resolve(ctx context.Context, id types.Identity) (*resolvedQuotas, error)
}

// allocationSource resolves principal-managed teacher allocations.
type allocationSource struct {
	store Store
}

func (s *allocationSource) Resolve(ctx context.Context, id types.Identity) (*resolvedQuotas, error) {
	alloc, err := s.store.GetAllocation(ctx, id.OrgID, id.SubjectID)
	if err != nil {
		return nil, err
	}
	if alloc == nil || len(alloc.Allocated) == 0 {
		return nil, nil
	}
	return &resolvedQuotas{
		source: SourceOrgAllocation,
		quotas: alloc.Allocated.Clone(),
		alloc:  alloc,
	}, nil
}

// serverSource resolves the server-pushed limits document.
type serverSource struct {
	overrides *ServerOverrides
}

func (s *serverSource) Resolve(ctx context.Context, id types.Identity) (*resolvedQuotas, error) {
	if s.overrides == nil {
		return nil, nil
	}
	quotas := s.overrides.QuotasFor(id.Tier)
	if quotas == nil {
		return nil, nil
	}
	return &resolvedQuotas{
		source: SourceServer,
		quotas: quotas,
		prepay: s.overrides.PrepayFor(id.Tier),
	}, nil
}

// defaultSource resolves the static per-tier table. It always answers.
type defaultSource struct{}

func (s *defaultSource) Resolve(ctx context.Context, id types.Identity) (*resolvedQuotas, error) {
	return &resolvedQuotas{
		source: SourceDefault,
		quotas: DefaultQuotas(id.Tier),
	}, nil
}
