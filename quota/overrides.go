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
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"brightclass/aicore/shared/types"
)

// ServerOverrides is a server-pushed limits document that replaces the
// static tier defaults while active. It is loaded from YAML and swapped
// atomically, so reloads never tear a read.
//
// Document shape:
//
//	tiers:
//	  premium:
//	    quotas:
//	      lesson_generation: 120
//	      homework_help: 200
//	    overage_requires_prepay: false
type ServerOverrides struct {
	mu    sync.RWMutex
	tiers map[types.Tier]tierOverride
}

type tierOverride struct {
	Quotas                types.QuotaMap `yaml:"quotas"`
	OverageRequiresPrepay *bool          `yaml:"overage_requires_prepay"`
}

type overridesDoc struct {
	Tiers map[string]tierOverride `yaml:"tiers"`
}

// NewServerOverrides creates an empty overrides holder.
func NewServerOverrides() *ServerOverrides {
	return &ServerOverrides{tiers: make(map[types.Tier]tierOverride)}
}

// LoadFile reads and applies an overrides document from a YAML file.
func (o *ServerOverrides) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read overrides file: %w", err)
	}
	return o.Load(data)
}

// Load parses and applies an overrides document.
func (o *ServerOverrides) Load(data []byte) error {
	var doc overridesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse overrides document: %w", err)
	}

	tiers := make(map[types.Tier]tierOverride, len(doc.Tiers))
	for name, ov := range doc.Tiers {
		tier := types.Tier(name)
		if !tier.IsValid() {
			return fmt.Errorf("overrides document names unknown tier %q", name)
		}
		tiers[tier] = ov
	}

	o.mu.Lock()
	o.tiers = tiers
	o.mu.Unlock()
	return nil
}

// QuotasFor returns the override quota map for a tier, or nil when no
// override is active for it.
func (o *ServerOverrides) QuotasFor(tier types.Tier) types.QuotaMap {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if ov, ok := o.tiers[tier]; ok {
		return ov.Quotas.Clone()
	}
	return nil
}

// PrepayFor returns the override prepay flag for a tier, or nil when the
// document does not set one.
func (o *ServerOverrides) PrepayFor(tier types.Tier) *bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if ov, ok := o.tiers[tier]; ok && ov.OverageRequiresPrepay != nil {
		v := *ov.OverageRequiresPrepay
		return &v
	}
	return nil
}
