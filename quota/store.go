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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver

	"brightclass/aicore/shared/logger"
	"brightclass/aicore/shared/types"
)

// Allocation is a per-organization, per-teacher quota allocation record.
// Principals manage these to split an organization's quota pool between
// teachers.
type Allocation struct {
	OrgID     string         `json:"org_id"`
	SubjectID string         `json:"subject_id"`
	Allocated types.QuotaMap `json:"allocated_quotas"`
	Used      types.QuotaMap `json:"used_quotas"`
}

// Store is the persistence boundary for quota data. Implementations do not
// perform any quota arithmetic; the Manager owns the decision logic.
type Store interface {
	// GetAllocation returns the allocation record for (org, subject), or
	// nil when the organization does not participate in allocation-based
	// quota management. When the org participates but the subject has no
	// record yet, one is created lazily with empty quotas.
	GetAllocation(ctx context.Context, orgID, subjectID string) (*Allocation, error)

	// GetUsage returns the usage counter for (subject, feature, month).
	// Month is formatted "2006-01". A missing counter reads as zero.
	GetUsage(ctx context.Context, subjectID string, feature types.QuotaFeature, month string) (int, error)

	// OrgAllocationEnabled reports whether the organization participates
	// in allocation-based quota management.
	OrgAllocationEnabled(ctx context.Context, orgID string) (bool, error)
}

// PostgresStore reads quota data from PostgreSQL with a Redis read cache
// in front of the hot usage-counter lookups.
type PostgresStore struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	log      *logger.Logger
}

// PostgresStoreConfig configures a PostgresStore.
type PostgresStoreConfig struct {
	DB       *sql.DB
	Cache    *redis.Client // optional; nil disables caching
	CacheTTL time.Duration // defaults to 30s
}

// NewPostgresStore creates a store backed by the given database handle.
func NewPostgresStore(cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("quota store requires a database handle")
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &PostgresStore{
		db:       cfg.DB,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		log:      logger.New("quota-store"),
	}, nil
}

// GetAllocation returns the (org, subject) allocation, creating an empty
// record lazily when the org participates but none exists yet.
func (s *PostgresStore) GetAllocation(ctx context.Context, orgID, subjectID string) (*Allocation, error) {
	enabled, err := s.OrgAllocationEnabled(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	var allocatedJSON, usedJSON []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT allocated_quotas, used_quotas
		FROM teacher_allocations
		WHERE org_id = $1 AND subject_id = $2
	`, orgID, subjectID).Scan(&allocatedJSON, &usedJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return s.createAllocation(ctx, orgID, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read allocation: %w", err)
	}

	alloc := &Allocation{OrgID: orgID, SubjectID: subjectID}
	if err := json.Unmarshal(allocatedJSON, &alloc.Allocated); err != nil {
		return nil, fmt.Errorf("corrupt allocated_quotas for %s/%s: %w", orgID, subjectID, err)
	}
	if err := json.Unmarshal(usedJSON, &alloc.Used); err != nil {
		return nil, fmt.Errorf("corrupt used_quotas for %s/%s: %w", orgID, subjectID, err)
	}
	return alloc, nil
}

// createAllocation inserts an empty allocation row for a participating org.
// A concurrent insert losing the race falls back to re-reading the row.
func (s *PostgresStore) createAllocation(ctx context.Context, orgID, subjectID string) (*Allocation, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teacher_allocations (org_id, subject_id, allocated_quotas, used_quotas)
		VALUES ($1, $2, '{}', '{}')
		ON CONFLICT (org_id, subject_id) DO NOTHING
	`, orgID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocation: %w", err)
	}

	s.log.Info(orgID, "", "Created empty teacher allocation", map[string]interface{}{
		"subject_id": subjectID,
	})

	return &Allocation{
		OrgID:     orgID,
		SubjectID: subjectID,
		Allocated: types.QuotaMap{},
		Used:      types.QuotaMap{},
	}, nil
}

// GetUsage returns the monthly usage counter, consulting Redis first.
func (s *PostgresStore) GetUsage(ctx context.Context, subjectID string, feature types.QuotaFeature, month string) (int, error) {
	cacheKey := fmt.Sprintf("quota:usage:%s:%s:%s", subjectID, feature, month)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Int(); err == nil {
			return cached, nil
		}
	}

	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0)
		FROM feature_usage
		WHERE subject_id = $1 AND feature = $2 AND month = $3
	`, subjectID, string(feature), month).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, used, s.cacheTTL).Err(); err != nil {
			// Cache failures degrade to direct reads only.
			s.log.Warn("", "", "Failed to cache usage counter", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
	}

	return used, nil
}

// OrgAllocationEnabled reads the org participation flag.
func (s *PostgresStore) OrgAllocationEnabled(ctx context.Context, orgID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `
		SELECT allocation_enabled FROM organizations WHERE id = $1
	`, orgID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read organization: %w", err)
	}
	return enabled, nil
}
