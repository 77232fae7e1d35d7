// Copyright 2026 The TrainCore Authors
//
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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/traincore/traincore/internal/principal"
)

// PrincipalRepository implements principal.Repository
type PrincipalRepository struct {
	db *DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

const principalColumns = `id, name, role, tenant_id, account_mode, trial_expires_at, status, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*principal.Principal, error) {
	var p principal.Principal
	var expires sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Role, &p.TenantID, &p.AccountMode, &expires, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		p.TrialExpiresAt = &t
	}
	return &p, nil
}

// Create creates a new principal
func (r *PrincipalRepository) Create(ctx context.Context, p *principal.Principal) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO principals (`+principalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Name, p.Role, p.TenantID, p.AccountMode, p.TrialExpiresAt, p.Status, p.CreatedAt, p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}
	return nil
}

// GetByID retrieves a principal by ID
func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (*principal.Principal, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+principalColumns+`
		FROM principals
		WHERE id = $1
	`, id)

	p, err := scanPrincipal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, principal.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return p, nil
}

// Update updates principal information
func (r *PrincipalRepository) Update(ctx context.Context, p *principal.Principal) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE principals
		SET name = $2, role = $3, account_mode = $4, trial_expires_at = $5, status = $6, updated_at = $7
		WHERE id = $1
	`, p.ID, p.Name, p.Role, p.AccountMode, p.TrialExpiresAt, p.Status, p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update principal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return principal.ErrPrincipalNotFound
	}
	return nil
}

// UpdateTrialExpiry sets a new trial expiry for a principal
func (r *PrincipalRepository) UpdateTrialExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE principals
		SET trial_expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND account_mode = 'trial'
	`, id, expiresAt)

	if err != nil {
		return fmt.Errorf("failed to update trial expiry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return principal.ErrPrincipalNotFound
	}
	return nil
}

// ListTrialByTenant retrieves all trial principals of a tenant
func (r *PrincipalRepository) ListTrialByTenant(ctx context.Context, tenantID string) ([]*principal.Principal, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+principalColumns+`
		FROM principals
		WHERE tenant_id = $1 AND account_mode = 'trial' AND status = 'active'
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trial principals: %w", err)
	}
	defer rows.Close()

	var principals []*principal.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

// AddManaged records that manager administers managed
func (r *PrincipalRepository) AddManaged(ctx context.Context, managerID, managedID string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO principal_managed (manager_id, managed_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, managerID, managedID)

	if err != nil {
		return fmt.Errorf("failed to add managed principal: %w", err)
	}
	return nil
}

// ListManaged retrieves the ids of principals a manager administers
func (r *PrincipalRepository) ListManaged(ctx context.Context, managerID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT managed_id FROM principal_managed WHERE manager_id = $1
	`, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed principals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan managed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeactivateByTenant deactivates every principal of a tenant
func (r *PrincipalRepository) DeactivateByTenant(ctx context.Context, tenantID string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE principals
		SET status = 'inactive', updated_at = NOW()
		WHERE tenant_id = $1 AND status = 'active'
	`, tenantID)

	if err != nil {
		return 0, fmt.Errorf("failed to deactivate tenant principals: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeactivateExpiredTrials deactivates trial principals whose window lapsed
func (r *PrincipalRepository) DeactivateExpiredTrials(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE principals
		SET status = 'inactive', updated_at = NOW()
		WHERE account_mode = 'trial' AND status = 'active' AND trial_expires_at < $1
	`, now)

	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired trials: %w", err)
	}
	return result.RowsAffected(), nil
}
