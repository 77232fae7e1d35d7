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

package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/rbac"
)

// PrincipalDeactivator deactivates every principal of a tenant. Implemented
// by the principal store; declared here so the tenant service does not
// depend on the principal package.
type PrincipalDeactivator interface {
	DeactivateByTenant(ctx context.Context, tenantID string) (int64, error)
}

// Service provides tenant management business logic
type Service struct {
	repo        Repository
	principals  PrincipalDeactivator
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, principals PrincipalDeactivator, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		principals:  principals,
		auditLogger: auditLogger,
	}
}

// CreateTenant creates a new tenant. Only a global administrator may create
// tenants. A parent reference, when present, must point at a root or client
// tenant: subsidiaries cannot nest.
func (s *Service) CreateTenant(ctx context.Context, actorRole rbac.Role, name string, kind Kind, parentTenantID *string) (*Tenant, error) {
	if actorRole != rbac.RoleGlobalAdmin {
		return nil, ErrRoleInsufficient
	}
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if kind != KindRoot && kind != KindClient && kind != KindSubsidiary {
		return nil, fmt.Errorf("invalid tenant kind: %s", kind)
	}

	if existing, err := s.repo.GetByName(ctx, name); err == nil && existing != nil {
		return nil, ErrTenantAlreadyExists
	}

	if parentTenantID != nil {
		parent, err := s.repo.GetByID(ctx, *parentTenantID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent tenant: %w", err)
		}
		if parent.Kind != KindRoot && parent.Kind != KindClient {
			return nil, ErrInvalidParentKind
		}
	}

	now := time.Now()
	t := &Tenant{
		ID:             id.NewUUIDv7(),
		Name:           name,
		Kind:           kind,
		ParentTenantID: parentTenantID,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		Resource: "tenant",
		Metadata: map[string]any{"name": name, "kind": string(kind)},
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// SuspendTenant suspends a tenant and deactivates all of its principals.
func (s *Service) SuspendTenant(ctx context.Context, actorRole rbac.Role, tenantID string) (int64, error) {
	if actorRole != rbac.RoleGlobalAdmin {
		return 0, ErrRoleInsufficient
	}

	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if t.Status == StatusSuspended {
		return 0, nil
	}

	t.Status = StatusSuspended
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return 0, fmt.Errorf("failed to suspend tenant: %w", err)
	}

	deactivated, err := s.principals.DeactivateByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate tenant principals: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantSuspended,
		TenantID: tenantID,
		Resource: "tenant",
		Metadata: map[string]any{"principals_deactivated": deactivated},
	})

	return deactivated, nil
}
