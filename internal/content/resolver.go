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

package content

import (
	"context"
	"fmt"

	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
	"github.com/traincore/traincore/internal/tenant"
)

// AssignmentLookup resolves the active assignment set of a principal.
// Implemented by the assignment store; declared here so the resolver does
// not depend on the assignment package.
type AssignmentLookup interface {
	ActiveContentIDs(ctx context.Context, principalID string) ([]string, error)
}

// TenantDirectory resolves tenant records for kind checks.
type TenantDirectory interface {
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

// listPageSize bounds unrestricted admin listings per page.
const listPageSize = 500

// Resolver computes which content a principal may read.
type Resolver struct {
	repo        Repository
	tenants     TenantDirectory
	assignments AssignmentLookup
}

// NewResolver creates a new visibility resolver
func NewResolver(repo Repository, tenants TenantDirectory, assignments AssignmentLookup) *Resolver {
	return &Resolver{
		repo:        repo,
		tenants:     tenants,
		assignments: assignments,
	}
}

// AccessibleContent returns every content node the principal may read.
// Global admins see everything; root-tenant admins are privileged and see
// the whole platform; members only see their assignment set.
func (r *Resolver) AccessibleContent(ctx context.Context, p *principal.Principal) ([]*Content, error) {
	switch p.Role {
	case rbac.RoleGlobalAdmin:
		return r.repo.ListAll(ctx, listPageSize, 0)

	case rbac.RoleTenantAdmin, rbac.RoleManager:
		actorTenant, err := r.tenants.GetByID(ctx, p.TenantID)
		if err != nil {
			return nil, fmt.Errorf("resolve actor tenant: %w", err)
		}
		if p.Role == rbac.RoleTenantAdmin && actorTenant.IsRoot() {
			// Root tenants are privileged: their admins see the
			// whole platform.
			return r.repo.ListAll(ctx, listPageSize, 0)
		}

		global, err := r.repo.ListGlobalRoot(ctx)
		if err != nil {
			return nil, fmt.Errorf("list global content: %w", err)
		}
		own, err := r.repo.ListByTenant(ctx, p.TenantID)
		if err != nil {
			return nil, fmt.Errorf("list tenant content: %w", err)
		}

		seen := make(map[string]bool, len(global))
		var out []*Content
		for _, c := range global {
			if c.Archived {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
		for _, c := range own {
			if seen[c.ID] {
				continue
			}
			if !r.tenantScopedVisible(p, c) {
				continue
			}
			out = append(out, c)
		}
		return out, nil

	case rbac.RoleMember:
		ids, err := r.assignments.ActiveContentIDs(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list member assignments: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		items, err := r.repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load assigned content: %w", err)
		}
		visible := items[:0]
		for _, c := range items {
			if !c.Archived {
				visible = append(visible, c)
			}
		}
		return visible, nil

	default:
		return nil, fmt.Errorf("unknown role: %s", p.Role)
	}
}

// tenantScopedVisible applies the in-tenant visibility filter for managers
// and tenant admins. Archived content stays visible to tenant admins only.
func (r *Resolver) tenantScopedVisible(p *principal.Principal, c *Content) bool {
	if p.Role == rbac.RoleTenantAdmin {
		return true
	}
	if c.Archived {
		return false
	}
	return c.Visibility == VisibilityTenantWide || c.Visibility == VisibilityGlobal || c.CreatorID == p.ID
}

// CanView reports whether the principal may read a single content node.
func (r *Resolver) CanView(ctx context.Context, p *principal.Principal, c *Content) (bool, error) {
	if p.Role == rbac.RoleGlobalAdmin {
		return true, nil
	}

	switch p.Role {
	case rbac.RoleTenantAdmin, rbac.RoleManager:
		actorTenant, err := r.tenants.GetByID(ctx, p.TenantID)
		if err != nil {
			return false, fmt.Errorf("resolve actor tenant: %w", err)
		}
		if p.Role == rbac.RoleTenantAdmin && actorTenant.IsRoot() {
			return true, nil
		}
		if c.OwningTenantID == p.TenantID {
			return r.tenantScopedVisible(p, c), nil
		}
		if c.Archived {
			return false, nil
		}
		// Cross-tenant reads are limited to globally published root
		// content.
		if c.Visibility != VisibilityGlobal {
			return false, nil
		}
		owner, err := r.tenants.GetByID(ctx, c.OwningTenantID)
		if err != nil {
			return false, fmt.Errorf("resolve owning tenant: %w", err)
		}
		return owner.IsRoot(), nil

	case rbac.RoleMember:
		if c.Archived {
			return false, nil
		}
		ids, err := r.assignments.ActiveContentIDs(ctx, p.ID)
		if err != nil {
			return false, fmt.Errorf("list member assignments: %w", err)
		}
		for _, id := range ids {
			if id == c.ID {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, nil
	}
}
