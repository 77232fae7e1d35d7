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

package assignment

import (
	"github.com/traincore/traincore/internal/content"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
	"github.com/traincore/traincore/internal/tenant"
)

// Decision is the outcome of a single capability evaluation: whether the
// actor may grant the content, in which tenant context, and why not
// otherwise. Write paths evaluate it exactly once instead of re-deriving
// role rules at each call site.
type Decision struct {
	Allowed bool
	Context GrantContext
	Reason  Reason
}

// ResolveGrantContext classifies a grant by comparing tenant identities as
// durable values. Cross-tenant grants are only legal when the content's
// owning tenant is a privileged root tenant.
func ResolveGrantContext(actorTenantID, contentTenantID string, contentTenantKind tenant.Kind) (GrantContext, *Error) {
	if actorTenantID == contentTenantID {
		return ContextInternal, nil
	}
	if contentTenantKind != tenant.KindRoot {
		return "", Forbidden(ReasonInvalidGrant, "cross-tenant grant requires root-owned content")
	}
	return ContextCrossTenant, nil
}

// Authorize decides whether the actor may grant access to the content.
// The decision is keyed on (role, visibility, tenant relationship):
//
//   - members never grant
//   - archived content is never grantable, for any role
//   - global admins always grant
//   - same tenant: tenant-wide (or global) visibility, or creator-only
//     content granted by its creator
//   - cross tenant: only root-owned content, regardless of visibility
func Authorize(actor *principal.Principal, c *content.Content, contentTenant *tenant.Tenant) Decision {
	if c.Archived {
		return Decision{Reason: ReasonContentArchived}
	}

	grantCtx, ctxErr := ResolveGrantContext(actor.TenantID, c.OwningTenantID, contentTenant.Kind)

	if actor.Role == rbac.RoleGlobalAdmin {
		if ctxErr != nil {
			// Global admins may grant anything, but non-root
			// cross-tenant grants still record as cross tenant.
			grantCtx = ContextCrossTenant
		}
		return Decision{Allowed: true, Context: grantCtx}
	}

	if actor.Role == rbac.RoleMember {
		return Decision{Reason: ReasonRoleInsufficient}
	}

	if ctxErr != nil {
		return Decision{Reason: ReasonWrongTenant}
	}

	if grantCtx == ContextCrossTenant {
		// Root content is globally assignable; visibility does not
		// constrain it further.
		return Decision{Allowed: true, Context: ContextCrossTenant}
	}

	switch c.Visibility {
	case content.VisibilityTenantWide, content.VisibilityGlobal:
		return Decision{Allowed: true, Context: ContextInternal}
	case content.VisibilityCreatorOnly:
		if c.CreatorID == actor.ID {
			return Decision{Allowed: true, Context: ContextInternal}
		}
		return Decision{Reason: ReasonNotCreator}
	default:
		return Decision{Reason: ReasonRoleInsufficient}
	}
}

// AuthorizeRevoke decides whether the actor may revoke an existing grant.
// Revocation follows the grant rules except that archived content stays
// revocable: removing access to a dead course must not be blocked by its
// own archival.
func AuthorizeRevoke(actor *principal.Principal, c *content.Content, contentTenant *tenant.Tenant) Decision {
	if actor.Role == rbac.RoleMember {
		return Decision{Reason: ReasonRoleInsufficient}
	}
	if actor.Role == rbac.RoleGlobalAdmin {
		return Decision{Allowed: true, Context: ContextInternal}
	}
	if actor.TenantID == c.OwningTenantID {
		return Decision{Allowed: true, Context: ContextInternal}
	}
	if contentTenant.Kind == tenant.KindRoot {
		return Decision{Allowed: true, Context: ContextCrossTenant}
	}
	return Decision{Reason: ReasonWrongTenant}
}
