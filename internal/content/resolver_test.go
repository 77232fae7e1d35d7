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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
	"github.com/traincore/traincore/internal/tenant"
)

// MockTenantDirectory resolves tenants from a fixed map
type MockTenantDirectory struct {
	tenants map[string]*tenant.Tenant
}

func (m *MockTenantDirectory) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

// MockAssignmentLookup returns a fixed active content id set per principal
type MockAssignmentLookup struct {
	active map[string][]string
}

func (m *MockAssignmentLookup) ActiveContentIDs(ctx context.Context, principalID string) ([]string, error) {
	return m.active[principalID], nil
}

// resolverFixture seeds two client tenants under one root tenant with a
// spread of visibility levels.
type resolverFixture struct {
	resolver *Resolver
	lookup   *MockAssignmentLookup

	globalCourse   *Content // root-owned, global visibility
	tenantCourse   *Content // tenant-a, tenant-wide
	privateCourse  *Content // tenant-a, creator-only, by "author"
	foreignCourse  *Content // tenant-b, tenant-wide
	archivedCourse *Content // tenant-a, tenant-wide, archived
}

func newResolverFixture() *resolverFixture {
	repo := NewMockRepository("tenant-root")
	tenants := &MockTenantDirectory{tenants: map[string]*tenant.Tenant{
		"tenant-root": {ID: "tenant-root", Kind: tenant.KindRoot, Status: tenant.StatusActive},
		"tenant-a":    {ID: "tenant-a", Kind: tenant.KindClient, Status: tenant.StatusActive},
		"tenant-b":    {ID: "tenant-b", Kind: tenant.KindClient, Status: tenant.StatusActive},
	}}
	lookup := &MockAssignmentLookup{active: map[string][]string{}}

	f := &resolverFixture{
		resolver: NewResolver(repo, tenants, lookup),
		lookup:   lookup,
		globalCourse: &Content{
			ID: "course-global", Kind: KindCourse, Title: "Platform Onboarding",
			OwningTenantID: "tenant-root", CreatorID: "root-author", Visibility: VisibilityGlobal,
		},
		tenantCourse: &Content{
			ID: "course-tenant", Kind: KindCourse, Title: "Internal Policy",
			OwningTenantID: "tenant-a", CreatorID: "author", Visibility: VisibilityTenantWide,
		},
		privateCourse: &Content{
			ID: "course-private", Kind: KindCourse, Title: "Draft",
			OwningTenantID: "tenant-a", CreatorID: "author", Visibility: VisibilityCreatorOnly,
		},
		foreignCourse: &Content{
			ID: "course-foreign", Kind: KindCourse, Title: "Other Tenant",
			OwningTenantID: "tenant-b", CreatorID: "someone", Visibility: VisibilityTenantWide,
		},
		archivedCourse: &Content{
			ID: "course-archived", Kind: KindCourse, Title: "Retired",
			OwningTenantID: "tenant-a", CreatorID: "author", Visibility: VisibilityTenantWide, Archived: true,
		},
	}
	for _, c := range []*Content{f.globalCourse, f.tenantCourse, f.privateCourse, f.foreignCourse, f.archivedCourse} {
		repo.nodes[c.ID] = c
	}
	return f
}

func ids(items []*Content) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

// TestPurpose: Validates the accessible-content set per role and tenant relationship.
// Scope: Unit Test
// Security: Read-path visibility isolation
// Expected: Admin roles see per their scope; managers are filtered inside the tenant; members see only their assignment set.
// Test Case ID: RES-01
func TestResolver_AccessibleContent(t *testing.T) {
	f := newResolverFixture()
	ctx := context.Background()

	t.Run("global admin sees everything", func(t *testing.T) {
		out, err := f.resolver.AccessibleContent(ctx, testActor(rbac.RoleGlobalAdmin, "tenant-root"))
		require.NoError(t, err)
		assert.Len(t, out, 5)
	})

	t.Run("root tenant admin sees everything", func(t *testing.T) {
		out, err := f.resolver.AccessibleContent(ctx, testActor(rbac.RoleTenantAdmin, "tenant-root"))
		require.NoError(t, err)
		assert.Len(t, out, 5)
	})

	t.Run("client tenant admin sees global plus own tenant", func(t *testing.T) {
		out, err := f.resolver.AccessibleContent(ctx, testActor(rbac.RoleTenantAdmin, "tenant-a"))
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"course-global", "course-tenant", "course-private", "course-archived"},
			ids(out), "tenant admins see archived and creator-only content in their tenant")
	})

	t.Run("manager is filtered inside own tenant", func(t *testing.T) {
		out, err := f.resolver.AccessibleContent(ctx, testActor(rbac.RoleManager, "tenant-a"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"course-global", "course-tenant"}, ids(out),
			"managers see neither foreign creator-only drafts nor archived content")
	})

	t.Run("creator manager sees own draft", func(t *testing.T) {
		author := &principal.Principal{
			ID: "author", Role: rbac.RoleManager, TenantID: "tenant-a",
			AccountMode: principal.ModeStandard, Status: principal.StatusActive,
		}
		out, err := f.resolver.AccessibleContent(ctx, author)
		require.NoError(t, err)
		assert.Contains(t, ids(out), "course-private")
	})

	t.Run("member sees only active assignments", func(t *testing.T) {
		member := testActor(rbac.RoleMember, "tenant-a")
		out, err := f.resolver.AccessibleContent(ctx, member)
		require.NoError(t, err)
		assert.Empty(t, out, "no assignments means no visible content")

		f.lookup.active[member.ID] = []string{"course-tenant", "course-archived"}
		out, err = f.resolver.AccessibleContent(ctx, member)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"course-tenant"}, ids(out),
			"archived content drops out even when the assignment survives")
	})
}

// TestPurpose: Validates the single-node read check.
// Scope: Unit Test
// Security: Cross-tenant read isolation
// Expected: Cross-tenant reads are limited to globally published root content; members need an active assignment.
// Test Case ID: RES-02
func TestResolver_CanView(t *testing.T) {
	f := newResolverFixture()
	ctx := context.Background()

	managerB := testActor(rbac.RoleManager, "tenant-b")

	ok, err := f.resolver.CanView(ctx, managerB, f.globalCourse)
	require.NoError(t, err)
	assert.True(t, ok, "globally published root content is readable everywhere")

	ok, err = f.resolver.CanView(ctx, managerB, f.tenantCourse)
	require.NoError(t, err)
	assert.False(t, ok, "tenant-wide content stays inside its tenant")

	member := testActor(rbac.RoleMember, "tenant-a")
	ok, err = f.resolver.CanView(ctx, member, f.tenantCourse)
	require.NoError(t, err)
	assert.False(t, ok, "unassigned members cannot read")

	f.lookup.active[member.ID] = []string{f.tenantCourse.ID}
	ok, err = f.resolver.CanView(ctx, member, f.tenantCourse)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.CanView(ctx, member, f.archivedCourse)
	require.NoError(t, err)
	assert.False(t, ok, "archived content is invisible to members")
}
