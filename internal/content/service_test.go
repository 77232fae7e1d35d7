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
)

// MockRepository is a simple in-memory implementation of Repository. Root
// tenant ids are tracked so ListGlobalRoot can mirror the store's join.
type MockRepository struct {
	nodes       map[string]*Content
	rootTenants map[string]bool
}

func NewMockRepository(rootTenantIDs ...string) *MockRepository {
	roots := make(map[string]bool, len(rootTenantIDs))
	for _, id := range rootTenantIDs {
		roots[id] = true
	}
	return &MockRepository{nodes: make(map[string]*Content), rootTenants: roots}
}

func (m *MockRepository) Create(ctx context.Context, c *Content) error {
	m.nodes[c.ID] = c
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Content, error) {
	c, ok := m.nodes[id]
	if !ok {
		return nil, ErrContentNotFound
	}
	return c, nil
}

func (m *MockRepository) GetByIDs(ctx context.Context, ids []string) ([]*Content, error) {
	var out []*Content
	for _, id := range ids {
		if c, ok := m.nodes[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) ListByTenant(ctx context.Context, tenantID string) ([]*Content, error) {
	var out []*Content
	for _, c := range m.nodes {
		if c.OwningTenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) ListByParent(ctx context.Context, parentID string) ([]*Content, error) {
	var out []*Content
	for _, c := range m.nodes {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) ListGlobalRoot(ctx context.Context) ([]*Content, error) {
	var out []*Content
	for _, c := range m.nodes {
		if c.Visibility == VisibilityGlobal && m.rootTenants[c.OwningTenantID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockRepository) ListAll(ctx context.Context, limit, offset int) ([]*Content, error) {
	var out []*Content
	for _, c := range m.nodes {
		out = append(out, c)
	}
	return out, nil
}

func (m *MockRepository) AddChild(ctx context.Context, parentID, childID string) error {
	p, ok := m.nodes[parentID]
	if !ok {
		return ErrContentNotFound
	}
	p.ChildIDs = append(p.ChildIDs, childID)
	return nil
}

func (m *MockRepository) RemoveChild(ctx context.Context, parentID, childID string) error {
	p, ok := m.nodes[parentID]
	if !ok {
		return ErrContentNotFound
	}
	kept := p.ChildIDs[:0]
	for _, id := range p.ChildIDs {
		if id != childID {
			kept = append(kept, id)
		}
	}
	p.ChildIDs = kept
	return nil
}

func (m *MockRepository) SetArchived(ctx context.Context, id string, archived bool, batchID *string) error {
	c, ok := m.nodes[id]
	if !ok {
		return ErrContentNotFound
	}
	c.Archived = archived
	c.ArchiveBatchID = batchID
	return nil
}

func testActor(role rbac.Role, tenantID string) *principal.Principal {
	return &principal.Principal{
		ID: "actor-" + string(role), Role: role, TenantID: tenantID,
		AccountMode: principal.ModeStandard, Status: principal.StatusActive,
	}
}

// TestPurpose: Validates structural rules when authoring content.
// Scope: Unit Test
// Expected: Members cannot author; courses take no parent; modules require a course parent and scenarios a module parent with declared modes.
// Test Case ID: CNT-01
func TestContent_CreateContent_StructuralRules(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	admin := testActor(rbac.RoleTenantAdmin, "tenant-a")

	_, err := svc.CreateContent(ctx, testActor(rbac.RoleMember, "tenant-a"), CreateSpec{
		Kind: KindCourse, Title: "X", Visibility: VisibilityTenantWide,
	})
	assert.ErrorIs(t, err, ErrRoleInsufficient)

	course, err := svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindCourse, Title: "Security Basics", Visibility: VisibilityTenantWide,
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", course.OwningTenantID)

	// Courses are roots
	_, err = svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindCourse, Title: "X", Visibility: VisibilityTenantWide, ParentID: &course.ID,
	})
	assert.ErrorIs(t, err, ErrKindMismatch)

	// Modules need a course parent
	_, err = svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindModule, Title: "X", Visibility: VisibilityTenantWide,
	})
	assert.ErrorIs(t, err, ErrKindMismatch)

	module, err := svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindModule, Title: "Intro", Visibility: VisibilityTenantWide, ParentID: &course.ID,
	})
	require.NoError(t, err)
	assert.True(t, course.HasChild(module.ID), "parent child list must mirror creation")

	// Scenarios need a module parent, not a course
	_, err = svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindScenario, Title: "X", Visibility: VisibilityTenantWide,
		ParentID: &course.ID, Modes: []string{"guided"},
	})
	assert.ErrorIs(t, err, ErrKindMismatch)

	// Scenarios must declare modes up front
	_, err = svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindScenario, Title: "X", Visibility: VisibilityTenantWide, ParentID: &module.ID,
	})
	assert.ErrorIs(t, err, ErrScenarioNeedsMode)

	scenario, err := svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindScenario, Title: "Drill", Visibility: VisibilityTenantWide,
		ParentID: &module.ID, Modes: []string{"guided", "free"},
	})
	require.NoError(t, err)
	assert.Equal(t, course.OwningTenantID, scenario.OwningTenantID,
		"children inherit the owning tenant from the parent")

	// A foreign admin cannot attach children to tenant-a content
	_, err = svc.CreateContent(ctx, testActor(rbac.RoleTenantAdmin, "tenant-b"), CreateSpec{
		Kind: KindModule, Title: "X", Visibility: VisibilityTenantWide, ParentID: &course.ID,
	})
	assert.ErrorIs(t, err, ErrWrongTenant)
}

// TestPurpose: Validates child detachment keeps the ordered mirror consistent.
// Scope: Unit Test
// Expected: Detaching removes the child id; detaching an unknown child reports not found.
// Test Case ID: CNT-02
func TestContent_DetachChild(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	admin := testActor(rbac.RoleTenantAdmin, "tenant-a")

	course, err := svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindCourse, Title: "C", Visibility: VisibilityTenantWide,
	})
	require.NoError(t, err)
	module, err := svc.CreateContent(ctx, admin, CreateSpec{
		Kind: KindModule, Title: "M", Visibility: VisibilityTenantWide, ParentID: &course.ID,
	})
	require.NoError(t, err)

	err = svc.DetachChild(ctx, admin, course.ID, "module-unknown")
	assert.ErrorIs(t, err, ErrContentNotFound)

	err = svc.DetachChild(ctx, testActor(rbac.RoleManager, "tenant-a"), course.ID, module.ID)
	assert.ErrorIs(t, err, ErrNotCreator, "a manager who is not the creator cannot restructure")

	require.NoError(t, svc.DetachChild(ctx, admin, course.ID, module.ID))
	assert.False(t, course.HasChild(module.ID))
}
