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

// Package system provides integration tests that run against a real PostgreSQL database.
//
// Test Execution:
//
//	INTEGRATION_TEST=true go test -v ./tests/system/...
//
// Prerequisites:
//
//	docker compose up -d postgres
//
// Test Categories:
//   - TEN-*: Tenant isolation tests
//   - ASG-*: Assignment cascade tests
//   - ARC-*: Archive/restore tests
package system

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traincore/traincore/internal/assignment"
	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/content"
	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
	"github.com/traincore/traincore/internal/store/postgres"
	"github.com/traincore/traincore/internal/tenant"
)

// testDB is the shared database connection for integration tests
var testDB *postgres.DB

// TestMain sets up and tears down the test database connection
func TestMain(m *testing.M) {
	// Skip if not integration test
	if os.Getenv("INTEGRATION_TEST") != "true" {
		os.Exit(0)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         getEnvOrDefault("DB_HOST", "localhost"),
		Port:         getEnvOrDefault("DB_PORT", "5432"),
		User:         getEnvOrDefault("DB_USER", "traincore"),
		Password:     getEnvOrDefault("DB_PASSWORD", "traincore_dev_password"),
		Database:     getEnvOrDefault("DB_NAME", "traincore"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	testDB = db

	// Apply migrations
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		// Ignore errors for already existing tables
		_ = err
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type testEnv struct {
	tenants     *postgres.TenantRepository
	principals  *postgres.PrincipalRepository
	contents    *postgres.ContentRepository
	assignments *postgres.AssignmentRepository

	tenantService     *tenant.Service
	contentService    *content.Service
	contentResolver   *content.Resolver
	contentArchiver   *content.Archiver
	assignmentService *assignment.Service
}

func newTestEnv() *testEnv {
	auditLogger := audit.NewSlogLogger()

	tenants := postgres.NewTenantRepository(testDB)
	principals := postgres.NewPrincipalRepository(testDB)
	contents := postgres.NewContentRepository(testDB)
	assignments := postgres.NewAssignmentRepository(testDB)

	return &testEnv{
		tenants:           tenants,
		principals:        principals,
		contents:          contents,
		assignments:       assignments,
		tenantService:     tenant.NewService(tenants, principals, auditLogger),
		contentService:    content.NewService(contents),
		contentResolver:   content.NewResolver(contents, tenants, assignments),
		contentArchiver:   content.NewArchiver(contents, assignments, auditLogger),
		assignmentService: assignment.NewService(assignments, contents, tenants, auditLogger),
	}
}

// seedPrincipal inserts a principal directly, bypassing the creation
// hierarchy checks that a live system enforces.
func seedPrincipal(t *testing.T, env *testEnv, tenantID string, role rbac.Role) *principal.Principal {
	t.Helper()
	now := time.Now()
	p := &principal.Principal{
		ID:          id.NewUUIDv7(),
		Name:        "p-" + id.NewUUIDv7()[:8],
		Role:        role,
		TenantID:    tenantID,
		AccountMode: principal.ModeStandard,
		Status:      principal.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, env.principals.Create(context.Background(), p))
	return p
}

func seedTenant(t *testing.T, env *testEnv, kind tenant.Kind, parentID *string) *tenant.Tenant {
	t.Helper()
	tn, err := env.tenantService.CreateTenant(context.Background(), rbac.RoleGlobalAdmin, "tenant-"+id.NewUUIDv7()[:8], kind, parentID)
	require.NoError(t, err)
	return tn
}

// seedCourseTree creates a course with one module and one scenario under
// the given author, returning all three nodes.
func seedCourseTree(t *testing.T, env *testEnv, author *principal.Principal, visibility content.Visibility, modes []string) (*content.Content, *content.Content, *content.Content) {
	t.Helper()
	ctx := context.Background()

	course, err := env.contentService.CreateContent(ctx, author, content.CreateSpec{
		Kind: content.KindCourse, Title: "Course " + id.NewUUIDv7()[:8], Visibility: visibility,
	})
	require.NoError(t, err)

	module, err := env.contentService.CreateContent(ctx, author, content.CreateSpec{
		Kind: content.KindModule, Title: "Module", Visibility: visibility, ParentID: &course.ID,
	})
	require.NoError(t, err)

	scenario, err := env.contentService.CreateContent(ctx, author, content.CreateSpec{
		Kind: content.KindScenario, Title: "Scenario", Visibility: visibility, ParentID: &module.ID, Modes: modes,
	})
	require.NoError(t, err)

	return course, module, scenario
}

// =============================================================================
// TENANT ISOLATION TESTS
// =============================================================================

// TestPurpose: Validates that content owned by tenant A is not visible to members of tenant B.
// Scope: Integration Test
// Security: Multi-tenancy boundary enforcement
// Expected: Tenant B member sees none of tenant A's tenant_wide content.
// Test Case ID: TEN-01
func TestTenant_Isolation_ContentInvisibleAcrossTenants(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database (set INTEGRATION_TEST=true)")
	}

	ctx := context.Background()
	env := newTestEnv()

	tenantA := seedTenant(t, env, tenant.KindClient, nil)
	tenantB := seedTenant(t, env, tenant.KindClient, nil)

	authorA := seedPrincipal(t, env, tenantA.ID, rbac.RoleTenantAdmin)
	memberB := seedPrincipal(t, env, tenantB.ID, rbac.RoleMember)
	managerB := seedPrincipal(t, env, tenantB.ID, rbac.RoleManager)

	course, _, _ := seedCourseTree(t, env, authorA, content.VisibilityTenantWide, []string{"guided"})

	// Manager in tenant B resolves content: tenant A's course must be absent
	visible, err := env.contentResolver.AccessibleContent(ctx, managerB)
	require.NoError(t, err)
	for _, c := range visible {
		assert.NotEqual(t, course.ID, c.ID,
			"TEN-01 SECURITY: tenant A content MUST NOT be visible in tenant B")
	}

	// Member in tenant B with no assignments sees nothing of tenant A
	visible, err = env.contentResolver.AccessibleContent(ctx, memberB)
	require.NoError(t, err)
	for _, c := range visible {
		assert.NotEqual(t, course.ID, c.ID,
			"TEN-01 SECURITY: unassigned member MUST NOT see foreign content")
	}
}

// TestPurpose: Validates that cross-tenant grants are rejected unless the content tenant is root.
// Scope: Integration Test
// Security: Grant authorization boundary
// Expected: Grant from client-tenant content to a foreign principal fails; root-tenant content succeeds.
// Test Case ID: TEN-02
func TestTenant_CrossTenantGrant_RootOnly(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database")
	}

	ctx := context.Background()
	env := newTestEnv()

	rootTenant := seedTenant(t, env, tenant.KindRoot, nil)
	clientTenant := seedTenant(t, env, tenant.KindClient, nil)

	rootAdmin := seedPrincipal(t, env, rootTenant.ID, rbac.RoleTenantAdmin)
	clientAdmin := seedPrincipal(t, env, clientTenant.ID, rbac.RoleTenantAdmin)
	learner := seedPrincipal(t, env, clientTenant.ID, rbac.RoleMember)

	rootCourse, _, _ := seedCourseTree(t, env, rootAdmin, content.VisibilityGlobal, []string{"guided"})

	// A client admin may grant root-owned content to their own members
	a, err := env.assignmentService.Grant(ctx, clientAdmin, learner.ID, assignment.ContentChain{CourseID: rootCourse.ID}, nil)
	require.NoError(t, err, "TEN-02: root tenant content should be grantable cross-tenant")
	assert.Equal(t, assignment.ContextCrossTenant, a.Context)

	// An admin from a foreign client tenant cannot grant another client
	// tenant's content
	otherTenant := seedTenant(t, env, tenant.KindClient, nil)
	otherAdmin := seedPrincipal(t, env, otherTenant.ID, rbac.RoleTenantAdmin)
	clientCourse, _, _ := seedCourseTree(t, env, clientAdmin, content.VisibilityTenantWide, []string{"guided"})

	_, err = env.assignmentService.Grant(ctx, otherAdmin, learner.ID, assignment.ContentChain{CourseID: clientCourse.ID}, nil)
	require.Error(t, err, "TEN-02 SECURITY: client tenant content MUST NOT cross tenant boundaries")
	e, ok := assignment.AsError(err)
	require.True(t, ok)
	assert.Equal(t, assignment.CodeForbidden, e.Code)
}

// =============================================================================
// ASSIGNMENT CASCADE TESTS
// =============================================================================

// TestPurpose: Validates parent-before-child ordering on grants along the content chain.
// Scope: Integration Test
// Expected: Scenario grant fails without an active module assignment; succeeds after granting course and module.
// Test Case ID: ASG-01
func TestAssignment_Grant_ParentBeforeChild(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database")
	}

	ctx := context.Background()
	env := newTestEnv()

	tn := seedTenant(t, env, tenant.KindClient, nil)
	admin := seedPrincipal(t, env, tn.ID, rbac.RoleTenantAdmin)
	learner := seedPrincipal(t, env, tn.ID, rbac.RoleMember)

	course, module, scenario := seedCourseTree(t, env, admin, content.VisibilityTenantWide, []string{"guided", "free"})

	// Scenario first: must fail, no module assignment exists
	_, err := env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{
		CourseID: course.ID, ModuleID: &module.ID, ScenarioID: &scenario.ID,
	}, nil)
	require.Error(t, err, "ASG-01: scenario grant without module must fail")
	e, ok := assignment.AsError(err)
	require.True(t, ok)
	assert.Equal(t, assignment.ReasonParentNotAssigned, e.Reason)

	// Course, then module, then scenario
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID, ModuleID: &module.ID}, nil)
	require.NoError(t, err)
	a, err := env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{
		CourseID: course.ID, ModuleID: &module.ID, ScenarioID: &scenario.ID,
	}, nil)
	require.NoError(t, err)

	// Scenario assignment defaults to the full declared mode set
	assert.ElementsMatch(t, []string{"guided", "free"}, a.AssignedModes)
	assert.False(t, a.Completed)
}

// TestPurpose: Validates bottom-up completion propagation from modes to scenario to module to course.
// Scope: Integration Test
// Expected: Completing every mode completes the scenario; single-child parents complete transitively.
// Test Case ID: ASG-02
func TestAssignment_Completion_PropagatesUpChain(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database")
	}

	ctx := context.Background()
	env := newTestEnv()

	tn := seedTenant(t, env, tenant.KindClient, nil)
	admin := seedPrincipal(t, env, tn.ID, rbac.RoleTenantAdmin)
	learner := seedPrincipal(t, env, tn.ID, rbac.RoleMember)

	course, module, scenario := seedCourseTree(t, env, admin, content.VisibilityTenantWide, []string{"guided", "free"})

	_, err := env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID, ModuleID: &module.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{
		CourseID: course.ID, ModuleID: &module.ID, ScenarioID: &scenario.ID,
	}, nil)
	require.NoError(t, err)

	// First mode alone does not complete the scenario
	result, err := env.assignmentService.UpdateModeProgress(ctx, learner.ID, scenario.ID, "guided", true, nil)
	require.NoError(t, err)
	assert.False(t, result.ScenarioCompleted, "ASG-02: partial mode completion must not complete scenario")

	// Second mode completes the scenario and propagates
	result, err = env.assignmentService.UpdateModeProgress(ctx, learner.ID, scenario.ID, "free", true, nil)
	require.NoError(t, err)
	assert.True(t, result.ScenarioCompleted)

	moduleAssign, err := env.assignments.GetActiveByPair(ctx, learner.ID, module.ID)
	require.NoError(t, err)
	require.NotNil(t, moduleAssign)
	assert.True(t, moduleAssign.Completed, "ASG-02: module must complete when all children complete")

	courseAssign, err := env.assignments.GetActiveByPair(ctx, learner.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, courseAssign)
	assert.True(t, courseAssign.Completed, "ASG-02: course must complete when all children complete")

	// Un-completing a mode resets completion all the way up
	result, err = env.assignmentService.UpdateModeProgress(ctx, learner.ID, scenario.ID, "free", false, nil)
	require.NoError(t, err)
	assert.False(t, result.ScenarioCompleted)

	courseAssign, err = env.assignments.GetActiveByPair(ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, courseAssign.Completed, "ASG-02: course completion must reset when a descendant regresses")
}

// TestPurpose: Validates that revoking a course archives the whole assignment subtree.
// Scope: Integration Test
// Expected: Course, module, and scenario assignments all flip inactive; records are retained.
// Test Case ID: ASG-03
func TestAssignment_Revoke_ArchivesSubtree(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database")
	}

	ctx := context.Background()
	env := newTestEnv()

	tn := seedTenant(t, env, tenant.KindClient, nil)
	admin := seedPrincipal(t, env, tn.ID, rbac.RoleTenantAdmin)
	learner := seedPrincipal(t, env, tn.ID, rbac.RoleMember)

	course, module, scenario := seedCourseTree(t, env, admin, content.VisibilityTenantWide, []string{"guided"})

	_, err := env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{CourseID: course.ID, ModuleID: &module.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learner.ID, assignment.ContentChain{
		CourseID: course.ID, ModuleID: &module.ID, ScenarioID: &scenario.ID,
	}, nil)
	require.NoError(t, err)

	archived, err := env.assignmentService.Revoke(ctx, admin, learner.ID, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, archived, "ASG-03: all three chain assignments must archive")

	// Records survive archival
	a, err := env.assignments.GetByPair(ctx, learner.ID, scenario.ID)
	require.NoError(t, err)
	require.NotNil(t, a, "ASG-03: archived record must be retained")
	assert.False(t, a.Active)
	require.NotNil(t, a.ArchivedReason)
}

// =============================================================================
// ARCHIVE / RESTORE TESTS
// =============================================================================

// TestPurpose: Validates that content restore reactivates exactly the assignments its archival deactivated.
// Scope: Integration Test
// Expected: Batch-archived assignments come back; a manually revoked assignment stays archived.
// Test Case ID: ARC-01
func TestArchive_Restore_ReactivatesExactBatch(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database")
	}

	ctx := context.Background()
	env := newTestEnv()

	tn := seedTenant(t, env, tenant.KindClient, nil)
	admin := seedPrincipal(t, env, tn.ID, rbac.RoleTenantAdmin)
	learnerA := seedPrincipal(t, env, tn.ID, rbac.RoleMember)
	learnerB := seedPrincipal(t, env, tn.ID, rbac.RoleMember)

	course, _, _ := seedCourseTree(t, env, admin, content.VisibilityTenantWide, []string{"guided"})

	_, err := env.assignmentService.Grant(ctx, admin, learnerA.ID, assignment.ContentChain{CourseID: course.ID}, nil)
	require.NoError(t, err)
	_, err = env.assignmentService.Grant(ctx, admin, learnerB.ID, assignment.ContentChain{CourseID: course.ID}, nil)
	require.NoError(t, err)

	// Learner B loses the course by manual revoke before archival
	_, err = env.assignmentService.Revoke(ctx, admin, learnerB.ID, course.ID)
	require.NoError(t, err)

	archivedCount, err := env.contentArchiver.ArchiveContent(ctx, admin, course.ID, "seasonal rotation")
	require.NoError(t, err)
	assert.EqualValues(t, 1, archivedCount, "ARC-01: only learner A's active assignment archives in the batch")

	restoredCount, err := env.contentArchiver.RestoreContent(ctx, admin, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, restoredCount)

	// Learner A is active again
	a, err := env.assignments.GetActiveByPair(ctx, learnerA.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, a, "ARC-01: batch-archived assignment must reactivate")

	// CRITICAL: learner B's manual revoke must not resurrect
	b, err := env.assignments.GetActiveByPair(ctx, learnerB.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, b, "ARC-01 CRITICAL: manually revoked assignment MUST stay archived after restore")
}
