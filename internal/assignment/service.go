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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/content"
	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/tenant"
)

// TenantDirectory resolves tenant records for grant-context decisions.
type TenantDirectory interface {
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

// ProgressResult reports the scenario-level outcome of a mode update.
type ProgressResult struct {
	ScenarioCompleted bool `json:"scenario_completed"`
}

// Service is the assignment cascade manager: it creates, reactivates, and
// bulk-mutates assignment records along the course → module → scenario
// chain and propagates completion bottom-up. Each call reads state fresh
// from the store; racing writers resolve last-write-wins.
type Service struct {
	repo        Repository
	contents    content.Repository
	tenants     TenantDirectory
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new assignment service
func NewService(repo Repository, contents content.Repository, tenants TenantDirectory, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		contents:    contents,
		tenants:     tenants,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// loadContent fetches a content node, translating repo failures into the
// engine taxonomy.
func (s *Service) loadContent(ctx context.Context, contentID string) (*content.Content, error) {
	c, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return nil, NotFound(fmt.Sprintf("content %s", contentID))
		}
		return nil, StoreUnavailable(err)
	}
	return c, nil
}

// resolveChain loads and validates the target of a content chain. Every
// stated parent/child edge must exist in the content tree, and the target
// kind must match the chain depth.
func (s *Service) resolveChain(ctx context.Context, chain ContentChain) (*content.Content, error) {
	target, err := s.loadContent(ctx, chain.TargetID())
	if err != nil {
		return nil, err
	}

	wantKind := content.KindCourse
	if chain.ScenarioID != nil {
		wantKind = content.KindScenario
	} else if chain.ModuleID != nil {
		wantKind = content.KindModule
	}
	if target.Kind != wantKind {
		return nil, InvalidState(ReasonChainMismatch,
			fmt.Sprintf("content %s is a %s, chain names a %s", target.ID, target.Kind, wantKind))
	}

	if chain.ModuleID != nil {
		course, err := s.loadContent(ctx, chain.CourseID)
		if err != nil {
			return nil, err
		}
		if !course.HasChild(*chain.ModuleID) {
			return nil, InvalidState(ReasonChainMismatch,
				fmt.Sprintf("module %s is not a child of course %s", *chain.ModuleID, chain.CourseID))
		}
	}
	if chain.ScenarioID != nil {
		if chain.ModuleID == nil {
			return nil, InvalidState(ReasonChainMismatch, "scenario chain requires a module id")
		}
		module, err := s.loadContent(ctx, *chain.ModuleID)
		if err != nil {
			return nil, err
		}
		if !module.HasChild(*chain.ScenarioID) {
			return nil, InvalidState(ReasonChainMismatch,
				fmt.Sprintf("scenario %s is not a child of module %s", *chain.ScenarioID, *chain.ModuleID))
		}
	}

	return target, nil
}

// authorize runs the capability dispatch once per write path.
func (s *Service) authorize(ctx context.Context, actor *principal.Principal, target *content.Content, revoke bool) (Decision, error) {
	contentTenant, err := s.tenants.GetByID(ctx, target.OwningTenantID)
	if err != nil {
		return Decision{}, StoreUnavailable(err)
	}

	var dec Decision
	if revoke {
		dec = AuthorizeRevoke(actor, target, contentTenant)
	} else {
		dec = Authorize(actor, target, contentTenant)
	}
	if dec.Allowed {
		return dec, nil
	}

	switch dec.Reason {
	case ReasonContentArchived:
		return dec, InvalidState(ReasonContentArchived, fmt.Sprintf("content %s is archived", target.ID))
	default:
		return dec, Forbidden(dec.Reason, fmt.Sprintf("cannot grant content %s", target.ID))
	}
}

// requireActiveParent enforces parent-before-child: the principal must
// hold an active assignment for the stated parent content.
func (s *Service) requireActiveParent(ctx context.Context, principalID, parentContentID string) error {
	parent, err := s.repo.GetActiveByPair(ctx, principalID, parentContentID)
	if err != nil {
		return StoreUnavailable(err)
	}
	if parent == nil {
		return InvalidState(ReasonParentNotAssigned,
			fmt.Sprintf("no active assignment for parent content %s", parentContentID))
	}
	return nil
}

// resolveModes validates requested modes against the scenario, defaulting
// to the full mode set when none are requested.
func resolveModes(target *content.Content, requested []string) ([]string, error) {
	if target.Kind != content.KindScenario {
		if len(requested) > 0 {
			return nil, Validation(ReasonUnknownMode, "modes apply only to scenario grants")
		}
		return nil, nil
	}
	if len(requested) == 0 {
		return append([]string(nil), target.Modes...), nil
	}
	for _, m := range requested {
		if !target.HasMode(m) {
			return nil, Validation(ReasonUnknownMode, fmt.Sprintf("scenario %s has no mode %q", target.ID, m))
		}
	}
	return requested, nil
}

// Grant creates, reactivates, or extends the assignment of a content chain
// to a principal.
//
// State machine per record: ABSENT → ACTIVE ⇄ ARCHIVED. A grant on an
// archived record reactivates it in place with fresh grant metadata,
// keeping progress for modes that remain assigned. A grant on an active
// record unions the mode sets and is otherwise a no-op.
func (s *Service) Grant(ctx context.Context, actor *principal.Principal, principalID string, chain ContentChain, modes []string) (*Assignment, error) {
	target, err := s.resolveChain(ctx, chain)
	if err != nil {
		return nil, err
	}

	dec, err := s.authorize(ctx, actor, target, false)
	if err != nil {
		return nil, err
	}

	assignedModes, err := resolveModes(target, modes)
	if err != nil {
		return nil, err
	}

	switch target.Kind {
	case content.KindModule:
		if err := s.requireActiveParent(ctx, principalID, chain.CourseID); err != nil {
			return nil, err
		}
	case content.KindScenario:
		if err := s.requireActiveParent(ctx, principalID, *chain.ModuleID); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.GetByPair(ctx, principalID, target.ID)
	if err != nil {
		return nil, StoreUnavailable(err)
	}

	now := s.now()

	if existing == nil {
		a := &Assignment{
			ID:              id.NewUUIDv7(),
			PrincipalID:     principalID,
			ContentID:       target.ID,
			ContentKind:     target.Kind,
			CourseID:        chain.CourseID,
			ModuleID:        chain.ModuleID,
			ScenarioID:      chain.ScenarioID,
			GrantedBy:       actor.ID,
			GrantedByTenant: actor.TenantID,
			SourceTenant:    target.OwningTenantID,
			Context:         dec.Context,
			Active:          true,
			AssignedModes:   assignedModes,
			ModeProgress:    freshProgress(assignedModes),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return nil, StoreUnavailable(err)
		}
		// The parents' AND now ranges over one more active child, so a
		// completed module or course must regress.
		if a.ContentKind == content.KindScenario && a.ModuleID != nil {
			if err := s.propagate(ctx, principalID, *a.ModuleID, a.CourseID, now); err != nil {
				return nil, err
			}
		}
		s.auditGrant(ctx, audit.TypeAssignmentGranted, actor, a)
		return a, nil
	}

	if !existing.Active {
		// Reactivation resets grant metadata but keeps progress for
		// modes that survive into the new assigned set.
		existing.Active = true
		existing.ArchivedReason = nil
		existing.ArchiveBatchID = nil
		existing.GrantedBy = actor.ID
		existing.GrantedByTenant = actor.TenantID
		existing.Context = dec.Context
		existing.AssignedModes = assignedModes
		existing.ModeProgress = carryProgress(existing.ModeProgress, assignedModes)
		existing.UpdatedAt = now
		s.recomputeLeaf(existing, now)
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, StoreUnavailable(err)
		}
		if existing.ContentKind == content.KindScenario && existing.ModuleID != nil {
			if err := s.propagate(ctx, principalID, *existing.ModuleID, existing.CourseID, now); err != nil {
				return nil, err
			}
		}
		s.auditGrant(ctx, audit.TypeAssignmentReactivated, actor, existing)
		return existing, nil
	}

	// Already active: union the mode sets, initialize progress for modes
	// added now, and no-op when nothing changes.
	added := false
	for _, m := range assignedModes {
		if existing.HasMode(m) {
			continue
		}
		existing.AssignedModes = append(existing.AssignedModes, m)
		if existing.ModeProgress == nil {
			existing.ModeProgress = map[string]ModeProgress{}
		}
		existing.ModeProgress[m] = ModeProgress{}
		added = true
	}
	if !added {
		return existing, nil
	}
	existing.UpdatedAt = now
	s.recomputeLeaf(existing, now)
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, StoreUnavailable(err)
	}
	if existing.ContentKind == content.KindScenario && existing.ModuleID != nil {
		if err := s.propagate(ctx, principalID, *existing.ModuleID, existing.CourseID, now); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// freshProgress initializes a zero progress entry per assigned mode.
func freshProgress(modes []string) map[string]ModeProgress {
	if len(modes) == 0 {
		return nil
	}
	progress := make(map[string]ModeProgress, len(modes))
	for _, m := range modes {
		progress[m] = ModeProgress{}
	}
	return progress
}

// carryProgress keeps progress entries for modes that remain assigned and
// resets everything else.
func carryProgress(old map[string]ModeProgress, modes []string) map[string]ModeProgress {
	if len(modes) == 0 {
		return nil
	}
	progress := make(map[string]ModeProgress, len(modes))
	for _, m := range modes {
		progress[m] = old[m]
	}
	return progress
}

// recomputeLeaf refreshes the record's own completion from its mode
// progress; only scenarios carry modes, other kinds are untouched here.
func (s *Service) recomputeLeaf(a *Assignment, now time.Time) {
	if a.ContentKind != content.KindScenario {
		return
	}
	applyCompletion(a, modesComplete(a), now)
}

func (s *Service) auditGrant(ctx context.Context, eventType string, actor *principal.Principal, a *Assignment) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: a.SourceTenant,
		ActorID:  actor.ID,
		Resource: string(a.ContentKind),
		Metadata: map[string]any{
			"assignment_id": a.ID,
			"principal_id":  a.PrincipalID,
			"content_id":    a.ContentID,
			"context":       string(a.Context),
		},
	})
}

// Revoke archives the principal's assignment for the content and cascades
// archival to every descendant assignment in the chain. The record keeps
// its history; a later grant reactivates it.
func (s *Service) Revoke(ctx context.Context, actor *principal.Principal, principalID, contentID string) (int64, error) {
	target, err := s.loadContent(ctx, contentID)
	if err != nil {
		return 0, err
	}
	if _, err := s.authorize(ctx, actor, target, true); err != nil {
		return 0, err
	}

	existing, err := s.repo.GetActiveByPair(ctx, principalID, contentID)
	if err != nil {
		return 0, StoreUnavailable(err)
	}
	if existing == nil {
		return 0, NotFound(fmt.Sprintf("no active assignment of %s for principal %s", contentID, principalID))
	}

	// Manual revocations carry no archive batch id, so a later content
	// restore never resurrects them.
	reason := fmt.Sprintf("revoked_by:%s", actor.ID)
	archived, err := s.repo.ArchiveSubtree(ctx, principalID, contentID, reason)
	if err != nil {
		return 0, StoreUnavailable(err)
	}

	// Surviving ancestors lose a child from their AND and may flip either
	// way: revoking the last incomplete scenario completes the module.
	now := s.now()
	switch existing.ContentKind {
	case content.KindScenario:
		if existing.ModuleID != nil {
			if err := s.propagate(ctx, principalID, *existing.ModuleID, existing.CourseID, now); err != nil {
				return 0, err
			}
		}
	case content.KindModule:
		if err := s.recomputeParent(ctx, principalID, existing.CourseID, now); err != nil {
			return 0, err
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAssignmentRevoked,
		TenantID: existing.SourceTenant,
		ActorID:  actor.ID,
		Resource: string(existing.ContentKind),
		Metadata: map[string]any{
			"principal_id": principalID,
			"content_id":   contentID,
			"archived":     archived,
		},
	})

	return archived, nil
}

// BulkApply grants or revokes a set of sibling targets under one course
// (module ids when moduleID is nil, scenario ids otherwise). Items are
// processed independently and in order; one failure never rolls back or
// stops the rest, and every item reports its own outcome.
func (s *Service) BulkApply(ctx context.Context, actor *principal.Principal, principalID, courseID string, moduleID *string, targetIDs []string, op BulkOp) ([]ItemResult, error) {
	if op != BulkOpGrant && op != BulkOpRevoke {
		return nil, Validation("", fmt.Sprintf("unknown bulk operation %q", op))
	}

	results := make([]ItemResult, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		targetID := targetID
		var (
			a   *Assignment
			err error
		)
		switch op {
		case BulkOpGrant:
			chain := ContentChain{CourseID: courseID}
			if moduleID != nil {
				chain.ModuleID = moduleID
				chain.ScenarioID = &targetID
			} else {
				chain.ModuleID = &targetID
			}
			a, err = s.Grant(ctx, actor, principalID, chain, nil)
		case BulkOpRevoke:
			_, err = s.Revoke(ctx, actor, principalID, targetID)
		}

		item := ItemResult{TargetID: targetID, Assignment: a}
		if err != nil {
			if typed, ok := AsError(err); ok {
				item.Err = typed
			} else {
				item.Err = StoreUnavailable(err)
			}
		}
		results = append(results, item)
	}
	return results, nil
}

// UpdateModeProgress records completion of one mode of a scenario
// assignment and propagates the change bottom-up: scenario, then module,
// then course, each level an AND over its active children. Un-completing
// a mode resets every ancestor. Idempotent.
func (s *Service) UpdateModeProgress(ctx context.Context, principalID, scenarioID, mode string, completed bool, completedAt *time.Time) (*ProgressResult, error) {
	a, err := s.repo.GetActiveByPair(ctx, principalID, scenarioID)
	if err != nil {
		return nil, StoreUnavailable(err)
	}
	if a == nil {
		return nil, NotFound(fmt.Sprintf("no active assignment of scenario %s for principal %s", scenarioID, principalID))
	}
	if !a.HasMode(mode) {
		return nil, Validation(ReasonUnknownMode, fmt.Sprintf("mode %q is not assigned", mode))
	}

	now := s.now()
	entry := ModeProgress{Completed: completed}
	if completed {
		at := now
		if completedAt != nil {
			at = *completedAt
		}
		entry.CompletedAt = &at
	}
	if a.ModeProgress == nil {
		a.ModeProgress = map[string]ModeProgress{}
	}
	a.ModeProgress[mode] = entry

	applyCompletion(a, modesComplete(a), now)
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, StoreUnavailable(err)
	}

	if a.ModuleID != nil {
		if err := s.propagate(ctx, principalID, *a.ModuleID, a.CourseID, now); err != nil {
			return nil, err
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeModeCompleted,
		TenantID: a.SourceTenant,
		ActorID:  principalID,
		Resource: "scenario",
		Metadata: map[string]any{
			"scenario_id": scenarioID,
			"mode":        mode,
			"completed":   completed,
		},
	})

	return &ProgressResult{ScenarioCompleted: a.Completed}, nil
}

// propagate recomputes module then course completion for the principal.
// Archived assignments are excluded by the active-children queries, so
// they never contribute to the AND.
func (s *Service) propagate(ctx context.Context, principalID, moduleID, courseID string, now time.Time) error {
	if err := s.recomputeParent(ctx, principalID, moduleID, now); err != nil {
		return err
	}
	return s.recomputeParent(ctx, principalID, courseID, now)
}

// recomputeParent refreshes one ancestor assignment from its active
// children.
func (s *Service) recomputeParent(ctx context.Context, principalID, parentContentID string, now time.Time) error {
	parent, err := s.repo.GetActiveByPair(ctx, principalID, parentContentID)
	if err != nil {
		return StoreUnavailable(err)
	}
	if parent == nil {
		return nil
	}

	children, err := s.repo.ListActiveChildren(ctx, principalID, parentContentID)
	if err != nil {
		return StoreUnavailable(err)
	}

	if !applyCompletion(parent, childrenComplete(children), now) {
		return nil
	}
	parent.UpdatedAt = now
	if err := s.repo.Update(ctx, parent); err != nil {
		return StoreUnavailable(err)
	}
	return nil
}

// RemoveMode drops a mode from a scenario assignment. The last assigned
// mode cannot be removed; revoke the scenario instead.
func (s *Service) RemoveMode(ctx context.Context, actor *principal.Principal, principalID, scenarioID, mode string) (*Assignment, error) {
	target, err := s.loadContent(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, target, true); err != nil {
		return nil, err
	}

	a, err := s.repo.GetActiveByPair(ctx, principalID, scenarioID)
	if err != nil {
		return nil, StoreUnavailable(err)
	}
	if a == nil {
		return nil, NotFound(fmt.Sprintf("no active assignment of scenario %s for principal %s", scenarioID, principalID))
	}
	if !a.HasMode(mode) {
		return nil, Validation(ReasonUnknownMode, fmt.Sprintf("mode %q is not assigned", mode))
	}
	if len(a.AssignedModes) == 1 {
		return nil, InvalidState(ReasonOnlyModeRemaining, "cannot remove the last assigned mode")
	}

	modes := make([]string, 0, len(a.AssignedModes)-1)
	for _, m := range a.AssignedModes {
		if m != mode {
			modes = append(modes, m)
		}
	}
	a.AssignedModes = modes
	delete(a.ModeProgress, mode)

	now := s.now()
	s.recomputeLeaf(a, now)
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, StoreUnavailable(err)
	}

	if a.ModuleID != nil {
		if err := s.propagate(ctx, principalID, *a.ModuleID, a.CourseID, now); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// ListActive returns the principal's active assignments.
func (s *Service) ListActive(ctx context.Context, principalID string) ([]*Assignment, error) {
	list, err := s.repo.ListActiveByPrincipal(ctx, principalID)
	if err != nil {
		return nil, StoreUnavailable(err)
	}
	return list, nil
}
