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

	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
)

// AssignmentArchiver mutates assignment lifecycle state in bulk during
// content archival. Implemented by the assignment store.
type AssignmentArchiver interface {
	// ArchiveByContent archives every active assignment touching the
	// given content ids, stamping the batch id and reason on each
	ArchiveByContent(ctx context.Context, contentIDs []string, batchID, reason string) (int64, error)

	// ReactivateByBatch reactivates exactly the assignments archived
	// under the given batch id
	ReactivateByBatch(ctx context.Context, batchID string) (int64, error)
}

// Archiver soft-deletes and restores content, cascading the same lifecycle
// change to every live assignment of that content. Each archival stamps a
// fresh batch id so restore resurrects exactly what it archived and
// nothing archived independently beforehand.
type Archiver struct {
	repo        Repository
	assignments AssignmentArchiver
	auditLogger audit.Logger
}

// NewArchiver creates a new content archiver
func NewArchiver(repo Repository, assignments AssignmentArchiver, auditLogger audit.Logger) *Archiver {
	return &Archiver{
		repo:        repo,
		assignments: assignments,
		auditLogger: auditLogger,
	}
}

// canMutate checks archival authorization: the creator, an admin of the
// owning tenant, or a global admin.
func canMutate(actor *principal.Principal, c *Content) error {
	switch {
	case actor.Role == rbac.RoleGlobalAdmin:
		return nil
	case actor.TenantID != c.OwningTenantID:
		return ErrWrongTenant
	case actor.Role == rbac.RoleTenantAdmin:
		return nil
	case c.CreatorID == actor.ID:
		return nil
	default:
		return ErrNotCreator
	}
}

// ArchiveContent archives a content node and every active assignment
// touching it or its descendants. Returns the number of assignments
// archived.
func (a *Archiver) ArchiveContent(ctx context.Context, actor *principal.Principal, contentID, reason string) (int64, error) {
	c, err := a.repo.GetByID(ctx, contentID)
	if err != nil {
		return 0, err
	}
	if err := canMutate(actor, c); err != nil {
		return 0, err
	}
	if c.Archived {
		return 0, ErrAlreadyArchived
	}

	subtree, err := a.collectSubtreeIDs(ctx, c)
	if err != nil {
		return 0, err
	}

	batchID := id.NewUUIDv7()
	// The cascade reason identifies the originating content, not the
	// caller-supplied free text, so descendants are traceable to the
	// event that archived them.
	cascadeReason := fmt.Sprintf("content_archived:%s", c.ID)

	if err := a.repo.SetArchived(ctx, c.ID, true, &batchID); err != nil {
		return 0, fmt.Errorf("failed to archive content: %w", err)
	}

	archived, err := a.assignments.ArchiveByContent(ctx, subtree, batchID, cascadeReason)
	if err != nil {
		return 0, fmt.Errorf("failed to archive assignments: %w", err)
	}

	a.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeContentArchived,
		TenantID: c.OwningTenantID,
		ActorID:  actor.ID,
		Resource: string(c.Kind),
		Metadata: map[string]any{
			"content_id":           c.ID,
			"reason":               reason,
			"archive_batch_id":     batchID,
			"assignments_archived": archived,
		},
	})

	return archived, nil
}

// RestoreContent clears the archived flag and reactivates only the
// assignments archived by the same archival event.
func (a *Archiver) RestoreContent(ctx context.Context, actor *principal.Principal, contentID string) (int64, error) {
	c, err := a.repo.GetByID(ctx, contentID)
	if err != nil {
		return 0, err
	}
	if err := canMutate(actor, c); err != nil {
		return 0, err
	}
	if !c.Archived {
		return 0, ErrNotArchived
	}

	if err := a.repo.SetArchived(ctx, c.ID, false, nil); err != nil {
		return 0, fmt.Errorf("failed to restore content: %w", err)
	}

	var restored int64
	if c.ArchiveBatchID != nil {
		restored, err = a.assignments.ReactivateByBatch(ctx, *c.ArchiveBatchID)
		if err != nil {
			return 0, fmt.Errorf("failed to reactivate assignments: %w", err)
		}
	}

	a.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeContentRestored,
		TenantID: c.OwningTenantID,
		ActorID:  actor.ID,
		Resource: string(c.Kind),
		Metadata: map[string]any{
			"content_id":           c.ID,
			"assignments_restored": restored,
		},
	})

	return restored, nil
}

// collectSubtreeIDs walks the child lists breadth-first, returning the
// content id plus every descendant id.
func (a *Archiver) collectSubtreeIDs(ctx context.Context, c *Content) ([]string, error) {
	ids := []string{c.ID}
	frontier := []string{c.ID}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, parentID := range frontier {
			children, err := a.repo.ListByParent(ctx, parentID)
			if err != nil {
				return nil, fmt.Errorf("list children of %s: %w", parentID, err)
			}
			for _, child := range children {
				ids = append(ids, child.ID)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return ids, nil
}
