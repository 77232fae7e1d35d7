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
	"time"

	"github.com/traincore/traincore/internal/content"
)

// GrantContext classifies a grant relative to tenant boundaries.
type GrantContext string

const (
	ContextInternal    GrantContext = "internal"
	ContextCrossTenant GrantContext = "cross_tenant"
)

// ModeProgress tracks completion of one mode of a scenario assignment.
type ModeProgress struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Assignment links a principal to one node of a content chain. One record
// exists per (principal, content) pair for the record's whole life:
// removal archives it and a repeated grant reactivates it in place.
type Assignment struct {
	ID              string                  `json:"id"`
	PrincipalID     string                  `json:"principal_id"`
	ContentID       string                  `json:"content_id"`
	ContentKind     content.Kind            `json:"content_kind"`
	CourseID        string                  `json:"course_id"`
	ModuleID        *string                 `json:"module_id,omitempty"`
	ScenarioID      *string                 `json:"scenario_id,omitempty"`
	GrantedBy       string                  `json:"granted_by"`
	GrantedByTenant string                  `json:"granted_by_tenant"`
	SourceTenant    string                  `json:"source_tenant"`
	Context         GrantContext            `json:"context"`
	Active          bool                    `json:"active"`
	ArchivedReason  *string                 `json:"archived_reason,omitempty"`
	ArchiveBatchID  *string                 `json:"archive_batch_id,omitempty"`
	Completed       bool                    `json:"completed"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	AssignedModes   []string                `json:"assigned_modes,omitempty"`
	ModeProgress    map[string]ModeProgress `json:"mode_progress,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// HasMode reports whether the mode is part of the assigned set.
func (a *Assignment) HasMode(mode string) bool {
	for _, m := range a.AssignedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Repository defines the interface for assignment persistence
type Repository interface {
	// Create creates a new assignment record
	Create(ctx context.Context, a *Assignment) error

	// GetByPair retrieves the record for (principal, content) in any
	// lifecycle state
	GetByPair(ctx context.Context, principalID, contentID string) (*Assignment, error)

	// GetActiveByPair retrieves the record only while active
	GetActiveByPair(ctx context.Context, principalID, contentID string) (*Assignment, error)

	// Update persists the full mutable state of a record
	Update(ctx context.Context, a *Assignment) error

	// ListActiveByPrincipal retrieves all active assignments of a
	// principal
	ListActiveByPrincipal(ctx context.Context, principalID string) ([]*Assignment, error)

	// ListActiveChildren retrieves the principal's active assignments
	// whose direct parent in the content chain is parentContentID
	ListActiveChildren(ctx context.Context, principalID, parentContentID string) ([]*Assignment, error)

	// ArchiveSubtree archives the principal's active assignments for the
	// content node and everything below it in the chain, returning how
	// many records changed
	ArchiveSubtree(ctx context.Context, principalID, contentID, reason string) (int64, error)

	// ArchiveByContent archives every active assignment touching the
	// given content ids, stamping the batch id and cascade reason
	ArchiveByContent(ctx context.Context, contentIDs []string, batchID, reason string) (int64, error)

	// ReactivateByBatch reactivates exactly the assignments archived
	// under the given batch id
	ReactivateByBatch(ctx context.Context, batchID string) (int64, error)

	// ActiveContentIDs retrieves the content ids of a principal's active
	// assignments
	ActiveContentIDs(ctx context.Context, principalID string) ([]string, error)
}

// BulkOp selects the bulk mutation applied to a target id set.
type BulkOp string

const (
	BulkOpGrant  BulkOp = "grant"
	BulkOpRevoke BulkOp = "revoke"
)

// ItemResult reports the per-item outcome of a bulk operation. A failure
// partway through the set never rolls back earlier items.
type ItemResult struct {
	TargetID   string      `json:"target_id"`
	Assignment *Assignment `json:"assignment,omitempty"`
	Err        *Error      `json:"error,omitempty"`
}

// ContentChain names an assignment target by its full ancestor path.
// CourseID is always set; ModuleID and ScenarioID narrow the target.
type ContentChain struct {
	CourseID   string  `json:"course_id"`
	ModuleID   *string `json:"module_id,omitempty"`
	ScenarioID *string `json:"scenario_id,omitempty"`
}

// TargetID returns the deepest content id of the chain.
func (c ContentChain) TargetID() string {
	if c.ScenarioID != nil {
		return *c.ScenarioID
	}
	if c.ModuleID != nil {
		return *c.ModuleID
	}
	return c.CourseID
}
