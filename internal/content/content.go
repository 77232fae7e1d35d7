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
	"errors"
	"time"
)

// Domain errors
var (
	ErrContentNotFound  = errors.New("content not found")
	ErrNotCreator       = errors.New("actor is not the content creator")
	ErrWrongTenant      = errors.New("content belongs to a different tenant")
	ErrRoleInsufficient = errors.New("actor role is insufficient")
	ErrAlreadyArchived  = errors.New("content is already archived")
	ErrNotArchived      = errors.New("content is not archived")
)

// Kind identifies a node level in the course → module → scenario tree.
type Kind string

const (
	KindCourse   Kind = "course"
	KindModule   Kind = "module"
	KindScenario Kind = "scenario"
)

// Visibility controls who inside the owning tenant may see the content.
type Visibility string

const (
	VisibilityCreatorOnly Visibility = "creator_only"
	VisibilityTenantWide  Visibility = "tenant_wide"
	VisibilityGlobal      Visibility = "global"
)

// Content is a node in the training hierarchy. Courses hold modules,
// modules hold scenarios, and a scenario carries named modes instead of
// children. ChildIDs order is meaningful and mirrors child existence.
type Content struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Title          string     `json:"title"`
	OwningTenantID string     `json:"owning_tenant_id"`
	CreatorID      string     `json:"creator_id"`
	Visibility     Visibility `json:"visibility"`
	Archived       bool       `json:"archived"`
	ArchiveBatchID *string    `json:"archive_batch_id,omitempty"`
	ParentID       *string    `json:"parent_id,omitempty"`
	ChildIDs       []string   `json:"child_ids"`
	Modes          []string   `json:"modes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasChild reports whether childID is a direct child of the content node.
func (c *Content) HasChild(childID string) bool {
	for _, id := range c.ChildIDs {
		if id == childID {
			return true
		}
	}
	return false
}

// HasMode reports whether the scenario offers the named mode.
func (c *Content) HasMode(mode string) bool {
	for _, m := range c.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Repository defines the interface for content persistence
type Repository interface {
	// Create creates a new content node
	Create(ctx context.Context, c *Content) error

	// GetByID retrieves a content node by ID
	GetByID(ctx context.Context, id string) (*Content, error)

	// GetByIDs retrieves content nodes by ID set
	GetByIDs(ctx context.Context, ids []string) ([]*Content, error)

	// ListByTenant retrieves all content owned by a tenant
	ListByTenant(ctx context.Context, tenantID string) ([]*Content, error)

	// ListByParent retrieves the direct children of a node
	ListByParent(ctx context.Context, parentID string) ([]*Content, error)

	// ListGlobalRoot retrieves GLOBAL-visibility content owned by root
	// tenants
	ListGlobalRoot(ctx context.Context) ([]*Content, error)

	// ListAll retrieves all content with pagination
	ListAll(ctx context.Context, limit, offset int) ([]*Content, error)

	// AddChild appends childID to the parent's ordered child list
	AddChild(ctx context.Context, parentID, childID string) error

	// RemoveChild removes childID from the parent's child list
	RemoveChild(ctx context.Context, parentID, childID string) error

	// SetArchived flips the archived flag and the archive batch marker
	SetArchived(ctx context.Context, id string, archived bool, batchID *string) error
}
