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
	"fmt"
	"time"

	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/rbac"
)

var (
	ErrInvalidKind       = errors.New("invalid content kind")
	ErrInvalidVisibility = errors.New("invalid content visibility")
	ErrKindMismatch      = errors.New("parent kind does not accept this child kind")
	ErrScenarioNeedsMode = errors.New("a scenario requires at least one mode")
)

// CreateSpec describes a content node to be created.
type CreateSpec struct {
	Kind       Kind       `json:"kind"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
	ParentID   *string    `json:"parent_id,omitempty"`
	Modes      []string   `json:"modes,omitempty"`
}

// Service maintains the content tree. The parent's ordered child list is
// the authoritative sequencing mirror: every structural change touches
// both the child record and the parent's list.
type Service struct {
	repo Repository
}

// NewService creates a new content service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetContent retrieves a content node by ID
func (s *Service) GetContent(ctx context.Context, contentID string) (*Content, error) {
	return s.repo.GetByID(ctx, contentID)
}

// CreateContent creates a course, module, or scenario. Members cannot
// author content. Modules require a course parent and scenarios a module
// parent; scenarios must declare their modes up front.
func (s *Service) CreateContent(ctx context.Context, actor *principal.Principal, spec CreateSpec) (*Content, error) {
	if actor.Role == rbac.RoleMember {
		return nil, ErrRoleInsufficient
	}
	if spec.Title == "" {
		return nil, fmt.Errorf("content title is required")
	}
	switch spec.Visibility {
	case VisibilityCreatorOnly, VisibilityTenantWide, VisibilityGlobal:
	default:
		return nil, ErrInvalidVisibility
	}

	var parent *Content
	switch spec.Kind {
	case KindCourse:
		if spec.ParentID != nil {
			return nil, ErrKindMismatch
		}
	case KindModule, KindScenario:
		if spec.ParentID == nil {
			return nil, ErrKindMismatch
		}
		var err error
		parent, err = s.repo.GetByID(ctx, *spec.ParentID)
		if err != nil {
			return nil, err
		}
		wantParent := KindCourse
		if spec.Kind == KindScenario {
			wantParent = KindModule
		}
		if parent.Kind != wantParent {
			return nil, ErrKindMismatch
		}
		if parent.OwningTenantID != actor.TenantID && actor.Role != rbac.RoleGlobalAdmin {
			return nil, ErrWrongTenant
		}
	default:
		return nil, ErrInvalidKind
	}

	if spec.Kind == KindScenario && len(spec.Modes) == 0 {
		return nil, ErrScenarioNeedsMode
	}
	if spec.Kind != KindScenario && len(spec.Modes) > 0 {
		return nil, fmt.Errorf("only scenarios carry modes")
	}

	owningTenant := actor.TenantID
	if parent != nil {
		owningTenant = parent.OwningTenantID
	}

	now := time.Now()
	c := &Content{
		ID:             id.NewUUIDv7(),
		Kind:           spec.Kind,
		Title:          spec.Title,
		OwningTenantID: owningTenant,
		CreatorID:      actor.ID,
		Visibility:     spec.Visibility,
		ParentID:       spec.ParentID,
		Modes:          spec.Modes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	if parent != nil {
		if err := s.repo.AddChild(ctx, parent.ID, c.ID); err != nil {
			return nil, fmt.Errorf("failed to link child to parent: %w", err)
		}
	}

	return c, nil
}

// DetachChild removes a child from its parent's ordered list, keeping the
// mirror consistent with child existence.
func (s *Service) DetachChild(ctx context.Context, actor *principal.Principal, parentID, childID string) error {
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	if err := canMutate(actor, parent); err != nil {
		return err
	}
	if !parent.HasChild(childID) {
		return ErrContentNotFound
	}
	return s.repo.RemoveChild(ctx, parentID, childID)
}
