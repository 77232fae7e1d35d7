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

package principal

import (
	"context"
	"fmt"
	"time"

	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/id"
	"github.com/traincore/traincore/internal/rbac"
)

// DefaultTrialWindow is the trial length applied when neither the creator
// nor the request carries an expiry bound.
const DefaultTrialWindow = 7 * 24 * time.Hour

// CreateSpec describes a principal to be created.
type CreateSpec struct {
	Name           string     `json:"name"`
	Role           rbac.Role  `json:"role"`
	TenantID       string     `json:"tenant_id"`
	AccountMode    string     `json:"account_mode"`
	TrialExpiresAt *time.Time `json:"trial_expires_at,omitempty"`
}

// ExtendResult reports the outcome of a trial extension.
type ExtendResult struct {
	Primary       *Principal `json:"primary"`
	CascadedCount int        `json:"cascaded_count"`
}

// Service implements the trial lifecycle: expiry inheritance at creation
// time and cascading extensions through the management hierarchy.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	trialWindow time.Duration
	now         func() time.Time
}

// NewService creates a new principal service
func NewService(repo Repository, auditLogger audit.Logger, trialWindow time.Duration) *Service {
	if trialWindow <= 0 {
		trialWindow = DefaultTrialWindow
	}
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		trialWindow: trialWindow,
		now:         time.Now,
	}
}

// GetPrincipal retrieves a principal by ID
func (s *Service) GetPrincipal(ctx context.Context, principalID string) (*Principal, error) {
	return s.repo.GetByID(ctx, principalID)
}

// CreatePrincipal creates a principal on behalf of a creator. A trial
// creator can only produce trial principals whose expiry never exceeds the
// creator's own window.
func (s *Service) CreatePrincipal(ctx context.Context, creator *Principal, spec CreateSpec) (*Principal, error) {
	if !spec.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("principal name is required")
	}
	if !creator.Role.CanAdminister(spec.Role) {
		return nil, ErrRoleInsufficient
	}
	if creator.Role != rbac.RoleGlobalAdmin && spec.TenantID != creator.TenantID {
		return nil, ErrWrongTenant
	}

	now := s.now()
	mode := spec.AccountMode
	if mode == "" {
		mode = ModeStandard
	}

	var expiresAt *time.Time
	switch {
	case creator.IsTrial():
		// Trial creators force trial children, bounded by their own
		// window.
		mode = ModeTrial
		bound := s.inheritedExpiry(creator.TrialExpiresAt, spec.TrialExpiresAt, now)
		expiresAt = &bound
	case mode == ModeTrial:
		if creator.Role != rbac.RoleGlobalAdmin && creator.Role != rbac.RoleTenantAdmin {
			return nil, ErrRoleInsufficient
		}
		bound := now.Add(s.trialWindow)
		if spec.TrialExpiresAt != nil {
			bound = *spec.TrialExpiresAt
		}
		expiresAt = &bound
	}

	p := &Principal{
		ID:             id.NewUUIDv7(),
		Name:           spec.Name,
		Role:           spec.Role,
		TenantID:       spec.TenantID,
		AccountMode:    mode,
		TrialExpiresAt: expiresAt,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	// Record the management back-reference for non-admin creators so the
	// cascade paths can walk the hierarchy later.
	if creator.Role == rbac.RoleManager || creator.Role == rbac.RoleTenantAdmin {
		if err := s.repo.AddManaged(ctx, creator.ID, p.ID); err != nil {
			return nil, fmt.Errorf("failed to record managed principal: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePrincipalCreated,
		TenantID: p.TenantID,
		ActorID:  creator.ID,
		Resource: "principal",
		Metadata: map[string]any{
			"principal_id": p.ID,
			"role":         string(p.Role),
			"account_mode": p.AccountMode,
		},
	})

	return p, nil
}

// inheritedExpiry computes min(creator bound, requested bound), falling
// back to the default window when neither exists.
func (s *Service) inheritedExpiry(creatorBound, requested *time.Time, now time.Time) time.Time {
	switch {
	case creatorBound == nil && requested == nil:
		return now.Add(s.trialWindow)
	case creatorBound == nil:
		return *requested
	case requested == nil:
		return *creatorBound
	case requested.Before(*creatorBound):
		return *requested
	default:
		return *creatorBound
	}
}

// ExtendTrial moves a trial principal's expiry forward by the given number
// of days. Extending a tenant admin lifts every other trial principal of
// the same tenant up to the new expiry; independently longer trials are
// never shortened.
func (s *Service) ExtendTrial(ctx context.Context, actor *Principal, targetID string, days int) (*ExtendResult, error) {
	if days <= 0 {
		return nil, ErrInvalidExtension
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.IsTrial() {
		return nil, ErrNotTrialAccount
	}
	// Extensions flow down the management hierarchy only. There is no
	// self-service path: a trial principal cannot move its own bound.
	if !actor.Role.CanAdminister(target.Role) {
		return nil, ErrRoleInsufficient
	}
	if actor.Role != rbac.RoleGlobalAdmin && actor.TenantID != target.TenantID {
		return nil, ErrWrongTenant
	}

	now := s.now()
	base := now
	if target.TrialExpiresAt != nil && target.TrialExpiresAt.After(now) {
		base = *target.TrialExpiresAt
	}
	newExpiry := base.Add(time.Duration(days) * 24 * time.Hour)

	if err := s.repo.UpdateTrialExpiry(ctx, target.ID, newExpiry); err != nil {
		return nil, fmt.Errorf("failed to extend trial: %w", err)
	}
	target.TrialExpiresAt = &newExpiry
	target.UpdatedAt = now

	cascaded := 0
	if target.Role == rbac.RoleTenantAdmin {
		peers, err := s.repo.ListTrialByTenant(ctx, target.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenant trials: %w", err)
		}
		for _, peer := range peers {
			if peer.ID == target.ID {
				continue
			}
			if peer.TrialExpiresAt != nil && peer.TrialExpiresAt.After(newExpiry) {
				continue
			}
			if err := s.repo.UpdateTrialExpiry(ctx, peer.ID, newExpiry); err != nil {
				return nil, fmt.Errorf("failed to cascade trial extension to %s: %w", peer.ID, err)
			}
			cascaded++
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTrialExtended,
		TenantID: target.TenantID,
		ActorID:  actor.ID,
		Resource: "principal",
		Metadata: map[string]any{
			"principal_id":   target.ID,
			"new_expiry":     newExpiry,
			"cascaded_count": cascaded,
		},
	})

	return &ExtendResult{Primary: target, CascadedCount: cascaded}, nil
}

// ExpireTrials deactivates every trial principal whose window lapsed.
// Invoked by the maintenance sweep, not by request paths.
func (s *Service) ExpireTrials(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpiredTrials(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire trials: %w", err)
	}
	if n > 0 {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePrincipalDeactivated,
			Resource: "principal",
			Metadata: map[string]any{"expired_trials": n},
		})
	}
	return n, nil
}
