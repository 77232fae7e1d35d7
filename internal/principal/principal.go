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
	"errors"
	"time"

	"github.com/traincore/traincore/internal/rbac"
)

// Domain errors
var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrRoleInsufficient  = errors.New("creator role is insufficient")
	ErrWrongTenant       = errors.New("principal belongs to a different tenant")
	ErrNotTrialAccount   = errors.New("principal is not a trial account")
	ErrInvalidRole       = errors.New("invalid principal role")
	ErrInvalidExtension  = errors.New("extension days must be positive")
)

// Account modes
const (
	ModeStandard = "standard"
	ModeTrial    = "trial"
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Principal is an authenticated actor on the platform. Principals are never
// physically removed while assignments reference them; deactivation flips
// Status only.
type Principal struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           rbac.Role  `json:"role"`
	TenantID       string     `json:"tenant_id"`
	AccountMode    string     `json:"account_mode"`
	TrialExpiresAt *time.Time `json:"trial_expires_at,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsTrial reports whether the principal runs on a bounded trial window.
func (p *Principal) IsTrial() bool {
	return p.AccountMode == ModeTrial
}

// TrialExpired reports whether the trial window has lapsed at the given
// instant. Standard accounts never expire.
func (p *Principal) TrialExpired(now time.Time) bool {
	return p.IsTrial() && p.TrialExpiresAt != nil && p.TrialExpiresAt.Before(now)
}

// Repository defines the interface for principal persistence.
// The manager/managed relation is kept as its own table rather than an
// embedded id list on the principal record, so both directions stay
// queryable without duplicate maintenance.
type Repository interface {
	// Create creates a new principal
	Create(ctx context.Context, p *Principal) error

	// GetByID retrieves a principal by ID
	GetByID(ctx context.Context, id string) (*Principal, error)

	// Update updates principal information
	Update(ctx context.Context, p *Principal) error

	// UpdateTrialExpiry sets a new trial expiry for a principal
	UpdateTrialExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// ListTrialByTenant retrieves all trial principals of a tenant
	ListTrialByTenant(ctx context.Context, tenantID string) ([]*Principal, error)

	// AddManaged records that manager administers managed
	AddManaged(ctx context.Context, managerID, managedID string) error

	// ListManaged retrieves the ids of principals a manager administers
	ListManaged(ctx context.Context, managerID string) ([]string, error)

	// DeactivateByTenant deactivates every principal of a tenant,
	// returning how many records changed
	DeactivateByTenant(ctx context.Context, tenantID string) (int64, error)

	// DeactivateExpiredTrials deactivates trial principals whose window
	// lapsed before the given instant
	DeactivateExpiredTrials(ctx context.Context, now time.Time) (int64, error)
}
