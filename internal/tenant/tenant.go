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

package tenant

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrInvalidParentKind   = errors.New("parent tenant must be root or client")
	ErrRoleInsufficient    = errors.New("actor role is insufficient")
)

// Kind classifies a tenant. Root tenants are privileged: their content is
// assignable across tenant boundaries.
type Kind string

const (
	KindRoot       Kind = "root"
	KindClient     Kind = "client"
	KindSubsidiary Kind = "subsidiary"
)

// Status constants
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusInactive  = "inactive"
)

// Tenant is an organizational unit owning content and principals.
type Tenant struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           Kind      `json:"kind"`
	ParentTenantID *string   `json:"parent_tenant_id,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsRoot reports whether the tenant is a privileged root tenant.
func (t *Tenant) IsRoot() bool {
	return t.Kind == KindRoot
}

// Repository defines the interface for tenant persistence
type Repository interface {
	// Create creates a new tenant
	Create(ctx context.Context, t *Tenant) error

	// GetByID retrieves a tenant by ID
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// GetByName retrieves a tenant by name
	GetByName(ctx context.Context, name string) (*Tenant, error)

	// Update updates tenant information
	Update(ctx context.Context, t *Tenant) error

	// List retrieves tenants with pagination
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}
