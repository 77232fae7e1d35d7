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

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/traincore/traincore/internal/observability/logger"
	"github.com/traincore/traincore/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name           string  `json:"name"`
	Kind           string  `json:"kind"`
	ParentTenantID *string `json:"parent_tenant_id,omitempty"`
}

// CreateTenant creates a new tenant
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Kind == "" {
		respondError(w, http.StatusBadRequest, "name and kind are required")
		return
	}

	actor := GetActor(r.Context())
	t, err := h.tenantService.CreateTenant(r.Context(), actor.Role, req.Name, tenant.Kind(req.Kind), req.ParentTenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "tenant creation failed",
			logger.Error(err),
			"tenant_name", req.Name,
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListTenants returns a page of tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

// SuspendTenant suspends a tenant and deactivates its principals
func (h *Handler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	actor := GetActor(r.Context())
	deactivated, err := h.tenantService.SuspendTenant(r.Context(), actor.Role, tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "tenant suspension failed",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"principals_deactivated": deactivated,
	})
}
