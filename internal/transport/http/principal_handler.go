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

	"github.com/go-chi/chi/v5"
	"github.com/traincore/traincore/internal/observability/logger"
	"github.com/traincore/traincore/internal/principal"
)

// CreatePrincipal provisions an account under the acting principal
func (h *Handler) CreatePrincipal(w http.ResponseWriter, r *http.Request) {
	var spec principal.CreateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if spec.Name == "" || spec.TenantID == "" {
		respondError(w, http.StatusBadRequest, "name and tenant_id are required")
		return
	}

	actor := GetActor(r.Context())
	p, err := h.principalService.CreatePrincipal(r.Context(), actor, spec)
	if err != nil {
		slog.ErrorContext(r.Context(), "principal creation failed",
			logger.Error(err),
			logger.TenantID(spec.TenantID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// ExtendTrialRequest represents a trial extension
type ExtendTrialRequest struct {
	Days int `json:"days"`
}

// ExtendTrial pushes out the trial expiry of a principal, cascading through
// tenant peers when the target is a tenant admin
func (h *Handler) ExtendTrial(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "principalID")

	var req ExtendTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := GetActor(r.Context())
	result, err := h.principalService.ExtendTrial(r.Context(), actor, targetID, req.Days)
	if err != nil {
		slog.ErrorContext(r.Context(), "trial extension failed",
			logger.Error(err),
			logger.PrincipalID(targetID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
