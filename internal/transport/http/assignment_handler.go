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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/traincore/traincore/internal/assignment"
	"github.com/traincore/traincore/internal/observability/logger"
)

// GrantRequest represents a single assignment grant
type GrantRequest struct {
	PrincipalID string                  `json:"principal_id"`
	Chain       assignment.ContentChain `json:"chain"`
	Modes       []string                `json:"modes,omitempty"`
}

// Grant creates or reactivates an assignment for one principal
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.Chain.CourseID == "" {
		respondError(w, http.StatusBadRequest, "principal_id and chain.course_id are required")
		return
	}

	actor := GetActor(r.Context())
	a, err := h.assignmentService.Grant(r.Context(), actor, req.PrincipalID, req.Chain, req.Modes)
	if err != nil {
		slog.ErrorContext(r.Context(), "grant failed",
			logger.Error(err),
			logger.PrincipalID(req.PrincipalID),
			logger.ContentID(req.Chain.TargetID()),
		)
		respondDomainError(w, err)
		return
	}

	h.metrics.Grants.Add(r.Context(), 1)

	respondJSON(w, http.StatusOK, a)
}

// BulkRequest represents a bulk grant or revoke over sibling targets
type BulkRequest struct {
	PrincipalID string   `json:"principal_id"`
	CourseID    string   `json:"course_id"`
	ModuleID    *string  `json:"module_id,omitempty"`
	TargetIDs   []string `json:"target_ids"`
	Op          string   `json:"op"`
}

// BulkApply grants or revokes a batch of sibling targets. Item failures
// are reported per item; the batch itself always succeeds.
func (h *Handler) BulkApply(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.CourseID == "" || len(req.TargetIDs) == 0 {
		respondError(w, http.StatusBadRequest, "principal_id, course_id and target_ids are required")
		return
	}

	op := assignment.BulkOp(req.Op)
	if op != assignment.BulkOpGrant && op != assignment.BulkOpRevoke {
		respondError(w, http.StatusBadRequest, "op must be grant or revoke")
		return
	}

	actor := GetActor(r.Context())
	results, err := h.assignmentService.BulkApply(r.Context(), actor, req.PrincipalID, req.CourseID, req.ModuleID, req.TargetIDs, op)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	for _, item := range results {
		h.metrics.RecordBulkItem(r.Context(), item.Err == nil)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// ProgressRequest represents a mode completion update
type ProgressRequest struct {
	PrincipalID string     `json:"principal_id"`
	ScenarioID  string     `json:"scenario_id"`
	Mode        string     `json:"mode"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// UpdateProgress records mode completion on a scenario assignment and
// propagates completion up the chain
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.ScenarioID == "" || req.Mode == "" {
		respondError(w, http.StatusBadRequest, "principal_id, scenario_id and mode are required")
		return
	}

	result, err := h.assignmentService.UpdateModeProgress(r.Context(), req.PrincipalID, req.ScenarioID, req.Mode, req.Completed, req.CompletedAt)
	if err != nil {
		slog.ErrorContext(r.Context(), "progress update failed",
			logger.Error(err),
			logger.PrincipalID(req.PrincipalID),
			logger.ContentID(req.ScenarioID),
			logger.Mode(req.Mode),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RemoveModeRequest represents a mode removal from a scenario assignment
type RemoveModeRequest struct {
	PrincipalID string `json:"principal_id"`
	ScenarioID  string `json:"scenario_id"`
	Mode        string `json:"mode"`
}

// RemoveMode detaches a mode from an active scenario assignment
func (h *Handler) RemoveMode(w http.ResponseWriter, r *http.Request) {
	var req RemoveModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.ScenarioID == "" || req.Mode == "" {
		respondError(w, http.StatusBadRequest, "principal_id, scenario_id and mode are required")
		return
	}

	actor := GetActor(r.Context())
	a, err := h.assignmentService.RemoveMode(r.Context(), actor, req.PrincipalID, req.ScenarioID, req.Mode)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, a)
}

// RevokeRequest represents an assignment revocation
type RevokeRequest struct {
	PrincipalID string `json:"principal_id"`
	ContentID   string `json:"content_id"`
}

// Revoke archives the assignment subtree rooted at the given content
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrincipalID == "" || req.ContentID == "" {
		respondError(w, http.StatusBadRequest, "principal_id and content_id are required")
		return
	}

	actor := GetActor(r.Context())
	archived, err := h.assignmentService.Revoke(r.Context(), actor, req.PrincipalID, req.ContentID)
	if err != nil {
		slog.ErrorContext(r.Context(), "revoke failed",
			logger.Error(err),
			logger.PrincipalID(req.PrincipalID),
			logger.ContentID(req.ContentID),
		)
		respondDomainError(w, err)
		return
	}

	h.metrics.Revocations.Add(r.Context(), archived)

	respondJSON(w, http.StatusOK, map[string]any{
		"archived": archived,
	})
}

// ListAssignments returns the active assignments of a principal
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	principalID := chi.URLParam(r, "principalID")

	items, err := h.assignmentService.ListActive(r.Context(), principalID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"assignments": items,
	})
}
